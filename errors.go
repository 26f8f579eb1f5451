package authkit

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that map errors onto a transport.
type Kind int

const (
	// KindNotFound means the reference did not resolve or the target row is
	// absent or soft-deleted.
	KindNotFound Kind = iota + 1
	// KindConflict means a uniqueness rule was violated (username taken,
	// duplicate membership).
	KindConflict
	// KindPermissionDenied means the actor failed one of the authorization
	// tiers.
	KindPermissionDenied
	// KindInvalidInput means field-level validation failed.
	KindInvalidInput
	// KindInvariantViolation means an internal invariant no longer holds
	// (e.g. a tenant missing its supergroup). Never client-caused.
	KindInvariantViolation
	// KindUpstream means an external collaborator failed after the local
	// state was already committed.
	KindUpstream
)

// Sentinel errors for authkit operations.
var (
	ErrReadingDenied      = errors.New("authkit: reading denied")
	ErrModificationDenied = errors.New("authkit: modification denied")
	ErrUserNotFound       = errors.New("authkit: user does not exist")
	ErrIncorrectPassword  = errors.New("authkit: password incorrect")
	ErrCreationDenied     = errors.New("authkit: creation denied")
	ErrUsernameTaken      = errors.New("authkit: username is taken")
	ErrInvalidField       = errors.New("authkit: invalid field")
	ErrUseOtherEndpoint   = errors.New("authkit: use the dedicated endpoint")
	ErrDeletionDenied     = errors.New("authkit: deletion denied")

	ErrTenantCreationDenied = errors.New("authkit: tenant creation denied")
	ErrMissingSuperuser     = errors.New("authkit: missing superuser in creation request")
	ErrTenantNotFound       = errors.New("authkit: tenant does not exist")
	ErrTenantNotAuthorized  = errors.New("authkit: tenant not authorized")
	ErrTenantRequired       = errors.New("authkit: tenant reference required")
	ErrSupergroupNotFound   = errors.New("authkit: supergroup not found")
	ErrAdminGroupNotFound   = errors.New("authkit: admin group not found")

	ErrGroupNotFound      = errors.New("authkit: group does not exist")
	ErrUserAlreadyInGroup = errors.New("authkit: user already in group")
	ErrUserNotInGroup     = errors.New("authkit: user not in group")

	ErrUnknownHashID = errors.New("authkit: unknown password hash id")
	ErrRefExhausted  = errors.New("authkit: reference generation retries exhausted")
	ErrUpstream      = errors.New("authkit: upstream service failed")
	ErrDatabaseError = errors.New("authkit: database error")
)

// errInfo carries the stable numeric code, classification and user-facing
// message for each sentinel. Codes are part of the public error contract
// and must not be renumbered.
type errInfo struct {
	code uint16
	kind Kind
	user string
}

var errTable = map[error]errInfo{
	ErrReadingDenied:      {0x0000, KindPermissionDenied, "Permission denied"},
	ErrModificationDenied: {0x0001, KindPermissionDenied, "Permission denied"},
	ErrUserNotFound:       {0x0002, KindNotFound, "User does not exist"},
	ErrIncorrectPassword:  {0x0003, KindPermissionDenied, "Password is incorrect"},
	ErrCreationDenied:     {0x0004, KindPermissionDenied, "Permission denied"},
	ErrUsernameTaken:      {0x0005, KindConflict, "Username is taken"},
	ErrInvalidField:       {0x0006, KindInvalidInput, "Invalid field"},
	ErrUseOtherEndpoint:   {0x000A, KindInvalidInput, "Please use the dedicated endpoint"},
	ErrDeletionDenied:     {0x000B, KindPermissionDenied, "Permission denied"},

	ErrTenantCreationDenied: {0x0100, KindPermissionDenied, "Permission denied"},
	ErrMissingSuperuser:     {0x0101, KindInvalidInput, "Please specify either `superuser` or `superuser_ref`"},
	ErrTenantNotFound:       {0x0111, KindNotFound, "Tenant does not exist"},
	ErrTenantNotAuthorized:  {0x0112, KindPermissionDenied, "Tenant not authorized"},
	ErrTenantRequired:       {0x0113, KindInvalidInput, "Tenant reference required"},
	ErrSupergroupNotFound:   {0x0114, KindInvariantViolation, "Internal error"},
	ErrAdminGroupNotFound:   {0x0115, KindInvariantViolation, "Internal error"},

	ErrGroupNotFound:      {0x0200, KindNotFound, "Group does not exist"},
	ErrUserAlreadyInGroup: {0x0201, KindConflict, "User already in group"},
	ErrUserNotInGroup:     {0x0203, KindNotFound, "User not in group"},

	ErrUnknownHashID: {0x0300, KindInvalidInput, "Unknown password hash"},
	ErrRefExhausted:  {0x0301, KindInvariantViolation, "Internal error"},
	ErrUpstream:      {0x0302, KindUpstream, "Upstream service failed"},
	ErrDatabaseError: {0x0303, KindInvariantViolation, "Internal error"},
}

// Error wraps a sentinel error with its stable code, classification and
// request context.
type Error struct {
	Err    error  // Underlying sentinel error
	Detail string // Internal detail, never shown to end users

	UserRef   string // User involved (if applicable)
	TenantRef string // Tenant involved (if applicable)
	GroupRef  string // Group involved (if applicable)
	ActorRef  string // Actor who triggered the error (if applicable)
}

// NewError creates a new Error around a sentinel with internal detail.
func NewError(err error, detail string) *Error {
	return &Error{Err: err, Detail: detail}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying sentinel for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// Code returns the stable numeric code of the underlying sentinel.
func (e *Error) Code() uint16 {
	return CodeOf(e.Err)
}

// Kind returns the classification of the underlying sentinel.
func (e *Error) Kind() Kind {
	return KindOf(e.Err)
}

// UserMessage returns the short message safe to show to an end user. It
// deliberately does not include Detail, so denied reads and missing rows
// stay indistinguishable to the caller.
func (e *Error) UserMessage() string {
	if info, ok := errTable[e.Err]; ok {
		return info.user
	}
	return "Internal error"
}

// WithUser adds the target user reference to the error.
func (e *Error) WithUser(userRef string) *Error {
	e.UserRef = userRef
	return e
}

// WithTenant adds the tenant reference to the error.
func (e *Error) WithTenant(tenantRef string) *Error {
	e.TenantRef = tenantRef
	return e
}

// WithGroup adds the group reference to the error.
func (e *Error) WithGroup(groupRef string) *Error {
	e.GroupRef = groupRef
	return e
}

// WithActor adds the acting user reference to the error.
func (e *Error) WithActor(actorRef string) *Error {
	e.ActorRef = actorRef
	return e
}

// CodeOf returns the stable numeric code for an error, unwrapping as
// needed. Unknown errors report 0xFFFF.
func CodeOf(err error) uint16 {
	for sentinel, info := range errTable {
		if errors.Is(err, sentinel) {
			return info.code
		}
	}
	return 0xFFFF
}

// KindOf returns the Kind for an error, unwrapping as needed. Unknown
// errors classify as KindInvariantViolation.
func KindOf(err error) Kind {
	for sentinel, info := range errTable {
		if errors.Is(err, sentinel) {
			return info.kind
		}
	}
	return KindInvariantViolation
}

// IsNotFound checks if an error classifies as KindNotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict checks if an error classifies as KindConflict.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsPermissionDenied checks if an error classifies as KindPermissionDenied.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == KindPermissionDenied
}

// IsInvalidInput checks if an error classifies as KindInvalidInput.
func IsInvalidInput(err error) bool {
	return KindOf(err) == KindInvalidInput
}

// IsUpstream checks if an error classifies as KindUpstream.
func IsUpstream(err error) bool {
	return KindOf(err) == KindUpstream
}
