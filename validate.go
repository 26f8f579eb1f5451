package authkit

import (
	"fmt"
	"time"
)

// Field length limits enforced before any write. These match the column
// definitions in the migrations.
const (
	maxNameLen     = 45
	maxUsernameLen = 16
	maxEmailLen    = 45
	maxGroupName   = 45
)

func invalidField(format string, args ...any) *Error {
	return NewError(ErrInvalidField, fmt.Sprintf(format, args...))
}

// validateCreateUser checks a user payload's field lengths and timezone.
// The password is not length-checked here; hashing accepts any input.
func validateCreateUser(u *CreateUser) error {
	if u.Firstname == "" {
		return invalidField("field cannot be empty: firstname")
	}
	if len(u.Firstname) > maxNameLen {
		return invalidField("field firstname is too long (max = %d)", maxNameLen)
	}
	if u.Lastname == "" {
		return invalidField("field cannot be empty: lastname")
	}
	if len(u.Lastname) > maxNameLen {
		return invalidField("field lastname is too long (max = %d)", maxNameLen)
	}
	if u.Username == "" {
		return invalidField("field cannot be empty: username")
	}
	if len(u.Username) > maxUsernameLen {
		return invalidField("field username is too long (max = %d)", maxUsernameLen)
	}
	if u.Email != nil && len(*u.Email) > maxEmailLen {
		return invalidField("field email is too long (max = %d)", maxEmailLen)
	}
	if !isValidTimezone(u.Timezone) {
		return invalidField("invalid timezone: %q", u.Timezone)
	}
	return nil
}

// validateGroupName checks a Normal group's display name.
func validateGroupName(name string) error {
	if name == "" {
		return invalidField("group name cannot be empty")
	}
	if len(name) > maxGroupName {
		return invalidField("group name cannot be longer than %d characters", maxGroupName)
	}
	return nil
}

// isValidTimezone reports whether tz is a recognized IANA zone identifier.
func isValidTimezone(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}
