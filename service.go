package authkit

import (
	"github.com/fernandezvara/dbkit"
	"go.uber.org/zap"
)

// Config tunes a Service. The zero value is usable: nop logger, nop token
// service, argon2id hashing, default cache and retry sizes.
type Config struct {
	// Logger receives structured lifecycle events. Nil means no logging.
	Logger *zap.Logger
	// Hasher verifies and produces password hashes. Defaults to the
	// argon2id hasher with plaintext passthrough for legacy rows.
	Hasher CredentialHasher
	// Tokens is notified after login and after mutations that change a
	// user's authorization view. Defaults to NopTokenService.
	Tokens TokenService
	// DefaultHashID selects the algorithm for newly stored passwords.
	// Nil selects HashArgon2; HashPlaintext is for tests and legacy data.
	DefaultHashID *HashID
	// ResolverCacheSize bounds each resolver direction.
	// Defaults to DefaultResolverCacheSize.
	ResolverCacheSize int
	// RefMaxAttempts caps reference-generation retries.
	// Defaults to DefaultRefMaxAttempts.
	RefMaxAttempts int
}

// Service provides the identity and access-control core: user directory,
// tenant lifecycle, group memberships and the authorization engine, all
// backed by the database through dbkit.
//
// Error Handling:
// Every operation returns either a package sentinel (wrapped in *Error with
// a stable code and Kind) or a dbkit-wrapped database error. Classify with
// IsNotFound, IsConflict, IsPermissionDenied, IsInvalidInput, or unwrap
// with errors.Is against the sentinels.
//
// Example:
//
//	_, err := service.GetUser(ctx, actor, ref)
//	if authkit.IsPermissionDenied(err) {
//	    // same shape whether the user exists or not
//	}
type Service struct {
	db       dbkit.IDB
	resolver *Resolver
	authz    *Authorizer
	hasher   CredentialHasher
	tokens   TokenService
	log      *zap.Logger

	defaultHashID  HashID
	refMaxAttempts int

	txMonitor *transactionMonitor
}

// NewService creates a new AuthKit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := authkit.NewService(db, authkit.Config{Logger: logger})
func NewService(db dbkit.IDB, cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Hasher == nil {
		cfg.Hasher = NewDefaultHasher(DefaultArgon2Params)
	}
	if cfg.Tokens == nil {
		cfg.Tokens = NopTokenService{}
	}
	defaultHashID := HashArgon2
	if cfg.DefaultHashID != nil {
		defaultHashID = *cfg.DefaultHashID
	}
	if cfg.ResolverCacheSize <= 0 {
		cfg.ResolverCacheSize = DefaultResolverCacheSize
	}
	if cfg.RefMaxAttempts <= 0 {
		cfg.RefMaxAttempts = DefaultRefMaxAttempts
	}

	return &Service{
		db:             db,
		resolver:       NewResolver(cfg.ResolverCacheSize),
		authz:          NewAuthorizer(),
		hasher:         cfg.Hasher,
		tokens:         cfg.Tokens,
		log:            cfg.Logger,
		defaultHashID:  defaultHashID,
		refMaxAttempts: cfg.RefMaxAttempts,
		txMonitor:      newTransactionMonitor(),
	}
}

// Resolver returns the reference resolver, exposed for cache inspection and
// explicit invalidation by embedding applications.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Authorizer returns the pure decision engine, exposed so callers can
// pre-check operations without issuing them.
func (s *Service) Authorizer() *Authorizer {
	return s.authz
}

// withDB returns a copy of the service bound to the given database handle.
// The resolver, monitor and collaborators are shared; only the handle
// changes. This is how transactional closures get a service whose
// statements all run on the transaction.
func (s *Service) withDB(db dbkit.IDB) *Service {
	c := *s
	c.db = db
	return &c
}
