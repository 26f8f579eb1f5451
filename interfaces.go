package authkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Database defines the database operations interface for dependency injection
type Database interface {
	dbkit.IDB
}

// TransactionManager defines the transaction management interface
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context, txs *Service) error) error
	TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, txs *Service) error) error
	ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, txs *Service) error) error
}

// UserDirectory defines the user management interface
type UserDirectory interface {
	CreateUser(ctx context.Context, actor *LoginContext, payload *CreateUser) (*User, error)
	CreateUserInTenant(ctx context.Context, actor *LoginContext, tenantRef string, payload *CreateUser) (*User, error)
	GetUser(ctx context.Context, actor *LoginContext, userRef string) (*User, error)
	PatchUser(ctx context.Context, actor *LoginContext, userRef string, patch map[string]any) (*User, error)
	ChangePassword(ctx context.Context, actor *LoginContext, userRef, newPassword string) error
	DeleteUser(ctx context.Context, actor *LoginContext, userRef string) error
}

// TenantLifecycle defines the tenant management interface
type TenantLifecycle interface {
	CreateTenant(ctx context.Context, actor *LoginContext, payload *CreateTenant) (*CreatedTenant, error)
	GetTenant(ctx context.Context, actor *LoginContext, tenantRef string) (*Tenant, error)
	DeleteTenant(ctx context.Context, actor *LoginContext, tenantRef string) error
}

// MembershipStore defines the group membership interface
type MembershipStore interface {
	CreateGroup(ctx context.Context, actor *LoginContext, payload *CreateGroup) (*Group, error)
	AddMembership(ctx context.Context, actor *LoginContext, groupRef, userRef string) error
	RemoveMembership(ctx context.Context, actor *LoginContext, groupRef, userRef string) error
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// PoolManager defines the connection pool management interface
type PoolManager interface {
	ConfigureConnectionPool(config PoolConfig) error
	GetConnectionPoolConfig() (*PoolConfig, error)
	OptimizeConnectionPool() error
	ResetConnectionPool() error
}

// TransactionMonitor defines the transaction monitoring interface
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
}
