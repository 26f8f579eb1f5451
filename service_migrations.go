package authkit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required for AuthKit.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "authkit-001",
			Description: "Create auth_users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_users (
                    id BIGSERIAL PRIMARY KEY,
                    user_ref TEXT NOT NULL UNIQUE,
                    username TEXT NOT NULL,
                    password TEXT NOT NULL,
                    password_hash_id SMALLINT NOT NULL DEFAULT 1,
                    firstname TEXT NOT NULL,
                    lastname TEXT NOT NULL,
                    email TEXT,
                    timezone TEXT NOT NULL,
                    is_superuser BOOLEAN NOT NULL DEFAULT false,
                    status TEXT NOT NULL DEFAULT 'active',
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS auth_users_active_username
                    ON auth_users (username) WHERE status = 'active'`,
		},
		{
			ID:          "authkit-002",
			Description: "Create auth_tenants table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_tenants (
                    id BIGSERIAL PRIMARY KEY,
                    tenant_ref TEXT NOT NULL UNIQUE,
                    name TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "authkit-003",
			Description: "Create auth_groups table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_groups (
                    id BIGSERIAL PRIMARY KEY,
                    group_ref TEXT NOT NULL UNIQUE,
                    name TEXT,
                    group_type TEXT NOT NULL,
                    tenant_id BIGINT NOT NULL REFERENCES auth_tenants (id),
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS auth_groups_one_system_per_tenant
                    ON auth_groups (tenant_id, group_type) WHERE group_type IN ('s', 'a')`,
		},
		{
			ID:          "authkit-004",
			Description: "Create auth_memberships table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_memberships (
                    id BIGSERIAL PRIMARY KEY,
                    user_id BIGINT NOT NULL REFERENCES auth_users (id),
                    group_id BIGINT NOT NULL REFERENCES auth_groups (id),
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    UNIQUE (user_id, group_id)
                )`,
		},
		{
			ID:          "authkit-005",
			Description: "Create auth_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS auth_audit_log (
                    id BIGSERIAL PRIMARY KEY,
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_ref TEXT NOT NULL,
                    action TEXT NOT NULL,
                    target_user_ref TEXT NOT NULL,
                    group_ref TEXT,
                    tenant_ref TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT
                )`,
		},
	}
}
