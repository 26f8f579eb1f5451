// Package authkit provides the identity and access-control core for a
// multi-tenant platform: users, tenants, groups, group memberships, and the
// authorization rules that bind them together.
//
// # Core Concepts
//
// External reference: a stable, opaque, randomly generated identifier for an
// entity. References are what callers see; the storage key behind a
// reference is never exposed.
//
// Tenant: an isolation boundary. Every tenant owns exactly two system
// groups, created atomically with the tenant itself: the supergroup (its
// membership defines "belongs to this tenant") and the admin group (its
// membership defines "administers this tenant"). A tenant without both
// groups is corrupt state and is never observable outside a transaction.
//
// Group: either a Normal group (user-visible, user-managed) or one of the
// two system groups. System groups are invisible to the generic group
// operations; they can only be touched through the dedicated tenant
// membership and admin promotion calls.
//
// LoginContext: the authorization-relevant view of an authenticated actor —
// resolved user, active tenant, the group references the user holds within
// that tenant, and the derived tenant-admin flag. Superusers implicitly
// carry supergroup and admin group membership for every tenant.
//
// # Authorization
//
// All permission decisions go through a single table-driven Authorizer with
// three tiers, highest first: global superuser, tenant admin, and
// self/member. Writes that cross a tenant boundary are denied even for
// tenant admins: the target user must already belong to the actor's tenant.
//
// # Basic Usage
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := authkit.NewService(db, authkit.Config{})
//	_, _ = db.Migrate(ctx, authkit.NewMigrationService(service).Migrations())
//
//	created, err := service.CreateTenant(ctx, actor, &authkit.CreateTenant{
//	    Name: "Acme",
//	    Superuser: &authkit.CreateUser{
//	        Username: "root", Password: "secret",
//	        Firstname: "A", Lastname: "B", Timezone: "UTC",
//	    },
//	})
//
// Mutations that span multiple rows (tenant creation and deletion, group
// deletion, user-in-tenant creation) run inside a single database
// transaction and roll back as a unit. External reference resolution is
// memoized in bounded LRU caches owned by the service's resolver; deletes
// invalidate the affected entries so stale references never resolve.
//
// The package talks to two external collaborators through narrow
// interfaces: a CredentialHasher for password hashing (argon2id by default,
// with a plaintext passthrough for legacy data and tests) and a
// TokenService that maintains the denormalized session view. Token updates
// happen after the local transaction commits; a failure there surfaces as
// an Upstream error with the local state already applied.
package authkit
