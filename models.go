package authkit

import (
	"time"

	"github.com/uptrace/bun"
)

// UserStatus is the lifecycle state of a user row. The only transition is
// Active -> Deleted, and it is one-way: rows are never physically removed,
// so historical memberships keep their referential integrity.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusDeleted UserStatus = "deleted"
)

// GroupType distinguishes user-managed groups from the two system groups
// every tenant owns. The single-letter encoding is part of the schema.
type GroupType string

const (
	// GroupTypeNormal groups are user-visible and user-managed.
	GroupTypeNormal GroupType = "n"
	// GroupTypeSuper membership defines "belongs to this tenant".
	GroupTypeSuper GroupType = "s"
	// GroupTypeAdmin membership defines "administers this tenant".
	GroupTypeAdmin GroupType = "a"
)

// UserRecord is the storage row for a user. It carries credential columns
// and the lifecycle status; it never leaves the package. Public callers see
// User instead.
type UserRecord struct {
	bun.BaseModel `bun:"table:auth_users,alias:u"`

	ID             int64      `bun:"id,pk,autoincrement"`
	UserRef        string     `bun:"user_ref,notnull"`
	Username       string     `bun:"username,notnull"`
	Password       string     `bun:"password,notnull"`
	PasswordHashID HashID     `bun:"password_hash_id,notnull"`
	Firstname      string     `bun:"firstname,notnull"`
	Lastname       string     `bun:"lastname,notnull"`
	Email          *string    `bun:"email"`
	Timezone       string     `bun:"timezone,notnull"`
	IsSuperuser    bool       `bun:"is_superuser,notnull,default:false"`
	Status         UserStatus `bun:"status,notnull,default:'active'"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// View returns the public representation of the row. The password hash is
// never echoed.
func (r *UserRecord) View() *User {
	return &User{
		UserRef:     r.UserRef,
		Username:    r.Username,
		Firstname:   r.Firstname,
		Lastname:    r.Lastname,
		Email:       r.Email,
		Timezone:    r.Timezone,
		IsSuperuser: r.IsSuperuser,
	}
}

// User is the public view of a user.
type User struct {
	UserRef     string  `json:"user_ref"`
	Username    string  `json:"username"`
	Firstname   string  `json:"firstname"`
	Lastname    string  `json:"lastname"`
	Email       *string `json:"email,omitempty"`
	Timezone    string  `json:"timezone"`
	IsSuperuser bool    `json:"is_superuser"`
}

// UserSelf is the view a user gets of their own login: the user fields plus
// the active tenant.
type UserSelf struct {
	User
	TenantRef  string `json:"tenant_ref"`
	TenantName string `json:"tenant_name"`
}

// TenantRecord is the storage row for a tenant.
type TenantRecord struct {
	bun.BaseModel `bun:"table:auth_tenants,alias:t"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TenantRef string    `bun:"tenant_ref,notnull"`
	Name      string    `bun:"name,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Tenant is the public view of a tenant.
type Tenant struct {
	TenantRef string `json:"tenant_ref"`
	Name      string `json:"name"`
}

// GroupRecord is the storage row for a group. System groups have no name.
type GroupRecord struct {
	bun.BaseModel `bun:"table:auth_groups,alias:g"`

	ID        int64     `bun:"id,pk,autoincrement"`
	GroupRef  string    `bun:"group_ref,notnull"`
	Name      *string   `bun:"name"`
	GroupType GroupType `bun:"group_type,notnull"`
	TenantID  int64     `bun:"tenant_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Group is the public view of a Normal group. System groups are never
// rendered through it.
type Group struct {
	GroupRef  string `json:"group_ref"`
	Name      string `json:"name"`
	TenantRef string `json:"tenant"`
}

// Membership is the edge linking a user to a group, unique per pair.
type Membership struct {
	bun.BaseModel `bun:"table:auth_memberships,alias:m"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	GroupID   int64     `bun:"group_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// CreateUser is the payload for user creation. Email is optional; all
// other fields are required and validated before any write.
type CreateUser struct {
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	Firstname string  `json:"firstname"`
	Lastname  string  `json:"lastname"`
	Email     *string `json:"email,omitempty"`
	Timezone  string  `json:"timezone"`
}

// CreateTenant is the payload for tenant creation. Exactly one of
// Superuser (a full user-creation payload) or SuperuserRef (an existing
// user's reference) must be supplied.
type CreateTenant struct {
	Name         string      `json:"name"`
	Superuser    *CreateUser `json:"superuser,omitempty"`
	SuperuserRef string      `json:"superuser_ref,omitempty"`
}

// CreatedTenant reports the outcome of a successful tenant creation.
type CreatedTenant struct {
	TenantRef    string `json:"tenant_ref"`
	TenantID     int64  `json:"-"`
	SuperuserRef string `json:"superuser_ref"`
}

// CreateGroup is the payload for Normal-group creation.
type CreateGroup struct {
	Name      string `json:"name"`
	TenantRef string `json:"tenant"`
}

// LoginContext is the authorization-relevant view of an authenticated
// actor: the resolved user, the active tenant, the group references the
// user holds within that tenant, and the derived admin flag. It is
// assembled per login (or refresh), never persisted.
type LoginContext struct {
	User       User     `json:"user"`
	TenantRef  string   `json:"tenant_ref"`
	TenantName string   `json:"tenant_name"`
	Groups     []string `json:"groups"`
	IsAdmin    bool     `json:"is_tenant_admin"`
}

// IsInTenant reports whether ref is the actor's active tenant.
func (lc *LoginContext) IsInTenant(tenantRef string) bool {
	return lc.TenantRef == tenantRef
}

// IsAdminInTenant reports whether the actor administers the given tenant.
func (lc *LoginContext) IsAdminInTenant(tenantRef string) bool {
	return lc.IsAdmin && lc.TenantRef == tenantRef
}

// IsInGroup reports whether the actor holds a membership in the group
// within the active tenant.
func (lc *LoginContext) IsInGroup(groupRef string) bool {
	for _, g := range lc.Groups {
		if g == groupRef {
			return true
		}
	}
	return false
}

// IsInAnyTenant reports whether the actor's active tenant appears in the
// given set. Used for cross-tenant write checks.
func (lc *LoginContext) IsInAnyTenant(tenantRefs []string) bool {
	for _, t := range tenantRefs {
		if t == lc.TenantRef {
			return true
		}
	}
	return false
}
