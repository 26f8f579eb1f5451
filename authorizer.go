package authkit

// Target carries the facts about the entity an operation acts on. Callers
// fill in only the fields that exist for their target; the zero value of a
// field means "not applicable".
type Target struct {
	// UserRef is the target user's external reference, for self checks.
	UserRef string
	// UserTenants are the tenant references the target user belongs to,
	// for same-tenant and cross-tenant checks on user-directed operations.
	UserTenants []string
	// TenantRef is the owning tenant of the target entity: the group's
	// tenant for group operations, the tenant itself for tenant operations.
	TenantRef string
	// GroupRef is the target group's external reference, for
	// member-of-group reads.
	GroupRef string
}

// Authorizer is the pure decision function over resolved identities. It
// holds no state besides the decision table and performs no I/O: the
// service gathers the facts, the authorizer decides.
type Authorizer struct {
	table map[Operation]rule
}

// NewAuthorizer creates an authorizer with the standard decision table.
func NewAuthorizer() *Authorizer {
	return &Authorizer{table: decisionTable}
}

// Authorize decides whether the actor may perform op against the target.
// It returns nil on allow and a PermissionDenied-classified error on deny.
// Tiers are evaluated highest first: superuser, tenant admin, self, member.
//
// Deny responses are shaped identically whether or not the target exists;
// existence is the caller's concern and is reported with the same sentinel
// a denied read would produce.
func (a *Authorizer) Authorize(actor *LoginContext, op Operation, t Target) error {
	r, ok := a.table[op]
	if !ok {
		return NewError(ErrModificationDenied, "unknown operation").
			WithActor(actorRefOf(actor))
	}
	if actor == nil {
		return a.deny(r, op, actor, t)
	}

	if actor.User.IsSuperuser {
		return nil
	}

	if r.tenantAdmin && a.adminAdmits(actor, r, t) {
		return nil
	}

	if r.self && t.UserRef != "" && actor.User.UserRef == t.UserRef {
		return nil
	}

	if r.member && a.memberAdmits(actor, t) {
		return nil
	}

	return a.deny(r, op, actor, t)
}

// adminAdmits checks the tenant-admin tier. The actor must administer the
// target's owning tenant; for operations flagged targetInTenant the target
// user must additionally already belong to the actor's tenant, so writes
// never cross a tenant boundary.
func (a *Authorizer) adminAdmits(actor *LoginContext, r rule, t Target) bool {
	if !actor.IsAdmin {
		return false
	}
	if t.TenantRef != "" && !actor.IsAdminInTenant(t.TenantRef) {
		return false
	}
	if t.TenantRef == "" && !actor.IsInAnyTenant(t.UserTenants) {
		return false
	}
	if r.targetInTenant && !actor.IsInAnyTenant(t.UserTenants) {
		// A target belonging to no tenant is not in the actor's tenant
		// either; only superusers may act on it.
		return false
	}
	return true
}

// memberAdmits checks the lowest tier. A group-directed operation admits
// only members of that group; sharing the group's tenant is not enough.
// Tenant-directed operations admit the tenant's members, and user-directed
// ones admit anyone sharing a tenant with the target user.
func (a *Authorizer) memberAdmits(actor *LoginContext, t Target) bool {
	if t.GroupRef != "" {
		return actor.IsInGroup(t.GroupRef)
	}
	if t.TenantRef != "" {
		return actor.IsInTenant(t.TenantRef)
	}
	return actor.IsInAnyTenant(t.UserTenants)
}

func (a *Authorizer) deny(r rule, op Operation, actor *LoginContext, t Target) error {
	return NewError(r.denied, "operation "+op.String()+" denied").
		WithActor(actorRefOf(actor)).
		WithUser(t.UserRef).
		WithTenant(t.TenantRef).
		WithGroup(t.GroupRef)
}

func actorRefOf(actor *LoginContext) string {
	if actor == nil {
		return ""
	}
	return actor.User.UserRef
}
