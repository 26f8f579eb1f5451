package authkit

// Operation identifies what the actor is trying to do. Every service entry
// point maps to exactly one operation before touching the store.
type Operation int

const (
	OpReadUser Operation = iota + 1
	OpWriteUser
	OpCreateUser
	OpDeleteUser

	OpReadGroup
	OpCreateGroup
	OpWriteGroup
	OpDeleteGroup
	OpWriteMembership

	OpReadTenant
	OpCreateTenant
	OpDeleteTenant
	OpReadTenantAdmins
	OpWriteTenantUsers
	OpWriteTenantAdmins
)

func (op Operation) String() string {
	switch op {
	case OpReadUser:
		return "user.read"
	case OpWriteUser:
		return "user.write"
	case OpCreateUser:
		return "user.create"
	case OpDeleteUser:
		return "user.delete"
	case OpReadGroup:
		return "group.read"
	case OpCreateGroup:
		return "group.create"
	case OpWriteGroup:
		return "group.write"
	case OpDeleteGroup:
		return "group.delete"
	case OpWriteMembership:
		return "membership.write"
	case OpReadTenant:
		return "tenant.read"
	case OpCreateTenant:
		return "tenant.create"
	case OpDeleteTenant:
		return "tenant.delete"
	case OpReadTenantAdmins:
		return "tenant.admins.read"
	case OpWriteTenantUsers:
		return "tenant.users.write"
	case OpWriteTenantAdmins:
		return "tenant.admins.write"
	}
	return "unknown"
}

// rule describes which tiers below superuser may perform an operation.
// Superusers pass every rule and are checked before the table is consulted.
type rule struct {
	// tenantAdmin admits an admin of the target's owning tenant.
	tenantAdmin bool
	// targetInTenant additionally requires the target user to already
	// belong to the actor's tenant. This is what keeps an admin of tenant A
	// from attaching a user who only belongs to tenant B.
	targetInTenant bool
	// self admits the actor when the target user is the actor themselves.
	self bool
	// member admits a plain member of the target's tenant (or of the target
	// group, for group reads).
	member bool
	// denied is the sentinel returned when no tier admits the actor.
	denied error
}

// decisionTable is the single source of truth for the permission matrix.
// Keeping it in one place makes the tier logic independently testable and
// removes the drift risk of per-endpoint boolean checks.
var decisionTable = map[Operation]rule{
	OpReadUser:   {tenantAdmin: true, self: true, member: true, denied: ErrReadingDenied},
	OpWriteUser:  {tenantAdmin: true, targetInTenant: true, self: true, denied: ErrModificationDenied},
	OpCreateUser: {denied: ErrCreationDenied},
	OpDeleteUser: {denied: ErrDeletionDenied},

	OpReadGroup:       {tenantAdmin: true, member: true, denied: ErrReadingDenied},
	OpCreateGroup:     {tenantAdmin: true, denied: ErrCreationDenied},
	OpWriteGroup:      {tenantAdmin: true, denied: ErrModificationDenied},
	OpDeleteGroup:     {tenantAdmin: true, denied: ErrDeletionDenied},
	OpWriteMembership: {tenantAdmin: true, targetInTenant: true, denied: ErrModificationDenied},

	OpReadTenant:        {tenantAdmin: true, member: true, denied: ErrReadingDenied},
	OpCreateTenant:      {denied: ErrTenantCreationDenied},
	OpDeleteTenant:      {denied: ErrDeletionDenied},
	OpReadTenantAdmins:  {tenantAdmin: true, denied: ErrReadingDenied},
	OpWriteTenantUsers:  {tenantAdmin: true, targetInTenant: true, denied: ErrModificationDenied},
	OpWriteTenantAdmins: {tenantAdmin: true, targetInTenant: true, denied: ErrModificationDenied},
}
