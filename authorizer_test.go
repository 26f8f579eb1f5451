package authkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func superuserActor() *LoginContext {
	return &LoginContext{
		User:      User{UserRef: "su", IsSuperuser: true},
		TenantRef: "t9",
		IsAdmin:   true,
	}
}

func adminActorT1() *LoginContext {
	return &LoginContext{
		User:      User{UserRef: "adm"},
		TenantRef: "t1",
		Groups:    []string{"sg1", "ag1"},
		IsAdmin:   true,
	}
}

func memberActorT1() *LoginContext {
	return &LoginContext{
		User:      User{UserRef: "mem"},
		TenantRef: "t1",
		Groups:    []string{"sg1", "g1"},
	}
}

func TestAuthorizeSuperuserAllowsEverything(t *testing.T) {
	authz := NewAuthorizer()
	su := superuserActor()

	ops := []Operation{
		OpReadUser, OpWriteUser, OpCreateUser, OpDeleteUser,
		OpReadGroup, OpCreateGroup, OpWriteGroup, OpDeleteGroup, OpWriteMembership,
		OpReadTenant, OpCreateTenant, OpDeleteTenant,
		OpReadTenantAdmins, OpWriteTenantUsers, OpWriteTenantAdmins,
	}
	for _, op := range ops {
		t.Run(op.String(), func(t *testing.T) {
			assert.NoError(t, authz.Authorize(su, op, Target{UserRef: "u1", TenantRef: "t2"}))
		})
	}
}

func TestAuthorizeDecisionTable(t *testing.T) {
	authz := NewAuthorizer()

	userInT1 := Target{UserRef: "u1", UserTenants: []string{"t1"}}
	userInT2 := Target{UserRef: "u2", UserTenants: []string{"t2"}}
	groupInT1 := Target{TenantRef: "t1", GroupRef: "g1"}
	otherGroupInT1 := Target{TenantRef: "t1", GroupRef: "g2"}
	groupInT2 := Target{TenantRef: "t2", GroupRef: "g9"}
	tenantT1 := Target{TenantRef: "t1"}
	tenantT2 := Target{TenantRef: "t2"}

	tests := []struct {
		name    string
		actor   *LoginContext
		op      Operation
		target  Target
		wantErr error
	}{
		// User reads.
		{"admin reads user in own tenant", adminActorT1(), OpReadUser, userInT1, nil},
		{"member reads user in shared tenant", memberActorT1(), OpReadUser, userInT1, nil},
		{"member reads self", memberActorT1(), OpReadUser, Target{UserRef: "mem", UserTenants: []string{"t1"}}, nil},
		{"member cannot read user in other tenant", memberActorT1(), OpReadUser, userInT2, ErrReadingDenied},
		{"admin cannot read user in other tenant", adminActorT1(), OpReadUser, userInT2, ErrReadingDenied},
		{"nil actor cannot read", nil, OpReadUser, userInT1, ErrReadingDenied},

		// User writes.
		{"admin writes user in own tenant", adminActorT1(), OpWriteUser, userInT1, nil},
		{"admin cannot write user in other tenant", adminActorT1(), OpWriteUser, userInT2, ErrModificationDenied},
		{"member writes self", memberActorT1(), OpWriteUser, Target{UserRef: "mem", UserTenants: []string{"t1"}}, nil},
		{"member cannot write another user", memberActorT1(), OpWriteUser, userInT1, ErrModificationDenied},

		// Creation and deletion of users stay with superusers.
		{"admin cannot create users", adminActorT1(), OpCreateUser, Target{}, ErrCreationDenied},
		{"admin cannot delete users", adminActorT1(), OpDeleteUser, userInT1, ErrDeletionDenied},
		{"member cannot delete self", memberActorT1(), OpDeleteUser, Target{UserRef: "mem", UserTenants: []string{"t1"}}, ErrDeletionDenied},

		// Groups.
		{"admin reads group in own tenant", adminActorT1(), OpReadGroup, groupInT1, nil},
		{"group member reads own group", memberActorT1(), OpReadGroup, groupInT1, nil},
		{"tenant member cannot read group they are not in", memberActorT1(), OpReadGroup, otherGroupInT1, ErrReadingDenied},
		{"member cannot read group in other tenant", memberActorT1(), OpReadGroup, groupInT2, ErrReadingDenied},
		{"admin creates group in own tenant", adminActorT1(), OpCreateGroup, tenantT1, nil},
		{"admin cannot create group elsewhere", adminActorT1(), OpCreateGroup, tenantT2, ErrCreationDenied},
		{"member cannot create group", memberActorT1(), OpCreateGroup, tenantT1, ErrCreationDenied},
		{"admin deletes group in own tenant", adminActorT1(), OpDeleteGroup, groupInT1, nil},
		{"member cannot delete group", memberActorT1(), OpDeleteGroup, groupInT1, ErrDeletionDenied},

		// Memberships: the target user must already be in the admin's tenant.
		{"admin adds own-tenant user to group", adminActorT1(), OpWriteMembership,
			Target{UserRef: "u1", UserTenants: []string{"t1"}, TenantRef: "t1", GroupRef: "g1"}, nil},
		{"admin cannot attach foreign user", adminActorT1(), OpWriteMembership,
			Target{UserRef: "u2", UserTenants: []string{"t2"}, TenantRef: "t1", GroupRef: "g1"}, ErrModificationDenied},
		{"member cannot manage membership", memberActorT1(), OpWriteMembership,
			Target{UserRef: "u1", UserTenants: []string{"t1"}, TenantRef: "t1", GroupRef: "g1"}, ErrModificationDenied},

		// Tenants.
		{"member reads own tenant", memberActorT1(), OpReadTenant, tenantT1, nil},
		{"member cannot read other tenant", memberActorT1(), OpReadTenant, tenantT2, ErrReadingDenied},
		{"admin cannot create tenant", adminActorT1(), OpCreateTenant, Target{}, ErrTenantCreationDenied},
		{"admin cannot delete tenant", adminActorT1(), OpDeleteTenant, tenantT1, ErrDeletionDenied},
		{"admin lists tenant admins", adminActorT1(), OpReadTenantAdmins, tenantT1, nil},
		{"member cannot list tenant admins", memberActorT1(), OpReadTenantAdmins, tenantT1, ErrReadingDenied},

		// Tenant user and admin management.
		{"admin promotes own-tenant user", adminActorT1(), OpWriteTenantAdmins,
			Target{UserRef: "u1", UserTenants: []string{"t1"}, TenantRef: "t1"}, nil},
		{"admin cannot promote foreign user", adminActorT1(), OpWriteTenantAdmins,
			Target{UserRef: "u2", UserTenants: []string{"t2"}, TenantRef: "t1"}, ErrModificationDenied},
		{"admin of other tenant cannot manage t2", adminActorT1(), OpWriteTenantUsers,
			Target{UserRef: "u2", UserTenants: []string{"t2"}, TenantRef: "t2"}, ErrModificationDenied},

		// Users belonging to no tenant at all are reachable only by
		// superusers; an empty tenant set must never read as "in tenant".
		{"admin cannot attach tenant-less user", adminActorT1(), OpWriteTenantUsers,
			Target{UserRef: "fresh", TenantRef: "t1"}, ErrModificationDenied},
		{"admin cannot promote tenant-less user", adminActorT1(), OpWriteTenantAdmins,
			Target{UserRef: "fresh", TenantRef: "t1"}, ErrModificationDenied},
		{"admin cannot add tenant-less user to group", adminActorT1(), OpWriteMembership,
			Target{UserRef: "fresh", TenantRef: "t1", GroupRef: "g1"}, ErrModificationDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.Authorize(tt.actor, tt.op, tt.target)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				assert.True(t, IsPermissionDenied(err))
			}
		})
	}
}

// Deny errors carry the actor and target references for audit trails.
func TestAuthorizeDenyCarriesContext(t *testing.T) {
	authz := NewAuthorizer()
	err := authz.Authorize(memberActorT1(), OpDeleteTenant, Target{TenantRef: "t1"})

	var akErr *Error
	assert.True(t, errors.As(err, &akErr))
	assert.Equal(t, "mem", akErr.ActorRef)
	assert.Equal(t, "t1", akErr.TenantRef)
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "user.read", OpReadUser.String())
	assert.Equal(t, "tenant.create", OpCreateTenant.String())
	assert.Equal(t, "membership.write", OpWriteMembership.String())
	assert.Equal(t, "unknown", Operation(0).String())
}
