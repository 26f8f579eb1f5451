package authkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTenantWithNewOwner(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	actor := h.SuperuserActor()

	created, err := h.service.CreateTenant(h.ctx, actor, &CreateTenant{
		Name:      "Fresh Owner Tenant",
		Superuser: h.NewUserPayload("own"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.TenantRef)
	assert.NotEmpty(t, created.SuperuserRef)

	tenant, err := h.service.GetTenant(h.ctx, actor, created.TenantRef)
	require.NoError(t, err)
	assert.Equal(t, "Fresh Owner Tenant", tenant.Name)

	// The owner lands in both system groups.
	users, err := h.service.GetTenantUsers(h.ctx, actor, created.TenantRef)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, created.SuperuserRef, users[0].UserRef)

	admins, err := h.service.GetTenantAdmins(h.ctx, actor, created.TenantRef)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, created.SuperuserRef, admins[0].UserRef)
}

func TestCreateTenantWithExistingOwner(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	actor := h.SuperuserActor()

	user, err := h.service.CreateUser(h.ctx, actor, h.NewUserPayload("ext"))
	require.NoError(t, err)

	created, err := h.service.CreateTenant(h.ctx, actor, &CreateTenant{
		Name:         "Existing Owner Tenant",
		SuperuserRef: user.UserRef,
	})
	require.NoError(t, err)
	assert.Equal(t, user.UserRef, created.SuperuserRef)

	owner := h.ActorFor(user.UserRef, created.TenantRef)
	assert.True(t, owner.IsAdmin)
}

func TestCreateTenantOwnerValidation(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	actor := h.SuperuserActor()

	// Neither form given.
	_, err := h.service.CreateTenant(h.ctx, actor, &CreateTenant{Name: "No Owner"})
	assert.True(t, errors.Is(err, ErrMissingSuperuser))

	// Both forms given.
	_, err = h.service.CreateTenant(h.ctx, actor, &CreateTenant{
		Name:         "Two Owners",
		Superuser:    h.NewUserPayload("two"),
		SuperuserRef: "someref",
	})
	assert.True(t, errors.Is(err, ErrMissingSuperuser))

	// Missing name.
	_, err = h.service.CreateTenant(h.ctx, actor, &CreateTenant{
		Superuser: h.NewUserPayload("non"),
	})
	assert.True(t, errors.Is(err, ErrInvalidField))
}

func TestCreateTenantRollsBackOnBadOwner(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	actor := h.SuperuserActor()

	payload := h.NewUserPayload("rb")
	payload.Timezone = "Not/AZone"
	_, err := h.service.CreateTenant(h.ctx, actor, &CreateTenant{
		Name:      "Rollback Tenant",
		Superuser: payload,
	})
	require.Error(t, err)

	// Nothing of the tenant survives the failed owner creation.
	metrics := h.service.GetTransactionMetrics()
	assert.Greater(t, metrics.FailedTransactions, int64(0))
}

func TestDeleteTenantCascades(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	actor := h.SuperuserActor()

	created := h.MustCreateTenant("Cascade Tenant")
	group, err := h.service.CreateGroup(h.ctx, actor, &CreateGroup{
		Name:      "Cascade Group",
		TenantRef: created.TenantRef,
	})
	require.NoError(t, err)
	require.NoError(t, h.service.AddMembership(h.ctx, actor, group.GroupRef, created.SuperuserRef))

	require.NoError(t, h.service.DeleteTenant(h.ctx, actor, created.TenantRef))

	_, err = h.service.GetTenant(h.ctx, actor, created.TenantRef)
	assert.True(t, errors.Is(err, ErrTenantNotFound))

	_, err = h.service.GetGroup(h.ctx, actor, group.GroupRef)
	assert.True(t, errors.Is(err, ErrGroupNotFound))

	// The owner survives; only the edges are gone.
	owner, err := h.service.GetUser(h.ctx, actor, created.SuperuserRef)
	require.NoError(t, err)
	tenants, err := h.service.GetUserTenants(h.ctx, actor, owner.UserRef)
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestAddAndRemoveUserFromTenant(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	actor := h.SuperuserActor()

	created := h.MustCreateTenant("Membership Tenant")
	user, err := h.service.CreateUser(h.ctx, actor, h.NewUserPayload("mbr"))
	require.NoError(t, err)

	require.NoError(t, h.service.AddUserToTenant(h.ctx, actor, created.TenantRef, user.UserRef))

	tenants, err := h.service.GetUserTenants(h.ctx, actor, user.UserRef)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, created.TenantRef, tenants[0].TenantRef)

	// Attaching twice is a conflict.
	err = h.service.AddUserToTenant(h.ctx, actor, created.TenantRef, user.UserRef)
	assert.True(t, errors.Is(err, ErrUserAlreadyInGroup))

	require.NoError(t, h.service.RemoveUserFromTenant(h.ctx, actor, created.TenantRef, user.UserRef))

	tenants, err = h.service.GetUserTenants(h.ctx, actor, user.UserRef)
	require.NoError(t, err)
	assert.Empty(t, tenants)

	// Removing a non-member reports the missing edge.
	err = h.service.RemoveUserFromTenant(h.ctx, actor, created.TenantRef, user.UserRef)
	assert.True(t, errors.Is(err, ErrUserNotInGroup))
}

func TestRemoveUserFromTenantDropsGroupEdges(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	actor := h.SuperuserActor()

	created := h.MustCreateTenant("Edge Drop Tenant")
	user, err := h.service.CreateUser(h.ctx, actor, h.NewUserPayload("edg"))
	require.NoError(t, err)
	require.NoError(t, h.service.AddUserToTenant(h.ctx, actor, created.TenantRef, user.UserRef))

	group, err := h.service.CreateGroup(h.ctx, actor, &CreateGroup{
		Name:      "Edge Group",
		TenantRef: created.TenantRef,
	})
	require.NoError(t, err)
	require.NoError(t, h.service.AddMembership(h.ctx, actor, group.GroupRef, user.UserRef))

	require.NoError(t, h.service.RemoveUserFromTenant(h.ctx, actor, created.TenantRef, user.UserRef))

	members, err := h.service.GetGroupUsers(h.ctx, actor, group.GroupRef)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestPromoteAndDemoteTenantAdmin(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	actor := h.SuperuserActor()

	created := h.MustCreateTenant("Admin Tenant")
	user, err := h.service.CreateUser(h.ctx, actor, h.NewUserPayload("adm"))
	require.NoError(t, err)

	// Promotion requires tenant membership first.
	err = h.service.PromoteTenantAdmin(h.ctx, actor, created.TenantRef, user.UserRef)
	assert.True(t, errors.Is(err, ErrUserNotInGroup))

	require.NoError(t, h.service.AddUserToTenant(h.ctx, actor, created.TenantRef, user.UserRef))
	require.NoError(t, h.service.PromoteTenantAdmin(h.ctx, actor, created.TenantRef, user.UserRef))

	lc := h.ActorFor(user.UserRef, created.TenantRef)
	assert.True(t, lc.IsAdmin)

	// Promoting again hits the duplicate edge.
	err = h.service.PromoteTenantAdmin(h.ctx, actor, created.TenantRef, user.UserRef)
	assert.True(t, errors.Is(err, ErrUserAlreadyInGroup))

	require.NoError(t, h.service.DemoteTenantAdmin(h.ctx, actor, created.TenantRef, user.UserRef))

	lc = h.ActorFor(user.UserRef, created.TenantRef)
	assert.False(t, lc.IsAdmin)

	// Demoting again reports the missing edge; plain membership survives.
	err = h.service.DemoteTenantAdmin(h.ctx, actor, created.TenantRef, user.UserRef)
	assert.True(t, errors.Is(err, ErrUserNotInGroup))
}

func TestTenantAdminScope(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	first := h.MustCreateTenant("Scope Tenant A")
	second := h.MustCreateTenant("Scope Tenant B")

	adminA := h.ActorFor(first.SuperuserRef, first.TenantRef)

	// An admin reads their own tenant but not a foreign one.
	_, err := h.service.GetTenant(h.ctx, adminA, first.TenantRef)
	require.NoError(t, err)
	_, err = h.service.GetTenant(h.ctx, adminA, second.TenantRef)
	assert.True(t, errors.Is(err, ErrReadingDenied))

	// An admin cannot promote users of a foreign tenant.
	err = h.service.PromoteTenantAdmin(h.ctx, adminA, second.TenantRef, second.SuperuserRef)
	assert.True(t, IsPermissionDenied(err))

	// Tenant creation and deletion stay with superusers.
	_, err = h.service.CreateTenant(h.ctx, adminA, &CreateTenant{
		Name:         "Shadow",
		SuperuserRef: first.SuperuserRef,
	})
	assert.True(t, errors.Is(err, ErrTenantCreationDenied))
	err = h.service.DeleteTenant(h.ctx, adminA, first.TenantRef)
	assert.True(t, errors.Is(err, ErrDeletionDenied))
}

func TestGetTenantAdminsVisibility(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	actor := h.SuperuserActor()

	created := h.MustCreateTenant("Admins Visibility Tenant")
	user, err := h.service.CreateUser(h.ctx, actor, h.NewUserPayload("vis"))
	require.NoError(t, err)
	require.NoError(t, h.service.AddUserToTenant(h.ctx, actor, created.TenantRef, user.UserRef))

	// A plain member sees the member list but not the admin list.
	member := h.ActorFor(user.UserRef, created.TenantRef)
	_, err = h.service.GetTenantUsers(h.ctx, member, created.TenantRef)
	require.NoError(t, err)
	_, err = h.service.GetTenantAdmins(h.ctx, member, created.TenantRef)
	assert.True(t, errors.Is(err, ErrReadingDenied))

	admin := h.ActorFor(created.SuperuserRef, created.TenantRef)
	admins, err := h.service.GetTenantAdmins(h.ctx, admin, created.TenantRef)
	require.NoError(t, err)
	assert.NotEmpty(t, admins)
}

func TestTenantSystemGroupAccessors(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	created := h.MustCreateTenant("System Accessor Tenant")
	owner := h.ActorFor(created.SuperuserRef, created.TenantRef)

	super, err := h.service.GetTenantSupergroup(h.ctx, owner, created.TenantRef)
	require.NoError(t, err)
	admin, err := h.service.GetTenantAdminGroup(h.ctx, owner, created.TenantRef)
	require.NoError(t, err)
	assert.NotEqual(t, super.GroupRef, admin.GroupRef)

	// Both refs match the groups in the owner's login context.
	assert.Contains(t, owner.Groups, super.GroupRef)
	assert.Contains(t, owner.Groups, admin.GroupRef)

	// The dedicated accessors are the only read path; the generic group
	// operations still refuse these refs.
	_, err = h.service.GetGroup(h.ctx, h.SuperuserActor(), super.GroupRef)
	assert.True(t, errors.Is(err, ErrGroupNotFound))
}

func TestTenantAdminCannotCaptureDetachedUser(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	created := h.MustCreateTenant("Capture Tenant")
	admin := h.ActorFor(created.SuperuserRef, created.TenantRef)

	// A user who belongs to no tenant yet is out of every admin's reach;
	// only superusers may attach them anywhere.
	fresh, err := h.service.CreateUser(h.ctx, h.SuperuserActor(), h.NewUserPayload("cap"))
	require.NoError(t, err)

	err = h.service.AddUserToTenant(h.ctx, admin, created.TenantRef, fresh.UserRef)
	assert.True(t, errors.Is(err, ErrModificationDenied))
	err = h.service.PromoteTenantAdmin(h.ctx, admin, created.TenantRef, fresh.UserRef)
	assert.True(t, IsPermissionDenied(err))

	tenants, err := h.service.GetUserTenants(h.ctx, h.SuperuserActor(), fresh.UserRef)
	require.NoError(t, err)
	assert.Empty(t, tenants)

	// Once a superuser attaches the user, the admin can manage them.
	require.NoError(t, h.service.AddUserToTenant(h.ctx, h.SuperuserActor(), created.TenantRef, fresh.UserRef))
	require.NoError(t, h.service.PromoteTenantAdmin(h.ctx, admin, created.TenantRef, fresh.UserRef))
}

func TestTenantResolutionMasking(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	created := h.MustCreateTenant("Tenant Mask Tenant")
	member := h.ActorFor(created.SuperuserRef, created.TenantRef)

	// Unresolvable tenant refs answer with the same denial an unreadable
	// tenant would produce, so non-superusers cannot learn which refs exist.
	_, err := h.service.GetTenant(h.ctx, member, "no-such-tenant")
	assert.True(t, errors.Is(err, ErrReadingDenied))
	_, err = h.service.GetTenantGroups(h.ctx, member, "no-such-tenant")
	assert.True(t, errors.Is(err, ErrReadingDenied))
	err = h.service.DeleteTenant(h.ctx, member, "no-such-tenant")
	assert.True(t, errors.Is(err, ErrDeletionDenied))
	err = h.service.AddUserToTenant(h.ctx, member, "no-such-tenant", created.SuperuserRef)
	assert.True(t, errors.Is(err, ErrModificationDenied))

	// Superusers keep the precise failure.
	_, err = h.service.GetTenant(h.ctx, h.SuperuserActor(), "no-such-tenant")
	assert.True(t, errors.Is(err, ErrTenantNotFound))
}
