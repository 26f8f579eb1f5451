package authkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"go.uber.org/zap"
)

// ============================================================================
// GROUPS AND MEMBERSHIPS
// ============================================================================

// CreateGroup creates a Normal group inside a tenant. System groups cannot
// be created here; they only come to exist through tenant creation.
func (s *Service) CreateGroup(ctx context.Context, actor *LoginContext, payload *CreateGroup) (*Group, error) {
	tenant, err := s.tenantByRef(ctx, payload.TenantRef)
	if err != nil {
		return nil, s.maskNotFound(actor, err, ErrCreationDenied)
	}
	if err := s.authz.Authorize(actor, OpCreateGroup, Target{TenantRef: payload.TenantRef}); err != nil {
		return nil, err
	}
	if err := validateGroupName(payload.Name); err != nil {
		return nil, err
	}

	ref, err := s.newGroupRef(ctx)
	if err != nil {
		return nil, err
	}
	name := payload.Name
	group := &GroupRecord{
		GroupRef:  ref,
		Name:      &name,
		GroupType: GroupTypeNormal,
		TenantID:  tenant.ID,
	}
	res, err := s.db.NewInsert().Model(group).Exec(ctx)
	if err := dbkit.WithErr(res, err, "CreateGroup").Err(); err != nil {
		return nil, err
	}

	s.log.Info("group created",
		zap.String("group_ref", ref),
		zap.String("tenant_ref", payload.TenantRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return &Group{GroupRef: ref, Name: payload.Name, TenantRef: payload.TenantRef}, nil
}

// GetGroup returns the public view of a Normal group. System groups do not
// exist as far as the group operations are concerned: asking for one fails
// with ErrGroupNotFound for every actor, superusers included.
func (s *Service) GetGroup(ctx context.Context, actor *LoginContext, groupRef string) (*Group, error) {
	group, tenant, err := s.visibleGroupByRef(ctx, actor, groupRef, ErrReadingDenied)
	if err != nil {
		return nil, err
	}
	target := Target{TenantRef: tenant.TenantRef, GroupRef: groupRef}
	if err := s.authz.Authorize(actor, OpReadGroup, target); err != nil {
		return nil, err
	}

	name := ""
	if group.Name != nil {
		name = *group.Name
	}
	return &Group{GroupRef: groupRef, Name: name, TenantRef: tenant.TenantRef}, nil
}

// GetGroupUsers lists the members of a Normal group. Visible to the
// tenant's admins and to the group's own members.
func (s *Service) GetGroupUsers(ctx context.Context, actor *LoginContext, groupRef string) ([]User, error) {
	group, tenant, err := s.visibleGroupByRef(ctx, actor, groupRef, ErrReadingDenied)
	if err != nil {
		return nil, err
	}
	target := Target{TenantRef: tenant.TenantRef, GroupRef: groupRef}
	if err := s.authz.Authorize(actor, OpReadGroup, target); err != nil {
		return nil, err
	}
	return s.groupUsers(ctx, group.ID)
}

// PatchGroup renames a Normal group. The name is the only patchable field;
// a group's tenant is immutable and "tenant" in the patch fails with
// ErrInvalidField. An empty patch is a silent no-op.
func (s *Service) PatchGroup(ctx context.Context, actor *LoginContext, groupRef string, patch map[string]any) (*Group, error) {
	group, tenant, err := s.visibleGroupByRef(ctx, actor, groupRef, ErrModificationDenied)
	if err != nil {
		return nil, err
	}
	target := Target{TenantRef: tenant.TenantRef, GroupRef: groupRef}
	if err := s.authz.Authorize(actor, OpWriteGroup, target); err != nil {
		return nil, err
	}

	name := ""
	if group.Name != nil {
		name = *group.Name
	}

	if len(patch) == 0 {
		return &Group{GroupRef: groupRef, Name: name, TenantRef: tenant.TenantRef}, nil
	}

	current := name
	for field, raw := range patch {
		if field != "name" {
			return nil, invalidField("unknown or immutable field: %s", field)
		}
		value, ok := raw.(string)
		if !ok {
			return nil, invalidField("field name must be a string")
		}
		name = value
	}
	if err := validateGroupName(name); err != nil {
		return nil, err
	}

	// A patch restating the current name changes nothing; skip the write.
	if name == current {
		return &Group{GroupRef: groupRef, Name: name, TenantRef: tenant.TenantRef}, nil
	}

	res, err := s.db.NewUpdate().Model((*GroupRecord)(nil)).
		Set("name = ?", name).
		Where("id = ?", group.ID).
		Exec(ctx)
	if err := dbkit.WithErr(res, err, "PatchGroup").Err(); err != nil {
		return nil, err
	}

	s.log.Info("group patched",
		zap.String("group_ref", groupRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return &Group{GroupRef: groupRef, Name: name, TenantRef: tenant.TenantRef}, nil
}

// DeleteGroup removes a Normal group and its membership edges. System
// groups cannot be deleted here; they disappear only with their tenant.
func (s *Service) DeleteGroup(ctx context.Context, actor *LoginContext, groupRef string) error {
	group, tenant, err := s.visibleGroupByRef(ctx, actor, groupRef, ErrDeletionDenied)
	if err != nil {
		return err
	}
	target := Target{TenantRef: tenant.TenantRef, GroupRef: groupRef}
	if err := s.authz.Authorize(actor, OpDeleteGroup, target); err != nil {
		return err
	}

	err = s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		res, err := txs.db.NewDelete().Model((*Membership)(nil)).
			Where("group_id = ?", group.ID).
			Exec(ctx)
		if err := dbkit.WithErr(res, err, "DeleteGroupMemberships").Err(); err != nil {
			return err
		}
		res, err = txs.db.NewDelete().Model((*GroupRecord)(nil)).
			Where("id = ?", group.ID).
			Exec(ctx)
		return dbkit.WithErr(res, err, "DeleteGroup").Err()
	})
	if err != nil {
		return err
	}

	s.resolver.Invalidate(RefGroup, groupRef, group.ID)

	s.log.Info("group deleted",
		zap.String("group_ref", groupRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return nil
}

// AddMembership adds a user to a Normal group. The user must already be a
// member of the group's tenant; a duplicate edge fails with
// ErrUserAlreadyInGroup.
func (s *Service) AddMembership(ctx context.Context, actor *LoginContext, groupRef, userRef string) error {
	group, tenant, err := s.visibleGroupByRef(ctx, actor, groupRef, ErrModificationDenied)
	if err != nil {
		return err
	}
	user, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrModificationDenied)
	}
	target.TenantRef = tenant.TenantRef
	target.GroupRef = groupRef
	if err := s.authz.Authorize(actor, OpWriteMembership, target); err != nil {
		return err
	}

	if !contains(target.UserTenants, tenant.TenantRef) {
		return NewError(ErrUserNotInGroup, "user is not a member of the group's tenant").
			WithUser(userRef).WithTenant(tenant.TenantRef).WithGroup(groupRef)
	}

	if err := s.insertMembership(ctx, user.ID, group.ID); err != nil {
		return err
	}
	if err := s.recordAudit(ctx, actor, AuditActionMembershipAdded,
		userRef, groupRef, tenant.TenantRef); err != nil {
		return err
	}

	s.log.Info("membership added",
		zap.String("group_ref", groupRef),
		zap.String("user_ref", userRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return s.syncTokenView(ctx, userRef, tenant.TenantRef)
}

// RemoveMembership removes a user from a Normal group. Removing an edge
// that is not there fails with ErrUserNotInGroup.
func (s *Service) RemoveMembership(ctx context.Context, actor *LoginContext, groupRef, userRef string) error {
	group, tenant, err := s.visibleGroupByRef(ctx, actor, groupRef, ErrModificationDenied)
	if err != nil {
		return err
	}
	user, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrModificationDenied)
	}
	target.TenantRef = tenant.TenantRef
	target.GroupRef = groupRef
	if err := s.authz.Authorize(actor, OpWriteMembership, target); err != nil {
		return err
	}

	if err := s.deleteMembership(ctx, user.ID, group.ID); err != nil {
		return err
	}
	if err := s.recordAudit(ctx, actor, AuditActionMembershipRemoved,
		userRef, groupRef, tenant.TenantRef); err != nil {
		return err
	}

	s.log.Info("membership removed",
		zap.String("group_ref", groupRef),
		zap.String("user_ref", userRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return s.syncTokenView(ctx, userRef, tenant.TenantRef)
}

// visibleGroupByRef fetches a group for the group-facing operations,
// treating system groups as nonexistent. A reference that does not resolve
// is masked to the operation's denial for non-superusers, so guessing refs
// reveals nothing; a resolved system group stays ErrGroupNotFound for every
// actor because system groups are never addressable.
func (s *Service) visibleGroupByRef(ctx context.Context, actor *LoginContext, ref string, denied error) (*GroupRecord, *TenantRecord, error) {
	group, err := s.groupByRef(ctx, ref)
	if err != nil {
		return nil, nil, s.maskNotFound(actor, err, denied)
	}
	if group.GroupType != GroupTypeNormal {
		return nil, nil, NewError(ErrGroupNotFound, "system groups are not addressable").WithGroup(ref)
	}
	tenant, err := s.tenantByID(ctx, group.TenantID)
	if err != nil {
		return nil, nil, err
	}
	return group, tenant, nil
}

// groupUsers lists the active users holding a membership in a group.
func (s *Service) groupUsers(ctx context.Context, groupID int64) ([]User, error) {
	var rows []UserRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rows).
		Join("JOIN auth_memberships AS m ON m.user_id = u.id").
		Where("m.group_id = ? AND u.status = ?", groupID, UserStatusActive).
		Order("u.username ASC").
		Scan(ctx), "GetGroupUsers").Err()
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(rows))
	for i := range rows {
		users = append(users, *rows[i].View())
	}
	return users, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
