package authkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"go.uber.org/zap"
)

// ============================================================================
// TENANT LIFECYCLE
// ============================================================================

// CreateTenant creates a tenant together with its two system groups and its
// first admin, in one transaction. Exactly one of payload.Superuser (a new
// user to create) or payload.SuperuserRef (an existing user) must be set;
// that user ends up a member of both the supergroup and the admin group.
// Superuser only.
func (s *Service) CreateTenant(ctx context.Context, actor *LoginContext, payload *CreateTenant) (*CreatedTenant, error) {
	if err := s.authz.Authorize(actor, OpCreateTenant, Target{}); err != nil {
		return nil, err
	}
	if payload.Name == "" {
		return nil, invalidField("field cannot be empty: name")
	}
	if len(payload.Name) > maxNameLen {
		return nil, invalidField("field name is too long (max = %d)", maxNameLen)
	}
	if (payload.Superuser == nil) == (payload.SuperuserRef == "") {
		return nil, NewError(ErrMissingSuperuser,
			"exactly one of superuser and superuser_ref must be set")
	}

	var created CreatedTenant
	err := s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		tenantRef, err := txs.newTenantRef(ctx)
		if err != nil {
			return err
		}
		tenant := &TenantRecord{TenantRef: tenantRef, Name: payload.Name}
		res, err := txs.db.NewInsert().Model(tenant).Exec(ctx)
		if err := dbkit.WithErr(res, err, "CreateTenant").Err(); err != nil {
			return err
		}

		super, err := txs.insertSystemGroup(ctx, tenant.ID, GroupTypeSuper)
		if err != nil {
			return err
		}
		admin, err := txs.insertSystemGroup(ctx, tenant.ID, GroupTypeAdmin)
		if err != nil {
			return err
		}

		var owner *UserRecord
		if payload.Superuser != nil {
			owner, err = txs.insertUser(ctx, payload.Superuser, false)
		} else {
			owner, err = txs.userByRef(ctx, payload.SuperuserRef)
		}
		if err != nil {
			return err
		}

		if err := txs.insertMembership(ctx, owner.ID, super.ID); err != nil {
			return err
		}
		if err := txs.insertMembership(ctx, owner.ID, admin.ID); err != nil {
			return err
		}

		if err := txs.recordAudit(ctx, actor, AuditActionMembershipAdded,
			owner.UserRef, super.GroupRef, tenantRef); err != nil {
			return err
		}
		if err := txs.recordAudit(ctx, actor, AuditActionAdminPromoted,
			owner.UserRef, admin.GroupRef, tenantRef); err != nil {
			return err
		}

		created = CreatedTenant{
			TenantRef:    tenantRef,
			TenantID:     tenant.ID,
			SuperuserRef: owner.UserRef,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tenant created",
		zap.String("tenant_ref", created.TenantRef),
		zap.String("superuser_ref", created.SuperuserRef),
		zap.String("actor_ref", actorRefOf(actor)))

	// The tenant is durable at this point. A token-view failure is
	// reported but does not undo the creation.
	if err := s.syncTokenView(ctx, created.SuperuserRef, created.TenantRef); err != nil {
		return &created, err
	}
	return &created, nil
}

// DeleteTenant removes a tenant with everything it owns: memberships,
// system groups and Normal groups. Users survive; only their edges into the
// tenant disappear. Superuser only.
func (s *Service) DeleteTenant(ctx context.Context, actor *LoginContext, tenantRef string) error {
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrDeletionDenied)
	}
	if err := s.authz.Authorize(actor, OpDeleteTenant, Target{TenantRef: tenantRef}); err != nil {
		return err
	}

	var groups []GroupRecord
	err = s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		if err := dbkit.WithErr1(txs.db.NewSelect().Model(&groups).
			Where("tenant_id = ?", tenant.ID).
			Scan(ctx), "GetTenantGroupRows").Err(); err != nil {
			return err
		}

		res, err := txs.db.NewDelete().Model((*Membership)(nil)).
			Where("group_id IN (SELECT id FROM auth_groups WHERE tenant_id = ?)", tenant.ID).
			Exec(ctx)
		if err := dbkit.WithErr(res, err, "DeleteTenantMemberships").Err(); err != nil {
			return err
		}

		res, err = txs.db.NewDelete().Model((*GroupRecord)(nil)).
			Where("tenant_id = ?", tenant.ID).
			Exec(ctx)
		if err := dbkit.WithErr(res, err, "DeleteTenantGroups").Err(); err != nil {
			return err
		}

		res, err = txs.db.NewDelete().Model((*TenantRecord)(nil)).
			Where("id = ?", tenant.ID).
			Exec(ctx)
		if err := dbkit.WithErr(res, err, "DeleteTenant").Err(); err != nil {
			return err
		}

		return txs.recordAudit(ctx, actor, AuditActionTenantDeleted, "", "", tenantRef)
	})
	if err != nil {
		return err
	}

	s.resolver.Invalidate(RefTenant, tenantRef, tenant.ID)
	for _, g := range groups {
		s.resolver.Invalidate(RefGroup, g.GroupRef, g.ID)
	}

	s.log.Info("tenant deleted",
		zap.String("tenant_ref", tenantRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return nil
}

// GetTenant returns the public view of a tenant. Visible to its members and
// admins, and to superusers.
func (s *Service) GetTenant(ctx context.Context, actor *LoginContext, tenantRef string) (*Tenant, error) {
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return nil, s.maskNotFound(actor, err, ErrReadingDenied)
	}
	if err := s.authz.Authorize(actor, OpReadTenant, Target{TenantRef: tenantRef}); err != nil {
		return nil, err
	}
	return &Tenant{TenantRef: tenant.TenantRef, Name: tenant.Name}, nil
}

// GetUserTenants lists the tenants a user belongs to. Same visibility as
// reading the user.
func (s *Service) GetUserTenants(ctx context.Context, actor *LoginContext, userRef string) ([]Tenant, error) {
	rec, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return nil, s.maskNotFound(actor, err, ErrReadingDenied)
	}
	if err := s.authz.Authorize(actor, OpReadUser, target); err != nil {
		return nil, err
	}

	var tenants []Tenant
	err = dbkit.WithErr1(s.db.NewRaw(`
        SELECT t.tenant_ref, t.name
        FROM auth_memberships m
        JOIN auth_groups g ON g.id = m.group_id
        JOIN auth_tenants t ON t.id = g.tenant_id
        WHERE m.user_id = ? AND g.group_type = ?
        ORDER BY t.name`,
		rec.ID, GroupTypeSuper).Scan(ctx, &tenants), "GetUserTenants").Err()
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

// GetTenantUsers lists the members of a tenant, i.e. its supergroup.
// Visible to members of the tenant.
func (s *Service) GetTenantUsers(ctx context.Context, actor *LoginContext, tenantRef string) ([]User, error) {
	return s.tenantGroupUsers(ctx, actor, tenantRef, GroupTypeSuper, OpReadTenant)
}

// GetTenantAdmins lists the admins of a tenant, i.e. its admin group.
// Visible to the tenant's admins only.
func (s *Service) GetTenantAdmins(ctx context.Context, actor *LoginContext, tenantRef string) ([]User, error) {
	return s.tenantGroupUsers(ctx, actor, tenantRef, GroupTypeAdmin, OpReadTenantAdmins)
}

// GetTenantGroups lists a tenant's Normal groups. System groups are never
// listed here. Visible to members of the tenant.
func (s *Service) GetTenantGroups(ctx context.Context, actor *LoginContext, tenantRef string) ([]Group, error) {
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return nil, s.maskNotFound(actor, err, ErrReadingDenied)
	}
	if err := s.authz.Authorize(actor, OpReadTenant, Target{TenantRef: tenantRef}); err != nil {
		return nil, err
	}

	var rows []GroupRecord
	err = dbkit.WithErr1(s.db.NewSelect().Model(&rows).
		Where("tenant_id = ? AND group_type = ?", tenant.ID, GroupTypeNormal).
		Order("name ASC").
		Scan(ctx), "GetTenantGroups").Err()
	if err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(rows))
	for _, g := range rows {
		name := ""
		if g.Name != nil {
			name = *g.Name
		}
		groups = append(groups, Group{GroupRef: g.GroupRef, Name: name, TenantRef: tenantRef})
	}
	return groups, nil
}

// AddUserToTenant attaches an existing user to a tenant by adding them to
// its supergroup.
func (s *Service) AddUserToTenant(ctx context.Context, actor *LoginContext, tenantRef, userRef string) error {
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrModificationDenied)
	}
	user, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrModificationDenied)
	}
	target.TenantRef = tenantRef
	if err := s.authz.Authorize(actor, OpWriteTenantUsers, target); err != nil {
		return err
	}

	super, err := s.systemGroup(ctx, tenant.ID, GroupTypeSuper)
	if err != nil {
		return err
	}
	if err := s.insertMembership(ctx, user.ID, super.ID); err != nil {
		return err
	}
	if err := s.recordAudit(ctx, actor, AuditActionMembershipAdded,
		userRef, super.GroupRef, tenantRef); err != nil {
		return err
	}

	s.log.Info("user added to tenant",
		zap.String("tenant_ref", tenantRef),
		zap.String("user_ref", userRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return s.syncTokenView(ctx, userRef, tenantRef)
}

// RemoveUserFromTenant detaches a user from a tenant, removing every
// membership edge they hold into its groups, system and Normal alike.
// Fails with ErrUserNotInGroup when the user is not a member.
func (s *Service) RemoveUserFromTenant(ctx context.Context, actor *LoginContext, tenantRef, userRef string) error {
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrModificationDenied)
	}
	user, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrModificationDenied)
	}
	target.TenantRef = tenantRef
	if err := s.authz.Authorize(actor, OpWriteTenantUsers, target); err != nil {
		return err
	}

	super, err := s.systemGroup(ctx, tenant.ID, GroupTypeSuper)
	if err != nil {
		return err
	}
	member, err := s.membershipExists(ctx, user.ID, super.ID)
	if err != nil {
		return err
	}
	if !member {
		return NewError(ErrUserNotInGroup, "user is not a member of the tenant").
			WithUser(userRef).WithTenant(tenantRef)
	}

	err = s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		res, err := txs.db.NewDelete().Model((*Membership)(nil)).
			Where("user_id = ? AND group_id IN (SELECT id FROM auth_groups WHERE tenant_id = ?)",
				user.ID, tenant.ID).
			Exec(ctx)
		if err := dbkit.WithErr(res, err, "RemoveUserFromTenant").Err(); err != nil {
			return err
		}
		return txs.recordAudit(ctx, actor, AuditActionMembershipRemoved,
			userRef, super.GroupRef, tenantRef)
	})
	if err != nil {
		return err
	}

	s.log.Info("user removed from tenant",
		zap.String("tenant_ref", tenantRef),
		zap.String("user_ref", userRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return s.syncTokenView(ctx, userRef, "")
}

// PromoteTenantAdmin adds a tenant member to the tenant's admin group.
// Tenant admins may promote users who already belong to their tenant;
// superusers may promote any member.
func (s *Service) PromoteTenantAdmin(ctx context.Context, actor *LoginContext, tenantRef, userRef string) error {
	return s.setTenantAdmin(ctx, actor, tenantRef, userRef, true)
}

// DemoteTenantAdmin removes a user from the tenant's admin group. Their
// plain membership in the tenant survives.
func (s *Service) DemoteTenantAdmin(ctx context.Context, actor *LoginContext, tenantRef, userRef string) error {
	return s.setTenantAdmin(ctx, actor, tenantRef, userRef, false)
}

func (s *Service) setTenantAdmin(ctx context.Context, actor *LoginContext, tenantRef, userRef string, promote bool) error {
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrModificationDenied)
	}
	user, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrModificationDenied)
	}
	target.TenantRef = tenantRef
	if err := s.authz.Authorize(actor, OpWriteTenantAdmins, target); err != nil {
		return err
	}

	super, err := s.systemGroup(ctx, tenant.ID, GroupTypeSuper)
	if err != nil {
		return err
	}
	member, err := s.membershipExists(ctx, user.ID, super.ID)
	if err != nil {
		return err
	}
	if !member {
		return NewError(ErrUserNotInGroup, "user is not a member of the tenant").
			WithUser(userRef).WithTenant(tenantRef)
	}

	admin, err := s.systemGroup(ctx, tenant.ID, GroupTypeAdmin)
	if err != nil {
		return err
	}

	action := AuditActionAdminPromoted
	if promote {
		err = s.insertMembership(ctx, user.ID, admin.ID)
	} else {
		action = AuditActionAdminDemoted
		err = s.deleteMembership(ctx, user.ID, admin.ID)
	}
	if err != nil {
		return err
	}
	if err := s.recordAudit(ctx, actor, action, userRef, admin.GroupRef, tenantRef); err != nil {
		return err
	}

	s.log.Info("tenant admin changed",
		zap.String("tenant_ref", tenantRef),
		zap.String("user_ref", userRef),
		zap.Bool("promoted", promote),
		zap.String("actor_ref", actorRefOf(actor)))

	return s.syncTokenView(ctx, userRef, tenantRef)
}

// GetTenantSupergroup returns the reference of the tenant's supergroup,
// whose membership defines "belongs to this tenant". This is the only read
// surface for system groups; the generic group operations never see them.
// Visible to members of the tenant.
func (s *Service) GetTenantSupergroup(ctx context.Context, actor *LoginContext, tenantRef string) (*Group, error) {
	return s.tenantSystemGroup(ctx, actor, tenantRef, GroupTypeSuper, OpReadTenant)
}

// GetTenantAdminGroup returns the reference of the tenant's admin group.
// Visible to the tenant's admins only.
func (s *Service) GetTenantAdminGroup(ctx context.Context, actor *LoginContext, tenantRef string) (*Group, error) {
	return s.tenantSystemGroup(ctx, actor, tenantRef, GroupTypeAdmin, OpReadTenantAdmins)
}

func (s *Service) tenantSystemGroup(ctx context.Context, actor *LoginContext, tenantRef string, gt GroupType, op Operation) (*Group, error) {
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return nil, s.maskNotFound(actor, err, ErrReadingDenied)
	}
	if err := s.authz.Authorize(actor, op, Target{TenantRef: tenantRef}); err != nil {
		return nil, err
	}
	group, err := s.systemGroup(ctx, tenant.ID, gt)
	if err != nil {
		return nil, err
	}
	return &Group{GroupRef: group.GroupRef, TenantRef: tenantRef}, nil
}

// tenantGroupUsers lists the users in one of a tenant's system groups.
func (s *Service) tenantGroupUsers(ctx context.Context, actor *LoginContext, tenantRef string, gt GroupType, op Operation) ([]User, error) {
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return nil, s.maskNotFound(actor, err, ErrReadingDenied)
	}
	if err := s.authz.Authorize(actor, op, Target{TenantRef: tenantRef}); err != nil {
		return nil, err
	}
	group, err := s.systemGroup(ctx, tenant.ID, gt)
	if err != nil {
		return nil, err
	}
	return s.groupUsers(ctx, group.ID)
}

// insertSystemGroup creates one of a tenant's system groups. System groups
// carry no name; their type and tenant identify them.
func (s *Service) insertSystemGroup(ctx context.Context, tenantID int64, gt GroupType) (*GroupRecord, error) {
	ref, err := s.newGroupRef(ctx)
	if err != nil {
		return nil, err
	}
	group := &GroupRecord{GroupRef: ref, GroupType: gt, TenantID: tenantID}
	res, err := s.db.NewInsert().Model(group).Exec(ctx)
	if err := dbkit.WithErr(res, err, "CreateSystemGroup").Err(); err != nil {
		return nil, err
	}
	return group, nil
}

// insertMembership adds a user-group edge, mapping the unique constraint to
// ErrUserAlreadyInGroup.
func (s *Service) insertMembership(ctx context.Context, userID, groupID int64) error {
	m := &Membership{UserID: userID, GroupID: groupID}
	res, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err := dbkit.WithErr(res, err, "CreateMembership").Err(); err != nil {
		if dbkit.IsDuplicate(err) {
			return NewError(ErrUserAlreadyInGroup, "membership edge already present")
		}
		return err
	}
	return nil
}

// deleteMembership removes a user-group edge, reporting ErrUserNotInGroup
// when no edge was there.
func (s *Service) deleteMembership(ctx context.Context, userID, groupID int64) error {
	res, err := s.db.NewDelete().Model((*Membership)(nil)).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Exec(ctx)
	if err := dbkit.WithErr(res, err, "DeleteMembership").Err(); err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return NewError(ErrUserNotInGroup, "membership edge not present")
	}
	return nil
}
