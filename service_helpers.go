package authkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

func (s *Service) userByID(ctx context.Context, id int64) (*UserRecord, error) {
	var rec UserRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).
		Where("id = ? AND status = ?", id, UserStatusActive).
		Limit(1).Scan(ctx), "GetUserByID").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrUserNotFound, "no active user row for internal key")
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Service) userByRef(ctx context.Context, ref string) (*UserRecord, error) {
	id, err := s.resolver.Resolve(ctx, s.db, RefUser, ref)
	if err != nil {
		return nil, err
	}
	rec, err := s.userByID(ctx, id)
	if err != nil {
		// The cached key outlived the row. Drop it so the next call misses.
		if IsNotFound(err) {
			s.resolver.Invalidate(RefUser, ref, id)
		}
		return nil, err
	}
	return rec, nil
}

func (s *Service) userByUsername(ctx context.Context, username string) (*UserRecord, error) {
	var rec UserRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).
		Where("username = ? AND status = ?", username, UserStatusActive).
		Limit(1).Scan(ctx), "GetUserByUsername").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrUserNotFound, "no active user with username").WithUser(username)
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Service) tenantByRef(ctx context.Context, ref string) (*TenantRecord, error) {
	id, err := s.resolver.Resolve(ctx, s.db, RefTenant, ref)
	if err != nil {
		return nil, err
	}
	return s.tenantByID(ctx, id)
}

func (s *Service) tenantByID(ctx context.Context, id int64) (*TenantRecord, error) {
	var rec TenantRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).
		Where("id = ?", id).Limit(1).Scan(ctx), "GetTenantByID").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrTenantNotFound, "no tenant row for internal key")
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Service) groupByRef(ctx context.Context, ref string) (*GroupRecord, error) {
	id, err := s.resolver.Resolve(ctx, s.db, RefGroup, ref)
	if err != nil {
		return nil, err
	}
	var rec GroupRecord
	err = dbkit.WithErr1(s.db.NewSelect().Model(&rec).
		Where("id = ?", id).Limit(1).Scan(ctx), "GetGroupByID").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			s.resolver.Invalidate(RefGroup, ref, id)
			return nil, NewError(ErrGroupNotFound, "no group row for internal key").WithGroup(ref)
		}
		return nil, err
	}
	return &rec, nil
}

// systemGroup fetches a tenant's supergroup or admin group. Every tenant is
// created with exactly one of each; anything else is an invariant violation
// and reported as an internal error, never as a client-caused one.
func (s *Service) systemGroup(ctx context.Context, tenantID int64, gt GroupType) (*GroupRecord, error) {
	var groups []GroupRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&groups).
		Where("tenant_id = ? AND group_type = ?", tenantID, gt).
		Scan(ctx), "GetSystemGroup").Err()
	if err != nil {
		return nil, err
	}
	if len(groups) != 1 {
		sentinel := ErrSupergroupNotFound
		if gt == GroupTypeAdmin {
			sentinel = ErrAdminGroupNotFound
		}
		return nil, NewError(sentinel,
			"tenant does not have exactly one system group of this type")
	}
	return &groups[0], nil
}

// userTenantRefs lists the tenant references a user belongs to, derived
// from supergroup memberships.
func (s *Service) userTenantRefs(ctx context.Context, userID int64) ([]string, error) {
	var refs []string
	err := dbkit.WithErr1(s.db.NewRaw(`
        SELECT t.tenant_ref
        FROM auth_memberships m
        JOIN auth_groups g ON g.id = m.group_id
        JOIN auth_tenants t ON t.id = g.tenant_id
        WHERE m.user_id = ? AND g.group_type = ?`,
		userID, GroupTypeSuper).Scan(ctx, &refs), "GetUserTenantRefs").Err()
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// userTarget resolves a target user and assembles the authorization facts
// about them in one step.
func (s *Service) userTarget(ctx context.Context, ref string) (*UserRecord, Target, error) {
	rec, err := s.userByRef(ctx, ref)
	if err != nil {
		return nil, Target{}, err
	}
	tenants, err := s.userTenantRefs(ctx, rec.ID)
	if err != nil {
		return nil, Target{}, err
	}
	return rec, Target{UserRef: rec.UserRef, UserTenants: tenants}, nil
}

func (s *Service) usernameTaken(ctx context.Context, username string) (bool, error) {
	return dbkit.Exists[UserRecord](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("username = ? AND status = ?", username, UserStatusActive)
	})
}

func (s *Service) membershipExists(ctx context.Context, userID, groupID int64) (bool, error) {
	return dbkit.Exists[Membership](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ? AND group_id = ?", userID, groupID)
	})
}

// Reference-uniqueness predicates for the generator. User references stay
// reserved by soft-deleted rows, so the user predicate does not filter on
// status.

func (s *Service) userRefTaken(ctx context.Context, ref string) (bool, error) {
	return dbkit.Exists[UserRecord](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_ref = ?", ref)
	})
}

func (s *Service) tenantRefTaken(ctx context.Context, ref string) (bool, error) {
	return dbkit.Exists[TenantRecord](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("tenant_ref = ?", ref)
	})
}

func (s *Service) groupRefTaken(ctx context.Context, ref string) (bool, error) {
	return dbkit.Exists[GroupRecord](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("group_ref = ?", ref)
	})
}

func (s *Service) newUserRef(ctx context.Context) (string, error) {
	return genUniqueRef(ctx, s.refMaxAttempts, s.userRefTaken)
}

func (s *Service) newTenantRef(ctx context.Context) (string, error) {
	return genUniqueRef(ctx, s.refMaxAttempts, s.tenantRefTaken)
}

func (s *Service) newGroupRef(ctx context.Context) (string, error) {
	return genUniqueRef(ctx, s.refMaxAttempts, s.groupRefTaken)
}
