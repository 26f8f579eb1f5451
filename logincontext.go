package authkit

import (
	"context"
	"strings"

	"github.com/fernandezvara/dbkit"
	"go.uber.org/zap"
)

// BuildLoginContext assembles the authorization view of a user within a
// tenant: the public user, the tenant, the group references the user holds
// there and the derived admin flag.
//
// Superusers are implicit members of every tenant's supergroup and admin
// group, so they get a full context for any tenant without stored edges.
func (s *Service) BuildLoginContext(ctx context.Context, userRef, tenantRef string) (*LoginContext, error) {
	user, err := s.userByRef(ctx, userRef)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return nil, err
	}
	return s.buildLoginContext(ctx, user, tenant)
}

func (s *Service) buildLoginContext(ctx context.Context, user *UserRecord, tenant *TenantRecord) (*LoginContext, error) {
	super, err := s.systemGroup(ctx, tenant.ID, GroupTypeSuper)
	if err != nil {
		return nil, err
	}
	admin, err := s.systemGroup(ctx, tenant.ID, GroupTypeAdmin)
	if err != nil {
		return nil, err
	}

	lc := &LoginContext{
		User:       *user.View(),
		TenantRef:  tenant.TenantRef,
		TenantName: tenant.Name,
	}

	if user.IsSuperuser {
		lc.Groups = []string{super.GroupRef, admin.GroupRef}
		lc.IsAdmin = true
		return lc, nil
	}

	var groupRows []GroupRecord
	err = dbkit.WithErr1(s.db.NewSelect().Model(&groupRows).
		Join("JOIN auth_memberships AS m ON m.group_id = g.id").
		Where("m.user_id = ? AND g.tenant_id = ?", user.ID, tenant.ID).
		Scan(ctx), "GetUserGroupsInTenant").Err()
	if err != nil {
		return nil, err
	}

	inTenant := false
	for _, g := range groupRows {
		lc.Groups = append(lc.Groups, g.GroupRef)
		switch g.GroupType {
		case GroupTypeSuper:
			inTenant = true
		case GroupTypeAdmin:
			lc.IsAdmin = true
		}
	}
	if !inTenant {
		return nil, NewError(ErrTenantNotAuthorized, "user holds no supergroup membership").
			WithUser(user.UserRef).WithTenant(tenant.TenantRef)
	}

	return lc, nil
}

// Login authenticates a user and issues a session token. The login name is
// either a bare username or "username:tenantref"; without an explicit
// tenant the user's sole tenant is used, and holding several memberships
// without naming one fails with ErrTenantRequired.
//
// Credential failures and unknown usernames both report
// ErrIncorrectPassword, so login cannot be used to probe usernames.
func (s *Service) Login(ctx context.Context, login, password string) (string, *LoginContext, error) {
	username, tenantRef, _ := strings.Cut(login, ":")

	user, err := s.userByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return "", nil, NewError(ErrIncorrectPassword, "unknown username")
		}
		return "", nil, err
	}

	ok, err := s.hasher.Verify(password, user.Password, user.PasswordHashID)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, NewError(ErrIncorrectPassword, "password mismatch").WithUser(user.UserRef)
	}

	tenant, err := s.loginTenant(ctx, user, tenantRef)
	if err != nil {
		return "", nil, err
	}

	lc, err := s.buildLoginContext(ctx, user, tenant)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(ctx, lc)
	if err != nil {
		return "", nil, NewError(ErrUpstream, "token issue failed").WithUser(user.UserRef)
	}

	s.log.Info("user logged in",
		zap.String("user_ref", user.UserRef),
		zap.String("tenant_ref", tenant.TenantRef),
		zap.Bool("is_tenant_admin", lc.IsAdmin))

	return token, lc, nil
}

// loginTenant picks the tenant for a login request.
func (s *Service) loginTenant(ctx context.Context, user *UserRecord, tenantRef string) (*TenantRecord, error) {
	if tenantRef != "" {
		tenant, err := s.tenantByRef(ctx, tenantRef)
		if err != nil {
			return nil, err
		}
		if user.IsSuperuser {
			return tenant, nil
		}
		refs, err := s.userTenantRefs(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			if r == tenant.TenantRef {
				return tenant, nil
			}
		}
		return nil, NewError(ErrTenantNotAuthorized, "user is not a member of the requested tenant").
			WithUser(user.UserRef).WithTenant(tenantRef)
	}

	refs, err := s.userTenantRefs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	switch len(refs) {
	case 1:
		return s.tenantByRef(ctx, refs[0])
	case 0:
		return nil, NewError(ErrTenantNotAuthorized, "user belongs to no tenant").WithUser(user.UserRef)
	default:
		return nil, NewError(ErrTenantRequired, "user belongs to several tenants, login must name one").
			WithUser(user.UserRef)
	}
}

// syncTokenView pushes a user's refreshed authorization view to the token
// service after a committed mutation. The local change is already durable
// when this runs, so a failure is reported as ErrUpstream and must not be
// treated as a rollback.
func (s *Service) syncTokenView(ctx context.Context, userRef, tenantRef string) error {
	var lc *LoginContext
	if tenantRef != "" {
		built, err := s.BuildLoginContext(ctx, userRef, tenantRef)
		if err == nil {
			lc = built
		}
	}
	if err := s.tokens.Update(ctx, userRef, lc); err != nil {
		s.log.Warn("token view update failed",
			zap.String("user_ref", userRef),
			zap.Error(err))
		return NewError(ErrUpstream, "token view update failed").WithUser(userRef)
	}
	return nil
}
