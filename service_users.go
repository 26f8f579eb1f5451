package authkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ============================================================================
// USER DIRECTORY
// ============================================================================

// CreateUser creates a new user not attached to any tenant. Only superusers
// may call it; tenant admins attach users through the tenant operations.
// The returned view never carries the password.
func (s *Service) CreateUser(ctx context.Context, actor *LoginContext, payload *CreateUser) (*User, error) {
	if err := s.authz.Authorize(actor, OpCreateUser, Target{}); err != nil {
		return nil, err
	}
	rec, err := s.insertUser(ctx, payload, false)
	if err != nil {
		return nil, err
	}

	s.log.Info("user created",
		zap.String("user_ref", rec.UserRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return rec.View(), nil
}

// CreateUserInTenant creates a user already attached to a tenant: the row
// and the supergroup membership commit in one transaction, so the user is
// never observable in the detached half-created state. Only superusers may
// call it, same as CreateUser.
func (s *Service) CreateUserInTenant(ctx context.Context, actor *LoginContext, tenantRef string, payload *CreateUser) (*User, error) {
	if err := s.authz.Authorize(actor, OpCreateUser, Target{TenantRef: tenantRef}); err != nil {
		return nil, err
	}
	tenant, err := s.tenantByRef(ctx, tenantRef)
	if err != nil {
		return nil, err
	}

	var rec *UserRecord
	err = s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		super, err := txs.systemGroup(ctx, tenant.ID, GroupTypeSuper)
		if err != nil {
			return err
		}
		rec, err = txs.insertUser(ctx, payload, false)
		if err != nil {
			return err
		}
		if err := txs.insertMembership(ctx, rec.ID, super.ID); err != nil {
			return err
		}
		return txs.recordAudit(ctx, actor, AuditActionMembershipAdded,
			rec.UserRef, super.GroupRef, tenantRef)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user created in tenant",
		zap.String("user_ref", rec.UserRef),
		zap.String("tenant_ref", tenantRef),
		zap.String("actor_ref", actorRefOf(actor)))

	// The user is durable at this point. A token-view failure is reported
	// but does not undo the creation.
	if err := s.syncTokenView(ctx, rec.UserRef, tenantRef); err != nil {
		return rec.View(), err
	}
	return rec.View(), nil
}

// CreateSuperuser creates a platform superuser. Only an existing superuser
// may call it.
func (s *Service) CreateSuperuser(ctx context.Context, actor *LoginContext, payload *CreateUser) (*User, error) {
	if err := s.authz.Authorize(actor, OpCreateUser, Target{}); err != nil {
		return nil, err
	}
	rec, err := s.insertUser(ctx, payload, true)
	if err != nil {
		return nil, err
	}

	s.log.Info("superuser created",
		zap.String("user_ref", rec.UserRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return rec.View(), nil
}

// Bootstrap creates the first superuser of a fresh installation. It fails
// with ErrCreationDenied once any superuser exists, so it cannot be used to
// escalate on a live system.
func (s *Service) Bootstrap(ctx context.Context, payload *CreateUser) (*User, error) {
	count, err := dbkit.Count[UserRecord](ctx, s.db, superuserFilter)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewError(ErrCreationDenied, "a superuser already exists")
	}
	rec, err := s.insertUser(ctx, payload, true)
	if err != nil {
		return nil, err
	}

	s.log.Info("installation bootstrapped", zap.String("user_ref", rec.UserRef))

	return rec.View(), nil
}

// GetUser returns the public view of a user. Superusers see any active
// user; tenant admins and members see users sharing a tenant; everyone sees
// themselves.
func (s *Service) GetUser(ctx context.Context, actor *LoginContext, userRef string) (*User, error) {
	rec, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return nil, s.maskNotFound(actor, err, ErrReadingDenied)
	}
	if err := s.authz.Authorize(actor, OpReadUser, target); err != nil {
		return nil, err
	}
	return rec.View(), nil
}

// GetSelf returns the actor's own view plus the active tenant, read fresh
// from the store rather than echoed from the login context.
func (s *Service) GetSelf(ctx context.Context, actor *LoginContext) (*UserSelf, error) {
	if actor == nil {
		return nil, NewError(ErrReadingDenied, "no actor")
	}
	rec, err := s.userByRef(ctx, actor.User.UserRef)
	if err != nil {
		return nil, err
	}
	self := &UserSelf{User: *rec.View(), TenantRef: actor.TenantRef}
	if actor.TenantRef != "" {
		tenant, err := s.tenantByRef(ctx, actor.TenantRef)
		if err != nil {
			return nil, err
		}
		self.TenantName = tenant.Name
	}
	return self, nil
}

// Patchable user fields. The password is deliberately absent: it travels
// through ChangePassword so it is always hashed and never logged with the
// rest of the patch.
var patchableUserFields = map[string]bool{
	"username":  true,
	"firstname": true,
	"lastname":  true,
	"email":     true,
	"timezone":  true,
}

// PatchUser applies a partial update to a user. Unknown fields fail with
// ErrInvalidField and "password" fails with ErrUseOtherEndpoint. An empty
// patch is a silent no-op returning the current view.
func (s *Service) PatchUser(ctx context.Context, actor *LoginContext, userRef string, patch map[string]any) (*User, error) {
	rec, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return nil, s.maskNotFound(actor, err, ErrModificationDenied)
	}
	if err := s.authz.Authorize(actor, OpWriteUser, target); err != nil {
		return nil, err
	}

	if len(patch) == 0 {
		return rec.View(), nil
	}

	merged, err := mergeUserPatch(rec, patch)
	if err != nil {
		return nil, err
	}

	// A patch restating the current values changes nothing; skip the write
	// so updated_at does not move.
	if userPatchUnchanged(rec, merged) {
		return rec.View(), nil
	}

	draft := CreateUser{
		Username:  merged.Username,
		Password:  "-", // not part of the patch, skip emptiness check
		Firstname: merged.Firstname,
		Lastname:  merged.Lastname,
		Email:     merged.Email,
		Timezone:  merged.Timezone,
	}
	if err := validateCreateUser(&draft); err != nil {
		return nil, err
	}

	if merged.Username != rec.Username {
		taken, err := s.usernameTaken(ctx, merged.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, NewError(ErrUsernameTaken, "username held by another active user").
				WithUser(userRef)
		}
	}

	merged.UpdatedAt = time.Now()
	res, err := s.db.NewUpdate().Model(merged).
		Column("username", "firstname", "lastname", "email", "timezone", "updated_at").
		Where("id = ?", merged.ID).
		Exec(ctx)
	if err := dbkit.WithErr(res, err, "PatchUser").Err(); err != nil {
		if dbkit.IsDuplicate(err) {
			return nil, NewError(ErrUsernameTaken, "username held by another active user").
				WithUser(userRef)
		}
		return nil, err
	}

	s.log.Info("user patched",
		zap.String("user_ref", userRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return merged.View(), nil
}

// ChangePassword replaces a user's password, hashing it with the configured
// default algorithm.
func (s *Service) ChangePassword(ctx context.Context, actor *LoginContext, userRef, newPassword string) error {
	rec, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrModificationDenied)
	}
	if err := s.authz.Authorize(actor, OpWriteUser, target); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword, s.defaultHashID)
	if err != nil {
		return err
	}

	res, err := s.db.NewUpdate().Model((*UserRecord)(nil)).
		Set("password = ?", hash).
		Set("password_hash_id = ?", s.defaultHashID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", rec.ID).
		Exec(ctx)
	if err := dbkit.WithErr(res, err, "ChangePassword").Err(); err != nil {
		return err
	}

	s.log.Info("password changed",
		zap.String("user_ref", userRef),
		zap.String("actor_ref", actorRefOf(actor)))

	return nil
}

// DeleteUser soft-deletes a user: the row flips to deleted, its membership
// edges are removed and the reference stops resolving. The row itself stays
// so historical data keeps its integrity, and the username frees up for
// reuse. Superuser only.
func (s *Service) DeleteUser(ctx context.Context, actor *LoginContext, userRef string) error {
	rec, target, err := s.userTarget(ctx, userRef)
	if err != nil {
		return s.maskNotFound(actor, err, ErrDeletionDenied)
	}
	if err := s.authz.Authorize(actor, OpDeleteUser, target); err != nil {
		return err
	}

	err = s.Transaction(ctx, func(ctx context.Context, txs *Service) error {
		res, err := txs.db.NewUpdate().Model((*UserRecord)(nil)).
			Set("status = ?", UserStatusDeleted).
			Set("updated_at = ?", time.Now()).
			Where("id = ? AND status = ?", rec.ID, UserStatusActive).
			Exec(ctx)
		if err := dbkit.WithErr(res, err, "DeleteUser").Err(); err != nil {
			return err
		}

		res, err = txs.db.NewDelete().Model((*Membership)(nil)).
			Where("user_id = ?", rec.ID).
			Exec(ctx)
		if err := dbkit.WithErr(res, err, "DeleteUserMemberships").Err(); err != nil {
			return err
		}

		return txs.recordAudit(ctx, actor, AuditActionUserDeleted, userRef, "", "")
	})
	if err != nil {
		return err
	}

	s.resolver.Invalidate(RefUser, userRef, rec.ID)

	s.log.Info("user deleted",
		zap.String("user_ref", userRef),
		zap.String("actor_ref", actorRefOf(actor)))

	// The user's sessions are now stale; the view update clears them.
	return s.syncTokenView(ctx, userRef, "")
}

// insertUser validates, hashes and stores a new user row.
func (s *Service) insertUser(ctx context.Context, payload *CreateUser, superuser bool) (*UserRecord, error) {
	if err := validateCreateUser(payload); err != nil {
		return nil, err
	}
	if payload.Password == "" {
		return nil, invalidField("field cannot be empty: password")
	}

	taken, err := s.usernameTaken(ctx, payload.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewError(ErrUsernameTaken, "username held by another active user")
	}

	hash, err := s.hasher.Hash(payload.Password, s.defaultHashID)
	if err != nil {
		return nil, err
	}

	ref, err := s.newUserRef(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &UserRecord{
		UserRef:        ref,
		Username:       payload.Username,
		Password:       hash,
		PasswordHashID: s.defaultHashID,
		Firstname:      payload.Firstname,
		Lastname:       payload.Lastname,
		Email:          payload.Email,
		Timezone:       payload.Timezone,
		IsSuperuser:    superuser,
		Status:         UserStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	res, err := s.db.NewInsert().Model(rec).Exec(ctx)
	if err := dbkit.WithErr(res, err, "CreateUser").Err(); err != nil {
		// The partial unique index can still fire under concurrent creates.
		if dbkit.IsDuplicate(err) {
			return nil, NewError(ErrUsernameTaken, "username held by another active user")
		}
		return nil, err
	}

	return rec, nil
}

// mergeUserPatch applies the patch onto a copy of the record, rejecting
// unknown fields, non-string values and the password.
func mergeUserPatch(rec *UserRecord, patch map[string]any) (*UserRecord, error) {
	merged := *rec
	for field, raw := range patch {
		if field == "password" {
			return nil, NewError(ErrUseOtherEndpoint, "password changes go through ChangePassword")
		}
		if !patchableUserFields[field] {
			return nil, invalidField("unknown field: %s", field)
		}

		if field == "email" && raw == nil {
			merged.Email = nil
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return nil, invalidField("field %s must be a string", field)
		}
		switch field {
		case "username":
			merged.Username = value
		case "firstname":
			merged.Firstname = value
		case "lastname":
			merged.Lastname = value
		case "email":
			merged.Email = &value
		case "timezone":
			merged.Timezone = value
		}
	}
	return &merged, nil
}

// userPatchUnchanged reports whether merging the patch left every patchable
// field equal to the stored record.
func userPatchUnchanged(rec, merged *UserRecord) bool {
	if merged.Username != rec.Username ||
		merged.Firstname != rec.Firstname ||
		merged.Lastname != rec.Lastname ||
		merged.Timezone != rec.Timezone {
		return false
	}
	if merged.Email == nil || rec.Email == nil {
		return merged.Email == rec.Email
	}
	return *merged.Email == *rec.Email
}

// maskNotFound hides target existence from actors who could not read the
// target anyway: a failed resolution looks exactly like a denial unless the
// actor is a superuser.
func (s *Service) maskNotFound(actor *LoginContext, err error, denied error) error {
	if !IsNotFound(err) {
		return err
	}
	if actor != nil && actor.User.IsSuperuser {
		return err
	}
	return NewError(denied, "target did not resolve").WithActor(actorRefOf(actor))
}

func superuserFilter(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("is_superuser = true AND status = ?", UserStatusActive)
}
