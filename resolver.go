package authkit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fernandezvara/dbkit"
	lru "github.com/hashicorp/golang-lru/v2"
)

// RefKind selects which entity namespace a reference belongs to.
type RefKind int

const (
	RefUser RefKind = iota + 1
	RefTenant
	RefGroup
)

func (k RefKind) String() string {
	switch k {
	case RefUser:
		return "user"
	case RefTenant:
		return "tenant"
	case RefGroup:
		return "group"
	}
	return "unknown"
}

// DefaultResolverCacheSize bounds each of the resolver's two caches.
const DefaultResolverCacheSize = 512

// Resolver translates external references to internal storage keys and
// back, memoizing successful lookups in two bounded LRU caches. The caches
// are a derived, evictable view over the store — never the source of
// truth: entries are filled lazily on lookup and removed through
// Invalidate when the owning row is deleted. Misses are never cached, so a
// reference created after a failed lookup resolves on the next call.
//
// The resolver is safe for concurrent use by all request workers.
type Resolver struct {
	byRef *lru.Cache[string, int64]  // (kind, external ref) -> internal key
	byID  *lru.Cache[string, string] // (kind, internal key) -> external ref
}

// NewResolver creates a resolver with bounded caches of the given size.
// Sizes below one fall back to DefaultResolverCacheSize.
func NewResolver(size int) *Resolver {
	if size <= 0 {
		size = DefaultResolverCacheSize
	}
	byRef, _ := lru.New[string, int64](size)
	byID, _ := lru.New[string, string](size)
	return &Resolver{byRef: byRef, byID: byID}
}

func refKeyOf(kind RefKind, ref string) string {
	return fmt.Sprintf("%d:%s", kind, ref)
}

func idKeyOf(kind RefKind, id int64) string {
	return fmt.Sprintf("%d:%d", kind, id)
}

// Resolve translates an external reference to its internal key. It fails
// with the kind's not-found sentinel when no matching active row exists;
// soft-deleted users never resolve.
func (r *Resolver) Resolve(ctx context.Context, db dbkit.IDB, kind RefKind, ref string) (int64, error) {
	key := refKeyOf(kind, ref)
	if id, ok := r.byRef.Get(key); ok {
		return id, nil
	}

	var (
		id  int64
		err error
	)
	switch kind {
	case RefUser:
		err = db.NewRaw(
			"SELECT id FROM auth_users WHERE user_ref = ? AND status = ?",
			ref, UserStatusActive,
		).Scan(ctx, &id)
	case RefTenant:
		err = db.NewRaw(
			"SELECT id FROM auth_tenants WHERE tenant_ref = ?", ref,
		).Scan(ctx, &id)
	case RefGroup:
		err = db.NewRaw(
			"SELECT id FROM auth_groups WHERE group_ref = ?", ref,
		).Scan(ctx, &id)
	default:
		return 0, NewError(ErrDatabaseError, fmt.Sprintf("unknown reference kind %d", kind))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbkit.IsNotFound(err) {
			return 0, r.notFound(kind, ref)
		}
		return 0, dbkit.WithErr1(err, "ResolveReference").Err()
	}

	r.byRef.Add(key, id)
	r.byID.Add(idKeyOf(kind, id), ref)
	return id, nil
}

// Encode translates an internal key back to its external reference. A miss
// here means the caller holds a key for a row that no longer exists, which
// is an internal invariant violation rather than a client error.
func (r *Resolver) Encode(ctx context.Context, db dbkit.IDB, kind RefKind, id int64) (string, error) {
	key := idKeyOf(kind, id)
	if ref, ok := r.byID.Get(key); ok {
		return ref, nil
	}

	var (
		ref string
		err error
	)
	switch kind {
	case RefUser:
		err = db.NewRaw("SELECT user_ref FROM auth_users WHERE id = ?", id).Scan(ctx, &ref)
	case RefTenant:
		err = db.NewRaw("SELECT tenant_ref FROM auth_tenants WHERE id = ?", id).Scan(ctx, &ref)
	case RefGroup:
		err = db.NewRaw("SELECT group_ref FROM auth_groups WHERE id = ?", id).Scan(ctx, &ref)
	default:
		return "", NewError(ErrDatabaseError, fmt.Sprintf("unknown reference kind %d", kind))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbkit.IsNotFound(err) {
			return "", NewError(ErrDatabaseError,
				fmt.Sprintf("internal %s key %d has no row", kind, id))
		}
		return "", dbkit.WithErr1(err, "EncodeReference").Err()
	}

	r.byID.Add(key, ref)
	r.byRef.Add(refKeyOf(kind, ref), id)
	return ref, nil
}

// Invalidate drops both cache entries for an entity. Deleting code paths
// must call it before their transaction returns so a stale reference
// cannot resolve after the delete commits.
func (r *Resolver) Invalidate(kind RefKind, ref string, id int64) {
	r.byRef.Remove(refKeyOf(kind, ref))
	r.byID.Remove(idKeyOf(kind, id))
}

// Len reports the number of entries in the forward cache. Intended for
// tests and metrics.
func (r *Resolver) Len() int {
	return r.byRef.Len()
}

func (r *Resolver) notFound(kind RefKind, ref string) error {
	switch kind {
	case RefUser:
		return NewError(ErrUserNotFound, fmt.Sprintf("user reference %q does not resolve", ref)).WithUser(ref)
	case RefTenant:
		return NewError(ErrTenantNotFound, fmt.Sprintf("tenant reference %q does not resolve", ref)).WithTenant(ref)
	default:
		return NewError(ErrGroupNotFound, fmt.Sprintf("group reference %q does not resolve", ref)).WithGroup(ref)
	}
}
