package authkit

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// DefaultRefMaxAttempts caps the unique-reference retry loop. The random
// space makes a collision vanishingly rare, so hitting the cap means the
// store-side predicate is broken, not that we were unlucky.
const DefaultRefMaxAttempts = 32

// newRef produces a random opaque external reference.
func newRef() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// genUniqueRef samples random references until taken reports the candidate
// as free, retrying at most maxAttempts times. The uniqueness predicate is
// delegated to the store so the check and the insert see the same data.
func genUniqueRef(ctx context.Context, maxAttempts int, taken func(ctx context.Context, ref string) (bool, error)) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRefMaxAttempts
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ref := newRef()
		inUse, err := taken(ctx, ref)
		if err != nil {
			return "", err
		}
		if !inUse {
			return ref, nil
		}
	}
	return "", NewError(ErrRefExhausted, "no unique reference found within retry budget")
}
