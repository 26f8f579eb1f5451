package authkit

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// HashID selects the password hashing algorithm. The id is stored next to
// each hash so old hashes keep verifying after the default changes.
type HashID uint16

const (
	// HashPlaintext stores the password as-is. Exists for legacy rows and
	// tests only; never use it as the configured default in production.
	HashPlaintext HashID = 0
	// HashArgon2 is the memory-hard argon2id scheme, PHC-encoded.
	HashArgon2 HashID = 1
)

// CredentialHasher hashes and verifies passwords by algorithm id. It is an
// external collaborator boundary: the service never inspects hash contents.
type CredentialHasher interface {
	Hash(plaintext string, id HashID) (string, error)
	Verify(plaintext, hash string, id HashID) (bool, error)
}

// Argon2Params are the cost factors for the argon2id scheme.
type Argon2Params struct {
	Memory      uint32 // memory usage in KiB
	Iterations  uint32 // passes over the memory
	Parallelism uint8  // lanes
	SaltLength  uint32 // salt bytes
	KeyLength   uint32 // derived key bytes
}

// DefaultArgon2Params balances cost against a typical service container.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// DefaultHasher implements CredentialHasher with argon2id for HashArgon2
// and a passthrough for HashPlaintext.
type DefaultHasher struct {
	params Argon2Params
}

// NewDefaultHasher creates a hasher with the given argon2 parameters. Zero
// params fall back to DefaultArgon2Params.
func NewDefaultHasher(params Argon2Params) *DefaultHasher {
	if params == (Argon2Params{}) {
		params = DefaultArgon2Params
	}
	return &DefaultHasher{params: params}
}

// Hash hashes plaintext with the algorithm selected by id.
func (h *DefaultHasher) Hash(plaintext string, id HashID) (string, error) {
	switch id {
	case HashPlaintext:
		return plaintext, nil
	case HashArgon2:
		return h.hashArgon2(plaintext)
	default:
		return "", NewError(ErrUnknownHashID, fmt.Sprintf("hash id %d", id))
	}
}

// Verify checks plaintext against a stored hash produced with id.
func (h *DefaultHasher) Verify(plaintext, hash string, id HashID) (bool, error) {
	switch id {
	case HashPlaintext:
		return subtle.ConstantTimeCompare([]byte(plaintext), []byte(hash)) == 1, nil
	case HashArgon2:
		return verifyArgon2(plaintext, hash)
	default:
		return false, NewError(ErrUnknownHashID, fmt.Sprintf("hash id %d", id))
	}
}

func (h *DefaultHasher) hashArgon2(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("authkit: salt generation: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt,
		h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// verifyArgon2 re-derives the key with the parameters embedded in the PHC
// string, so verification survives parameter changes.
func verifyArgon2(plaintext, encoded string) (bool, error) {
	params, salt, key, err := decodeArgon2(encoded)
	if err != nil {
		return false, err
	}

	other := argon2.IDKey([]byte(plaintext), salt,
		params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

func decodeArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, fmt.Errorf("authkit: malformed argon2 hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("authkit: malformed argon2 version: %w", err)
	}
	if version != argon2.Version {
		return params, nil, nil, fmt.Errorf("authkit: incompatible argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, fmt.Errorf("authkit: malformed argon2 params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("authkit: malformed argon2 salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("authkit: malformed argon2 key: %w", err)
	}
	params.KeyLength = uint32(len(key))

	return params, salt, key, nil
}
