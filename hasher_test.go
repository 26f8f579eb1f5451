package authkit

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Small cost factors keep the unit tests fast; production uses
// DefaultArgon2Params.
func testHasher() *DefaultHasher {
	return NewDefaultHasher(Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}

func TestHasherArgon2RoundTrip(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("correct horse battery staple", HashArgon2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.NotContains(t, hash, "correct horse")

	ok, err := h.Verify("correct horse battery staple", hash, HashArgon2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong password", hash, HashArgon2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasherArgon2SaltedHashesDiffer(t *testing.T) {
	h := testHasher()

	first, err := h.Hash("same input", HashArgon2)
	require.NoError(t, err)
	second, err := h.Hash("same input", HashArgon2)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

// Verification reads the cost factors from the stored hash, so hashes made
// with old parameters keep verifying after the defaults change.
func TestHasherArgon2ParamsEmbedded(t *testing.T) {
	old := testHasher()
	hash, err := old.Hash("migrating password", HashArgon2)
	require.NoError(t, err)

	current := NewDefaultHasher(DefaultArgon2Params)
	ok, err := current.Verify("migrating password", hash, HashArgon2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasherPlaintext(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("visible", HashPlaintext)
	require.NoError(t, err)
	assert.Equal(t, "visible", hash)

	ok, err := h.Verify("visible", hash, HashPlaintext)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("other", hash, HashPlaintext)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasherUnknownID(t *testing.T) {
	h := testHasher()

	_, err := h.Hash("x", HashID(99))
	assert.True(t, errors.Is(err, ErrUnknownHashID))

	_, err = h.Verify("x", "y", HashID(99))
	assert.True(t, errors.Is(err, ErrUnknownHashID))
}

func TestVerifyArgon2Malformed(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not phc", "plain-text-value"},
		{"wrong algorithm", "$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5"},
		{"missing sections", "$argon2id$v=19$m=8192,t=1,p=1"},
		{"bad salt encoding", "$argon2id$v=19$m=8192,t=1,p=1$!!$a2V5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifyArgon2("password", tt.hash)
			assert.Error(t, err)
		})
	}
}

func TestNewDefaultHasherZeroParams(t *testing.T) {
	h := NewDefaultHasher(Argon2Params{})
	assert.Equal(t, DefaultArgon2Params, h.params)
}
