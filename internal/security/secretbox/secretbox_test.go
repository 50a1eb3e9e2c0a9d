package secretbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBox(t *testing.T) *Box {
	t.Helper()
	box, err := New("test-encryption-key", "test-salt")
	require.NoError(t, err)
	return box
}

func TestNew_RequiresKeyMaterial(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		salt string
	}{
		{name: "empty key", key: "", salt: "salt"},
		{name: "empty salt", key: "key", salt: ""},
		{name: "whitespace key", key: "   ", salt: "salt"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			box, err := New(tt.key, tt.salt)
			assert.Nil(t, box)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()

	box := newTestBox(t)

	plain := "JBSWY3DPEHPK3PXP"
	sealed, err := box.Encrypt(plain)
	require.NoError(t, err)
	require.Contains(t, sealed, "|")

	got, err := box.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	t.Parallel()

	box := newTestBox(t)

	a, err := box.Encrypt("same input")
	require.NoError(t, err)
	b, err := box.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecrypt_RejectsTampering(t *testing.T) {
	t.Parallel()

	box := newTestBox(t)
	sealed, err := box.Encrypt("secret value")
	require.NoError(t, err)

	parts := strings.SplitN(sealed, "|", 2)
	require.Len(t, parts, 2)

	tests := []struct {
		name  string
		input string
	}{
		{name: "no separator", input: parts[0] + parts[1]},
		{name: "bad nonce b64", input: "!!!|" + parts[1]},
		{name: "bad ciphertext b64", input: parts[0] + "|!!!"},
		{name: "truncated ciphertext", input: parts[0] + "|" + parts[1][:len(parts[1])/2]},
		{name: "empty", input: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := box.Decrypt(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	t.Parallel()

	box := newTestBox(t)
	sealed, err := box.Encrypt("secret value")
	require.NoError(t, err)

	other, err := New("different-key", "test-salt")
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestHashBackupCode(t *testing.T) {
	t.Parallel()

	box := newTestBox(t)

	h1 := box.HashBackupCode("ABCDE23456")
	h2 := box.HashBackupCode("ABCDE23456")
	h3 := box.HashBackupCode("ABCDE23457")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)

	// Keyed hash: a different box must produce different digests.
	other, err := New("different-key", "test-salt")
	require.NoError(t, err)
	assert.NotEqual(t, h1, other.HashBackupCode("ABCDE23456"))
}
