package totp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	raw, b32, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, raw, 20)
	assert.NotContains(t, b32, "=")

	decoded, err := DecodeSecret(b32)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestDecodeSecret_NormalizesInput(t *testing.T) {
	t.Parallel()

	_, b32, err := GenerateSecret()
	require.NoError(t, err)

	upper, err := DecodeSecret(b32)
	require.NoError(t, err)
	lower, err := DecodeSecret("  " + strings.ToLower(b32) + " ")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
}

func TestProvisionURI(t *testing.T) {
	t.Parallel()

	uri := ProvisionURI("Sky Planner", "user@example.com", "JBSWY3DPEHPK3PXP")
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	assert.Contains(t, uri, "secret=JBSWY3DPEHPK3PXP")
	assert.Contains(t, uri, "issuer=Sky+Planner")
	assert.Contains(t, uri, "algorithm=SHA1")
	assert.Contains(t, uri, "digits=6")
	assert.Contains(t, uri, "period=30")
}

func TestVerifyWithStep_CurrentCode(t *testing.T) {
	t.Parallel()

	raw, _, err := GenerateSecret()
	require.NoError(t, err)

	now := time.Now()
	code := CodeAt(raw, now)
	require.Len(t, code, Digits)

	step, ok := VerifyWithStep(raw, code, now)
	require.True(t, ok)
	assert.Equal(t, StepAt(now), step)
}

func TestVerifyWithStep_SkewWindow(t *testing.T) {
	t.Parallel()

	raw, _, err := GenerateSecret()
	require.NoError(t, err)

	// Pin "now" to mid-step so ±Period lands exactly one step away.
	now := time.Unix((time.Now().Unix()/Period)*Period+Period/2, 0)

	tests := []struct {
		name   string
		codeAt time.Time
		ok     bool
	}{
		{name: "previous step", codeAt: now.Add(-Period * time.Second), ok: true},
		{name: "next step", codeAt: now.Add(Period * time.Second), ok: true},
		{name: "two steps back", codeAt: now.Add(-2 * Period * time.Second), ok: false},
		{name: "two steps ahead", codeAt: now.Add(2 * Period * time.Second), ok: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code := CodeAt(raw, tt.codeAt)
			step, ok := VerifyWithStep(raw, code, now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, StepAt(tt.codeAt), step)
			}
		})
	}
}

func TestVerifyWithStep_RejectsMalformedCodes(t *testing.T) {
	t.Parallel()

	raw, _, err := GenerateSecret()
	require.NoError(t, err)

	tests := []struct {
		name string
		code string
	}{
		{name: "empty", code: ""},
		{name: "short", code: "12345"},
		{name: "long", code: "1234567"},
		{name: "letters", code: "12a456"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, ok := VerifyWithStep(raw, tt.code, time.Now())
			assert.False(t, ok)
		})
	}
}

func TestVerifyWithStep_EmptySecret(t *testing.T) {
	t.Parallel()

	_, ok := VerifyWithStep(nil, "123456", time.Now())
	assert.False(t, ok)
}

func TestGenerateBackupCodes(t *testing.T) {
	t.Parallel()

	codes, err := GenerateBackupCodes()
	require.NoError(t, err)
	require.Len(t, codes, BackupCodeCount)

	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		assert.Len(t, code, backupCodeGroup*2+1)
		assert.Equal(t, byte('-'), code[backupCodeGroup])
		for _, r := range NormalizeBackupCode(code) {
			assert.Contains(t, backupCodeAlphabet, string(r))
		}
		_, dup := seen[code]
		assert.False(t, dup, "backup codes must be distinct")
		seen[code] = struct{}{}
	}
}

func TestNormalizeBackupCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ABCDE23456", NormalizeBackupCode(" abcde-23456 "))
	assert.Equal(t, "ABCDE23456", NormalizeBackupCode("ABCDE23456"))
}
