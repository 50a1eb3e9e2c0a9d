package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RFC 6238 defaults: every provisioning app understands SHA-1 / 6 digits / 30s.
const (
	secretBytes = 20
	Digits      = 6
	Period      = 30
	skewSteps   = 1
)

// GenerateSecret returns 20 random bytes and their base32 form (no padding).
func GenerateSecret() (raw []byte, b32 string, err error) {
	raw = make([]byte, secretBytes)
	if _, err = rand.Read(raw); err != nil {
		return nil, "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return raw, enc.EncodeToString(raw), nil
}

// DecodeSecret reverses GenerateSecret's encoding.
func DecodeSecret(b32 string) ([]byte, error) {
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.DecodeString(strings.TrimSpace(strings.ToUpper(b32)))
}

// ProvisionURI builds the otpauth:// URI encoded into the QR code.
func ProvisionURI(issuer, account, secretB32 string) string {
	label := url.PathEscape(issuer + ":" + account)
	v := url.Values{}
	v.Set("secret", secretB32)
	v.Set("issuer", issuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", fmt.Sprint(Digits))
	v.Set("period", fmt.Sprint(Period))
	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Verify reports whether code matches any step within the skew window.
func Verify(secret []byte, code string, now time.Time) bool {
	_, ok := VerifyWithStep(secret, code, now)
	return ok
}

// VerifyWithStep additionally returns the matched step index so callers can
// enforce a replay counter. Steps are tried in chronological order, so the
// earliest match wins.
func VerifyWithStep(secret []byte, code string, now time.Time) (int64, bool) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != Digits || !isNumeric(trimmed) {
		return 0, false
	}
	if len(secret) == 0 {
		return 0, false
	}

	base := StepAt(now)
	for offset := int64(-skewSteps); offset <= skewSteps; offset++ {
		step := base + offset
		if step < 0 {
			continue
		}
		generated := hotpCode(secret, step)
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return step, true
		}
	}
	return 0, false
}

// StepAt returns the time-step index for t.
func StepAt(t time.Time) int64 {
	return t.Unix() / Period
}

// CodeAt computes the expected code for t's step. Test helper and the other
// half of VerifyWithStep.
func CodeAt(secret []byte, t time.Time) string {
	return hotpCode(secret, StepAt(t))
}

func hotpCode(secret []byte, step int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(step))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < Digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", Digits, bin%mod)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
