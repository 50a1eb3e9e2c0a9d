package totp

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// No 0/O/1/I: codes are typed by hand off a printout.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	BackupCodeCount = 10
	backupCodeGroup = 5
)

// GenerateBackupCodes returns BackupCodeCount distinct codes shaped
// XXXXX-XXXXX. Callers store only their hashes.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, BackupCodeCount)
	seen := make(map[string]struct{}, BackupCodeCount)
	for len(codes) < BackupCodeCount {
		code, err := newBackupCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func newBackupCode() (string, error) {
	var b strings.Builder
	for i := 0; i < backupCodeGroup*2; i++ {
		if i == backupCodeGroup {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(backupCodeAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeBackupCode uppercases and strips the separator so user input
// matches regardless of formatting.
func NormalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "-", "")
}
