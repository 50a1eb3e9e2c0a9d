package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyplanner/skyplanner/internal/models"
)

// SetupTOTP stores a freshly provisioned, unconfirmed secret alongside the
// backup code hashes, resetting the counters from any earlier attempt.
func (r *GormRepo) SetupTOTP(ctx context.Context, klientID uuid.UUID, secretEncrypted string, backupHashes []string) error {
	return r.DB.WithContext(ctx).Model(&models.Klient{}).
		Where("id = ?", klientID).
		Select("totp_enabled", "totp_secret_encrypted", "totp_verified_at",
			"backup_codes_hash", "recovery_codes_used", "totp_last_used_step").
		Updates(models.Klient{
			TOTPEnabled:         false,
			TOTPSecretEncrypted: &secretEncrypted,
			TOTPVerifiedAt:      nil,
			BackupCodesHash:     backupHashes,
			RecoveryCodesUsed:   0,
			TOTPLastUsedStep:    0,
		}).Error
}

// ConfirmTOTPStep advances the replay counter and, on first confirmation,
// flips the secret to enabled. The strictly-greater check and the update run
// in one transaction so an equal step can never be consumed twice.
func (r *GormRepo) ConfirmTOTPStep(ctx context.Context, klientID uuid.UUID, step int64, enable bool) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var k models.Klient
		if err := tx.Where("id = ?", klientID).First(&k).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if step <= k.TOTPLastUsedStep {
			return ErrTOTPReplayedStep
		}

		fields := []string{"totp_last_used_step"}
		update := models.Klient{TOTPLastUsedStep: step}
		if enable {
			now := time.Now()
			update.TOTPEnabled = true
			update.TOTPVerifiedAt = &now
			fields = append(fields, "totp_enabled", "totp_verified_at")
		}
		return tx.Model(&models.Klient{}).Where("id = ?", klientID).
			Select(fields).
			Updates(update).Error
	})
}

// ConsumeBackupCode removes the matching hash from the stored set and bumps
// the used counter, all inside one transaction: a code is usable at most once.
func (r *GormRepo) ConsumeBackupCode(ctx context.Context, klientID uuid.UUID, codeHash string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var k models.Klient
		if err := tx.Where("id = ?", klientID).First(&k).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		remaining := make([]string, 0, len(k.BackupCodesHash))
		found := false
		for _, h := range k.BackupCodesHash {
			if !found && h == codeHash {
				found = true
				continue
			}
			remaining = append(remaining, h)
		}
		if !found {
			return ErrBackupCodeInvalid
		}

		return tx.Model(&models.Klient{}).Where("id = ?", klientID).
			Select("backup_codes_hash", "recovery_codes_used").
			Updates(models.Klient{
				BackupCodesHash:   remaining,
				RecoveryCodesUsed: k.RecoveryCodesUsed + 1,
			}).Error
	})
}

// ReplaceBackupCodes swaps in a fresh hash set and resets the used counter.
func (r *GormRepo) ReplaceBackupCodes(ctx context.Context, klientID uuid.UUID, backupHashes []string) error {
	return r.DB.WithContext(ctx).Model(&models.Klient{}).
		Where("id = ?", klientID).
		Select("backup_codes_hash", "recovery_codes_used").
		Updates(models.Klient{BackupCodesHash: backupHashes, RecoveryCodesUsed: 0}).Error
}

// DisableTOTP re-reads the row and runs the caller's check inside the same
// transaction as the clearing update, closing the check-then-update race.
func (r *GormRepo) DisableTOTP(ctx context.Context, klientID uuid.UUID, check func(*models.Klient) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var k models.Klient
		if err := tx.Where("id = ?", klientID).First(&k).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !k.TOTPEnabled {
			return ErrTOTPNotConfigured
		}
		if err := check(&k); err != nil {
			return err
		}

		return tx.Model(&models.Klient{}).Where("id = ?", klientID).
			Select("totp_enabled", "totp_secret_encrypted", "totp_verified_at",
				"backup_codes_hash", "recovery_codes_used", "totp_last_used_step").
			Updates(models.Klient{
				TOTPEnabled:         false,
				TOTPSecretEncrypted: nil,
				TOTPVerifiedAt:      nil,
				BackupCodesHash:     nil,
				RecoveryCodesUsed:   0,
				TOTPLastUsedStep:    0,
			}).Error
	})
}
