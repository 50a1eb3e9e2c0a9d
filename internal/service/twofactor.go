package service

import (
	"context"
	"errors"
	"time"

	"github.com/skyplanner/skyplanner/internal/email"
	"github.com/skyplanner/skyplanner/internal/events"
	"github.com/skyplanner/skyplanner/internal/models"
	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/security/secretbox"
	"github.com/skyplanner/skyplanner/internal/security/totp"
	"github.com/skyplanner/skyplanner/pkg/hash"
	"github.com/skyplanner/skyplanner/pkg/logging"
)

const totpIssuer = "Sky Planner"

type TwoFactorService struct {
	Repo    *repo.GormRepo
	Box     *secretbox.Box
	Audit   *Recorder
	Emailer *email.Client
}

type TwoFactorSetup struct {
	Secret      string   `json:"secret"`
	URI         string   `json:"uri"`
	BackupCodes []string `json:"backup_codes"`
}

// Setup provisions a new secret for an account without 2FA. The secret is
// stored encrypted and unconfirmed; plaintext leaves the server exactly once,
// in this response.
func (s *TwoFactorService) Setup(ctx context.Context, k *models.Klient) (*TwoFactorSetup, error) {
	if k.TOTPEnabled {
		return nil, repo.ErrTOTPAlreadyEnabled
	}

	_, secretB32, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	encrypted, err := s.Box.Encrypt(secretB32)
	if err != nil {
		return nil, err
	}

	codes, err := totp.GenerateBackupCodes()
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = s.Box.HashBackupCode(totp.NormalizeBackupCode(c))
	}

	if err := s.Repo.SetupTOTP(ctx, k.ID, encrypted, hashes); err != nil {
		return nil, err
	}

	if err := s.Audit.Record(ctx, k.ID, k.UserType, AuditSetupInitiated, nil); err != nil {
		logging.FromContext(ctx).Error("audit write", "error", err)
	}
	s.Audit.Publish(ctx, events.TypeTwoFASetup, k.ID, nil)

	return &TwoFactorSetup{
		Secret:      secretB32,
		URI:         totp.ProvisionURI(totpIssuer, k.Email, secretB32),
		BackupCodes: codes,
	}, nil
}

// Verify confirms the provisioned secret with a current code and flips 2FA
// on. The replay counter rejects any step at or below the stored one.
func (s *TwoFactorService) Verify(ctx context.Context, k *models.Klient, code string) error {
	if k.TOTPEnabled {
		return repo.ErrTOTPAlreadyEnabled
	}

	secret, err := s.decryptSecret(k)
	if err != nil {
		return err
	}

	step, ok := totp.VerifyWithStep(secret, code, time.Now())
	if !ok {
		_ = s.Audit.Record(ctx, k.ID, k.UserType, AuditVerificationFailed, map[string]any{"reason": "invalid_code"})
		return ErrInvalidCode
	}
	if err := s.Repo.ConfirmTOTPStep(ctx, k.ID, step, true); err != nil {
		if errors.Is(err, repo.ErrTOTPReplayedStep) {
			_ = s.Audit.Record(ctx, k.ID, k.UserType, AuditVerificationFailed, map[string]any{"reason": "replayed_step"})
			return ErrInvalidCode
		}
		return err
	}

	if err := s.Audit.Record(ctx, k.ID, k.UserType, AuditSetupCompleted, nil); err != nil {
		logging.FromContext(ctx).Error("audit write", "error", err)
	}
	s.Audit.Publish(ctx, events.TypeTwoFAEnabled, k.ID, nil)
	s.notify(ctx, k, "two_factor_enabled")
	return nil
}

// Disable checks the password and a second factor inside the same transaction
// that clears the TOTP columns.
func (s *TwoFactorService) Disable(ctx context.Context, klient *models.Klient, password, code string) error {
	if password == "" || code == "" {
		return ErrValidation
	}

	err := s.Repo.DisableTOTP(ctx, klient.ID, func(k *models.Klient) error {
		if !hash.CheckPassword(k.PasswordHash, password) {
			return repo.ErrInvalidCredentials
		}
		return s.checkSecondFactor(k, code)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			_ = s.Audit.Record(ctx, klient.ID, klient.UserType, AuditVerificationFailed, map[string]any{"reason": "disable_rejected"})
		}
		return err
	}

	if err := s.Audit.Record(ctx, klient.ID, klient.UserType, AuditDisabled, nil); err != nil {
		logging.FromContext(ctx).Error("audit write", "error", err)
	}
	s.Audit.Publish(ctx, events.TypeTwoFADisabled, klient.ID, nil)
	s.notify(ctx, klient, "two_factor_disabled")
	return nil
}

// RegenerateBackupCodes replaces the stored hash set after a fresh TOTP code,
// consuming that code's step like any other verification.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, k *models.Klient, code string) ([]string, error) {
	if !k.TOTPEnabled {
		return nil, repo.ErrTOTPNotConfigured
	}

	secret, err := s.decryptSecret(k)
	if err != nil {
		return nil, err
	}
	step, ok := totp.VerifyWithStep(secret, code, time.Now())
	if !ok {
		_ = s.Audit.Record(ctx, k.ID, k.UserType, AuditVerificationFailed, map[string]any{"reason": "invalid_code"})
		return nil, ErrInvalidCode
	}
	if err := s.Repo.ConfirmTOTPStep(ctx, k.ID, step, false); err != nil {
		if errors.Is(err, repo.ErrTOTPReplayedStep) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	codes, err := totp.GenerateBackupCodes()
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = s.Box.HashBackupCode(totp.NormalizeBackupCode(c))
	}
	if err := s.Repo.ReplaceBackupCodes(ctx, k.ID, hashes); err != nil {
		return nil, err
	}

	if err := s.Audit.Record(ctx, k.ID, k.UserType, AuditBackupCodesReset, nil); err != nil {
		logging.FromContext(ctx).Error("audit write", "error", err)
	}
	return codes, nil
}

// checkSecondFactor validates a TOTP code or backup code against a row read
// inside the disable transaction. No counters advance: the row is cleared in
// the same transaction on success.
func (s *TwoFactorService) checkSecondFactor(k *models.Klient, code string) error {
	secret, err := s.decryptSecret(k)
	if err != nil {
		return err
	}
	if step, ok := totp.VerifyWithStep(secret, code, time.Now()); ok {
		if step <= k.TOTPLastUsedStep {
			return ErrInvalidCode
		}
		return nil
	}

	codeHash := s.Box.HashBackupCode(totp.NormalizeBackupCode(code))
	for _, h := range k.BackupCodesHash {
		if h == codeHash {
			return nil
		}
	}
	return ErrInvalidCode
}

func (s *TwoFactorService) decryptSecret(k *models.Klient) ([]byte, error) {
	if k.TOTPSecretEncrypted == nil {
		return nil, repo.ErrTOTPNotConfigured
	}
	secretB32, err := s.Box.Decrypt(*k.TOTPSecretEncrypted)
	if err != nil {
		return nil, err
	}
	return totp.DecodeSecret(secretB32)
}

func (s *TwoFactorService) notify(ctx context.Context, k *models.Klient, template string) {
	if s.Emailer == nil {
		return
	}
	if err := s.Emailer.SendTemplate(ctx, k.Email, template, map[string]string{"email": k.Email}); err != nil {
		logging.FromContext(ctx).Error("email send error", "template", template, "error", err)
	}
}
