package service

import (
	"context"
	"errors"
	"time"

	"github.com/skyplanner/skyplanner/internal/events"
	"github.com/skyplanner/skyplanner/internal/models"
	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/security/secretbox"
	"github.com/skyplanner/skyplanner/internal/security/totp"
	"github.com/skyplanner/skyplanner/pkg/hash"
	"github.com/skyplanner/skyplanner/pkg/logging"
	"github.com/skyplanner/skyplanner/pkg/tokens"
)

const sessionTTL = 24 * time.Hour

type AuthService struct {
	Repo      *repo.GormRepo
	Box       *secretbox.Box
	JWTSecret []byte
	Audit     *Recorder
}

type SessionMeta struct {
	IP         string
	UserAgent  string
	DeviceInfo string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Klient    *models.Klient
}

// Login checks credentials, consumes the 2FA code when the account requires
// one, signs a session token and records the session row.
func (s *AuthService) Login(ctx context.Context, email, password, code string, meta SessionMeta) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, ErrValidation
	}

	k, err := s.Repo.FindKlientByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, repo.ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(k.PasswordHash, password) {
		return nil, repo.ErrInvalidCredentials
	}

	if k.TOTPEnabled {
		if code == "" {
			return nil, ErrTwoFactorRequired
		}
		if err := s.consumeSecondFactor(ctx, k, code); err != nil {
			return nil, err
		}
	}

	var orgID *string
	if k.OrgID != nil {
		v := k.OrgID.String()
		orgID = &v
	}
	claims := tokens.NewSessionClaims(k.ID.String(), k.UserType, orgID, k.OrgSlug, sessionTTL)
	token, err := tokens.SignSession(claims, s.JWTSecret)
	if err != nil {
		l.Error("sign session", "error", err)
		return nil, err
	}

	session := models.ActiveSession{
		KlientID:   k.ID,
		UserType:   k.UserType,
		JTI:        claims.ID,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		DeviceInfo: meta.DeviceInfo,
		ExpiresAt:  claims.ExpiresAt.Time,
	}
	if err := s.Repo.CreateSession(ctx, &session); err != nil {
		l.Error("create session", "error", err)
		return nil, err
	}

	s.Audit.Publish(ctx, events.TypeUserLogin, k.ID, map[string]any{"ip": meta.IP})

	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, Klient: k}, nil
}

// consumeSecondFactor accepts a 6-digit TOTP code (advancing the replay
// counter) or, failing that, an unused backup code.
func (s *AuthService) consumeSecondFactor(ctx context.Context, k *models.Klient, code string) error {
	if k.TOTPSecretEncrypted == nil {
		return ErrInvalidCode
	}

	secretB32, err := s.Box.Decrypt(*k.TOTPSecretEncrypted)
	if err != nil {
		return err
	}
	secret, err := totp.DecodeSecret(secretB32)
	if err != nil {
		return err
	}

	if step, ok := totp.VerifyWithStep(secret, code, time.Now()); ok {
		if err := s.Repo.ConfirmTOTPStep(ctx, k.ID, step, false); err != nil {
			if errors.Is(err, repo.ErrTOTPReplayedStep) {
				_ = s.Audit.Record(ctx, k.ID, k.UserType, AuditVerificationFailed, map[string]any{"reason": "replayed_step"})
				return ErrInvalidCode
			}
			return err
		}
		return nil
	}

	codeHash := s.Box.HashBackupCode(totp.NormalizeBackupCode(code))
	if err := s.Repo.ConsumeBackupCode(ctx, k.ID, codeHash); err != nil {
		if errors.Is(err, repo.ErrBackupCodeInvalid) {
			_ = s.Audit.Record(ctx, k.ID, k.UserType, AuditVerificationFailed, map[string]any{"reason": "invalid_code"})
			return ErrInvalidCode
		}
		return err
	}
	_ = s.Audit.Record(ctx, k.ID, k.UserType, AuditBackupCodeUsed, nil)
	return nil
}

// Logout blacklists the caller's own jti and drops the session row.
func (s *AuthService) Logout(ctx context.Context, claims *tokens.SessionClaims) error {
	k, err := klientIDFromClaims(claims)
	if err != nil {
		return err
	}
	return s.Repo.EndOwnSession(ctx, k, claims.UserType, claims.ID, "logout")
}
