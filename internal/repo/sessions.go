package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyplanner/skyplanner/internal/models"
)

// Blacklist rows outlive the tokens they invalidate by a wide margin.
const blacklistRetention = 30 * 24 * time.Hour

func (r *GormRepo) CreateSession(ctx context.Context, s *models.ActiveSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.LastActivityAt.IsZero() {
		s.LastActivityAt = time.Now()
	}
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *GormRepo) ListSessions(ctx context.Context, klientID uuid.UUID, userType string) ([]models.ActiveSession, error) {
	var sessions []models.ActiveSession
	err := r.DB.WithContext(ctx).
		Where("klient_id = ? AND user_type = ?", klientID, userType).
		Order("last_activity_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *GormRepo) FindSessionByID(ctx context.Context, id uuid.UUID) (*models.ActiveSession, error) {
	var s models.ActiveSession
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) TouchSession(ctx context.Context, jti string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.ActiveSession{}).
		Where("jti = ?", jti).
		Update("last_activity_at", at).Error
}

// TerminateSession blacklists the session's jti and removes the row in one
// transaction: a terminated session must never keep a usable token.
func (r *GormRepo) TerminateSession(ctx context.Context, sessionID, requesterID uuid.UUID, requesterJTI, reason string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.ActiveSession
		if err := tx.Where("id = ?", sessionID).First(&s).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if s.KlientID != requesterID {
			return ErrNotFound
		}
		if s.JTI == requesterJTI {
			return ErrCannotTerminateCurrent
		}

		entry := models.TokenBlacklistEntry{
			JTI:       s.JTI,
			KlientID:  s.KlientID,
			UserType:  s.UserType,
			Reason:    reason,
			ExpiresAt: time.Now().Add(blacklistRetention),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ActiveSession{}, "id = ?", s.ID).Error
	})
}

// EndOwnSession is the logout path: same blacklist-then-delete pair, keyed by
// the caller's own jti.
func (r *GormRepo) EndOwnSession(ctx context.Context, klientID uuid.UUID, userType, jti, reason string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.TokenBlacklistEntry{
			JTI:       jti,
			KlientID:  klientID,
			UserType:  userType,
			Reason:    reason,
			ExpiresAt: time.Now().Add(blacklistRetention),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ActiveSession{}, "jti = ?", jti).Error
	})
}

func (r *GormRepo) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.TokenBlacklistEntry{}).
		Where("jti = ? AND expires_at > ?", jti, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
