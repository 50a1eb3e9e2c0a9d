package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/skyplanner/skyplanner/internal/models"
)

func (r *GormRepo) AppendAudit(ctx context.Context, klientID uuid.UUID, userType, action string, metadata map[string]any) error {
	entry := models.TOTPAuditEntry{
		KlientID: klientID,
		UserType: userType,
		Action:   action,
		Metadata: metadata,
	}
	return r.DB.WithContext(ctx).Create(&entry).Error
}

func (r *GormRepo) ListAudit(ctx context.Context, klientID uuid.UUID, limit int) ([]models.TOTPAuditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var entries []models.TOTPAuditEntry
	err := r.DB.WithContext(ctx).
		Where("klient_id = ?", klientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
