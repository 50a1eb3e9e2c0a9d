package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skyplanner/skyplanner/internal/models"
)

func (r *GormRepo) FindKlientByEmail(ctx context.Context, email string) (*models.Klient, error) {
	var k models.Klient
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&k).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &k, nil
}

func (r *GormRepo) FindKlientByID(ctx context.Context, id uuid.UUID) (*models.Klient, error) {
	var k models.Klient
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&k).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &k, nil
}
