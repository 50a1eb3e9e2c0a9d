package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrCannotTerminateCurrent = errors.New("cannot terminate current session")
	ErrTOTPAlreadyEnabled     = errors.New("two-factor already enabled")
	ErrTOTPNotConfigured      = errors.New("two-factor not configured")
	ErrTOTPReplayedStep       = errors.New("totp step already used")
	ErrBackupCodeInvalid      = errors.New("backup code invalid")
)

type GormRepo struct {
	DB *gorm.DB
}
