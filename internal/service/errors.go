package service

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrTwoFactorRequired = errors.New("two-factor code required")
	ErrInvalidCode       = errors.New("invalid two-factor code")
)
