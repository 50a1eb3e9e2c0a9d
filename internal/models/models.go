package models

import (
	"time"

	"github.com/google/uuid"
)

// Klient is a tenant user account. TOTP state lives on the row: a confirmed
// secret always has TOTPEnabled true and a non-nil encrypted value; disabling
// clears all four TOTP columns in the same update.
type Klient struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"     json:"id"`
	Email        string     `gorm:"unique;not null"          json:"email"`
	PasswordHash string     `gorm:"not null"                 json:"-"`
	UserType     string     `gorm:"not null;default:klient"  json:"user_type"`
	OrgID        *uuid.UUID `gorm:"type:uuid;index"          json:"org_id"`
	OrgSlug      *string    `json:"org_slug"`

	TOTPEnabled         bool       `gorm:"not null;default:false" json:"totp_enabled"`
	TOTPSecretEncrypted *string    `json:"-"`
	TOTPVerifiedAt      *time.Time `json:"totp_verified_at"`
	BackupCodesHash     []string   `gorm:"serializer:json"        json:"-"`
	RecoveryCodesUsed   int        `gorm:"not null;default:0"     json:"-"`
	TOTPLastUsedStep    int64      `gorm:"not null;default:0"     json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Klient) TableName() string { return "klients" }

// ActiveSession is one row per logical login, keyed by the token's jti.
type ActiveSession struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	KlientID       uuid.UUID `gorm:"type:uuid;index;not null" json:"klient_id"`
	UserType       string    `gorm:"not null"             json:"user_type"`
	JTI            string    `gorm:"uniqueIndex;not null" json:"jti"`
	IP             string    `json:"ip"`
	UserAgent      string    `json:"user_agent"`
	DeviceInfo     string    `json:"device_info"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `gorm:"index"                json:"last_activity_at"`
	ExpiresAt      time.Time `gorm:"not null"             json:"expires_at"`
}

func (ActiveSession) TableName() string { return "active_sessions" }

// TokenBlacklistEntry invalidates an otherwise well-formed token until
// ExpiresAt passes.
type TokenBlacklistEntry struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	KlientID  uuid.UUID `gorm:"type:uuid;not null"   json:"klient_id"`
	UserType  string    `gorm:"not null"             json:"user_type"`
	Reason    string    `json:"reason"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (TokenBlacklistEntry) TableName() string { return "token_blacklist" }

// TOTPAuditEntry is append-only; nothing in this service mutates or deletes it.
type TOTPAuditEntry struct {
	ID        uint           `gorm:"primaryKey"         json:"id"`
	KlientID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"klient_id"`
	UserType  string         `gorm:"not null"           json:"user_type"`
	Action    string         `gorm:"not null"           json:"action"`
	Metadata  map[string]any `gorm:"serializer:json"    json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

func (TOTPAuditEntry) TableName() string { return "totp_audit_log" }
