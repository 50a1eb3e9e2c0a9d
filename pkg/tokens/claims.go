package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName carries the signed session token for browser flows.
const SessionCookieName = "skyplanner_session"

const (
	UserTypeKlient   = "klient"
	UserTypeOperator = "operator"
)

// SessionClaims is the claim set of a Sky Planner session token. OrgID and
// OrgSlug stay nil for accounts not yet attached to an organization.
type SessionClaims struct {
	UserType string  `json:"user_type"`
	OrgID    *string `json:"org_id,omitempty"`
	OrgSlug  *string `json:"org_slug,omitempty"`
	jwt.RegisteredClaims
}

func NewSessionClaims(userID, userType string, orgID, orgSlug *string, ttl time.Duration) SessionClaims {
	now := time.Now()
	return SessionClaims{
		UserType: userType,
		OrgID:    orgID,
		OrgSlug:  orgSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
