package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skyplanner/skyplanner/internal/events"
	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/pkg/tokens"
)

type SessionService struct {
	Repo  *repo.GormRepo
	Audit *Recorder
}

type SessionView struct {
	ID             uuid.UUID `json:"id"`
	IP             string    `json:"ip"`
	UserAgent      string    `json:"user_agent"`
	DeviceInfo     string    `json:"device_info"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsCurrent      bool      `json:"is_current"`
}

// List returns the caller's sessions, most recent activity first, with the
// one matching the caller's own jti flagged.
func (s *SessionService) List(ctx context.Context, claims *tokens.SessionClaims) ([]SessionView, error) {
	klientID, err := klientIDFromClaims(claims)
	if err != nil {
		return nil, err
	}

	sessions, err := s.Repo.ListSessions(ctx, klientID, claims.UserType)
	if err != nil {
		return nil, err
	}

	views := make([]SessionView, len(sessions))
	for i, sess := range sessions {
		views[i] = SessionView{
			ID:             sess.ID,
			IP:             sess.IP,
			UserAgent:      sess.UserAgent,
			DeviceInfo:     sess.DeviceInfo,
			CreatedAt:      sess.CreatedAt,
			LastActivityAt: sess.LastActivityAt,
			ExpiresAt:      sess.ExpiresAt,
			IsCurrent:      sess.JTI == claims.ID,
		}
	}
	return views, nil
}

// Terminate ends one of the caller's other sessions. The current session is
// refused; logout is the path for that.
func (s *SessionService) Terminate(ctx context.Context, claims *tokens.SessionClaims, sessionID uuid.UUID) error {
	klientID, err := klientIDFromClaims(claims)
	if err != nil {
		return err
	}

	if err := s.Repo.TerminateSession(ctx, sessionID, klientID, claims.ID, "terminated_by_user"); err != nil {
		return err
	}

	s.Audit.Publish(ctx, events.TypeSessionTerminated, klientID, map[string]any{"session_id": sessionID.String()})
	return nil
}

func klientIDFromClaims(claims *tokens.SessionClaims) (uuid.UUID, error) {
	return uuid.Parse(claims.Subject)
}
