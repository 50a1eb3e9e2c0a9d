package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skyplanner/skyplanner/internal/events"
	"github.com/skyplanner/skyplanner/internal/models"
	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/security/secretbox"
	"github.com/skyplanner/skyplanner/internal/security/totp"
	"github.com/skyplanner/skyplanner/pkg/hash"
	"github.com/skyplanner/skyplanner/pkg/tokens"
)

type capturedEvent struct {
	Topic string
	Key   string
	Event map[string]any
}

// streamRecorder captures what the Recorder would hand to kafka.
type streamRecorder struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (s *streamRecorder) PublishEvent(_ context.Context, topic, key string, event map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, capturedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (s *streamRecorder) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, len(s.events))
	for i, ev := range s.events {
		types[i], _ = ev.Event["type"].(string)
	}
	return types
}

type testEnv struct {
	Repo      *repo.GormRepo
	Box       *secretbox.Box
	Stream    *streamRecorder
	Auth      *AuthService
	TwoFactor *TwoFactorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Klient{},
		&models.ActiveSession{},
		&models.TokenBlacklistEntry{},
		&models.TOTPAuditEntry{},
	))

	r := &repo.GormRepo{DB: db}
	box, err := secretbox.New("test-encryption-key", "test-salt")
	require.NoError(t, err)

	stream := &streamRecorder{}
	audit := &Recorder{Repo: r, Producer: stream}

	return &testEnv{
		Repo:      r,
		Box:       box,
		Stream:    stream,
		Auth:      &AuthService{Repo: r, Box: box, JWTSecret: []byte("test-jwt-secret"), Audit: audit},
		TwoFactor: &TwoFactorService{Repo: r, Box: box, Audit: audit},
	}
}

func (env *testEnv) seedKlient(t *testing.T, password string) *models.Klient {
	t.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)

	k := &models.Klient{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: pwHash,
		UserType:     tokens.UserTypeKlient,
	}
	require.NoError(t, env.Repo.DB.Create(k).Error)
	return k
}

// enableTOTP runs the full setup+verify flow and returns the decoded secret
// plus the plaintext backup codes.
func (env *testEnv) enableTOTP(t *testing.T, k *models.Klient) ([]byte, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := env.TwoFactor.Setup(ctx, k)
	require.NoError(t, err)

	secret, err := totp.DecodeSecret(setup.Secret)
	require.NoError(t, err)

	require.NoError(t, env.TwoFactor.Verify(ctx, k, totp.CodeAt(secret, time.Now())))

	fresh, err := env.Repo.FindKlientByID(ctx, k.ID)
	require.NoError(t, err)
	*k = *fresh

	return secret, setup.BackupCodes
}

func TestAuthService_Login_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "secret"},
		{name: "empty password", email: "user@example.com", password: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := env.Auth.Login(ctx, tt.email, tt.password, "", SessionMeta{})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	k := env.seedKlient(t, "password")

	res, err := env.Auth.Login(ctx, "nobody@example.com", "password", "", SessionMeta{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, repo.ErrInvalidCredentials)

	res, err = env.Auth.Login(ctx, k.Email, "wrong-password", "", SessionMeta{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, repo.ErrInvalidCredentials)
}

func TestAuthService_Login_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	k := env.seedKlient(t, "password")

	meta := SessionMeta{IP: "203.0.113.7", UserAgent: "go-test"}
	res, err := env.Auth.Login(ctx, k.Email, "password", "", meta)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), res.ExpiresAt, 5*time.Second)

	claims, err := tokens.SessionClaimsFromToken(res.Token, env.Auth.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, k.ID.String(), claims.Subject)
	assert.Equal(t, tokens.UserTypeKlient, claims.UserType)

	sessions, err := env.Repo.ListSessions(ctx, k.ID, k.UserType)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, claims.ID, sessions[0].JTI)
	assert.Equal(t, meta.IP, sessions[0].IP)
}

func TestAuthService_Login_PublishesEvent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	k := env.seedKlient(t, "password")

	_, err := env.Auth.Login(ctx, k.Email, "password", "", SessionMeta{IP: "203.0.113.7"})
	require.NoError(t, err)

	require.Len(t, env.Stream.events, 1)
	ev := env.Stream.events[0]
	assert.Equal(t, events.SecurityTopic, ev.Topic)
	assert.Equal(t, k.ID.String(), ev.Key)
	assert.Equal(t, events.TypeUserLogin, ev.Event["type"])
	assert.Equal(t, "203.0.113.7", ev.Event["ip"])
}

func TestAuthService_Login_TwoFactorRequired(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	k := env.seedKlient(t, "password")
	env.enableTOTP(t, k)

	res, err := env.Auth.Login(ctx, k.Email, "password", "", SessionMeta{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrTwoFactorRequired)
}

func TestAuthService_Login_WithTOTPCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	k := env.seedKlient(t, "password")
	secret, _ := env.enableTOTP(t, k)

	// Verify consumed the current step, so log in with the next one.
	code := totp.CodeAt(secret, time.Now().Add(totp.Period*time.Second))
	res, err := env.Auth.Login(ctx, k.Email, "password", code, SessionMeta{})
	require.NoError(t, err)
	require.NotNil(t, res)

	// The same code is a replayed step on the second attempt.
	res, err = env.Auth.Login(ctx, k.Email, "password", code, SessionMeta{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestAuthService_Login_WithBackupCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	k := env.seedKlient(t, "password")
	_, backupCodes := env.enableTOTP(t, k)

	code := backupCodes[0]
	res, err := env.Auth.Login(ctx, k.Email, "password", code, SessionMeta{})
	require.NoError(t, err)
	require.NotNil(t, res)

	fresh, err := env.Repo.FindKlientByID(ctx, k.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.BackupCodesHash, totp.BackupCodeCount-1)
	assert.Equal(t, 1, fresh.RecoveryCodesUsed)

	// Single use: the consumed code is gone.
	res, err = env.Auth.Login(ctx, k.Email, "password", code, SessionMeta{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	k := env.seedKlient(t, "password")

	res, err := env.Auth.Login(ctx, k.Email, "password", "", SessionMeta{})
	require.NoError(t, err)

	claims, err := tokens.SessionClaimsFromToken(res.Token, env.Auth.JWTSecret)
	require.NoError(t, err)

	require.NoError(t, env.Auth.Logout(ctx, claims))

	sessions, err := env.Repo.ListSessions(ctx, k.ID, k.UserType)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	blocked, err := env.Repo.IsBlacklisted(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
}
