package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ramikart/ramikart-backend/pkg/config"
	redisclient "github.com/ramikart/ramikart-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	RefreshTokenKey(userID string) string
}

// Manager tracks live access sessions and refresh tokens in Redis. Logout
// revokes the session record so stolen-but-unexpired JWTs stop working.
type Manager struct {
	store      sessionStore
	keyer      sessionKeyer
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if accessTTL <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive")
	}
	refreshTTL := cfg.RefreshTokenTTL()
	if refreshTTL <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", refreshTTL, accessTTL)
	}

	return &Manager{
		store:      client,
		keyer:      client,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// Open records a live access session and issues a refresh token for userID.
func (m *Manager) Open(ctx context.Context, userID, accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("access id is required")
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), userID, m.accessTTL); err != nil {
		return "", fmt.Errorf("storing access session: %w", err)
	}

	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	refresh := base64.RawURLEncoding.EncodeToString(raw)
	if err := m.store.Set(ctx, m.keyer.RefreshTokenKey(userID), refresh, m.refreshTTL); err != nil {
		return "", fmt.Errorf("storing refresh token: %w", err)
	}
	return refresh, nil
}

// HasSession reports whether the access session is still live.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, nil
	}
	_, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ValidateRefresh compares the presented refresh token against the stored one.
func (m *Manager) ValidateRefresh(ctx context.Context, userID, presented string) error {
	stored, err := m.store.Get(ctx, m.keyer.RefreshTokenKey(userID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return ErrInvalidRefreshToken
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return ErrInvalidRefreshToken
	}
	return nil
}

// Revoke drops the access session and the user's refresh token.
func (m *Manager) Revoke(ctx context.Context, userID, accessID string) error {
	keys := []string{}
	if strings.TrimSpace(accessID) != "" {
		keys = append(keys, m.keyer.AccessSessionKey(accessID))
	}
	if strings.TrimSpace(userID) != "" {
		keys = append(keys, m.keyer.RefreshTokenKey(userID))
	}
	if len(keys) == 0 {
		return nil
	}
	return m.store.Del(ctx, keys...)
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string {
	return uuid.NewString()
}
