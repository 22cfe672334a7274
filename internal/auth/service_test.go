package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ramikart/ramikart-backend/internal/users"
	pkgAuth "github.com/ramikart/ramikart-backend/pkg/auth"
	"github.com/ramikart/ramikart-backend/pkg/auth/session"
	"github.com/ramikart/ramikart-backend/pkg/config"
	"github.com/ramikart/ramikart-backend/pkg/db/models"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
	"github.com/ramikart/ramikart-backend/pkg/enums"
)

type stubSessionManager struct {
	refreshByUser map[string]string
	revoked       []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{refreshByUser: make(map[string]string)}
}

func (s *stubSessionManager) Open(ctx context.Context, userID, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.refreshByUser[userID] = token
	return token, nil
}

func (s *stubSessionManager) ValidateRefresh(ctx context.Context, userID, presented string) error {
	if s.refreshByUser[userID] != presented {
		return session.ErrInvalidRefreshToken
	}
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, userID, accessID string) error {
	delete(s.refreshByUser, userID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "ramikart-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 43200,
	}
}

func newTestService(t *testing.T) (Service, *stubSessionManager, *gorm.DB) {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo, err := users.NewRepository(db)
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	sessions := newStubSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc, sessions, db
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		Email:       "Rami@Example.com",
		Password:    "correct horse battery",
		DisplayName: "Rami",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.User.Email != "rami@example.com" {
		t.Fatalf("email not normalized: %s", registered.User.Email)
	}
	if registered.AccessToken == "" || registered.RefreshToken == "" {
		t.Fatal("missing tokens")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), registered.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != enums.RoleUser {
		t.Fatalf("role = %s, want user", claims.Role)
	}

	logged, err := svc.Login(ctx, LoginRequest{Email: "rami@example.com", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.User.ID != registered.User.ID {
		t.Fatal("login returned different account")
	}
	if logged.User.LastLoginAt == nil {
		t.Fatal("lastLoginAt not recorded")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{
		Email:       "rami@example.com",
		Password:    "correct horse battery",
		DisplayName: "Rami",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginRequest{Email: "rami@example.com", Password: "wrong"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("wrong password code = %s", pkgerrors.As(err).Code())
	}
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unknown user code = %s", pkgerrors.As(err).Code())
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := RegisterRequest{Email: "rami@example.com", Password: "correct horse battery", DisplayName: "Rami"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, req)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("code = %s, want CONFLICT", pkgerrors.As(err).Code())
	}
}

func TestRefreshAndLogout(t *testing.T) {
	svc, sessions, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		Email:       "rami@example.com",
		Password:    "correct horse battery",
		DisplayName: "Rami",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := svc.Refresh(ctx, RefreshRequest{
		UserID:       registered.User.ID,
		RefreshToken: registered.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("refresh returned empty access token")
	}

	_, err = svc.Refresh(ctx, RefreshRequest{
		UserID:       registered.User.ID,
		RefreshToken: "forged",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("forged refresh code = %s", pkgerrors.As(err).Code())
	}

	if err := svc.Logout(ctx, registered.User.ID, "access-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 {
		t.Fatalf("revoked = %v", sessions.revoked)
	}
	_, err = svc.Refresh(ctx, RefreshRequest{
		UserID:       registered.User.ID,
		RefreshToken: pair.RefreshToken,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("post-logout refresh code = %s", pkgerrors.As(err).Code())
	}
}
