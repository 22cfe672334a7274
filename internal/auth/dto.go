package auth

import (
	"github.com/google/uuid"

	"github.com/ramikart/ramikart-backend/internal/users"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"displayName" validate:"required,min=1,max=100"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a fresh access token.
type RefreshRequest struct {
	UserID       uuid.UUID `json:"userId" validate:"required"`
	RefreshToken string    `json:"refreshToken" validate:"required"`
}

// TokenPair is returned by every operation that opens a session.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse carries the session tokens plus the account's public view.
type AuthResponse struct {
	TokenPair
	User users.UserView `json:"user"`
}
