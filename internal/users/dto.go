package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/ramikart/ramikart-backend/pkg/db/models"
	"github.com/ramikart/ramikart-backend/pkg/enums"
)

// UserView is the public shape of an account.
type UserView struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Role        enums.Role `json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FromModel converts the stored user into its public view.
func FromModel(user *models.User) UserView {
	view := UserView{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	if user.AvatarURL != nil {
		view.AvatarURL = *user.AvatarURL
	}
	return view
}
