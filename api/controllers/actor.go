package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ramikart/ramikart-backend/api/middleware"
	"github.com/ramikart/ramikart-backend/pkg/enums"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
)

// actorFromRequest resolves the authenticated caller seeded by the auth middleware.
func actorFromRequest(r *http.Request) (uuid.UUID, enums.Role, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return userID, enums.Role(middleware.RoleFromContext(r.Context())), nil
}
