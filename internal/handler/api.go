// Package handler holds the gin HTTP layer: request DTOs, the swagger
// annotations, and the translation from domain errors to responses.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mitch8020/guess-who-backend/internal/apperr"
	"github.com/mitch8020/guess-who-backend/internal/auth"
	"github.com/mitch8020/guess-who-backend/internal/images"
	"github.com/mitch8020/guess-who-backend/internal/invites"
	"github.com/mitch8020/guess-who-backend/internal/matches"
	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/internal/realtime"
	"github.com/mitch8020/guess-who-backend/internal/rooms"
	"github.com/mitch8020/guess-who-backend/pkg/token"
	"gorm.io/gorm"
)

// API bundles the services the HTTP handlers dispatch into.
type API struct {
	DB      *gorm.DB
	Tokens  *token.Manager
	Rooms   *rooms.Service
	Images  *images.Service
	Invites *invites.Service
	Matches *matches.Service
	Hub     *realtime.Hub
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the machine-readable error payload.
type ErrorBody struct {
	Code    string         `json:"code" example:"ROOM_NOT_FOUND"`
	Message string         `json:"message" example:"Room does not exist or is no longer available."`
	Details map[string]any `json:"details"`
}

// renderError maps a domain error to its HTTP response. Unknown errors
// become opaque 500s.
func renderError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, gin.H{"error": appErr})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
		"code":    "INTERNAL",
		"message": "Internal server error",
	}})
}

// principalFrom pulls the authenticated principal set by the auth
// middleware. Handlers behind RequirePlayer can rely on it being set.
func principalFrom(c *gin.Context) models.Principal {
	principal, _ := auth.PrincipalFrom(c)
	return principal
}

// userIDFrom pulls the registered user id set by RequireUser.
func userIDFrom(c *gin.Context) string {
	value, _ := c.Get(auth.ContextUserID)
	userID, _ := value.(string)
	return userID
}
