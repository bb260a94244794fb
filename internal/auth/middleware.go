package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/mitch8020/guess-who-backend/internal/apperr"
	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/pkg/token"
)

// Context keys set by the middleware below.
const (
	ContextUserID    = "userID"
	ContextPrincipal = "principal"
)

// RequireUser creates a gin middleware that only admits registered
// users carrying a valid access token.
func RequireUser(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := token.ExtractBearerToken(c.GetHeader("Authorization"))
		if bearer == "" {
			abortWith(c, apperr.AuthRequired())
			return
		}
		principal, err := tokens.VerifyAccessToken(bearer)
		if err != nil {
			abortWith(c, apperr.AccessTokenInvalid())
			return
		}
		c.Set(ContextUserID, principal.UserID)
		c.Set(ContextPrincipal, principal)
		c.Next()
	}
}

// RequirePlayer admits any principal holding a player token: a
// registered user or a room-scoped guest.
func RequirePlayer(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := token.ExtractBearerToken(c.GetHeader("Authorization"))
		if bearer == "" {
			abortWith(c, apperr.AuthRequired())
			return
		}
		principal, err := tokens.VerifyPlayerToken(bearer)
		if err != nil {
			abortWith(c, apperr.AccessTokenInvalid())
			return
		}
		if principal.Kind == models.PrincipalUser {
			c.Set(ContextUserID, principal.UserID)
		}
		c.Set(ContextPrincipal, principal)
		c.Next()
	}
}

// OptionalPlayer inspects for a token and sets the principal if present
// and valid, but does not fail if the token is missing or invalid.
func OptionalPlayer(tokens *token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := token.ExtractBearerToken(c.GetHeader("Authorization"))
		if bearer != "" {
			if principal, err := tokens.VerifyPlayerToken(bearer); err == nil {
				if principal.Kind == models.PrincipalUser {
					c.Set(ContextUserID, principal.UserID)
				}
				c.Set(ContextPrincipal, principal)
			}
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal set by the middleware, if any.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(ContextPrincipal)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := value.(models.Principal)
	return principal, ok
}

func abortWith(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{"error": err})
}
