// Package token issues and verifies the two player token shapes: access
// tokens for registered users and room-scoped guest tokens handed out
// on invite joins. Both are HMAC-signed JWTs under the same secret and
// are distinguished by a "type" claim.
package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mitch8020/guess-who-backend/internal/models"
)

// Manager signs and verifies player tokens.
type Manager struct {
	secret    []byte
	accessTTL time.Duration
	guestTTL  time.Duration
}

// NewManager creates a token manager for the given signing secret.
func NewManager(secret string) *Manager {
	return &Manager{
		secret:    []byte(secret),
		accessTTL: time.Hour * 24 * 7,
		guestTTL:  time.Hour * 24,
	}
}

// GenerateAccessToken creates a new JWT for a registered user.
func (m *Manager) GenerateAccessToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"type": "access",
		"sub":  userID,
		"exp":  time.Now().Add(m.accessTTL).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// GenerateGuestToken creates a JWT bound to a guest room member.
func (m *Manager) GenerateGuestToken(member models.RoomMember) (string, error) {
	claims := jwt.MapClaims{
		"type":        "guest",
		"memberId":    member.ID,
		"roomId":      member.RoomID,
		"displayName": member.DisplayName,
		"exp":         time.Now().Add(m.guestTTL).Unix(),
		"iat":         time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// VerifyAccessToken validates a registered-user token and returns the
// user principal it carries.
func (m *Manager) VerifyAccessToken(tokenString string) (models.Principal, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return models.Principal{}, err
	}
	sub, _ := claims["sub"].(string)
	if claims["type"] != "access" || sub == "" {
		return models.Principal{}, fmt.Errorf("not an access token")
	}
	return models.UserPrincipal(sub), nil
}

// VerifyGuestToken validates a guest token and returns the room-scoped
// guest principal it carries.
func (m *Manager) VerifyGuestToken(tokenString string) (models.Principal, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return models.Principal{}, err
	}
	memberID, _ := claims["memberId"].(string)
	roomID, _ := claims["roomId"].(string)
	displayName, _ := claims["displayName"].(string)
	if claims["type"] != "guest" || memberID == "" || roomID == "" {
		return models.Principal{}, fmt.Errorf("not a guest token")
	}
	return models.GuestPrincipal(memberID, roomID, displayName), nil
}

// VerifyPlayerToken accepts either token shape.
func (m *Manager) VerifyPlayerToken(tokenString string) (models.Principal, error) {
	if principal, err := m.VerifyAccessToken(tokenString); err == nil {
		return principal, nil
	}
	return m.VerifyGuestToken(tokenString)
}

func (m *Manager) parse(tokenString string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ExtractBearerToken pulls the token out of an Authorization header.
// Returns "" when the header is absent or not a bearer scheme.
func ExtractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
