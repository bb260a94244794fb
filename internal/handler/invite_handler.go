package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mitch8020/guess-who-backend/internal/invites"
)

// region --- DTOs ---

// CreateInviteInput defines the structure for invite creation.
type CreateInviteInput struct {
	MaxUses        *int `json:"maxUses" binding:"omitempty,min=1"`
	ExpiresInHours int  `json:"expiresInHours" binding:"omitempty,min=1,max=720"`
	AllowGuestJoin bool `json:"allowGuestJoin"`
}

// JoinInviteInput defines the structure for redeeming an invite.
type JoinInviteInput struct {
	DisplayName string `json:"displayName" binding:"required,max=64" example:"Sam"`
}

// endregion

// region --- Invite Handlers ---

// CreateInvite godoc
// @Summary      Create an invite
// @Description  Issues a shareable join code for the room. Host only.
// @Tags         invites
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Param        input body CreateInviteInput true "Invite settings"
// @Success      201  {object}  models.Invite
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/invites [post]
func (a *API) CreateInvite(c *gin.Context) {
	var input CreateInviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invite, err := a.Invites.Create(c.Request.Context(), c.Param("roomId"), principalFrom(c), invites.CreateInput{
		MaxUses:        input.MaxUses,
		ExpiresInHours: input.ExpiresInHours,
		AllowGuestJoin: input.AllowGuestJoin,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invite)
}

// ListInvites godoc
// @Summary      List room invites
// @Description  Lists a room's invites, newest first. Host only.
// @Tags         invites
// @Produce      json
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Success      200  {array}   models.Invite
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/invites [get]
func (a *API) ListInvites(c *gin.Context) {
	inviteList, err := a.Invites.ListForRoom(c.Request.Context(), c.Param("roomId"), principalFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, inviteList)
}

// RevokeInvite godoc
// @Summary      Revoke an invite
// @Description  Disables an invite so it can no longer be redeemed. Host only.
// @Tags         invites
// @Security     BearerAuth
// @Param        roomId   path string true "Room ID"
// @Param        inviteId path string true "Invite ID"
// @Success      204  "No Content"
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId}/invites/{inviteId} [delete]
func (a *API) RevokeInvite(c *gin.Context) {
	err := a.Invites.Revoke(c.Request.Context(), c.Param("roomId"), c.Param("inviteId"), principalFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResolveInvite godoc
// @Summary      Preview an invite
// @Description  Looks up a code and shows what joining would mean, without consuming a use.
// @Tags         invites
// @Produce      json
// @Param        code path string true "Invite code"
// @Success      200  {object}  invites.Preview
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /invites/{code} [get]
func (a *API) ResolveInvite(c *gin.Context) {
	preview, err := a.Invites.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// JoinInvite godoc
// @Summary      Redeem an invite
// @Description  Joins the invite's room. Registered callers join as users; anonymous callers join as guests and receive a room-scoped guest token.
// @Tags         invites
// @Accept       json
// @Produce      json
// @Param        code path string true "Invite code"
// @Param        input body JoinInviteInput true "Display name"
// @Success      200  {object}  invites.JoinResult
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /invites/{code}/join [post]
func (a *API) JoinInvite(c *gin.Context) {
	var input JoinInviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code := c.Param("code")
	var result *invites.JoinResult
	var err error
	if userID := userIDFrom(c); userID != "" {
		result, err = a.Invites.JoinAsUser(c.Request.Context(), code, userID, input.DisplayName)
	} else {
		result, err = a.Invites.JoinAsGuest(c.Request.Context(), code, input.DisplayName)
	}
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// endregion
