package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/internal/realtime"
	"github.com/mitch8020/guess-who-backend/internal/rooms"
)

// region --- DTOs ---

// RoomSettingsInput is the partial settings payload for create/update.
type RoomSettingsInput struct {
	AllowedBoardSizes []int `json:"allowedBoardSizes"`
	MaxPlayers        *int  `json:"maxPlayers"`
	AllowGuestJoin    *bool `json:"allowGuestJoin"`
	DefaultBoardSize  *int  `json:"defaultBoardSize"`
	RematchBoardSizes []int `json:"rematchBoardSizes"`
}

// CreateRoomInput defines the structure for room creation.
type CreateRoomInput struct {
	Name     string             `json:"name" binding:"required" example:"Friday Night"`
	Type     string             `json:"type" binding:"required,oneof=permanent temporary" example:"permanent"`
	Settings *RoomSettingsInput `json:"settings"`
}

// UpdateRoomInput defines the structure for room updates.
type UpdateRoomInput struct {
	Name     *string            `json:"name"`
	Settings *RoomSettingsInput `json:"settings"`
}

// RoomDetailResponse is a room with the caller's membership and the
// active member list.
type RoomDetailResponse struct {
	Room    *models.Room             `json:"room"`
	Me      *models.RoomMember       `json:"me"`
	Members []models.RoomMember      `json:"members"`
	Online  []realtime.PresenceEntry `json:"online"`
}

// MuteMemberInput defines the mute duration payload.
type MuteMemberInput struct {
	DurationMinutes int `json:"durationMinutes" binding:"required,min=1" example:"10"`
}

func settingsInput(input *RoomSettingsInput) *rooms.SettingsInput {
	if input == nil {
		return nil
	}
	return &rooms.SettingsInput{
		AllowedBoardSizes: input.AllowedBoardSizes,
		MaxPlayers:        input.MaxPlayers,
		AllowGuestJoin:    input.AllowGuestJoin,
		DefaultBoardSize:  input.DefaultBoardSize,
		RematchBoardSizes: input.RematchBoardSizes,
	}
}

// endregion

// region --- Room Handlers ---

// CreateRoom godoc
// @Summary      Create a new room
// @Description  Creates a room with the caller as host, occupying the first seat.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CreateRoomInput true "Room Info"
// @Success      201  {object}  models.Room
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /rooms [post]
func (a *API) CreateRoom(c *gin.Context) {
	var input CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, member, err := a.Rooms.CreateRoom(c.Request.Context(), userIDFrom(c), input.Name,
		models.RoomType(input.Type), settingsInput(input.Settings))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room, "member": member})
}

// ListMyRooms godoc
// @Summary      List my rooms
// @Description  Lists the rooms the caller is an active member of.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Room
// @Failure      401  {object}  ErrorResponse
// @Router       /rooms [get]
func (a *API) ListMyRooms(c *gin.Context) {
	roomList, err := a.Rooms.ListRoomsForUser(c.Request.Context(), userIDFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomList)
}

// GetRoom godoc
// @Summary      Get room detail
// @Description  Returns the room, the caller's membership, the member list and who is online.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Success      200  {object}  RoomDetailResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId} [get]
func (a *API) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	room, me, members, err := a.Rooms.RoomDetail(c.Request.Context(), roomID, principalFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, RoomDetailResponse{
		Room:    room,
		Me:      me,
		Members: members,
		Online:  a.Hub.RoomPresence(roomID),
	})
}

// UpdateRoom godoc
// @Summary      Update a room
// @Description  Applies name and settings changes. Host only.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Param        input body UpdateRoomInput true "Changes"
// @Success      200  {object}  models.Room
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId} [patch]
func (a *API) UpdateRoom(c *gin.Context) {
	var input UpdateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := a.Rooms.UpdateRoom(c.Request.Context(), c.Param("roomId"), userIDFrom(c),
		input.Name, settingsInput(input.Settings))
	if err != nil {
		renderError(c, err)
		return
	}
	a.Hub.PublishRoomUpdate(room.ID, "room.updated", map[string]any{"roomId": room.ID})
	c.JSON(http.StatusOK, room)
}

// ArchiveRoom godoc
// @Summary      Archive a room
// @Description  Soft-deletes a room. Host only; rejected while a match is active.
// @Tags         rooms
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Success      204  "No Content"
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId} [delete]
func (a *API) ArchiveRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	if err := a.Rooms.ArchiveRoom(c.Request.Context(), roomID, userIDFrom(c)); err != nil {
		renderError(c, err)
		return
	}
	a.Hub.PublishRoomUpdate(roomID, "room.archived", map[string]any{"roomId": roomID})
	c.Status(http.StatusNoContent)
}

// LeaveRoom godoc
// @Summary      Leave a room
// @Description  Marks the caller's membership as left and frees the seat.
// @Tags         rooms
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Success      204  "No Content"
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/leave [post]
func (a *API) LeaveRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	if err := a.Rooms.LeaveRoom(c.Request.Context(), roomID, principalFrom(c)); err != nil {
		renderError(c, err)
		return
	}
	a.Hub.PublishRoomUpdate(roomID, "member.left", map[string]any{"roomId": roomID})
	c.Status(http.StatusNoContent)
}

// RemoveMember godoc
// @Summary      Kick a member
// @Description  Removes a player from the room. Host only; kicked members cannot rejoin.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        roomId   path string true "Room ID"
// @Param        memberId path string true "Member ID"
// @Success      200  {array}   models.RoomMember
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId}/members/{memberId} [delete]
func (a *API) RemoveMember(c *gin.Context) {
	roomID := c.Param("roomId")
	memberID := c.Param("memberId")
	members, err := a.Rooms.RemoveMember(c.Request.Context(), roomID, userIDFrom(c), memberID)
	if err != nil {
		renderError(c, err)
		return
	}
	a.Hub.PublishRoomUpdate(roomID, "member.kicked", map[string]any{
		"roomId":   roomID,
		"memberId": memberID,
	})
	c.JSON(http.StatusOK, members)
}

// MuteMember godoc
// @Summary      Mute a member
// @Description  Silences a member for the given duration. Host only.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomId   path string true "Room ID"
// @Param        memberId path string true "Member ID"
// @Param        input body MuteMemberInput true "Mute duration"
// @Success      200  {object}  models.RoomMember
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId}/members/{memberId}/mute [post]
func (a *API) MuteMember(c *gin.Context) {
	var input MuteMemberInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mutedUntil := time.Now().Add(time.Duration(input.DurationMinutes) * time.Minute)
	member, err := a.Rooms.MuteMember(c.Request.Context(), c.Param("roomId"), userIDFrom(c),
		c.Param("memberId"), mutedUntil)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// UnmuteMember godoc
// @Summary      Unmute a member
// @Description  Clears a member's mute. Host only.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        roomId   path string true "Room ID"
// @Param        memberId path string true "Member ID"
// @Success      200  {object}  models.RoomMember
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId}/members/{memberId}/unmute [post]
func (a *API) UnmuteMember(c *gin.Context) {
	member, err := a.Rooms.UnmuteMember(c.Request.Context(), c.Param("roomId"), userIDFrom(c), c.Param("memberId"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// endregion
