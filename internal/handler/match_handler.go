package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mitch8020/guess-who-backend/internal/matches"
	"github.com/mitch8020/guess-who-backend/internal/models"
)

// region --- DTOs ---

// StartMatchInput defines the structure for starting a match.
type StartMatchInput struct {
	BoardSize        int    `json:"boardSize" binding:"required,min=2" example:"5"`
	OpponentMemberID string `json:"opponentMemberId" binding:"required"`
}

// SubmitActionInput defines one match action submission.
type SubmitActionInput struct {
	ActionType string         `json:"actionType" binding:"required,oneof=ask answer eliminate guess" example:"eliminate"`
	Payload    map[string]any `json:"payload"`
}

// RematchInput optionally overrides the board size for the new match.
type RematchInput struct {
	BoardSize *int `json:"boardSize" binding:"omitempty,min=2"`
}

// endregion

// region --- Match Handlers ---

// StartMatch godoc
// @Summary      Start a match
// @Description  Sets up a new match between the host and an opponent, dealing boards and secret targets.
// @Tags         matches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Param        input body StartMatchInput true "Match setup"
// @Success      201  {object}  matches.MatchView
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/matches [post]
func (a *API) StartMatch(c *gin.Context) {
	var input StartMatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := a.Matches.StartMatch(c.Request.Context(), c.Param("roomId"), principalFrom(c),
		input.BoardSize, input.OpponentMemberID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetMatch godoc
// @Summary      Get match detail
// @Description  Returns the caller-scoped view of a match. Opponent boards and targets stay hidden.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        roomId  path string true "Room ID"
// @Param        matchId path string true "Match ID"
// @Success      200  {object}  matches.MatchView
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId}/matches/{matchId} [get]
func (a *API) GetMatch(c *gin.Context) {
	view, err := a.Matches.GetMatchDetail(c.Request.Context(), c.Param("roomId"), c.Param("matchId"), principalFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAction godoc
// @Summary      Submit a match action
// @Description  Applies one ask/answer/eliminate/guess action under the turn rules.
// @Tags         matches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomId  path string true "Room ID"
// @Param        matchId path string true "Match ID"
// @Param        input body SubmitActionInput true "Action"
// @Success      200  {object}  matches.MatchView
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/matches/{matchId}/actions [post]
func (a *API) SubmitAction(c *gin.Context) {
	var input SubmitActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := a.Matches.SubmitAction(c.Request.Context(), c.Param("roomId"), c.Param("matchId"),
		principalFrom(c), matches.ActionInput{
			ActionType: models.ActionType(input.ActionType),
			Payload:    input.Payload,
		})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ForfeitMatch godoc
// @Summary      Forfeit a match
// @Description  Ends the match with the caller as the loser. Idempotent on finished matches.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        roomId  path string true "Room ID"
// @Param        matchId path string true "Match ID"
// @Success      200  {object}  matches.MatchView
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId}/matches/{matchId}/forfeit [post]
func (a *API) ForfeitMatch(c *gin.Context) {
	view, err := a.Matches.ForfeitMatch(c.Request.Context(), c.Param("roomId"), c.Param("matchId"), principalFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Rematch godoc
// @Summary      Start a rematch
// @Description  Starts a fresh match between the same participants with new boards and targets.
// @Tags         matches
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomId  path string true "Room ID"
// @Param        matchId path string true "Previous match ID"
// @Param        input body RematchInput false "Board size override"
// @Success      201  {object}  matches.MatchView
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/matches/{matchId}/rematch [post]
func (a *API) Rematch(c *gin.Context) {
	var input RematchInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := a.Matches.Rematch(c.Request.Context(), c.Param("roomId"), c.Param("matchId"),
		principalFrom(c), input.BoardSize)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListMatchHistory godoc
// @Summary      List match history
// @Description  Pages through the room's finished matches, newest first.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Param        cursor query string false "Cursor from the previous page"
// @Param        limit  query int    false "Items per page" default(20)
// @Success      200  {object}  matches.HistoryPage
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/matches [get]
func (a *API) ListMatchHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, err := a.Matches.ListRoomHistory(c.Request.Context(), c.Param("roomId"), principalFrom(c),
		c.Query("cursor"), limit)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetReplay godoc
// @Summary      Get a match replay
// @Description  Returns the full ordered action log of a match.
// @Tags         matches
// @Produce      json
// @Security     BearerAuth
// @Param        roomId  path string true "Room ID"
// @Param        matchId path string true "Match ID"
// @Success      200  {object}  matches.Replay
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId}/matches/{matchId}/replay [get]
func (a *API) GetReplay(c *gin.Context) {
	replay, err := a.Matches.GetReplay(c.Request.Context(), c.Param("roomId"), c.Param("matchId"), principalFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, replay)
}

// endregion
