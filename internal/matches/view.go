package matches

import (
	"context"
	"time"

	"github.com/mitch8020/guess-who-backend/internal/models"
)

// ParticipantView is one participant as seen by a specific viewer.
// Eliminated ids, result and timestamps are public match state; only
// board order and the secret target are filled in on the viewer's own
// entry and stay empty for everyone else.
type ParticipantView struct {
	ID                  string                   `json:"id"`
	RoomMemberID        string                   `json:"roomMemberId"`
	Result              models.ParticipantResult `json:"result"`
	EliminatedImageIDs  models.StringList        `json:"eliminatedImageIds"`
	BoardImageOrder     models.StringList        `json:"boardImageOrder,omitempty"`
	SecretTargetImageID string                   `json:"secretTargetImageId,omitempty"`
	ReadyAt             time.Time                `json:"readyAt"`
	LastActionAt        time.Time                `json:"lastActionAt"`
}

// MatchView is the caller-scoped read model of a match: the shared
// match record, both participant entries, and the full ordered action
// log. It is the only path match state leaves the engine on, so
// redaction of the other player's private fields happens here and
// nowhere else.
type MatchView struct {
	ID               string             `json:"id"`
	RoomID           string             `json:"roomId"`
	Status           models.MatchStatus `json:"status"`
	BoardSize        int                `json:"boardSize"`
	SelectedImageIDs models.StringList  `json:"selectedImageIds"`
	TurnMemberID     *string            `json:"turnMemberId,omitempty"`
	WinnerMemberID   *string            `json:"winnerMemberId,omitempty"`
	SeedHash         string             `json:"randomizationSeedHash"`
	Participants     []ParticipantView  `json:"participants"`
	Actions          []ReplayFrame      `json:"actions"`
	StartedAt        time.Time          `json:"startedAt"`
	EndedAt          *time.Time         `json:"endedAt,omitempty"`
}

// MatchSummary is the history listing row.
type MatchSummary struct {
	ID             string             `json:"id"`
	RoomID         string             `json:"roomId"`
	Status         models.MatchStatus `json:"status"`
	BoardSize      int                `json:"boardSize"`
	WinnerMemberID *string            `json:"winnerMemberId,omitempty"`
	StartedAt      time.Time          `json:"startedAt"`
	EndedAt        *time.Time         `json:"endedAt,omitempty"`
}

// HistoryPage is one page of finished matches plus the cursor for the
// next page.
type HistoryPage struct {
	Items      []MatchSummary `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// ReplayFrame is one entry of a match's ordered action log.
type ReplayFrame struct {
	ActionID      string            `json:"actionId"`
	ActionType    models.ActionType `json:"actionType"`
	ActorMemberID *string           `json:"actorMemberId,omitempty"`
	Payload       models.JSONMap    `json:"payload"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// Replay is the complete action log of a match.
type Replay struct {
	MatchID string        `json:"matchId"`
	Frames  []ReplayFrame `json:"frames"`
}

func newMatchSummary(match models.Match) MatchSummary {
	return MatchSummary{
		ID:             match.ID,
		RoomID:         match.RoomID,
		Status:         match.Status,
		BoardSize:      match.BoardSize,
		WinnerMemberID: match.WinnerMemberID,
		StartedAt:      match.StartedAt,
		EndedAt:        match.EndedAt,
	}
}

func replayFrames(actions []models.MatchAction) []ReplayFrame {
	frames := make([]ReplayFrame, 0, len(actions))
	for _, action := range actions {
		frames = append(frames, ReplayFrame{
			ActionID:      action.ID,
			ActionType:    action.ActionType,
			ActorMemberID: action.ActorMemberID,
			Payload:       action.Payload,
			CreatedAt:     action.CreatedAt,
		})
	}
	return frames
}

// buildMatchView assembles the view for the given viewer. Viewers who
// are not participants (for example a third room member watching) get
// both entries with the owner-scoped fields redacted.
func (s *Service) buildMatchView(ctx context.Context, match *models.Match, principal models.Principal) (*MatchView, error) {
	participants, err := s.participantsForMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	actions, err := s.actionsForMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}

	viewerMemberID := ""
	if member, err := s.rooms.EnsureActiveMember(ctx, match.RoomID, principal); err == nil {
		viewerMemberID = member.ID
	}

	views := make([]ParticipantView, 0, len(participants))
	for _, participant := range participants {
		view := ParticipantView{
			ID:                 participant.ID,
			RoomMemberID:       participant.RoomMemberID,
			Result:             participant.Result,
			EliminatedImageIDs: participant.EliminatedImageIDs,
			ReadyAt:            participant.ReadyAt,
			LastActionAt:       participant.LastActionAt,
		}
		if participant.RoomMemberID == viewerMemberID {
			view.BoardImageOrder = participant.BoardImageOrder
			view.SecretTargetImageID = participant.SecretTargetImageID
		}
		views = append(views, view)
	}

	return &MatchView{
		ID:               match.ID,
		RoomID:           match.RoomID,
		Status:           match.Status,
		BoardSize:        match.BoardSize,
		SelectedImageIDs: match.SelectedImageIDs,
		TurnMemberID:     match.TurnMemberID,
		WinnerMemberID:   match.WinnerMemberID,
		SeedHash:         match.SeedHash,
		Participants:     views,
		Actions:          replayFrames(actions),
		StartedAt:        match.StartedAt,
		EndedAt:          match.EndedAt,
	}, nil
}
