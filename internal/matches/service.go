// Package matches implements the match engine: the turn-based state
// machine from board setup through guesses, forfeits and rematches.
// All validation happens before any mutation, so a rejected call never
// leaves partial state behind.
package matches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mitch8020/guess-who-backend/internal/apperr"
	"github.com/mitch8020/guess-who-backend/internal/database"
	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/internal/random"
	"github.com/mitch8020/guess-who-backend/internal/rooms"
)

// ImagePool is the gate to a room's active image pool.
type ImagePool interface {
	ActivePool(ctx context.Context, roomID string) (count int, imageIDs []string, err error)
}

// Broadcaster is the fire-and-forget fan-out for room and match events.
// The engine never waits on it; a nil broadcaster is a silent no-op.
type Broadcaster interface {
	PublishRoomUpdate(roomID, event string, payload map[string]any)
	PublishMatchState(matchID, event string, payload map[string]any)
}

// Service is the match engine.
type Service struct {
	db          *gorm.DB
	rooms       *rooms.Service
	images      ImagePool
	broadcaster Broadcaster
}

// NewService creates a match engine. broadcaster may be nil.
func NewService(db *gorm.DB, roomService *rooms.Service, images ImagePool, broadcaster Broadcaster) *Service {
	return &Service{db: db, rooms: roomService, images: images, broadcaster: broadcaster}
}

// StartMatch sets up a new match between the room host and an opponent.
// Board and target assignment are drawn with a crypto-strong shuffle;
// only the hash of the randomization seed is persisted so setup can be
// proven untampered later without exposing the private draws.
func (s *Service) StartMatch(ctx context.Context, roomID string, principal models.Principal, boardSize int, opponentMemberID string) (*MatchView, error) {
	room, err := s.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	hostMember, err := s.rooms.EnsureHostMember(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}

	var opponent models.RoomMember
	err = s.db.WithContext(ctx).First(&opponent, "id = ?", opponentMemberID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load opponent: %w", err)
	}
	if err != nil || opponent.RoomID != roomID || opponent.Status != models.MemberStatusActive {
		return nil, apperr.MatchOpponentInvalid()
	}
	if opponent.ID == hostMember.ID {
		return nil, apperr.MatchOpponentRequired()
	}

	if !room.Settings.AllowedBoardSizes.ContainsInt(boardSize) {
		return nil, apperr.BoardSizeNotAllowed(room.Settings.AllowedBoardSizes)
	}

	// Advisory check so a running match reports as such before any pool
	// validation; the unique-index insert below remains the race backstop.
	var activeMatches int64
	err = s.db.WithContext(ctx).Model(&models.Match{}).
		Where("room_id = ? AND status IN ?", roomID,
			[]models.MatchStatus{models.MatchStatusWaiting, models.MatchStatusInProgress}).
		Count(&activeMatches).Error
	if err != nil {
		return nil, fmt.Errorf("count active matches: %w", err)
	}
	if activeMatches > 0 {
		return nil, apperr.MatchAlreadyActive()
	}

	activeCount, imageIDs, err := s.images.ActivePool(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if activeCount < models.MatchMinImages {
		return nil, apperr.InsufficientImagesMinimum(models.MatchMinImages, activeCount)
	}
	requiredImageCount := boardSize * boardSize
	if activeCount < requiredImageCount {
		return nil, apperr.InsufficientImagesBoardSize(requiredImageCount, activeCount)
	}

	shuffled, err := random.Shuffle(imageIDs)
	if err != nil {
		return nil, fmt.Errorf("shuffle pool: %w", err)
	}
	selected := shuffled[:requiredImageCount]

	seed, err := random.Hex(32)
	if err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	turnMemberID, err := random.Pick([]string{hostMember.ID, opponent.ID})
	if err != nil {
		return nil, fmt.Errorf("pick first turn: %w", err)
	}

	now := time.Now()
	match := &models.Match{
		ID:                random.NewID(),
		RoomID:            roomID,
		Status:            models.MatchStatusInProgress,
		BoardSize:         boardSize,
		SelectedImageIDs:  selected,
		StartedByMemberID: hostMember.ID,
		TurnMemberID:      &turnMemberID,
		SeedHash:          random.SHA256([]byte(seed)),
		ActiveRoomKey:     &roomID,
		StartedAt:         now,
	}
	if err := s.db.WithContext(ctx).Create(match).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperr.MatchAlreadyActive()
		}
		return nil, fmt.Errorf("create match: %w", err)
	}

	participants := make([]models.MatchParticipant, 0, 2)
	for _, memberID := range []string{hostMember.ID, opponent.ID} {
		boardOrder, err := random.Shuffle(selected)
		if err != nil {
			return nil, fmt.Errorf("shuffle board: %w", err)
		}
		target, err := random.Pick(selected)
		if err != nil {
			return nil, fmt.Errorf("pick target: %w", err)
		}
		participants = append(participants, models.MatchParticipant{
			ID:                  random.NewID(),
			MatchID:             match.ID,
			RoomMemberID:        memberID,
			BoardImageOrder:     boardOrder,
			SecretTargetImageID: target,
			EliminatedImageIDs:  models.StringList{},
			Result:              models.ResultInProgress,
			ReadyAt:             now,
			LastActionAt:        now,
		})
	}
	if err := s.db.WithContext(ctx).Create(&participants).Error; err != nil {
		return nil, fmt.Errorf("create participants: %w", err)
	}

	if err := s.appendAction(ctx, match.ID, nil, models.ActionSystem, map[string]any{
		"event":     "match.started",
		"boardSize": boardSize,
	}); err != nil {
		return nil, err
	}

	s.rooms.TouchRoomActivity(ctx, roomID)
	s.publishMatch(match.ID, "match.started", map[string]any{
		"matchId":              match.ID,
		"roomId":               roomID,
		"boardSize":            boardSize,
		"turnMemberId":         turnMemberID,
		"participantMemberIds": []string{hostMember.ID, opponent.ID},
	})
	s.publishRoom(roomID, "match.started", map[string]any{
		"matchId": match.ID,
		"roomId":  roomID,
	})

	return s.buildMatchView(ctx, match, principal)
}

// GetMatchDetail returns the caller-scoped view of a match.
func (s *Service) GetMatchDetail(ctx context.Context, roomID, matchID string, principal models.Principal) (*MatchView, error) {
	if _, err := s.rooms.EnsureActiveMember(ctx, roomID, principal); err != nil {
		return nil, err
	}
	match, err := s.requireMatch(ctx, roomID, matchID)
	if err != nil {
		return nil, err
	}
	return s.buildMatchView(ctx, match, principal)
}

// ActionInput is one submitted match action.
type ActionInput struct {
	ActionType models.ActionType
	Payload    map[string]any
}

// SubmitAction applies one turn action. The turn-ownership check and
// the mutation it guards always run against freshly-loaded match and
// participant state.
func (s *Service) SubmitAction(ctx context.Context, roomID, matchID string, principal models.Principal, input ActionInput) (*MatchView, error) {
	actorMember, err := s.rooms.EnsureActiveMember(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}
	match, err := s.requireMatch(ctx, roomID, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusInProgress {
		return nil, apperr.MatchNotActive()
	}

	participants, err := s.participantsForMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	actor, opponent := splitParticipants(participants, actorMember.ID)
	if actor == nil {
		return nil, apperr.MatchParticipantRequired()
	}
	if opponent == nil {
		return nil, apperr.MatchParticipantsInvalid()
	}

	// The answer action belongs to the non-turn player responding to
	// the turn holder's question; everything else is turn-holder only.
	turnMemberID := ""
	if match.TurnMemberID != nil {
		turnMemberID = *match.TurnMemberID
	}
	if input.ActionType == models.ActionAnswer {
		if turnMemberID == actor.RoomMemberID {
			return nil, apperr.TurnAnswerInvalid()
		}
	} else if turnMemberID != actor.RoomMemberID {
		return nil, apperr.TurnRequired()
	}

	payload := input.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	now := time.Now()
	switch input.ActionType {
	case models.ActionEliminate:
		imageID := readImageID(payload)
		if imageID == "" || !actor.BoardImageOrder.Contains(imageID) {
			return nil, apperr.EliminateImageInvalid()
		}
		if !actor.EliminatedImageIDs.Contains(imageID) {
			actor.EliminatedImageIDs = append(actor.EliminatedImageIDs, imageID)
		}
	case models.ActionGuess:
		imageID := readImageID(payload)
		if imageID == "" {
			return nil, apperr.GuessImageRequired()
		}
		if imageID == opponent.SecretTargetImageID {
			actor.Result = models.ResultGuessedCorrect
			opponent.Result = models.ResultTimeout
			s.completeMatch(match, actor.RoomMemberID, now)
		} else {
			// A wrong guess is an immediate loss.
			actor.Result = models.ResultGuessedWrong
			opponent.Result = models.ResultGuessedCorrect
			s.completeMatch(match, opponent.RoomMemberID, now)
		}
	case models.ActionAsk, models.ActionAnswer:
		// Conversational; logged only.
	default:
		return nil, apperr.ActionTypeInvalid()
	}

	actor.LastActionAt = now
	if err := s.saveParticipant(ctx, actor); err != nil {
		return nil, err
	}
	if err := s.saveParticipant(ctx, opponent); err != nil {
		return nil, err
	}

	if err := s.appendAction(ctx, match.ID, &actor.RoomMemberID, input.ActionType, payload); err != nil {
		return nil, err
	}

	// An answer returns the turn to the asker, who acts on the new
	// information; an eliminate ends the actor's own turn. Ask keeps it.
	if match.Status == models.MatchStatusInProgress &&
		(input.ActionType == models.ActionAnswer || input.ActionType == models.ActionEliminate) {
		match.TurnMemberID = &opponent.RoomMemberID
	}
	if err := s.saveMatch(ctx, match); err != nil {
		return nil, err
	}
	s.rooms.TouchRoomActivity(ctx, roomID)

	s.publishMatch(match.ID, "action.applied", map[string]any{
		"matchId":        match.ID,
		"actionType":     input.ActionType,
		"actorMemberId":  actor.RoomMemberID,
		"turnMemberId":   match.TurnMemberID,
		"status":         match.Status,
		"winnerMemberId": match.WinnerMemberID,
	})
	s.publishRoom(roomID, "history.updated", map[string]any{
		"roomId":  roomID,
		"matchId": match.ID,
	})
	if match.Status == models.MatchStatusCompleted {
		s.publishMatch(match.ID, "match.completed", map[string]any{
			"matchId":        match.ID,
			"winnerMemberId": match.WinnerMemberID,
		})
	} else {
		s.publishMatch(match.ID, "turn.changed", map[string]any{
			"matchId":      match.ID,
			"turnMemberId": match.TurnMemberID,
		})
	}

	return s.buildMatchView(ctx, match, principal)
}

// ForfeitMatch ends the match with the caller as the loser. Calling it
// on an already-terminal match is an idempotent no-op returning the
// current view.
func (s *Service) ForfeitMatch(ctx context.Context, roomID, matchID string, principal models.Principal) (*MatchView, error) {
	actorMember, err := s.rooms.EnsureActiveMember(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}
	match, err := s.requireMatch(ctx, roomID, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusInProgress {
		return s.buildMatchView(ctx, match, principal)
	}

	participants, err := s.participantsForMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	actor, opponent := splitParticipants(participants, actorMember.ID)
	if actor == nil || opponent == nil {
		return nil, apperr.MatchParticipantsInvalid()
	}

	now := time.Now()
	actor.Result = models.ResultTimeout
	opponent.Result = models.ResultGuessedCorrect
	actor.LastActionAt = now
	opponent.LastActionAt = now
	if err := s.saveParticipant(ctx, actor); err != nil {
		return nil, err
	}
	if err := s.saveParticipant(ctx, opponent); err != nil {
		return nil, err
	}

	s.completeMatch(match, opponent.RoomMemberID, now)
	if err := s.saveMatch(ctx, match); err != nil {
		return nil, err
	}
	if err := s.appendAction(ctx, match.ID, &actor.RoomMemberID, models.ActionSystem, map[string]any{
		"event": "forfeit",
	}); err != nil {
		return nil, err
	}

	s.publishMatch(match.ID, "match.completed", map[string]any{
		"matchId":        match.ID,
		"winnerMemberId": match.WinnerMemberID,
		"reason":         "forfeit",
	})
	s.publishRoom(roomID, "history.updated", map[string]any{
		"roomId":  roomID,
		"matchId": match.ID,
	})

	return s.buildMatchView(ctx, match, principal)
}

// Rematch starts a new match between the same two participants. Board
// size falls back from the explicit override to the room default, the
// configured rematch sizes, then the prior match's size.
func (s *Service) Rematch(ctx context.Context, roomID, matchID string, principal models.Principal, boardSize *int) (*MatchView, error) {
	match, err := s.requireMatch(ctx, roomID, matchID)
	if err != nil {
		return nil, err
	}
	participants, err := s.participantsForMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if len(participants) != 2 {
		return nil, apperr.MatchParticipantsInvalid()
	}
	actorMember, err := s.rooms.EnsureActiveMember(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}

	var opponentMemberID string
	for _, participant := range participants {
		if participant.RoomMemberID != actorMember.ID {
			opponentMemberID = participant.RoomMemberID
			break
		}
	}
	if opponentMemberID == "" {
		return nil, apperr.MatchOpponentInvalid()
	}

	room, err := s.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	size := match.BoardSize
	switch {
	case boardSize != nil:
		size = *boardSize
	case room.Settings.DefaultBoardSize != nil:
		size = *room.Settings.DefaultBoardSize
	case len(room.Settings.RematchBoardSizes) > 0:
		size = room.Settings.RematchBoardSizes[0]
	}

	return s.StartMatch(ctx, roomID, principal, size, opponentMemberID)
}

// ListRoomHistory pages through the room's finished matches, newest
// first. The cursor is the StartedAt of the last item of the previous
// page, as RFC3339Nano.
func (s *Service) ListRoomHistory(ctx context.Context, roomID string, principal models.Principal, cursor string, limit int) (*HistoryPage, error) {
	if _, err := s.rooms.EnsureActiveMember(ctx, roomID, principal); err != nil {
		return nil, err
	}

	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := s.db.WithContext(ctx).
		Where("room_id = ? AND status IN ?", roomID,
			[]models.MatchStatus{models.MatchStatusCompleted, models.MatchStatusCancelled})
	if cursor != "" {
		cursorTime, err := time.Parse(time.RFC3339Nano, cursor)
		if err == nil {
			query = query.Where("started_at < ?", cursorTime)
		}
	}

	var matches []models.Match
	if err := query.Order("started_at DESC").Limit(limit).Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	items := make([]MatchSummary, 0, len(matches))
	for _, match := range matches {
		items = append(items, newMatchSummary(match))
	}
	page := &HistoryPage{Items: items}
	if len(matches) > 0 {
		page.NextCursor = matches[len(matches)-1].StartedAt.Format(time.RFC3339Nano)
	}
	return page, nil
}

// GetReplay returns the full ordered action log of a match.
func (s *Service) GetReplay(ctx context.Context, roomID, matchID string, principal models.Principal) (*Replay, error) {
	if _, err := s.rooms.EnsureActiveMember(ctx, roomID, principal); err != nil {
		return nil, err
	}
	match, err := s.requireMatch(ctx, roomID, matchID)
	if err != nil {
		return nil, err
	}
	actions, err := s.actionsForMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}

	return &Replay{MatchID: match.ID, Frames: replayFrames(actions)}, nil
}

// --- internals ---

func (s *Service) requireMatch(ctx context.Context, roomID, matchID string) (*models.Match, error) {
	var match models.Match
	err := s.db.WithContext(ctx).First(&match, "id = ?", matchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.MatchNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}
	if match.RoomID != roomID {
		return nil, apperr.MatchNotFound()
	}
	return &match, nil
}

func (s *Service) participantsForMatch(ctx context.Context, matchID string) ([]models.MatchParticipant, error) {
	var participants []models.MatchParticipant
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("ready_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	return participants, nil
}

func (s *Service) actionsForMatch(ctx context.Context, matchID string) ([]models.MatchAction, error) {
	var actions []models.MatchAction
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC").
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("load actions: %w", err)
	}
	return actions, nil
}

func (s *Service) appendAction(ctx context.Context, matchID string, actorMemberID *string, actionType models.ActionType, payload map[string]any) error {
	action := &models.MatchAction{
		ID:            random.NewID(),
		MatchID:       matchID,
		ActorMemberID: actorMemberID,
		ActionType:    actionType,
		Payload:       payload,
		CreatedAt:     time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(action).Error; err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return nil
}

func (s *Service) saveParticipant(ctx context.Context, participant *models.MatchParticipant) error {
	err := s.db.WithContext(ctx).Model(&models.MatchParticipant{}).
		Where("id = ?", participant.ID).
		Updates(map[string]any{
			"eliminated_image_ids": participant.EliminatedImageIDs,
			"result":               participant.Result,
			"last_action_at":       participant.LastActionAt,
		}).Error
	if err != nil {
		return fmt.Errorf("save participant: %w", err)
	}
	return nil
}

func (s *Service) saveMatch(ctx context.Context, match *models.Match) error {
	err := s.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ?", match.ID).
		Updates(map[string]any{
			"status":           match.Status,
			"turn_member_id":   match.TurnMemberID,
			"winner_member_id": match.WinnerMemberID,
			"active_room_key":  match.ActiveRoomKey,
			"ended_at":         match.EndedAt,
			"updated_at":       time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("save match: %w", err)
	}
	return nil
}

// completeMatch moves the match to its terminal state and frees the
// room's active-match slot.
func (s *Service) completeMatch(match *models.Match, winnerMemberID string, now time.Time) {
	match.Status = models.MatchStatusCompleted
	match.WinnerMemberID = &winnerMemberID
	match.TurnMemberID = nil
	match.ActiveRoomKey = nil
	match.EndedAt = &now
}

func (s *Service) publishRoom(roomID, event string, payload map[string]any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.PublishRoomUpdate(roomID, event, payload)
}

func (s *Service) publishMatch(matchID, event string, payload map[string]any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.PublishMatchState(matchID, event, payload)
}

func splitParticipants(participants []models.MatchParticipant, actorMemberID string) (actor, opponent *models.MatchParticipant) {
	for i := range participants {
		if participants[i].RoomMemberID == actorMemberID {
			actor = &participants[i]
		} else if opponent == nil {
			opponent = &participants[i]
		}
	}
	return actor, opponent
}

func readImageID(payload map[string]any) string {
	imageID, _ := payload["imageId"].(string)
	return strings.TrimSpace(imageID)
}
