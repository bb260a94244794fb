package matches

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mitch8020/guess-who-backend/internal/apperr"
	"github.com/mitch8020/guess-who-backend/internal/database"
	"github.com/mitch8020/guess-who-backend/internal/images"
	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/internal/random"
	"github.com/mitch8020/guess-who-backend/internal/rooms"
)

type fixture struct {
	svc      *Service
	db       *gorm.DB
	room     *models.Room
	host     *models.RoomMember
	opponent *models.RoomMember
	hostP    models.Principal
	oppP     models.Principal
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

// newFixture builds a room with two members and a pool of imageCount
// active images.
func newFixture(t *testing.T, imageCount int) *fixture {
	t.Helper()
	ctx := context.Background()
	db := openTestDB(t)
	roomService := rooms.NewService(db, 24*time.Hour)
	imageService := images.NewService(db, roomService, nil, "test-signing-key")
	svc := NewService(db, roomService, imageService, nil)

	hostUserID := random.NewID()
	room, host, err := roomService.CreateRoom(ctx, hostUserID, "Match Room", models.RoomTypePermanent, nil)
	require.NoError(t, err)

	oppUserID := random.NewID()
	opponent, err := roomService.CreateOrReactivateUserMember(ctx, room.ID, oppUserID, "Rival")
	require.NoError(t, err)

	hostP := models.UserPrincipal(hostUserID)
	for i := 0; i < imageCount; i++ {
		_, err := imageService.Register(ctx, room.ID, hostP, images.RegisterInput{
			StorageKey:    fmt.Sprintf("rooms/%s/img-%d.png", room.ID, i),
			Filename:      fmt.Sprintf("img-%d.png", i),
			MimeType:      "image/png",
			FileSizeBytes: 1024,
			SHA256:        random.SHA256([]byte(fmt.Sprintf("img-%d", i))),
		})
		require.NoError(t, err)
	}

	return &fixture{
		svc:      svc,
		db:       db,
		room:     room,
		host:     host,
		opponent: opponent,
		hostP:    hostP,
		oppP:     models.UserPrincipal(oppUserID),
	}
}

// principalFor maps a member id back to its principal.
func (f *fixture) principalFor(memberID string) models.Principal {
	if memberID == f.host.ID {
		return f.hostP
	}
	return f.oppP
}

func (f *fixture) otherMemberID(memberID string) string {
	if memberID == f.host.ID {
		return f.opponent.ID
	}
	return f.host.ID
}

func (f *fixture) start(t *testing.T, boardSize int) *MatchView {
	t.Helper()
	view, err := f.svc.StartMatch(context.Background(), f.room.ID, f.hostP, boardSize, f.opponent.ID)
	require.NoError(t, err)
	return view
}

// ownView returns a participant view with private fields, as seen by
// its owner.
func (f *fixture) ownView(t *testing.T, matchID, memberID string) ParticipantView {
	t.Helper()
	view, err := f.svc.GetMatchDetail(context.Background(), f.room.ID, matchID, f.principalFor(memberID))
	require.NoError(t, err)
	for _, participant := range view.Participants {
		if participant.RoomMemberID == memberID {
			return participant
		}
	}
	t.Fatalf("member %s not in match %s", memberID, matchID)
	return ParticipantView{}
}

func TestStartMatchSetsUpBoards(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)

	assert.Equal(t, models.MatchStatusInProgress, view.Status)
	assert.Len(t, view.Participants, 2)
	require.NotNil(t, view.TurnMemberID)
	assert.Contains(t, []string{f.host.ID, f.opponent.ID}, *view.TurnMemberID)
	assert.Len(t, view.SeedHash, 64)

	for _, memberID := range []string{f.host.ID, f.opponent.ID} {
		own := f.ownView(t, view.ID, memberID)
		assert.Len(t, own.BoardImageOrder, 16)
		assert.Contains(t, own.BoardImageOrder, own.SecretTargetImageID,
			"secret target must be on the participant's own board")
	}
}

func TestStartMatchValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("board size not allowed", func(t *testing.T) {
		f := newFixture(t, 40)
		_, err := f.svc.StartMatch(ctx, f.room.ID, f.hostP, 9, f.opponent.ID)
		assert.ErrorIs(t, err, apperr.BoardSizeNotAllowed(nil))
	})

	t.Run("below global image minimum", func(t *testing.T) {
		f := newFixture(t, models.MatchMinImages-1)
		_, err := f.svc.StartMatch(ctx, f.room.ID, f.hostP, 4, f.opponent.ID)
		assert.ErrorIs(t, err, apperr.InsufficientImagesMinimum(0, 0))
	})

	t.Run("below board size requirement", func(t *testing.T) {
		f := newFixture(t, 20) // enough for the floor, not for 5x5
		_, err := f.svc.StartMatch(ctx, f.room.ID, f.hostP, 5, f.opponent.ID)
		assert.ErrorIs(t, err, apperr.InsufficientImagesBoardSize(0, 0))
	})

	t.Run("host only", func(t *testing.T) {
		f := newFixture(t, 30)
		_, err := f.svc.StartMatch(ctx, f.room.ID, f.oppP, 4, f.host.ID)
		assert.ErrorIs(t, err, apperr.HostOnly())
	})

	t.Run("opponent must differ from host", func(t *testing.T) {
		f := newFixture(t, 30)
		_, err := f.svc.StartMatch(ctx, f.room.ID, f.hostP, 4, f.host.ID)
		assert.ErrorIs(t, err, apperr.MatchOpponentRequired())
	})

	t.Run("opponent must be active in room", func(t *testing.T) {
		f := newFixture(t, 30)
		_, err := f.svc.StartMatch(ctx, f.room.ID, f.hostP, 4, random.NewID())
		assert.ErrorIs(t, err, apperr.MatchOpponentInvalid())
	})
}

func TestSingleActiveMatchPerRoom(t *testing.T) {
	f := newFixture(t, 30)
	f.start(t, 4)

	_, err := f.svc.StartMatch(context.Background(), f.room.ID, f.hostP, 4, f.opponent.ID)
	assert.ErrorIs(t, err, apperr.MatchAlreadyActive())
}

func TestActiveMatchReportedBeforePoolChecks(t *testing.T) {
	f := newFixture(t, 30)
	f.start(t, 4)
	ctx := context.Background()

	// Shrink the pool below the start minimum while a match runs. The
	// running match must still be the reported reason a second start
	// fails, not the now-too-small pool.
	err := f.db.Model(&models.RoomImage{}).
		Where("room_id = ?", f.room.ID).
		Update("is_active", false).Error
	require.NoError(t, err)

	_, err = f.svc.StartMatch(ctx, f.room.ID, f.hostP, 4, f.opponent.ID)
	assert.ErrorIs(t, err, apperr.MatchAlreadyActive())
}

func TestOpponentPrivateStateHidden(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)

	hostView, err := f.svc.GetMatchDetail(context.Background(), f.room.ID, view.ID, f.hostP)
	require.NoError(t, err)
	for _, participant := range hostView.Participants {
		if participant.RoomMemberID == f.host.ID {
			assert.NotEmpty(t, participant.SecretTargetImageID)
			assert.NotEmpty(t, participant.BoardImageOrder)
		} else {
			assert.Empty(t, participant.SecretTargetImageID, "opponent target must not leak")
			assert.Empty(t, participant.BoardImageOrder, "opponent board must not leak")
		}
		assert.False(t, participant.ReadyAt.IsZero())
	}
}

func TestMatchViewSharedState(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	turnHolder := *view.TurnMemberID
	eliminated := f.ownView(t, view.ID, turnHolder).BoardImageOrder[0]
	_, err := f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionEliminate, Payload: map[string]any{"imageId": eliminated}})
	require.NoError(t, err)

	// The other player sees the shared image set, the action log, and
	// the eliminator's eliminated ids.
	otherView, err := f.svc.GetMatchDetail(ctx, f.room.ID, view.ID,
		f.principalFor(f.otherMemberID(turnHolder)))
	require.NoError(t, err)
	assert.Len(t, otherView.SelectedImageIDs, 16)

	require.NotEmpty(t, otherView.Actions)
	assert.Equal(t, models.ActionSystem, otherView.Actions[0].ActionType)
	assert.Equal(t, models.ActionEliminate, otherView.Actions[len(otherView.Actions)-1].ActionType)

	for _, participant := range otherView.Participants {
		if participant.RoomMemberID == turnHolder {
			assert.Contains(t, participant.EliminatedImageIDs, eliminated,
				"eliminations are visible to both players")
		}
	}
}

func TestTurnRules(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	turnHolder := *view.TurnMemberID
	waiting := f.otherMemberID(turnHolder)

	// Non-turn player cannot ask or eliminate.
	_, err := f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(waiting),
		ActionInput{ActionType: models.ActionAsk, Payload: map[string]any{"text": "Glasses?"}})
	assert.ErrorIs(t, err, apperr.TurnRequired())

	// The turn holder cannot answer their own question.
	_, err = f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionAnswer, Payload: map[string]any{"value": "yes"}})
	assert.ErrorIs(t, err, apperr.TurnAnswerInvalid())

	// Ask keeps the turn.
	after, err := f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionAsk, Payload: map[string]any{"text": "Glasses?"}})
	require.NoError(t, err)
	assert.Equal(t, turnHolder, *after.TurnMemberID)

	// The answer returns the turn to the asker, who acts on it.
	after, err = f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(waiting),
		ActionInput{ActionType: models.ActionAnswer, Payload: map[string]any{"value": "no"}})
	require.NoError(t, err)
	assert.Equal(t, turnHolder, *after.TurnMemberID)

	// The asker eliminates on the answer, which ends their turn.
	board := f.ownView(t, view.ID, turnHolder).BoardImageOrder
	after, err = f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionEliminate, Payload: map[string]any{"imageId": board[0]}})
	require.NoError(t, err)
	assert.Equal(t, waiting, *after.TurnMemberID)
}

func TestEliminateIsIdempotent(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	turnHolder := *view.TurnMemberID
	board := f.ownView(t, view.ID, turnHolder).BoardImageOrder
	target := board[0]

	after, err := f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionEliminate, Payload: map[string]any{"imageId": target}})
	require.NoError(t, err)
	assert.Equal(t, f.otherMemberID(turnHolder), *after.TurnMemberID, "eliminate passes the turn")

	// Hand the turn back so the same player can eliminate again.
	_, err = f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(f.otherMemberID(turnHolder)),
		ActionInput{ActionType: models.ActionEliminate, Payload: map[string]any{
			"imageId": f.ownView(t, view.ID, f.otherMemberID(turnHolder)).BoardImageOrder[0],
		}})
	require.NoError(t, err)

	_, err = f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionEliminate, Payload: map[string]any{"imageId": target}})
	require.NoError(t, err)

	own := f.ownView(t, view.ID, turnHolder)
	count := 0
	for _, id := range own.EliminatedImageIDs {
		if id == target {
			count++
		}
	}
	assert.Equal(t, 1, count, "re-eliminating must not duplicate the entry")
}

func TestEliminateRejectsOffBoardImage(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)

	turnHolder := *view.TurnMemberID
	_, err := f.svc.SubmitAction(context.Background(), f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionEliminate, Payload: map[string]any{"imageId": random.NewID()}})
	assert.ErrorIs(t, err, apperr.EliminateImageInvalid())
}

func TestUnknownActionTypeRejected(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)

	turnHolder := *view.TurnMemberID
	_, err := f.svc.SubmitAction(context.Background(), f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionType("dance"), Payload: map[string]any{}})
	assert.ErrorIs(t, err, apperr.ActionTypeInvalid())
}

func TestEliminateTrimsImageID(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	turnHolder := *view.TurnMemberID
	target := f.ownView(t, view.ID, turnHolder).BoardImageOrder[0]

	_, err := f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionEliminate, Payload: map[string]any{"imageId": "  " + target + " "}})
	require.NoError(t, err)

	own := f.ownView(t, view.ID, turnHolder)
	assert.Contains(t, own.EliminatedImageIDs, target)
	assert.NotContains(t, own.EliminatedImageIDs, "  "+target+" ")
}

func TestCorrectGuessWinsMatch(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	turnHolder := *view.TurnMemberID
	waiting := f.otherMemberID(turnHolder)
	opponentTarget := f.ownView(t, view.ID, waiting).SecretTargetImageID

	after, err := f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionGuess, Payload: map[string]any{"imageId": opponentTarget}})
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCompleted, after.Status)
	require.NotNil(t, after.WinnerMemberID)
	assert.Equal(t, turnHolder, *after.WinnerMemberID)
	assert.Nil(t, after.TurnMemberID)
	assert.NotNil(t, after.EndedAt)

	// The active-match slot must be free again.
	next, err := f.svc.StartMatch(ctx, f.room.ID, f.hostP, 4, f.opponent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusInProgress, next.Status)
}

func TestWrongGuessLosesImmediately(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	turnHolder := *view.TurnMemberID
	waiting := f.otherMemberID(turnHolder)
	opponentTarget := f.ownView(t, view.ID, waiting).SecretTargetImageID

	// Pick any selected image that is not the opponent's target.
	var wrongGuess string
	for _, id := range f.ownView(t, view.ID, turnHolder).BoardImageOrder {
		if id != opponentTarget {
			wrongGuess = id
			break
		}
	}
	require.NotEmpty(t, wrongGuess)

	after, err := f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionGuess, Payload: map[string]any{"imageId": wrongGuess}})
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCompleted, after.Status)
	require.NotNil(t, after.WinnerMemberID)
	assert.Equal(t, waiting, *after.WinnerMemberID, "a wrong guess hands the win to the opponent")

	loser := f.ownView(t, view.ID, turnHolder)
	assert.Equal(t, models.ResultGuessedWrong, loser.Result)
}

func TestCompletedMatchRejectsActions(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	turnHolder := *view.TurnMemberID
	waiting := f.otherMemberID(turnHolder)
	opponentTarget := f.ownView(t, view.ID, waiting).SecretTargetImageID
	_, err := f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionGuess, Payload: map[string]any{"imageId": opponentTarget}})
	require.NoError(t, err)

	_, err = f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(waiting),
		ActionInput{ActionType: models.ActionAsk, Payload: map[string]any{"text": "Hat?"}})
	assert.ErrorIs(t, err, apperr.MatchNotActive())
}

func TestForfeitIsIdempotent(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	first, err := f.svc.ForfeitMatch(ctx, f.room.ID, view.ID, f.oppP)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, first.Status)
	require.NotNil(t, first.WinnerMemberID)
	assert.Equal(t, f.host.ID, *first.WinnerMemberID)

	again, err := f.svc.ForfeitMatch(ctx, f.room.ID, view.ID, f.oppP)
	require.NoError(t, err)
	assert.Equal(t, first.WinnerMemberID, again.WinnerMemberID)

	// Even the winner forfeiting afterwards changes nothing.
	byWinner, err := f.svc.ForfeitMatch(ctx, f.room.ID, view.ID, f.hostP)
	require.NoError(t, err)
	assert.Equal(t, f.host.ID, *byWinner.WinnerMemberID)
}

func TestRematchDealsFreshSetup(t *testing.T) {
	f := newFixture(t, 40)
	view := f.start(t, 4)
	ctx := context.Background()

	_, err := f.svc.ForfeitMatch(ctx, f.room.ID, view.ID, f.oppP)
	require.NoError(t, err)

	rematch, err := f.svc.Rematch(ctx, f.room.ID, view.ID, f.hostP, nil)
	require.NoError(t, err)
	assert.NotEqual(t, view.ID, rematch.ID)
	assert.Equal(t, models.MatchStatusInProgress, rematch.Status)
	assert.Equal(t, 4, rematch.BoardSize)
	assert.NotEqual(t, view.SeedHash, rematch.SeedHash, "rematch must re-randomize")

	size := 5
	_, err = f.svc.ForfeitMatch(ctx, f.room.ID, rematch.ID, f.oppP)
	require.NoError(t, err)
	resized, err := f.svc.Rematch(ctx, f.room.ID, rematch.ID, f.hostP, &size)
	require.NoError(t, err)
	assert.Equal(t, 5, resized.BoardSize)
}

func TestReplayRecordsActionsInOrder(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	turnHolder := *view.TurnMemberID
	waiting := f.otherMemberID(turnHolder)

	_, err := f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(turnHolder),
		ActionInput{ActionType: models.ActionAsk, Payload: map[string]any{"text": "Beard?"}})
	require.NoError(t, err)
	_, err = f.svc.SubmitAction(ctx, f.room.ID, view.ID, f.principalFor(waiting),
		ActionInput{ActionType: models.ActionAnswer, Payload: map[string]any{"value": "yes"}})
	require.NoError(t, err)

	replay, err := f.svc.GetReplay(ctx, f.room.ID, view.ID, f.hostP)
	require.NoError(t, err)
	require.Len(t, replay.Frames, 3) // match.started, ask, answer

	assert.Equal(t, models.ActionSystem, replay.Frames[0].ActionType)
	assert.Equal(t, models.ActionAsk, replay.Frames[1].ActionType)
	assert.Equal(t, models.ActionAnswer, replay.Frames[2].ActionType)
	for i := 1; i < len(replay.Frames); i++ {
		assert.False(t, replay.Frames[i].CreatedAt.Before(replay.Frames[i-1].CreatedAt))
	}
}

func TestListRoomHistory(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	var finished []string
	for i := 0; i < 3; i++ {
		view := f.start(t, 4)
		_, err := f.svc.ForfeitMatch(ctx, f.room.ID, view.ID, f.oppP)
		require.NoError(t, err)
		finished = append(finished, view.ID)
		time.Sleep(5 * time.Millisecond) // distinct StartedAt for cursor ordering
	}

	page, err := f.svc.ListRoomHistory(ctx, f.room.ID, f.hostP, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, finished[2], page.Items[0].ID, "newest first")
	assert.Equal(t, finished[1], page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.ListRoomHistory(ctx, f.room.ID, f.hostP, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, finished[0], next.Items[0].ID)
}

func TestMatchScopedToRoom(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)

	other := newFixture(t, 30)
	_, err := other.svc.GetMatchDetail(context.Background(), other.room.ID, view.ID, other.hostP)
	assert.ErrorIs(t, err, apperr.MatchNotFound())
}

func TestNonParticipantCannotAct(t *testing.T) {
	f := newFixture(t, 30)
	view := f.start(t, 4)
	ctx := context.Background()

	bystanderID := random.NewID()
	roomService := rooms.NewService(f.db, 24*time.Hour)
	_, err := roomService.CreateOrReactivateUserMember(ctx, f.room.ID, bystanderID, "Watcher")
	require.NoError(t, err)

	_, err = f.svc.SubmitAction(ctx, f.room.ID, view.ID, models.UserPrincipal(bystanderID),
		ActionInput{ActionType: models.ActionAsk, Payload: map[string]any{"text": "Hat?"}})
	assert.ErrorIs(t, err, apperr.MatchParticipantRequired())
}
