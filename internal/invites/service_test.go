package invites

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mitch8020/guess-who-backend/internal/apperr"
	"github.com/mitch8020/guess-who-backend/internal/database"
	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/internal/random"
	"github.com/mitch8020/guess-who-backend/internal/rooms"
	"github.com/mitch8020/guess-who-backend/pkg/token"
)

type fixture struct {
	svc   *Service
	db    *gorm.DB
	rooms *rooms.Service
	room  *models.Room
	hostP models.Principal
}

func newFixture(t *testing.T) *fixture {
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

	roomService := rooms.NewService(db, 24*time.Hour)
	tokens := token.NewManager("invite-test-secret")
	svc := NewService(db, roomService, tokens, nil)

	hostUserID := random.NewID()
	room, _, err := roomService.CreateRoom(context.Background(), hostUserID, "Invite Room",
		models.RoomTypePermanent, nil)
	require.NoError(t, err)

	return &fixture{
		svc:   svc,
		db:    db,
		rooms: roomService,
		room:  room,
		hostP: models.UserPrincipal(hostUserID),
	}
}

func (f *fixture) createInvite(t *testing.T, input CreateInput) *models.Invite {
	t.Helper()
	invite, err := f.svc.Create(context.Background(), f.room.ID, f.hostP, input)
	require.NoError(t, err)
	return invite
}

func TestCreateInvite(t *testing.T) {
	f := newFixture(t)
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true})

	assert.Len(t, invite.Code, random.InviteCodeLength)
	assert.Nil(t, invite.MaxUses)
	assert.Nil(t, invite.ExpiresAt)
	assert.Equal(t, 0, invite.UsesCount)
}

func TestCreateInviteRequiresHost(t *testing.T) {
	f := newFixture(t)
	_, err := f.rooms.CreateOrReactivateUserMember(context.Background(), f.room.ID, "user-2", "Sam")
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.room.ID, models.UserPrincipal("user-2"), CreateInput{})
	assert.ErrorIs(t, err, apperr.HostOnly())
}

func TestResolveInvite(t *testing.T) {
	f := newFixture(t)
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true})

	preview, err := f.svc.Resolve(context.Background(), invite.Code)
	require.NoError(t, err)
	assert.Equal(t, f.room.ID, preview.RoomID)
	assert.Equal(t, "Invite Room", preview.RoomName)
	assert.True(t, preview.AllowGuestJoin)
	assert.Equal(t, 1, preview.MemberCount)

	_, err = f.svc.Resolve(context.Background(), "NOPENOPE")
	assert.ErrorIs(t, err, apperr.InviteInvalid())
}

func TestJoinAsGuestIssuesScopedToken(t *testing.T) {
	f := newFixture(t)
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true})

	result, err := f.svc.JoinAsGuest(context.Background(), invite.Code, "Visitor")
	require.NoError(t, err)
	require.NotNil(t, result.Member)
	assert.NotEmpty(t, result.GuestToken)
	assert.Equal(t, models.MemberRolePlayer, result.Member.Role)

	tokens := token.NewManager("invite-test-secret")
	principal, err := tokens.VerifyGuestToken(result.GuestToken)
	require.NoError(t, err)
	assert.Equal(t, models.PrincipalGuest, principal.Kind)
	assert.Equal(t, result.Member.ID, principal.MemberID)
	assert.Equal(t, f.room.ID, principal.RoomID)
}

func TestJoinAsGuestRespectsGuestJoinFlag(t *testing.T) {
	f := newFixture(t)
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: false})

	_, err := f.svc.JoinAsGuest(context.Background(), invite.Code, "Visitor")
	assert.ErrorIs(t, err, apperr.GuestJoinDisabled())
}

func TestJoinDisplayNameDeduped(t *testing.T) {
	f := newFixture(t)
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true})
	ctx := context.Background()

	first, err := f.svc.JoinAsGuest(ctx, invite.Code, "Sam")
	require.NoError(t, err)
	assert.Equal(t, "Sam", first.Member.DisplayName)

	second, err := f.svc.JoinAsGuest(ctx, invite.Code, "Sam")
	require.NoError(t, err)
	assert.Equal(t, "Sam (2)", second.Member.DisplayName)

	third, err := f.svc.JoinAsGuest(ctx, invite.Code, "sam")
	require.NoError(t, err)
	assert.Equal(t, "sam (3)", third.Member.DisplayName, "dedupe is case-insensitive")
}

func TestInviteMaxUses(t *testing.T) {
	f := newFixture(t)
	maxUses := 1
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true, MaxUses: &maxUses})
	ctx := context.Background()

	_, err := f.svc.JoinAsGuest(ctx, invite.Code, "First")
	require.NoError(t, err)

	_, err = f.svc.JoinAsGuest(ctx, invite.Code, "Second")
	assert.ErrorIs(t, err, apperr.InviteMaxUsesReached())
}

func TestInviteExpiry(t *testing.T) {
	f := newFixture(t)
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true, ExpiresInHours: 1})

	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.db.Model(&models.Invite{}).Where("id = ?", invite.ID).
		Update("expires_at", past).Error)

	_, err := f.svc.JoinAsGuest(context.Background(), invite.Code, "Late")
	assert.ErrorIs(t, err, apperr.InviteExpired())
}

func TestRevokedInviteRejected(t *testing.T) {
	f := newFixture(t)
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true})
	ctx := context.Background()

	require.NoError(t, f.svc.Revoke(ctx, f.room.ID, invite.ID, f.hostP))
	// Revoking twice is a no-op.
	require.NoError(t, f.svc.Revoke(ctx, f.room.ID, invite.ID, f.hostP))

	_, err := f.svc.JoinAsGuest(ctx, invite.Code, "Visitor")
	assert.ErrorIs(t, err, apperr.InviteInvalid())
}

func TestJoinAsUserReusesMembership(t *testing.T) {
	f := newFixture(t)
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true})
	ctx := context.Background()

	result, err := f.svc.JoinAsUser(ctx, invite.Code, "user-2", "Sam")
	require.NoError(t, err)
	assert.Empty(t, result.GuestToken)

	again, err := f.svc.JoinAsUser(ctx, invite.Code, "user-2", "Sam")
	require.NoError(t, err)
	assert.Equal(t, result.Member.ID, again.Member.ID)
}

func TestJoinFullRoom(t *testing.T) {
	f := newFixture(t)
	two := 2
	_, err := f.rooms.UpdateRoom(context.Background(), f.room.ID, f.hostP.UserID, nil,
		&rooms.SettingsInput{MaxPlayers: &two})
	require.NoError(t, err)

	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true})
	ctx := context.Background()

	_, err = f.svc.JoinAsGuest(ctx, invite.Code, "First")
	require.NoError(t, err)

	_, err = f.svc.JoinAsGuest(ctx, invite.Code, "Second")
	assert.ErrorIs(t, err, apperr.RoomFull())
}

func TestInviteCodeNormalized(t *testing.T) {
	f := newFixture(t)
	invite := f.createInvite(t, CreateInput{AllowGuestJoin: true})

	preview, err := f.svc.Resolve(context.Background(), "  "+invite.Code+" ")
	require.NoError(t, err)
	assert.Equal(t, invite.Code, preview.Code)
}
