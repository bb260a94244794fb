package images

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
	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/internal/random"
	"github.com/mitch8020/guess-who-backend/internal/rooms"
)

type fixture struct {
	svc   *Service
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
	svc := NewService(db, roomService, nil, "image-test-key")

	hostUserID := random.NewID()
	room, _, err := roomService.CreateRoom(context.Background(), hostUserID, "Pool Room",
		models.RoomTypePermanent, nil)
	require.NoError(t, err)

	return &fixture{svc: svc, rooms: roomService, room: room, hostP: models.UserPrincipal(hostUserID)}
}

func registerInput(i int) RegisterInput {
	return RegisterInput{
		StorageKey:    fmt.Sprintf("rooms/x/img-%d.png", i),
		Filename:      fmt.Sprintf("img-%d.png", i),
		MimeType:      "image/png",
		FileSizeBytes: 2048,
		SHA256:        random.SHA256([]byte(fmt.Sprintf("img-%d", i))),
	}
}

func TestRegisterAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Register(ctx, f.room.ID, f.hostP, registerInput(i))
		require.NoError(t, err)
	}

	listing, err := f.svc.List(ctx, f.room.ID, f.hostP)
	require.NoError(t, err)
	assert.Equal(t, 3, listing.ActiveCount)
	assert.Equal(t, MinImagesToStart, listing.MinRequiredToStart)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oversized := registerInput(0)
	oversized.FileSizeBytes = MaxUploadMB*1024*1024 + 1
	_, err := f.svc.Register(ctx, f.room.ID, f.hostP, oversized)
	assert.ErrorIs(t, err, apperr.ImageTooLarge(0))

	wrongType := registerInput(1)
	wrongType.MimeType = "image/gif"
	_, err = f.svc.Register(ctx, f.room.ID, f.hostP, wrongType)
	assert.ErrorIs(t, err, apperr.ImageMimeInvalid())
}

func TestRegisterRejectsDuplicateHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Register(ctx, f.room.ID, f.hostP, registerInput(0))
	require.NoError(t, err)

	duplicate := registerInput(0)
	duplicate.Filename = "renamed.png"
	_, err = f.svc.Register(ctx, f.room.ID, f.hostP, duplicate)
	assert.ErrorIs(t, err, apperr.ImageDuplicate(""))

	// Deleting the original frees the hash for re-upload.
	require.NoError(t, f.svc.Delete(ctx, f.room.ID, first.ID, f.hostP))
	_, err = f.svc.Register(ctx, f.room.ID, f.hostP, duplicate)
	assert.NoError(t, err)
}

func TestDeletePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	uploader, err := f.rooms.CreateOrReactivateUserMember(ctx, f.room.ID, "uploader", "Up")
	require.NoError(t, err)
	_, err = f.rooms.CreateOrReactivateUserMember(ctx, f.room.ID, "bystander", "By")
	require.NoError(t, err)

	uploaderP := models.UserPrincipal("uploader")
	image, err := f.svc.Register(ctx, f.room.ID, uploaderP, registerInput(0))
	require.NoError(t, err)
	assert.Equal(t, uploader.ID, image.UploaderMemberID)

	err = f.svc.Delete(ctx, f.room.ID, image.ID, models.UserPrincipal("bystander"))
	assert.ErrorIs(t, err, apperr.ImageDeleteForbidden())

	require.NoError(t, f.svc.Delete(ctx, f.room.ID, image.ID, uploaderP))

	err = f.svc.Delete(ctx, f.room.ID, image.ID, uploaderP)
	assert.ErrorIs(t, err, apperr.ImageNotFound(), "already-inactive image reads as gone")
}

func TestActivePoolExcludesDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var firstID string
	for i := 0; i < 4; i++ {
		image, err := f.svc.Register(ctx, f.room.ID, f.hostP, registerInput(i))
		require.NoError(t, err)
		if i == 0 {
			firstID = image.ID
		}
	}

	require.NoError(t, f.svc.Delete(ctx, f.room.ID, firstID, f.hostP))

	count, ids, err := f.svc.ActivePool(ctx, f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NotContains(t, ids, firstID)
}

func TestBulkRemoveHostOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		image, err := f.svc.Register(ctx, f.room.ID, f.hostP, registerInput(i))
		require.NoError(t, err)
		ids = append(ids, image.ID)
	}

	_, err := f.rooms.CreateOrReactivateUserMember(ctx, f.room.ID, "player", "Pl")
	require.NoError(t, err)
	_, err = f.svc.BulkRemove(ctx, f.room.ID, models.UserPrincipal("player"), ids)
	assert.ErrorIs(t, err, apperr.HostOnly())

	removed, err := f.svc.BulkRemove(ctx, f.room.ID, f.hostP, append(ids[:2], "unknown-id"))
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[:2], removed)

	count, _, err := f.svc.ActivePool(ctx, f.room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSignedLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	image, err := f.svc.Register(ctx, f.room.ID, f.hostP, registerInput(0))
	require.NoError(t, err)

	location, err := f.svc.SignedLocation(ctx, f.room.ID, image.ID, f.hostP)
	require.NoError(t, err)
	assert.Equal(t, image.StorageKey, location.StorageKey)
	assert.Equal(t, f.svc.SignStorageKey(image.StorageKey), location.Signature)
	assert.Len(t, location.Signature, 64)

	require.NoError(t, f.svc.Delete(ctx, f.room.ID, image.ID, f.hostP))
	_, err = f.svc.SignedLocation(ctx, f.room.ID, image.ID, f.hostP)
	assert.ErrorIs(t, err, apperr.ImageNotFound())
}

func TestMemberGateOnListing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.List(context.Background(), f.room.ID, models.UserPrincipal("stranger"))
	assert.ErrorIs(t, err, apperr.RoomAccessDenied())
}
