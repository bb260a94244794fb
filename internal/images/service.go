// Package images maintains each room's image pool metadata and exposes
// the active-pool gate the match engine draws boards from. Image bytes
// live in external blob storage; this service only tracks records.
package images

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mitch8020/guess-who-backend/internal/apperr"
	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/internal/random"
	"github.com/mitch8020/guess-who-backend/internal/rooms"
)

// MinImagesToStart is the global floor of active images required
// before any match can start.
const MinImagesToStart = models.MatchMinImages

// MaxUploadMB bounds registered image sizes.
const MaxUploadMB = 10

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Broadcaster is the room-update fan-out this service emits on.
type Broadcaster interface {
	PublishRoomUpdate(roomID, event string, payload map[string]any)
}

// Service manages room image pools.
type Service struct {
	db          *gorm.DB
	rooms       *rooms.Service
	broadcaster Broadcaster
	signingKey  []byte
}

// NewService creates an image service. broadcaster may be nil.
func NewService(db *gorm.DB, roomService *rooms.Service, broadcaster Broadcaster, signingKey string) *Service {
	return &Service{db: db, rooms: roomService, broadcaster: broadcaster, signingKey: []byte(signingKey)}
}

// RegisterInput describes an uploaded image whose bytes already landed
// in blob storage.
type RegisterInput struct {
	StorageKey    string
	Filename      string
	MimeType      string
	FileSizeBytes int64
	SHA256        string
}

// Register records a new active image for the room, rejecting
// oversized files, unsupported formats and per-room duplicates.
func (s *Service) Register(ctx context.Context, roomID string, principal models.Principal, input RegisterInput) (*models.RoomImage, error) {
	if input.FileSizeBytes > MaxUploadMB*1024*1024 {
		return nil, apperr.ImageTooLarge(MaxUploadMB)
	}
	if !allowedMimeTypes[input.MimeType] {
		return nil, apperr.ImageMimeInvalid()
	}

	if _, err := s.rooms.GetRoomByID(ctx, roomID); err != nil {
		return nil, err
	}
	member, err := s.rooms.EnsureActiveMember(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}

	var duplicate models.RoomImage
	err = s.db.WithContext(ctx).
		Where("room_id = ? AND sha256 = ? AND is_active = ?", roomID, input.SHA256, true).
		First(&duplicate).Error
	if err == nil {
		return nil, apperr.ImageDuplicate(duplicate.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check duplicate image: %w", err)
	}

	image := &models.RoomImage{
		ID:               random.NewID(),
		RoomID:           roomID,
		UploaderMemberID: member.ID,
		StorageKey:       input.StorageKey,
		Filename:         input.Filename,
		MimeType:         input.MimeType,
		FileSizeBytes:    input.FileSizeBytes,
		SHA256:           input.SHA256,
		IsActive:         true,
		CreatedAt:        time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, fmt.Errorf("create image record: %w", err)
	}

	s.rooms.TouchRoomActivity(ctx, roomID)
	s.publish(roomID, "image.added", map[string]any{
		"roomId":           roomID,
		"imageId":          image.ID,
		"uploaderMemberId": member.ID,
	})
	return image, nil
}

// Listing is the member-facing pool view.
type Listing struct {
	Images             []models.RoomImage `json:"images"`
	ActiveCount        int                `json:"activeCount"`
	MinRequiredToStart int                `json:"minRequiredToStart"`
}

// List returns the active images of a room for an active member.
func (s *Service) List(ctx context.Context, roomID string, principal models.Principal) (*Listing, error) {
	if _, err := s.rooms.EnsureActiveMember(ctx, roomID, principal); err != nil {
		return nil, err
	}
	images, err := s.activeImages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &Listing{
		Images:             images,
		ActiveCount:        len(images),
		MinRequiredToStart: MinImagesToStart,
	}, nil
}

// ActivePool implements the match engine's image gate: the count and
// ids of currently active images.
func (s *Service) ActivePool(ctx context.Context, roomID string) (int, []string, error) {
	images, err := s.activeImages(ctx, roomID)
	if err != nil {
		return 0, nil, err
	}
	ids := make([]string, 0, len(images))
	for _, image := range images {
		ids = append(ids, image.ID)
	}
	return len(ids), ids, nil
}

// Delete deactivates one image. Allowed for the room host or the
// original uploader.
func (s *Service) Delete(ctx context.Context, roomID, imageID string, principal models.Principal) error {
	if _, err := s.rooms.GetRoomByID(ctx, roomID); err != nil {
		return err
	}
	member, err := s.rooms.EnsureActiveMember(ctx, roomID, principal)
	if err != nil {
		return err
	}

	var image models.RoomImage
	err = s.db.WithContext(ctx).First(&image, "id = ?", imageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ImageNotFound()
	}
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	if image.RoomID != roomID || !image.IsActive {
		return apperr.ImageNotFound()
	}
	if member.Role != models.MemberRoleHost && member.ID != image.UploaderMemberID {
		return apperr.ImageDeleteForbidden()
	}

	err = s.db.WithContext(ctx).Model(&models.RoomImage{}).
		Where("id = ?", imageID).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("deactivate image: %w", err)
	}

	s.rooms.TouchRoomActivity(ctx, roomID)
	s.publish(roomID, "image.removed", map[string]any{
		"roomId":        roomID,
		"imageId":       imageID,
		"actorMemberId": member.ID,
	})
	return nil
}

// BulkRemove deactivates several images at once. Host only; unknown or
// already-inactive ids are skipped.
func (s *Service) BulkRemove(ctx context.Context, roomID string, principal models.Principal, imageIDs []string) ([]string, error) {
	member, err := s.rooms.EnsureHostMember(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}

	var images []models.RoomImage
	err = s.db.WithContext(ctx).
		Where("id IN ? AND room_id = ? AND is_active = ?", imageIDs, roomID, true).
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	if len(images) == 0 {
		return []string{}, nil
	}

	resolved := make([]string, 0, len(images))
	for _, image := range images {
		resolved = append(resolved, image.ID)
	}
	err = s.db.WithContext(ctx).Model(&models.RoomImage{}).
		Where("id IN ?", resolved).
		Update("is_active", false).Error
	if err != nil {
		return nil, fmt.Errorf("deactivate images: %w", err)
	}

	s.publish(roomID, "images.bulk_removed", map[string]any{
		"roomId":        roomID,
		"actorMemberId": member.ID,
		"imageIds":      resolved,
	})
	return resolved, nil
}

// SignStorageKey produces the keyed digest the download edge checks
// before serving an image's bytes.
func (s *Service) SignStorageKey(storageKey string) string {
	return random.SignDigest(s.signingKey, []byte(storageKey))
}

// Location is a signed pointer to an image's bytes in blob storage.
type Location struct {
	StorageKey string `json:"storageKey"`
	Signature  string `json:"signature"`
}

// SignedLocation returns the storage key and signature for one active
// image, for an active member of the room.
func (s *Service) SignedLocation(ctx context.Context, roomID, imageID string, principal models.Principal) (*Location, error) {
	if _, err := s.rooms.EnsureActiveMember(ctx, roomID, principal); err != nil {
		return nil, err
	}

	var image models.RoomImage
	err := s.db.WithContext(ctx).First(&image, "id = ?", imageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ImageNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	if image.RoomID != roomID || !image.IsActive {
		return nil, apperr.ImageNotFound()
	}
	return &Location{StorageKey: image.StorageKey, Signature: s.SignStorageKey(image.StorageKey)}, nil
}

func (s *Service) activeImages(ctx context.Context, roomID string) ([]models.RoomImage, error) {
	var images []models.RoomImage
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Order("created_at ASC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("list active images: %w", err)
	}
	return images, nil
}

func (s *Service) publish(roomID, event string, payload map[string]any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.PublishRoomUpdate(roomID, event, payload)
}
