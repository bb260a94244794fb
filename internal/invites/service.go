// Package invites implements shareable join codes: creation, lookup,
// the join flow for registered users and guests, and revocation.
package invites

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
	"github.com/mitch8020/guess-who-backend/pkg/token"
)

const codeGenerationAttempts = 5

// Broadcaster is the room-update fan-out the join flow emits on.
type Broadcaster interface {
	PublishRoomUpdate(roomID, event string, payload map[string]any)
}

// Service manages room invites.
type Service struct {
	db          *gorm.DB
	rooms       *rooms.Service
	tokens      *token.Manager
	broadcaster Broadcaster
}

// NewService creates an invite service. broadcaster may be nil.
func NewService(db *gorm.DB, roomService *rooms.Service, tokens *token.Manager, broadcaster Broadcaster) *Service {
	return &Service{db: db, rooms: roomService, tokens: tokens, broadcaster: broadcaster}
}

// CreateInput configures a new invite. Zero values mean unlimited uses
// and no expiry.
type CreateInput struct {
	MaxUses        *int
	ExpiresInHours int
	AllowGuestJoin bool
}

// Create issues a new invite code for the room. Host only. Code
// generation retries on the rare collision with an existing code.
func (s *Service) Create(ctx context.Context, roomID string, principal models.Principal, input CreateInput) (*models.Invite, error) {
	member, err := s.rooms.EnsureHostMember(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}

	invite := &models.Invite{
		RoomID:            roomID,
		CreatedByMemberID: member.ID,
		AllowGuestJoin:    input.AllowGuestJoin,
		MaxUses:           input.MaxUses,
		CreatedAt:         time.Now(),
	}
	if input.ExpiresInHours > 0 {
		expires := time.Now().Add(time.Duration(input.ExpiresInHours) * time.Hour)
		invite.ExpiresAt = &expires
	}

	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		code, err := random.InviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		invite.ID = random.NewID()
		invite.Code = code
		err = s.db.WithContext(ctx).Create(invite).Error
		if err == nil {
			return invite, nil
		}
		if !database.IsDuplicateKey(err) {
			return nil, fmt.Errorf("create invite: %w", err)
		}
	}
	return nil, fmt.Errorf("create invite: code space exhausted after %d attempts", codeGenerationAttempts)
}

// Preview is the pre-join summary shown to whoever holds the code.
type Preview struct {
	Code           string `json:"code"`
	RoomID         string `json:"roomId"`
	RoomName       string `json:"roomName"`
	AllowGuestJoin bool   `json:"allowGuestJoin"`
	MemberCount    int    `json:"memberCount"`
	MaxPlayers     int    `json:"maxPlayers"`
}

// Resolve looks up a code and returns what joining it would mean,
// without consuming a use.
func (s *Service) Resolve(ctx context.Context, code string) (*Preview, error) {
	invite, room, err := s.validInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Code:           invite.Code,
		RoomID:         room.ID,
		RoomName:       room.Name,
		AllowGuestJoin: invite.AllowGuestJoin && room.Settings.AllowGuestJoin,
		MemberCount:    room.ActiveMemberCount,
		MaxPlayers:     room.Settings.MaxPlayers,
	}, nil
}

// JoinResult is the outcome of redeeming an invite. GuestToken is only
// set for guest joins.
type JoinResult struct {
	Room       *models.Room       `json:"room"`
	Member     *models.RoomMember `json:"member"`
	GuestToken string             `json:"guestToken,omitempty"`
}

// JoinAsUser redeems an invite for a registered user.
func (s *Service) JoinAsUser(ctx context.Context, code, userID, displayName string) (*JoinResult, error) {
	invite, room, err := s.validInvite(ctx, code)
	if err != nil {
		return nil, err
	}

	name, err := s.uniqueDisplayName(ctx, room.ID, displayName)
	if err != nil {
		return nil, err
	}
	member, err := s.rooms.CreateOrReactivateUserMember(ctx, room.ID, userID, name)
	if err != nil {
		return nil, err
	}

	s.consumeUse(ctx, invite.ID)
	s.publishJoined(room.ID, member)
	return &JoinResult{Room: room, Member: member}, nil
}

// JoinAsGuest redeems an invite for an anonymous guest and issues the
// room-scoped guest token the new member authenticates with.
func (s *Service) JoinAsGuest(ctx context.Context, code, displayName string) (*JoinResult, error) {
	invite, room, err := s.validInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	if !invite.AllowGuestJoin || !room.Settings.AllowGuestJoin {
		return nil, apperr.GuestJoinDisabled()
	}

	name, err := s.uniqueDisplayName(ctx, room.ID, displayName)
	if err != nil {
		return nil, err
	}
	member, err := s.rooms.CreateGuestMember(ctx, room.ID, random.NewID(), name)
	if err != nil {
		return nil, err
	}

	guestToken, err := s.tokens.GenerateGuestToken(*member)
	if err != nil {
		return nil, fmt.Errorf("issue guest token: %w", err)
	}

	s.consumeUse(ctx, invite.ID)
	s.publishJoined(room.ID, member)
	return &JoinResult{Room: room, Member: member, GuestToken: guestToken}, nil
}

// Revoke disables an invite. Host only; revoking twice is a no-op.
func (s *Service) Revoke(ctx context.Context, roomID, inviteID string, principal models.Principal) error {
	if _, err := s.rooms.EnsureHostMember(ctx, roomID, principal); err != nil {
		return err
	}

	var invite models.Invite
	err := s.db.WithContext(ctx).First(&invite, "id = ?", inviteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.InviteNotFound()
	}
	if err != nil {
		return fmt.Errorf("load invite: %w", err)
	}
	if invite.RoomID != roomID {
		return apperr.InviteNotFound()
	}
	if invite.RevokedAt != nil {
		return nil
	}

	err = s.db.WithContext(ctx).Model(&models.Invite{}).
		Where("id = ?", inviteID).
		Update("revoked_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("revoke invite: %w", err)
	}
	return nil
}

// ListForRoom returns a room's invites, newest first. Host only.
func (s *Service) ListForRoom(ctx context.Context, roomID string, principal models.Principal) ([]models.Invite, error) {
	if _, err := s.rooms.EnsureHostMember(ctx, roomID, principal); err != nil {
		return nil, err
	}
	var invites []models.Invite
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return invites, nil
}

// validInvite loads a code and checks revocation, expiry, use limits
// and that the target room still exists.
func (s *Service) validInvite(ctx context.Context, code string) (*models.Invite, *models.Room, error) {
	var invite models.Invite
	err := s.db.WithContext(ctx).First(&invite, "code = ?", strings.ToUpper(strings.TrimSpace(code))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.InviteInvalid()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load invite: %w", err)
	}

	if invite.RevokedAt != nil {
		return nil, nil, apperr.InviteInvalid()
	}
	if invite.ExpiresAt != nil && time.Now().After(*invite.ExpiresAt) {
		return nil, nil, apperr.InviteExpired()
	}
	if invite.MaxUses != nil && invite.UsesCount >= *invite.MaxUses {
		return nil, nil, apperr.InviteMaxUsesReached()
	}

	room, err := s.rooms.GetRoomByID(ctx, invite.RoomID)
	if err != nil {
		return nil, nil, err
	}
	return &invite, room, nil
}

// uniqueDisplayName suffixes the requested name until it does not clash
// with an active member of the room.
func (s *Service) uniqueDisplayName(ctx context.Context, roomID, requested string) (string, error) {
	name := strings.TrimSpace(requested)
	if name == "" {
		name = "Player"
	}

	members, err := s.rooms.ListMembers(ctx, roomID)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(members))
	for _, member := range members {
		taken[strings.ToLower(member.DisplayName)] = true
	}

	candidate := name
	for suffix := 2; taken[strings.ToLower(candidate)]; suffix++ {
		candidate = fmt.Sprintf("%s (%d)", name, suffix)
	}
	return candidate, nil
}

// consumeUse bumps the use counter. Best effort: the membership is
// already created, so a failed bump only under-counts.
func (s *Service) consumeUse(ctx context.Context, inviteID string) {
	s.db.WithContext(ctx).Model(&models.Invite{}).
		Where("id = ?", inviteID).
		UpdateColumn("uses_count", gorm.Expr("uses_count + 1"))
}

func (s *Service) publishJoined(roomID string, member *models.RoomMember) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.PublishRoomUpdate(roomID, "member.joined", map[string]any{
		"roomId":      roomID,
		"memberId":    member.ID,
		"displayName": member.DisplayName,
		"role":        member.Role,
	})
}
