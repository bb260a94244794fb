// Package rooms owns room and membership records: room lifecycle and
// settings, the seat capacity ledger, member activation, and the
// periodic sweep that archives stale temporary rooms.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/mitch8020/guess-who-backend/internal/apperr"
	"github.com/mitch8020/guess-who-backend/internal/database"
	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/internal/random"
)

// Room defaults; maxPlayers is clamped to [MinPlayers, HardMaxPlayers].
const (
	MinPlayers        = 2
	DefaultMaxPlayers = 8
	HardMaxPlayers    = 20
)

var defaultBoardSizes = []int{4, 5, 6}

// Service manages rooms and their memberships.
type Service struct {
	db           *gorm.DB
	temporaryTTL time.Duration
}

// NewService creates a room service. temporaryTTL controls how long a
// temporary room survives without activity.
func NewService(db *gorm.DB, temporaryTTL time.Duration) *Service {
	return &Service{db: db, temporaryTTL: temporaryTTL}
}

// SettingsInput is a partial settings update; nil fields keep their
// current (or default) values.
type SettingsInput struct {
	AllowedBoardSizes []int
	MaxPlayers        *int
	AllowGuestJoin    *bool
	DefaultBoardSize  *int
	RematchBoardSizes []int
}

// CreateRoom creates a room with the caller as host, occupying the
// first seat.
func (s *Service) CreateRoom(ctx context.Context, hostUserID, name string, roomType models.RoomType, settings *SettingsInput) (*models.Room, *models.RoomMember, error) {
	now := time.Now()
	room := &models.Room{
		ID:                random.NewID(),
		Name:              name,
		Type:              roomType,
		HostUserID:        hostUserID,
		Settings:          normalizeSettings(models.RoomSettings{}, settings),
		ActiveMemberCount: 1,
		LastActivityAt:    now,
	}
	if roomType == models.RoomTypeTemporary {
		expires := now.Add(s.temporaryTTL)
		room.TemporaryExpiresAt = &expires
	}

	hostMember := &models.RoomMember{
		ID:          random.NewID(),
		RoomID:      room.ID,
		UserID:      &hostUserID,
		DisplayName: "Host",
		Role:        models.MemberRoleHost,
		Status:      models.MemberStatusActive,
		JoinedAt:    now,
		LastSeenAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		return tx.Create(hostMember).Error
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create room: %w", err)
	}
	return room, hostMember, nil
}

// ListRoomsForUser returns the non-archived rooms the user is an
// active member of, most recently updated first.
func (s *Service) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	var memberships []models.RoomMember
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.MemberStatusActive).
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return []models.Room{}, nil
	}

	roomIDs := make([]string, 0, len(memberships))
	for _, member := range memberships {
		roomIDs = append(roomIDs, member.RoomID)
	}

	var rooms []models.Room
	err = s.db.WithContext(ctx).
		Where("id IN ? AND is_archived = ?", roomIDs, false).
		Order("updated_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// GetRoomByID loads a room; archived rooms are reported as not found.
func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	err := s.db.WithContext(ctx).First(&room, "id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.RoomNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	if room.IsArchived {
		return nil, apperr.RoomNotFound()
	}
	return &room, nil
}

// RoomDetail returns the room, the caller's membership and the active
// member list in one snapshot.
func (s *Service) RoomDetail(ctx context.Context, roomID string, principal models.Principal) (*models.Room, *models.RoomMember, []models.RoomMember, error) {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, nil, nil, err
	}
	member, err := s.EnsureActiveMember(ctx, roomID, principal)
	if err != nil {
		return nil, nil, nil, err
	}
	members, err := s.ListMembers(ctx, roomID)
	if err != nil {
		return nil, nil, nil, err
	}
	return room, member, members, nil
}

// UpdateRoom applies a host's name/settings changes. Max players can
// never drop below the current active member count.
func (s *Service) UpdateRoom(ctx context.Context, roomID, hostUserID string, name *string, settings *SettingsInput) (*models.Room, error) {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := ensureHostUser(room, hostUserID); err != nil {
		return nil, err
	}

	nextSettings := room.Settings
	if settings != nil {
		nextSettings = normalizeSettings(room.Settings, settings)
	}
	if nextSettings.MaxPlayers < room.ActiveMemberCount {
		return nil, apperr.RoomMaxPlayersTooLow(room.ActiveMemberCount)
	}

	room.Settings = nextSettings
	if name != nil {
		room.Name = *name
	}
	if err := s.db.WithContext(ctx).Save(room).Error; err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	return room, nil
}

// ArchiveRoom soft-deletes a room. Rejected while a match is active.
func (s *Service) ArchiveRoom(ctx context.Context, roomID, hostUserID string) error {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if err := ensureHostUser(room, hostUserID); err != nil {
		return err
	}

	var activeMatches int64
	err = s.db.WithContext(ctx).Model(&models.Match{}).
		Where("room_id = ? AND status IN ?", roomID,
			[]models.MatchStatus{models.MatchStatusWaiting, models.MatchStatusInProgress}).
		Count(&activeMatches).Error
	if err != nil {
		return fmt.Errorf("count active matches: %w", err)
	}
	if activeMatches > 0 {
		return apperr.RoomHasActiveMatch()
	}

	err = s.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", roomID).
		Updates(map[string]any{"is_archived": true, "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("archive room: %w", err)
	}
	return nil
}

// ListMembers returns the active members of a room in join order.
func (s *Service) ListMembers(ctx context.Context, roomID string) ([]models.RoomMember, error) {
	var members []models.RoomMember
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, models.MemberStatusActive).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// EnsureActiveMember resolves a principal to an active member of the
// room. This is the single authorization primitive the match engine
// relies on.
func (s *Service) EnsureActiveMember(ctx context.Context, roomID string, principal models.Principal) (*models.RoomMember, error) {
	var member models.RoomMember
	var err error
	switch principal.Kind {
	case models.PrincipalUser:
		err = s.db.WithContext(ctx).
			Where("room_id = ? AND user_id = ? AND status = ?", roomID, principal.UserID, models.MemberStatusActive).
			First(&member).Error
	case models.PrincipalGuest:
		if principal.RoomID != roomID {
			return nil, apperr.RoomAccessDenied()
		}
		err = s.db.WithContext(ctx).First(&member, "id = ?", principal.MemberID).Error
	default:
		return nil, apperr.RoomAccessDenied()
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.RoomAccessDenied()
	}
	if err != nil {
		return nil, fmt.Errorf("resolve member: %w", err)
	}
	if member.RoomID != roomID || member.Status != models.MemberStatusActive {
		return nil, apperr.RoomAccessDenied()
	}
	return &member, nil
}

// EnsureHostMember resolves a principal to the room's host member.
func (s *Service) EnsureHostMember(ctx context.Context, roomID string, principal models.Principal) (*models.RoomMember, error) {
	member, err := s.EnsureActiveMember(ctx, roomID, principal)
	if err != nil {
		return nil, err
	}
	if member.Role != models.MemberRoleHost {
		return nil, apperr.HostOnly()
	}
	return member, nil
}

// ReserveSeat atomically claims one seat. The capacity check and the
// increment are a single conditional UPDATE so concurrent joiners
// racing for the last seat cannot both win.
func (s *Service) ReserveSeat(ctx context.Context, roomID string) error {
	result := s.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ? AND is_archived = ? AND active_member_count < max_players", roomID, false).
		UpdateColumns(map[string]any{
			"active_member_count": gorm.Expr("active_member_count + 1"),
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("reserve seat: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return apperr.RoomFull()
	}
	return nil
}

// ReleaseSeat returns one seat, floored at zero. Best effort: a missing
// room is not an error.
func (s *Service) ReleaseSeat(ctx context.Context, roomID string) {
	s.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ? AND active_member_count > 0", roomID).
		UpdateColumns(map[string]any{
			"active_member_count": gorm.Expr("active_member_count - 1"),
			"updated_at":          time.Now(),
		})
}

// TouchRoomActivity refreshes the activity timestamp and, for temporary
// rooms, pushes the expiry back by the TTL. No-op on archived rooms.
func (s *Service) TouchRoomActivity(ctx context.Context, roomID string) {
	var room models.Room
	err := s.db.WithContext(ctx).First(&room, "id = ?", roomID).Error
	if err != nil || room.IsArchived {
		return
	}
	now := time.Now()
	updates := map[string]any{
		"last_activity_at": now,
		"updated_at":       now,
	}
	if room.Type == models.RoomTypeTemporary {
		updates["temporary_expires_at"] = now.Add(s.temporaryTTL)
	}
	s.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", roomID).Updates(updates)
}

// CreateOrReactivateUserMember joins a registered user to a room. A
// previous "left" membership is reactivated in place; a kicked record
// never self-reactivates. Each path that creates or reactivates pays
// for its seat first and releases it if persistence fails.
func (s *Service) CreateOrReactivateUserMember(ctx context.Context, roomID, userID, displayName string) (*models.RoomMember, error) {
	now := time.Now()
	var existing models.RoomMember
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load membership: %w", err)
	}

	if err == nil {
		switch existing.Status {
		case models.MemberStatusKicked:
			return nil, apperr.MemberKicked()
		case models.MemberStatusActive:
			updates := map[string]any{"last_seen_at": now, "display_name": displayName}
			if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("refresh membership: %w", err)
			}
			existing.LastSeenAt = now
			existing.DisplayName = displayName
			return &existing, nil
		default: // left; rejoin reuses the record
			if err := s.ReserveSeat(ctx, roomID); err != nil {
				return nil, err
			}
			updates := map[string]any{
				"status":       models.MemberStatusActive,
				"last_seen_at": now,
				"display_name": displayName,
			}
			if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
				s.ReleaseSeat(ctx, roomID)
				return nil, fmt.Errorf("reactivate membership: %w", err)
			}
			s.TouchRoomActivity(ctx, roomID)
			existing.Status = models.MemberStatusActive
			existing.LastSeenAt = now
			existing.DisplayName = displayName
			return &existing, nil
		}
	}

	if err := s.ReserveSeat(ctx, roomID); err != nil {
		return nil, err
	}
	member := &models.RoomMember{
		ID:          random.NewID(),
		RoomID:      roomID,
		UserID:      &userID,
		DisplayName: displayName,
		Role:        models.MemberRolePlayer,
		Status:      models.MemberStatusActive,
		JoinedAt:    now,
		LastSeenAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		s.ReleaseSeat(ctx, roomID)
		if database.IsDuplicateKey(err) {
			// Lost a concurrent join race for the same user.
			return nil, apperr.RoomAccessDenied()
		}
		return nil, fmt.Errorf("create membership: %w", err)
	}
	s.TouchRoomActivity(ctx, roomID)
	return member, nil
}

// CreateGuestMember joins a guest session to a room.
func (s *Service) CreateGuestMember(ctx context.Context, roomID, guestSessionID, displayName string) (*models.RoomMember, error) {
	now := time.Now()
	if err := s.ReserveSeat(ctx, roomID); err != nil {
		return nil, err
	}
	member := &models.RoomMember{
		ID:             random.NewID(),
		RoomID:         roomID,
		GuestSessionID: &guestSessionID,
		DisplayName:    displayName,
		Role:           models.MemberRolePlayer,
		Status:         models.MemberStatusActive,
		JoinedAt:       now,
		LastSeenAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		s.ReleaseSeat(ctx, roomID)
		return nil, fmt.Errorf("create guest membership: %w", err)
	}
	s.TouchRoomActivity(ctx, roomID)
	return member, nil
}

// LeaveRoom marks the caller's membership as left and releases the
// seat.
func (s *Service) LeaveRoom(ctx context.Context, roomID string, principal models.Principal) error {
	member, err := s.EnsureActiveMember(ctx, roomID, principal)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("id = ? AND status = ?", member.ID, models.MemberStatusActive).
		Updates(map[string]any{"status": models.MemberStatusLeft, "last_seen_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("leave room: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return apperr.MemberNotFound()
	}
	s.ReleaseSeat(ctx, roomID)
	s.TouchRoomActivity(ctx, roomID)
	return nil
}

// RemoveMember kicks a player out of the room. Kicked members cannot
// rejoin through self-service paths.
func (s *Service) RemoveMember(ctx context.Context, roomID, hostUserID, memberID string) ([]models.RoomMember, error) {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := ensureHostUser(room, hostUserID); err != nil {
		return nil, err
	}

	var member models.RoomMember
	err = s.db.WithContext(ctx).First(&member, "id = ?", memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.MemberNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load member: %w", err)
	}
	if member.RoomID != roomID || member.Status != models.MemberStatusActive {
		return nil, apperr.MemberNotFound()
	}
	if member.Role == models.MemberRoleHost {
		return nil, apperr.HostRemoveBlocked()
	}

	result := s.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("id = ? AND status = ?", memberID, models.MemberStatusActive).
		Updates(map[string]any{"status": models.MemberStatusKicked, "last_seen_at": time.Now()})
	if result.Error != nil {
		return nil, fmt.Errorf("kick member: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return nil, apperr.MemberNotFound()
	}
	s.ReleaseSeat(ctx, roomID)
	return s.ListMembers(ctx, roomID)
}

// MuteMember silences an active member until the given time.
func (s *Service) MuteMember(ctx context.Context, roomID, hostUserID, memberID string, mutedUntil time.Time) (*models.RoomMember, error) {
	return s.setMute(ctx, roomID, hostUserID, memberID, &mutedUntil)
}

// UnmuteMember clears a member's mute.
func (s *Service) UnmuteMember(ctx context.Context, roomID, hostUserID, memberID string) (*models.RoomMember, error) {
	return s.setMute(ctx, roomID, hostUserID, memberID, nil)
}

func (s *Service) setMute(ctx context.Context, roomID, hostUserID, memberID string, mutedUntil *time.Time) (*models.RoomMember, error) {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := ensureHostUser(room, hostUserID); err != nil {
		return nil, err
	}
	result := s.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("id = ? AND room_id = ? AND status = ?", memberID, roomID, models.MemberStatusActive).
		Update("muted_until", mutedUntil)
	if result.Error != nil {
		return nil, fmt.Errorf("mute member: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return nil, apperr.MemberNotFound()
	}

	var member models.RoomMember
	if err := s.db.WithContext(ctx).First(&member, "id = ?", memberID).Error; err != nil {
		return nil, fmt.Errorf("reload member: %w", err)
	}
	return &member, nil
}

// CleanupTemporaryRooms archives temporary rooms whose inactivity
// exceeds the TTL. Idempotent; runs on a fixed interval.
func (s *Service) CleanupTemporaryRooms(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.temporaryTTL)
	result := s.db.WithContext(ctx).Model(&models.Room{}).
		Where("is_archived = ? AND type = ? AND last_activity_at < ?", false, models.RoomTypeTemporary, cutoff).
		Updates(map[string]any{"is_archived": true, "updated_at": time.Now()})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup temporary rooms: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func ensureHostUser(room *models.Room, userID string) error {
	if room.HostUserID != userID {
		return apperr.HostOnly()
	}
	return nil
}

// normalizeSettings merges an update onto current settings and clamps
// everything to the room defaults.
func normalizeSettings(current models.RoomSettings, input *SettingsInput) models.RoomSettings {
	next := current
	if next.MaxPlayers == 0 {
		// Zero-value settings: seed the defaults before merging.
		next.MaxPlayers = DefaultMaxPlayers
		next.AllowGuestJoin = true
	}
	next.MinPlayers = MinPlayers
	if len(next.AllowedBoardSizes) == 0 {
		next.AllowedBoardSizes = append(models.IntList{}, defaultBoardSizes...)
	}
	if input == nil {
		return next
	}

	if len(input.AllowedBoardSizes) > 0 {
		next.AllowedBoardSizes = dedupeSorted(input.AllowedBoardSizes)
	}
	if input.MaxPlayers != nil {
		next.MaxPlayers = *input.MaxPlayers
	}
	if next.MaxPlayers < MinPlayers {
		next.MaxPlayers = MinPlayers
	}
	if next.MaxPlayers > HardMaxPlayers {
		next.MaxPlayers = HardMaxPlayers
	}
	if input.AllowGuestJoin != nil {
		next.AllowGuestJoin = *input.AllowGuestJoin
	}

	if input.DefaultBoardSize != nil {
		if next.AllowedBoardSizes.ContainsInt(*input.DefaultBoardSize) {
			size := *input.DefaultBoardSize
			next.DefaultBoardSize = &size
		} else {
			next.DefaultBoardSize = nil
		}
	} else if next.DefaultBoardSize != nil && !next.AllowedBoardSizes.ContainsInt(*next.DefaultBoardSize) {
		next.DefaultBoardSize = nil
	}

	if len(input.RematchBoardSizes) > 0 {
		filtered := models.IntList{}
		for _, size := range dedupeSorted(input.RematchBoardSizes) {
			if next.AllowedBoardSizes.ContainsInt(size) {
				filtered = append(filtered, size)
			}
		}
		next.RematchBoardSizes = filtered
	}
	return next
}

func dedupeSorted(values []int) models.IntList {
	seen := map[int]bool{}
	out := models.IntList{}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
