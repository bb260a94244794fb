package models

import "time"

type RoomType string

const (
	RoomTypeTemporary RoomType = "temporary"
	RoomTypePermanent RoomType = "permanent"
)

// RoomSettings is embedded into the rooms table so the capacity check
// can compare active_member_count against max_players in one UPDATE.
type RoomSettings struct {
	AllowedBoardSizes IntList `gorm:"not null" json:"allowedBoardSizes"`
	MinPlayers        int     `gorm:"not null" json:"minPlayers"`
	MaxPlayers        int     `gorm:"not null" json:"maxPlayers"`
	AllowGuestJoin    bool    `gorm:"not null;default:true" json:"allowGuestJoin"`
	DefaultBoardSize  *int    `json:"defaultBoardSize,omitempty"`
	RematchBoardSizes IntList `json:"rematchBoardSizes"`
}

// Room is a lobby grouping members who may play matches together.
// ActiveMemberCount is only ever mutated through the seat ledger.
type Room struct {
	ID                 string       `gorm:"primaryKey;size:36" json:"id"`
	Name               string       `gorm:"size:255;not null" json:"name"`
	Type               RoomType     `gorm:"size:20;not null;index" json:"type"`
	HostUserID         string       `gorm:"size:36;not null;index" json:"hostUserId"`
	Settings           RoomSettings `gorm:"embedded" json:"settings"`
	ActiveMemberCount  int          `gorm:"not null;default:0" json:"activeMemberCount"`
	TemporaryExpiresAt *time.Time   `json:"temporaryExpiresAt,omitempty"`
	LastActivityAt     time.Time    `gorm:"index" json:"lastActivityAt"`
	IsArchived         bool         `gorm:"not null;default:false;index" json:"isArchived"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}
