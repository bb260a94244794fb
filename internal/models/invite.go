package models

import "time"

// Invite is a shareable join code for a room.
type Invite struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	RoomID            string     `gorm:"size:36;not null;index" json:"roomId"`
	Code              string     `gorm:"size:16;not null;uniqueIndex" json:"code"`
	CreatedByMemberID string     `gorm:"size:36;not null" json:"createdByMemberId"`
	AllowGuestJoin    bool       `gorm:"not null" json:"allowGuestJoin"`
	MaxUses           *int       `json:"maxUses,omitempty"`
	UsesCount         int        `gorm:"not null;default:0" json:"usesCount"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	RevokedAt         *time.Time `json:"revokedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}
