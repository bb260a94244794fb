package models

import "time"

type MemberRole string

const (
	MemberRoleHost   MemberRole = "host"
	MemberRolePlayer MemberRole = "player"
)

type MemberStatus string

const (
	MemberStatusActive MemberStatus = "active"
	MemberStatusLeft   MemberStatus = "left"
	MemberStatusKicked MemberStatus = "kicked"
)

// RoomMember is one identity inside one room. Exactly one of UserID or
// GuestSessionID is set; the composite unique indexes keep at most one
// record per (room, user) and per (room, guest session).
type RoomMember struct {
	ID             string       `gorm:"primaryKey;size:36" json:"id"`
	RoomID         string       `gorm:"size:36;not null;index;uniqueIndex:uniq_room_user;uniqueIndex:uniq_room_guest" json:"roomId"`
	UserID         *string      `gorm:"size:36;uniqueIndex:uniq_room_user" json:"userId,omitempty"`
	GuestSessionID *string      `gorm:"size:36;uniqueIndex:uniq_room_guest" json:"guestSessionId,omitempty"`
	DisplayName    string       `gorm:"size:255;not null" json:"displayName"`
	Role           MemberRole   `gorm:"size:20;not null" json:"role"`
	Status         MemberStatus `gorm:"size:20;not null;index" json:"status"`
	MutedUntil     *time.Time   `json:"mutedUntil,omitempty"`
	JoinedAt       time.Time    `json:"joinedAt"`
	LastSeenAt     time.Time    `json:"lastSeenAt"`
}
