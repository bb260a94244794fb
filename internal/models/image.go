package models

import "time"

// RoomImage is the metadata record for one image in a room's pool.
// The bytes themselves live in external blob storage behind StorageKey.
type RoomImage struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	RoomID           string    `gorm:"size:36;not null;index" json:"roomId"`
	UploaderMemberID string    `gorm:"size:36;not null" json:"uploaderMemberId"`
	StorageKey       string    `gorm:"size:255;not null" json:"storageKey"`
	Filename         string    `gorm:"size:255;not null" json:"filename"`
	MimeType         string    `gorm:"size:100;not null" json:"mimeType"`
	FileSizeBytes    int64     `gorm:"not null" json:"fileSizeBytes"`
	SHA256           string    `gorm:"size:64;not null;index" json:"sha256"`
	IsActive         bool      `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
}
