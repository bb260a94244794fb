package models

import "time"

// User is a registered account.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Nickname     string    `gorm:"size:255;uniqueIndex;not null" json:"nickname"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastLoginAt  time.Time `json:"lastLoginAt"`
}
