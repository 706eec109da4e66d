package model

import "time"

// User represents a registered calendar user.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string    `gorm:"size:64;not null" json:"-"`
	Nickname     string    `gorm:"size:32;not null" json:"nickname"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
