package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account created on first magic-link login
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Email       string         `gorm:"unique;not null" json:"email"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Watchlist []WatchlistItem `gorm:"foreignKey:UserID" json:"watchlist,omitempty"`
}

func (User) TableName() string { return "users" }
