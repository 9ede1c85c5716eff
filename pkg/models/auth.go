package models

import (
	"time"
)

// UserSession represents an active login. Token holds the sha256 of the issued JWT.
type UserSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"unique;not null" json:"-"`
	IPAddress string    `gorm:"not null" json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// MagicLinkToken is a single-use login token. Only the hash is stored.
type MagicLinkToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TokenHash string     `gorm:"unique;not null" json:"-"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Email     string     `gorm:"not null;index" json:"email"`
	RequestIP string     `json:"request_ip"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// LoginAttempt represents login attempts for security monitoring
type LoginAttempt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"not null;index" json:"email"`
	IPAddress string    `gorm:"not null;index" json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Success   bool      `gorm:"not null;index" json:"success"`
	Reason    string    `json:"reason,omitempty"` // Failure reason
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// RateLimit backs the database fallback of the rate limiter
type RateLimit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"unique;not null;index" json:"key"` // IP or UserID
	Count       int       `gorm:"not null" json:"count"`
	WindowStart time.Time `gorm:"not null;index" json:"window_start"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName methods
func (UserSession) TableName() string    { return "user_sessions" }
func (MagicLinkToken) TableName() string { return "magic_link_tokens" }
func (LoginAttempt) TableName() string   { return "login_attempts" }
func (RateLimit) TableName() string      { return "rate_limits" }
