// Package repository persists users, sessions, magic-link tokens, watchlists
// and rate-limit counters. GormStore is the production implementation;
// MemoryStore serves tests and database-less development.
package repository

import (
	"context"
	"errors"
	"time"

	"polymerit/pkg/models"
)

// ErrNotFound is returned when a lookup matches nothing
var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	// FindOrCreateUser returns the user with email, creating it on first use
	FindOrCreateUser(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	TouchLogin(ctx context.Context, id uint, at time.Time) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.UserSession) error
	// FindActiveSession looks up an active, unexpired session by token hash
	FindActiveSession(ctx context.Context, tokenHash string, now time.Time) (*models.UserSession, error)
	InvalidateSession(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type MagicLinkRepository interface {
	CreateMagicLink(ctx context.Context, token *models.MagicLinkToken) error
	// ConsumeMagicLink marks an unused, unexpired token as used and returns
	// it. A token can be consumed once.
	ConsumeMagicLink(ctx context.Context, tokenHash string, now time.Time) (*models.MagicLinkToken, error)
}

type WatchlistRepository interface {
	ListWatchlist(ctx context.Context, userID uint) ([]models.WatchlistItem, error)
	// UpsertWatchlistItem inserts the item or, if (user, market) exists,
	// updates its slug and title. item is refreshed from the stored row.
	UpsertWatchlistItem(ctx context.Context, item *models.WatchlistItem) error
	// DeleteWatchlistItem reports whether a row was removed
	DeleteWatchlistItem(ctx context.Context, userID uint, marketID string) (bool, error)
}

type LoginAttemptRepository interface {
	RecordLoginAttempt(ctx context.Context, attempt *models.LoginAttempt) error
}

// RateLimitStore counts hits per key within a fixed window
type RateLimitStore interface {
	// HitRateLimit records one hit and returns the count in the current window
	HitRateLimit(ctx context.Context, key string, window time.Duration, now time.Time) (int, error)
}

// Store bundles every repository
type Store interface {
	UserRepository
	SessionRepository
	MagicLinkRepository
	WatchlistRepository
	LoginAttemptRepository
	RateLimitStore
}
