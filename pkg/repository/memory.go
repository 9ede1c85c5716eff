package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"polymerit/pkg/models"
)

// MemoryStore implements Store in process memory
type MemoryStore struct {
	mu sync.Mutex

	nextID     uint
	users      map[uint]*models.User
	sessions   map[string]*models.UserSession
	magicLinks map[string]*models.MagicLinkToken
	watchlist  map[uint]map[string]*models.WatchlistItem
	attempts   []models.LoginAttempt
	limits     map[string]*models.RateLimit
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[uint]*models.User),
		sessions:   make(map[string]*models.UserSession),
		magicLinks: make(map[string]*models.MagicLinkToken),
		watchlist:  make(map[uint]map[string]*models.WatchlistItem),
		limits:     make(map[string]*models.RateLimit),
	}
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) FindOrCreateUser(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	now := time.Now()
	u := &models.User{ID: s.id(), Email: email, IsActive: true, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) TouchLogin(_ context.Context, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

// SetUserActive toggles a user's active flag
func (s *MemoryStore) SetUserActive(id uint, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, session *models.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.ID = s.id()
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	copied := *session
	s.sessions[session.Token] = &copied
	return nil
}

func (s *MemoryStore) FindActiveSession(_ context.Context, tokenHash string, now time.Time) (*models.UserSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[tokenHash]
	if !ok || !session.IsActive || !session.ExpiresAt.After(now) {
		return nil, ErrNotFound
	}
	copied := *session
	if u, ok := s.users[session.UserID]; ok {
		copied.User = *u
	}
	return &copied, nil
}

func (s *MemoryStore) InvalidateSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[tokenHash]; ok {
		session.IsActive = false
	}
	return nil
}

func (s *MemoryStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, session := range s.sessions {
		if session.ExpiresAt.Before(now) {
			delete(s.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateMagicLink(_ context.Context, token *models.MagicLinkToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token.ID = s.id()
	token.CreatedAt = time.Now()
	copied := *token
	s.magicLinks[token.TokenHash] = &copied
	return nil
}

func (s *MemoryStore) ConsumeMagicLink(_ context.Context, tokenHash string, now time.Time) (*models.MagicLinkToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.magicLinks[tokenHash]
	if !ok || token.UsedAt != nil || !token.ExpiresAt.After(now) {
		return nil, ErrNotFound
	}
	used := now
	token.UsedAt = &used
	copied := *token
	return &copied, nil
}

func (s *MemoryStore) ListWatchlist(_ context.Context, userID uint) ([]models.WatchlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := []models.WatchlistItem{}
	for _, item := range s.watchlist[userID] {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) UpsertWatchlistItem(_ context.Context, item *models.WatchlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMarket, ok := s.watchlist[item.UserID]
	if !ok {
		byMarket = make(map[string]*models.WatchlistItem)
		s.watchlist[item.UserID] = byMarket
	}

	now := time.Now()
	if existing, ok := byMarket[item.MarketID]; ok {
		existing.Slug = item.Slug
		existing.Title = item.Title
		existing.UpdatedAt = now
		*item = *existing
		return nil
	}

	stored := *item
	stored.ID = s.id()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	byMarket[item.MarketID] = &stored
	*item = stored
	return nil
}

func (s *MemoryStore) DeleteWatchlistItem(_ context.Context, userID uint, marketID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMarket := s.watchlist[userID]
	if _, ok := byMarket[marketID]; !ok {
		return false, nil
	}
	delete(byMarket, marketID)
	return true, nil
}

func (s *MemoryStore) RecordLoginAttempt(_ context.Context, attempt *models.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt.ID = s.id()
	attempt.CreatedAt = time.Now()
	s.attempts = append(s.attempts, *attempt)
	return nil
}

// LoginAttempts returns the recorded attempts, oldest first
func (s *MemoryStore) LoginAttempts() []models.LoginAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LoginAttempt(nil), s.attempts...)
}

func (s *MemoryStore) HitRateLimit(_ context.Context, key string, window time.Duration, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rl, ok := s.limits[key]
	if !ok || rl.WindowStart.Before(now.Add(-window)) {
		rl = &models.RateLimit{Key: key, WindowStart: now}
		s.limits[key] = rl
	}
	rl.Count++
	return rl.Count, nil
}
