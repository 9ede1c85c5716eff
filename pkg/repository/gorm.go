package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"polymerit/pkg/models"
)

// GormStore implements Store on top of gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) FindOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where(models.User{Email: email}).
		Attrs(models.User{IsActive: true}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

func (s *GormStore) CreateSession(ctx context.Context, session *models.UserSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *GormStore) FindActiveSession(ctx context.Context, tokenHash string, now time.Time) (*models.UserSession, error) {
	var session models.UserSession
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("token = ? AND is_active = ? AND expires_at > ?", tokenHash, true, now).
		First(&session).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (s *GormStore) InvalidateSession(ctx context.Context, tokenHash string) error {
	return s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("token = ?", tokenHash).
		Update("is_active", false).Error
}

func (s *GormStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.UserSession{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) CreateMagicLink(ctx context.Context, token *models.MagicLinkToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("failed to store magic link: %w", err)
	}
	return nil
}

func (s *GormStore) ConsumeMagicLink(ctx context.Context, tokenHash string, now time.Time) (*models.MagicLinkToken, error) {
	var token models.MagicLinkToken
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.MagicLinkToken{}).
			Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("token_hash = ?", tokenHash).First(&token).Error
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

func (s *GormStore) ListWatchlist(ctx context.Context, userID uint) ([]models.WatchlistItem, error) {
	items := []models.WatchlistItem{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return items, nil
}

func (s *GormStore) UpsertWatchlistItem(ctx context.Context, item *models.WatchlistItem) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "market_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"slug", "title", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("failed to save watchlist item: %w", err)
	}

	var stored models.WatchlistItem
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND market_id = ?", item.UserID, item.MarketID).
		First(&stored).Error
	if err != nil {
		return fmt.Errorf("failed to reload watchlist item: %w", err)
	}
	*item = stored
	return nil
}

func (s *GormStore) DeleteWatchlistItem(ctx context.Context, userID uint, marketID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND market_id = ?", userID, marketID).
		Delete(&models.WatchlistItem{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete watchlist item: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) RecordLoginAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	return s.db.WithContext(ctx).Create(attempt).Error
}

func (s *GormStore) HitRateLimit(ctx context.Context, key string, window time.Duration, now time.Time) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		windowStart := now.Add(-window)
		byKey := map[string]interface{}{"key": key}
		if err := tx.Where(byKey).Where("window_start < ?", windowStart).Delete(&models.RateLimit{}).Error; err != nil {
			return err
		}

		var rl models.RateLimit
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(byKey).First(&rl).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rl = models.RateLimit{Key: key, Count: 1, WindowStart: now}
			count = 1
			return tx.Create(&rl).Error
		}
		if err != nil {
			return err
		}

		rl.Count++
		count = rl.Count
		return tx.Save(&rl).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record rate limit hit: %w", err)
	}
	return count, nil
}
