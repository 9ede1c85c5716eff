package models

import "time"

// WatchlistItem is one market a user follows. (UserID, MarketID) is unique.
type WatchlistItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_watchlist_user_market" json:"userId"`
	MarketID  string    `gorm:"not null;size:128;uniqueIndex:idx_watchlist_user_market" json:"marketId"`
	Slug      string    `gorm:"not null" json:"slug"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WatchlistItem) TableName() string { return "watchlist_items" }
