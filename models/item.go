package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ItemStatusQueued = "queued"
	ItemStatusActive = "active"
	ItemStatusSold   = "sold"
	ItemStatusPassed = "passed"
)

// Item is one auction lot within a channel. The contested fields (Status,
// HighestBid, HighestBidder, EndsAt) are owned by the Redis item hash while
// the auction runs; the record in the channels store is a mirror.
type Item struct {
	ID            string          `json:"id"`
	Channel       string          `json:"channel"`
	Name          string          `json:"name"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	DurationSec   int             `json:"duration_sec"`
	Status        string          `json:"status"` // queued, active, sold, passed
	HighestBid    decimal.Decimal `json:"highest_bid"`
	HighestBidder string          `json:"highest_bidder,omitempty"`
	EndsAt        *time.Time      `json:"ends_at,omitempty"` // absolute, set only while active
	LastBidAt     *time.Time      `json:"last_bid_at,omitempty"`
	OrderID       string          `json:"order_id,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	Category      string          `json:"category,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (i *Item) Terminal() bool {
	return i.Status == ItemStatusSold || i.Status == ItemStatusPassed
}

// Remaining reports the advisory countdown for display. Authority for
// accepting bids is the store's clock, never this value.
func (i *Item) Remaining(now time.Time) time.Duration {
	if i.EndsAt == nil {
		return 0
	}
	d := i.EndsAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
