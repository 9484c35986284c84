package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidEvent is published to stream subscribers when a bid wins arbitration.
type BidEvent struct {
	EventID     string          `json:"event_id"`
	Channel     string          `json:"channel"`
	ItemID      string          `json:"item_id"`
	BidderUID   string          `json:"bidder_uid"`
	Amount      decimal.Decimal `json:"amount"`
	PreviousBid decimal.Decimal `json:"previous_bid"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// AuctionEvent announces activation and settlement on the stream channel.
type AuctionEvent struct {
	Type       string          `json:"type"` // item_activated, item_sold, item_passed
	Channel    string          `json:"channel"`
	ItemID     string          `json:"item_id"`
	ItemName   string          `json:"item_name,omitempty"`
	EndsAt     *time.Time      `json:"ends_at,omitempty"`
	FinalBid   decimal.Decimal `json:"final_bid"`
	WinnerUID  string          `json:"winner_uid,omitempty"`
	OrderID    string          `json:"order_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
