package status

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// Auction engine outcomes. Every rejected operation maps to exactly one
	// of these so callers can tell the user what to correct.
	ErrInvalidDuration = errors.New("auction: duration not in allowed set")
	ErrAlreadyActive   = errors.New("auction: channel already has an active item")
	ErrItemNotActive   = errors.New("auction: item is not active")
	ErrAuctionExpired  = errors.New("auction: bidding window has closed")
	ErrNotFound        = errors.New("record not found")
	ErrUnauthorized    = errors.New("actor lacks the required role")

	ErrFailedPayout = errors.New("payout: provider request failed")
)

// BidTooLowError carries the highest bid at arbitration time so the caller
// can raise and retry.
type BidTooLowError struct {
	Current decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("auction: bid must exceed current highest bid %s", e.Current)
}

// InvalidTransitionError names both ends of a rejected order transition.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order: cannot transition from %q to %q", e.From, e.To)
}

// Transaction is a settlement notification delivered by the payout provider.
type Transaction struct {
	RefID     string          `json:"ref_id"`
	UUID      string          `json:"uuid"`
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}
