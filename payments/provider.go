package payments

import (
	"context"
	"fmt"

	"livebid/internal/status"
	"livebid/payments/connect"
)

// AccountState reported by the payout provider for a seller account.
const (
	AccountPending  = "pending"
	AccountEnabled  = "enabled"
	AccountDisabled = "disabled"
)

type AccountStatus struct {
	AccountID      string `json:"account_id"`
	State          string `json:"state"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

// PayoutProvider abstracts the external payout platform. The marketplace
// never moves money itself; it onboards seller accounts and listens for
// settlement notifications.
type PayoutProvider interface {
	// EnsureAccount returns the provider account id for the seller,
	// creating one on first call.
	EnsureAccount(ctx context.Context, sellerUID string) (string, error)

	// OnboardingLink returns a URL where the seller completes KYC.
	OnboardingLink(ctx context.Context, accountID string) (string, error)

	// AccountStatus reports whether the account can receive payouts.
	AccountStatus(ctx context.Context, accountID string) (*AccountStatus, error)

	// SetTransactionChannel registers the channel that receives settlement
	// notifications pushed by the provider.
	SetTransactionChannel(ch chan *status.Transaction)

	// Close tears down the provider's push subscription.
	Close(ctx context.Context) error
}

// NewProvider builds the configured payout provider.
func NewProvider(ctx context.Context, name string, cfg *connect.Config) (PayoutProvider, error) {
	switch name {
	case "", "connect":
		return newConnectAdapter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported payout provider: %s", name)
	}
}
