package payments

import (
	"context"

	"livebid/internal/status"
	"livebid/payments/connect"
)

// connectAdapter maps the connect client onto the PayoutProvider interface.
type connectAdapter struct {
	provider *connect.Provider
}

func newConnectAdapter(ctx context.Context, cfg *connect.Config) (PayoutProvider, error) {
	provider, err := connect.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &connectAdapter{provider: provider}, nil
}

func (a *connectAdapter) EnsureAccount(ctx context.Context, sellerUID string) (string, error) {
	return a.provider.EnsureAccount(ctx, sellerUID)
}

func (a *connectAdapter) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	return a.provider.OnboardingLink(ctx, accountID)
}

func (a *connectAdapter) AccountStatus(ctx context.Context, accountID string) (*AccountStatus, error) {
	account, err := a.provider.AccountStatus(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &AccountStatus{
		AccountID:      account.AccountID,
		State:          account.State,
		PayoutsEnabled: account.PayoutsEnabled,
	}, nil
}

func (a *connectAdapter) SetTransactionChannel(ch chan *status.Transaction) {
	a.provider.SetTranChannel(ch)
}

func (a *connectAdapter) Close(ctx context.Context) error {
	return a.provider.Close(ctx)
}
