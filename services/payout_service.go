package services

import (
	"context"
	"fmt"
	"log"

	"livebid/internal/status"
	"livebid/payments"

	"github.com/pocketbase/pocketbase/core"
)

// PayoutService onboards sellers with the payout provider and records the
// provider's settlement notifications on orders. Money never moves here.
type PayoutService struct {
	App      core.App
	provider payments.PayoutProvider
	alerts   *AlertService
	tranCh   chan *status.Transaction
}

func NewPayoutService(app core.App, provider payments.PayoutProvider, alerts *AlertService) *PayoutService {
	s := &PayoutService{
		App:      app,
		provider: provider,
		alerts:   alerts,
		tranCh:   make(chan *status.Transaction, 16),
	}
	if provider != nil {
		provider.SetTransactionChannel(s.tranCh)
	}
	return s
}

// Onboard ensures the seller has a provider account and returns the hosted
// onboarding link. The account id sticks to the user record.
func (s *PayoutService) Onboard(ctx context.Context, sellerUID string) (string, error) {
	if s.provider == nil {
		return "", status.ErrFailedPayout
	}

	user, err := s.App.FindRecordById("users", sellerUID)
	if err != nil {
		return "", status.ErrNotFound
	}

	accountID := user.GetString("payout_account_id")
	if accountID == "" {
		accountID, err = s.provider.EnsureAccount(ctx, sellerUID)
		if err != nil {
			return "", err
		}
		user.Set("payout_account_id", accountID)
		if err := s.App.Save(user); err != nil {
			return "", err
		}
	}

	return s.provider.OnboardingLink(ctx, accountID)
}

// Status reports the seller's payout account state.
func (s *PayoutService) Status(ctx context.Context, sellerUID string) (*payments.AccountStatus, error) {
	if s.provider == nil {
		return nil, status.ErrFailedPayout
	}

	user, err := s.App.FindRecordById("users", sellerUID)
	if err != nil {
		return nil, status.ErrNotFound
	}
	accountID := user.GetString("payout_account_id")
	if accountID == "" {
		return &payments.AccountStatus{State: payments.AccountPending}, nil
	}

	return s.provider.AccountStatus(ctx, accountID)
}

// Listen consumes pushed settlements until ctx is cancelled, stamping the
// settlement reference onto the matching order.
func (s *PayoutService) Listen(ctx context.Context) {
	log.Println("Payout settlement listener started")
	for {
		select {
		case tran := <-s.tranCh:
			s.applySettlement(ctx, tran)
		case <-ctx.Done():
			log.Println("Payout settlement listener stopping")
			return
		}
	}
}

func (s *PayoutService) applySettlement(ctx context.Context, tran *status.Transaction) {
	record, err := s.App.FindFirstRecordByFilter(
		"orders", "ref_code = {:ref}", map[string]any{"ref": tran.RefID},
	)
	if err != nil {
		log.Printf("settlement %s: no order with ref %s", tran.UUID, tran.RefID)
		return
	}

	record.Set("settlement_ref", tran.UUID)
	if err := s.App.Save(record); err != nil {
		log.Printf("settlement %s: saving order: %v", tran.UUID, err)
		return
	}

	if s.alerts != nil {
		s.alerts.Notify(ctx, record.GetString("seller_uid"), "Payout settled",
			fmt.Sprintf("Settlement %s for order %s received.", tran.UUID, tran.RefID))
	}
}
