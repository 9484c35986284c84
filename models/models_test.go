package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_LegalTransitions(t *testing.T) {
	legal := []struct {
		from, to, role string
	}{
		{OrderStatusPending, OrderStatusAwaitingPayment, RoleSeller},
		{OrderStatusPending, OrderStatusCancelled, RoleSeller},
		{OrderStatusAwaitingPayment, OrderStatusPaid, RoleBuyer},
		{OrderStatusPaid, OrderStatusShipped, RoleSeller},
		{OrderStatusPaid, OrderStatusCancelled, RoleSeller},
		{OrderStatusShipped, OrderStatusCompleted, RoleBuyer},
		{OrderStatusShipped, OrderStatusCancelled, RoleBuyer},
	}

	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)

		role, ok := TransitionRole(tc.from, tc.to)
		require.True(t, ok)
		assert.Equal(t, tc.role, role, "%s -> %s role", tc.from, tc.to)
	}
}

func TestOrder_IllegalTransitions(t *testing.T) {
	illegal := []struct {
		from, to string
	}{
		// skipping states
		{OrderStatusPending, OrderStatusPaid},
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPending, OrderStatusCompleted},
		{OrderStatusAwaitingPayment, OrderStatusShipped},
		// reversing direction
		{OrderStatusPaid, OrderStatusAwaitingPayment},
		{OrderStatusShipped, OrderStatusPaid},
		{OrderStatusCompleted, OrderStatusShipped},
		// leaving terminal states
		{OrderStatusCompleted, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusPending},
		// buyer cannot cancel before shipment
		{OrderStatusAwaitingPayment, OrderStatusCancelled},
	}

	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be rejected", tc.from, tc.to)
	}
}

func TestOrder_RoleOf(t *testing.T) {
	order := Order{
		SellerUID: "seller-1",
		BuyerUID:  "buyer-1",
		Amount:    decimal.NewFromInt(42),
	}

	assert.Equal(t, RoleSeller, order.RoleOf("seller-1"))
	assert.Equal(t, RoleBuyer, order.RoleOf("buyer-1"))
	assert.Equal(t, "", order.RoleOf("someone-else"))
}

func TestItem_Terminal(t *testing.T) {
	assert.False(t, (&Item{Status: ItemStatusQueued}).Terminal())
	assert.False(t, (&Item{Status: ItemStatusActive}).Terminal())
	assert.True(t, (&Item{Status: ItemStatusSold}).Terminal())
	assert.True(t, (&Item{Status: ItemStatusPassed}).Terminal())
}

func TestItem_Remaining(t *testing.T) {
	now := time.Now()

	queued := Item{Status: ItemStatusQueued}
	assert.Equal(t, time.Duration(0), queued.Remaining(now))

	endsAt := now.Add(30 * time.Second)
	active := Item{Status: ItemStatusActive, EndsAt: &endsAt}
	assert.Equal(t, 30*time.Second, active.Remaining(now))

	// elapsed auctions never report negative time
	assert.Equal(t, time.Duration(0), active.Remaining(now.Add(time.Minute)))
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(""))
	assert.True(t, ValidCategory("coral"))
	assert.True(t, ValidCategory("fish"))
	assert.True(t, ValidCategory("equipment"))
	assert.False(t, ValidCategory("livestock"))
}
