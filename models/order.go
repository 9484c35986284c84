package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending         = "pending"
	OrderStatusAwaitingPayment = "awaiting_payment"
	OrderStatusPaid            = "paid"
	OrderStatusShipped         = "shipped"
	OrderStatusCompleted       = "completed"
	OrderStatusCancelled       = "cancelled"
)

const (
	RoleSeller = "seller"
	RoleBuyer  = "buyer"
)

type Order struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Channel   string          `json:"channel"`
	SellerUID string          `json:"seller_uid"`
	BuyerUID  string          `json:"buyer_uid"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	RefCode   string          `json:"ref_code"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// orderEdges maps every legal transition to the role allowed to take it.
// Skipping a state or reversing direction is never legal.
var orderEdges = map[string]map[string]string{
	OrderStatusPending: {
		OrderStatusAwaitingPayment: RoleSeller,
		OrderStatusCancelled:       RoleSeller,
	},
	OrderStatusAwaitingPayment: {
		OrderStatusPaid: RoleBuyer,
	},
	OrderStatusPaid: {
		OrderStatusShipped:   RoleSeller,
		OrderStatusCancelled: RoleSeller,
	},
	OrderStatusShipped: {
		OrderStatusCompleted: RoleBuyer,
		OrderStatusCancelled: RoleBuyer,
	},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal order transition.
func CanTransition(from, to string) bool {
	_, ok := orderEdges[from][to]
	return ok
}

// TransitionRole returns the role permitted to take from -> to.
func TransitionRole(from, to string) (string, bool) {
	role, ok := orderEdges[from][to]
	return role, ok
}

// RoleOf resolves the actor's role on an order, or "" for a stranger.
func (o *Order) RoleOf(uid string) string {
	switch uid {
	case o.SellerUID:
		return RoleSeller
	case o.BuyerUID:
		return RoleBuyer
	default:
		return ""
	}
}
