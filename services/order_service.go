package services

import (
	"context"
	"fmt"

	"livebid/internal/status"
	"livebid/models"
	"livebid/monitoring"
	"livebid/utils"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type OrderService struct {
	App    core.App
	alerts *AlertService
}

func NewOrderService(app core.App, alerts *AlertService) *OrderService {
	return &OrderService{App: app, alerts: alerts}
}

// CreateFromSettlement creates the pending order for a sold item. Idempotent
// on the item id: the collection holds a unique index on item, and a repeat
// call returns the order that already exists.
func (s *OrderService) CreateFromSettlement(ctx context.Context, seed *models.Order) (*models.Order, error) {
	if existing, err := s.App.FindFirstRecordByFilter(
		"orders", "item = {:item}", map[string]any{"item": seed.ItemID},
	); err == nil {
		return orderFromRecord(existing), nil
	}

	collection, err := s.App.FindCollectionByNameOrId("orders")
	if err != nil {
		return nil, err
	}

	refCode, err := utils.GenerateCode(8)
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("item", seed.ItemID)
	record.Set("item_name", seed.ItemName)
	record.Set("channel", seed.Channel)
	record.Set("seller_uid", seed.SellerUID)
	record.Set("buyer_uid", seed.BuyerUID)
	record.Set("amount", seed.Amount.InexactFloat64())
	record.Set("status", models.OrderStatusPending)
	record.Set("ref_code", refCode)
	if err := s.App.Save(record); err != nil {
		// Lost the insert race. The winner's row is the order.
		if existing, ferr := s.App.FindFirstRecordByFilter(
			"orders", "item = {:item}", map[string]any{"item": seed.ItemID},
		); ferr == nil {
			return orderFromRecord(existing), nil
		}
		return nil, err
	}

	order := orderFromRecord(record)
	s.alerts.Notify(ctx, order.BuyerUID, "You won the auction",
		fmt.Sprintf("You won %s for %s. Complete your order %s.", order.ItemName, order.Amount.String(), order.RefCode))
	s.alerts.Notify(ctx, order.SellerUID, "Item sold",
		fmt.Sprintf("%s sold for %s. Order %s created.", order.ItemName, order.Amount.String(), order.RefCode))
	return order, nil
}

// TransitionOrder moves an order along one legal edge. The read and write
// run inside one database transaction so concurrent transitions serialize.
func (s *OrderService) TransitionOrder(ctx context.Context, orderID, actorUID, to string) (*models.Order, error) {
	var order *models.Order

	err := s.App.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById("orders", orderID)
		if err != nil {
			return status.ErrNotFound
		}

		current := orderFromRecord(record)
		from := current.Status

		role := current.RoleOf(actorUID)
		if role == "" {
			return status.ErrUnauthorized
		}
		allowedRole, legal := models.TransitionRole(from, to)
		if !legal {
			return &status.InvalidTransitionError{From: from, To: to}
		}
		if role != allowedRole {
			return status.ErrUnauthorized
		}

		record.Set("status", to)
		if err := txApp.Save(record); err != nil {
			return err
		}

		order = orderFromRecord(record)
		return nil
	})
	if err != nil {
		monitoring.TrackOrderTransition(to, "rejected")
		return nil, err
	}
	monitoring.TrackOrderTransition(to, "applied")

	counterparty := order.SellerUID
	if actorUID == order.SellerUID {
		counterparty = order.BuyerUID
	}
	s.alerts.Notify(ctx, counterparty, "Order updated",
		fmt.Sprintf("Order %s for %s is now %s.", order.RefCode, order.ItemName, order.Status))

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	record, err := s.App.FindRecordById("orders", orderID)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return orderFromRecord(record), nil
}

// ListSellerOrders returns orders where the user is the seller, newest first.
func (s *OrderService) ListSellerOrders(ctx context.Context, sellerUID string) ([]*models.Order, error) {
	return s.listByField(ctx, "seller_uid", sellerUID)
}

// ListBuyerOrders returns orders where the user is the buyer, newest first.
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerUID string) ([]*models.Order, error) {
	return s.listByField(ctx, "buyer_uid", buyerUID)
}

func (s *OrderService) listByField(ctx context.Context, field, uid string) ([]*models.Order, error) {
	records, err := s.App.FindRecordsByFilter(
		"orders",
		fmt.Sprintf("%s = {:uid}", field),
		"-created",
		200,
		0,
		map[string]any{"uid": uid},
	)
	if err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(records))
	for _, record := range records {
		orders = append(orders, orderFromRecord(record))
	}
	return orders, nil
}

func orderFromRecord(record *core.Record) *models.Order {
	amount := decimal.NewFromFloat(record.GetFloat("amount"))
	return &models.Order{
		ID:        record.Id,
		ItemID:    record.GetString("item"),
		ItemName:  record.GetString("item_name"),
		Channel:   record.GetString("channel"),
		SellerUID: record.GetString("seller_uid"),
		BuyerUID:  record.GetString("buyer_uid"),
		Amount:    amount,
		Status:    record.GetString("status"),
		RefCode:   record.GetString("ref_code"),
		CreatedAt: record.GetDateTime("created").Time(),
		UpdatedAt: record.GetDateTime("updated").Time(),
	}
}
