package handlers

import (
	"net/http"

	"livebid/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type OrderHandler struct {
	app          *pocketbase.PocketBase
	orderService *services.OrderService
}

func NewOrderHandler(app *pocketbase.PocketBase, orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		app:          app,
		orderService: orderService,
	}
}

// ListSelling - Orders where the caller is the seller
func (h *OrderHandler) ListSelling(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orders, err := h.orderService.ListSellerOrders(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"orders": orders,
		"total":  len(orders),
	})
}

// ListBuying - Orders where the caller is the buyer
func (h *OrderHandler) ListBuying(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orders, err := h.orderService.ListBuyerOrders(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"orders": orders,
		"total":  len(orders),
	})
}

// GetOrder - One order, visible to its two parties only
func (h *OrderHandler) GetOrder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	order, err := h.orderService.GetOrder(e.Request.Context(), e.Request.PathValue("orderId"))
	if err != nil {
		return apiError(err)
	}
	if order.RoleOf(e.Auth.Id) == "" {
		return apis.NewForbiddenError("Not allowed", nil)
	}

	return e.JSON(http.StatusOK, order)
}

// Transition - Move an order along one edge of its lifecycle
func (h *OrderHandler) Transition(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orderID := e.Request.PathValue("orderId")

	var req struct {
		To string `json:"to"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.To == "" {
		return apis.NewBadRequestError("to is required", nil)
	}

	order, err := h.orderService.TransitionOrder(e.Request.Context(), orderID, e.Auth.Id, req.To)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, order)
}
