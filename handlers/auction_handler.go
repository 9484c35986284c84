package handlers

import (
	"net/http"

	"livebid/models"
	"livebid/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

type AuctionHandler struct {
	app            *pocketbase.PocketBase
	auctionService *services.AuctionService
}

func NewAuctionHandler(app *pocketbase.PocketBase, auctionService *services.AuctionService) *AuctionHandler {
	return &AuctionHandler{
		app:            app,
		auctionService: auctionService,
	}
}

// AddItem - Queue a lot on the seller's channel
func (h *AuctionHandler) AddItem(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	channel := e.Request.PathValue("channel")

	var req struct {
		Name          string `json:"name"`
		StartingPrice string `json:"starting_price"`
		DurationSec   int    `json:"duration_sec"`
		ImageURL      string `json:"image_url"`
		Category      string `json:"category"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Name == "" {
		return apis.NewBadRequestError("name is required", nil)
	}

	price, err := decimal.NewFromString(req.StartingPrice)
	if err != nil {
		return apis.NewBadRequestError("Invalid starting price", err)
	}

	item, err := h.auctionService.AddQueueItem(e.Request.Context(), channel, e.Auth.Id, &models.Item{
		Name:          req.Name,
		StartingPrice: price,
		DurationSec:   req.DurationSec,
		ImageURL:      req.ImageURL,
		Category:      req.Category,
	})
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, item)
}

// RemoveItem - Drop a queued, never-bid-on lot
func (h *AuctionHandler) RemoveItem(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	channel := e.Request.PathValue("channel")
	itemID := e.Request.PathValue("itemId")

	if err := h.auctionService.RemoveQueueItem(e.Request.Context(), channel, itemID, e.Auth.Id); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"removed": itemID})
}

// ListItems - The channel's queue with live auction state
func (h *AuctionHandler) ListItems(e *core.RequestEvent) error {
	channel := e.Request.PathValue("channel")

	items, err := h.auctionService.ListQueue(e.Request.Context(), channel)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

// GetActiveItem - The item currently under the hammer
func (h *AuctionHandler) GetActiveItem(e *core.RequestEvent) error {
	channel := e.Request.PathValue("channel")

	item, err := h.auctionService.GetActiveItem(e.Request.Context(), channel)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, item)
}

// ActivateItem - Put a queued lot under the hammer
func (h *AuctionHandler) ActivateItem(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	channel := e.Request.PathValue("channel")
	itemID := e.Request.PathValue("itemId")

	var req struct {
		DurationSec int `json:"duration_sec"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	item, err := h.auctionService.ActivateItem(e.Request.Context(), channel, itemID, req.DurationSec, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, item)
}

// PlaceBid - Bid on the active lot
func (h *AuctionHandler) PlaceBid(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	channel := e.Request.PathValue("channel")
	itemID := e.Request.PathValue("itemId")

	var req struct {
		Amount string `json:"amount"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return apis.NewBadRequestError("Invalid amount", err)
	}

	event, err := h.auctionService.PlaceBid(e.Request.Context(), channel, itemID, e.Auth.Id, amount)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, event)
}

// CloseItem - End the active auction and settle it
func (h *AuctionHandler) CloseItem(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	channel := e.Request.PathValue("channel")
	itemID := e.Request.PathValue("itemId")

	result, err := h.auctionService.DeactivateItem(e.Request.Context(), channel, itemID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}
