package handlers

import (
	"net/http"

	"livebid/models"
	"livebid/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type StreamHandler struct {
	app           *pocketbase.PocketBase
	streamService *services.StreamService
}

func NewStreamHandler(app *pocketbase.PocketBase, streamService *services.StreamService) *StreamHandler {
	return &StreamHandler{
		app:           app,
		streamService: streamService,
	}
}

// StartStream - Go live on a channel
func (h *StreamHandler) StartStream(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Channel      string `json:"channel"`
		Category     string `json:"category"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Channel == "" {
		return apis.NewBadRequestError("channel is required", nil)
	}

	channel, err := h.streamService.StartStream(e.Request.Context(), req.Channel, e.Auth.Id, req.Category, req.ThumbnailURL)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, channel)
}

// EndStream - Close the channel, settling any running auction
func (h *StreamHandler) EndStream(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Channel string `json:"channel"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	channel, err := h.streamService.EndStream(e.Request.Context(), req.Channel, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, channel)
}

// ListStreams - Explore live channels
func (h *StreamHandler) ListStreams(e *core.RequestEvent) error {
	query := e.Request.URL.Query()
	filter := models.StreamFilter{
		Category: query.Get("category"),
		SortBy:   query.Get("sort"),
		Featured: query.Get("featured") == "true",
	}
	if !models.ValidCategory(filter.Category) {
		return apis.NewBadRequestError("Unknown category", nil)
	}

	channels, err := h.streamService.ListLiveStreams(e.Request.Context(), filter)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"streams": channels,
		"total":   len(channels),
	})
}

// GetStream - One channel with its live viewer count
func (h *StreamHandler) GetStream(e *core.RequestEvent) error {
	channel := e.Request.PathValue("channel")

	stream, err := h.streamService.GetStream(e.Request.Context(), channel)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, stream)
}
