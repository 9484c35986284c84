package handlers

import (
	"net/http"

	"livebid/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PresenceHandler struct {
	app             *pocketbase.PocketBase
	presenceService *services.PresenceService
}

func NewPresenceHandler(app *pocketbase.PocketBase, presenceService *services.PresenceService) *PresenceHandler {
	return &PresenceHandler{
		app:             app,
		presenceService: presenceService,
	}
}

// Join - Register the caller as a viewer
func (h *PresenceHandler) Join(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	channel := e.Request.PathValue("channel")
	if err := h.presenceService.Join(e.Request.Context(), channel, e.Auth.Id); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"joined": channel})
}

// Heartbeat - Refresh the caller's liveness
func (h *PresenceHandler) Heartbeat(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	channel := e.Request.PathValue("channel")
	if err := h.presenceService.Heartbeat(e.Request.Context(), channel, e.Auth.Id); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"ok": true})
}

// Leave - Drop the caller from the viewer set
func (h *PresenceHandler) Leave(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	channel := e.Request.PathValue("channel")
	if err := h.presenceService.Leave(e.Request.Context(), channel, e.Auth.Id); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"left": channel})
}

// Count - Current live viewer count
func (h *PresenceHandler) Count(e *core.RequestEvent) error {
	channel := e.Request.PathValue("channel")

	n, err := h.presenceService.Count(e.Request.Context(), channel)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"channel": channel,
		"viewers": n,
	})
}
