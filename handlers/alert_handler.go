package handlers

import (
	"net/http"
	"strconv"

	"livebid/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AlertHandler struct {
	app              *pocketbase.PocketBase
	alertService     *services.AlertService
	analyticsService *services.AnalyticsService
}

func NewAlertHandler(app *pocketbase.PocketBase, alertService *services.AlertService, analyticsService *services.AnalyticsService) *AlertHandler {
	return &AlertHandler{
		app:              app,
		alertService:     alertService,
		analyticsService: analyticsService,
	}
}

// ListAlerts - The caller's alerts, newest first
func (h *AlertHandler) ListAlerts(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	limit := 50
	if raw := e.Request.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	alerts, err := h.alertService.ListForUser(e.Request.Context(), e.Auth.Id, limit)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

// MyAnalytics - The caller's sales totals
func (h *AlertHandler) MyAnalytics(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	analytics, err := h.analyticsService.GetSellerAnalytics(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, analytics)
}

// Leaderboard - Top sellers this month
func (h *AlertHandler) Leaderboard(e *core.RequestEvent) error {
	limit := 10
	if raw := e.Request.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	entries, err := h.analyticsService.GetMonthlyLeaderboard(e.Request.Context(), limit)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"leaderboard": entries,
	})
}
