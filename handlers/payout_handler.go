package handlers

import (
	"net/http"

	"livebid/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type PayoutHandler struct {
	app           *pocketbase.PocketBase
	payoutService *services.PayoutService
}

func NewPayoutHandler(app *pocketbase.PocketBase, payoutService *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		app:           app,
		payoutService: payoutService,
	}
}

// Onboard - Create the caller's payout account and return the KYC link
func (h *PayoutHandler) Onboard(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	link, err := h.payoutService.Onboard(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"onboarding_url": link,
	})
}

// Status - The caller's payout account state
func (h *PayoutHandler) Status(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	accountStatus, err := h.payoutService.Status(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, accountStatus)
}
