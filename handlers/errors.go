package handlers

import (
	"errors"

	"livebid/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// apiError maps engine errors onto HTTP responses. Rejections carry enough
// data for the client to correct the request.
func apiError(err error) error {
	var tooLow *status.BidTooLowError
	if errors.As(err, &tooLow) {
		return apis.NewBadRequestError("Bid must exceed the current highest bid", map[string]any{
			"current_bid": tooLow.Current.String(),
		})
	}

	var badEdge *status.InvalidTransitionError
	if errors.As(err, &badEdge) {
		return apis.NewBadRequestError("Illegal order transition", map[string]any{
			"from": badEdge.From,
			"to":   badEdge.To,
		})
	}

	switch {
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError("Not found", err)
	case errors.Is(err, status.ErrUnauthorized):
		return apis.NewForbiddenError("Not allowed", err)
	case errors.Is(err, status.ErrAlreadyActive):
		return apis.NewBadRequestError("Channel already has an active item", err)
	case errors.Is(err, status.ErrItemNotActive):
		return apis.NewBadRequestError("Item is not active", err)
	case errors.Is(err, status.ErrAuctionExpired):
		return apis.NewBadRequestError("Bidding window has closed", err)
	case errors.Is(err, status.ErrInvalidDuration):
		return apis.NewBadRequestError("Duration not in allowed set", err)
	case errors.Is(err, status.ErrFailedPayout):
		return apis.NewBadRequestError("Payout provider unavailable", err)
	default:
		return apis.NewBadRequestError("Request failed: "+err.Error(), err)
	}
}
