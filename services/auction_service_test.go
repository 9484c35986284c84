package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"livebid/config"
	"livebid/internal/status"
	"livebid/models"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestAuctionService() (*AuctionService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	cfg := &config.Config{
		AllowedDurations: []int{30, 60, 120},
		SweepInterval:    2 * time.Second,
	}

	service := &AuctionService{
		Redis:  db,
		Config: cfg,
	}
	return service, mock
}

func expectLiveStream(mock redismock.ClientMock, channel, sellerUID string) {
	mock.ExpectHGetAll("stream:" + channel).SetVal(map[string]string{
		"seller_uid":      sellerUID,
		"status":          "live",
		"current_item_id": "",
	})
}

func TestPlaceBid_Accepted(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	nowMs := time.Now().UnixMilli()
	mock.ExpectEval(bidLua, []string{"auction:reef:item1"}, "25", "buyer1").
		SetVal([]interface{}{int64(1), "ok", "20", nowMs})

	event, err := service.PlaceBid(context.Background(), "reef", "item1", "buyer1", decimal.NewFromInt(25))

	require.NoError(t, err)
	assert.Equal(t, "reef", event.Channel)
	assert.Equal(t, "item1", event.ItemID)
	assert.Equal(t, "buyer1", event.BidderUID)
	assert.True(t, event.Amount.Equal(decimal.NewFromInt(25)))
	assert.True(t, event.PreviousBid.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, nowMs, event.PlacedAt.UnixMilli())
	assert.NotEmpty(t, event.EventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBid_TooLow_EqualAmount(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	// A bid equal to the current highest is rejected: strictly greater only.
	mock.ExpectEval(bidLua, []string{"auction:reef:item1"}, "25", "buyer2").
		SetVal([]interface{}{int64(0), "too_low", "25", time.Now().UnixMilli()})

	_, err := service.PlaceBid(context.Background(), "reef", "item1", "buyer2", decimal.NewFromInt(25))

	var tooLow *status.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.True(t, tooLow.Current.Equal(decimal.NewFromInt(25)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBid_Expired(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	mock.ExpectEval(bidLua, []string{"auction:reef:item1"}, "40", "buyer1").
		SetVal([]interface{}{int64(0), "expired", "30", time.Now().UnixMilli()})

	_, err := service.PlaceBid(context.Background(), "reef", "item1", "buyer1", decimal.NewFromInt(40))

	assert.ErrorIs(t, err, status.ErrAuctionExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBid_NotActive(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	mock.ExpectEval(bidLua, []string{"auction:reef:item1"}, "40", "buyer1").
		SetVal([]interface{}{int64(0), "not_active", "30", int64(0)})

	_, err := service.PlaceBid(context.Background(), "reef", "item1", "buyer1", decimal.NewFromInt(40))

	assert.ErrorIs(t, err, status.ErrItemNotActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBid_ItemNotFound(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	mock.ExpectEval(bidLua, []string{"auction:reef:ghost"}, "10", "buyer1").
		SetVal([]interface{}{int64(0), "not_found", "0", int64(0)})

	_, err := service.PlaceBid(context.Background(), "reef", "ghost", "buyer1", decimal.NewFromInt(10))

	assert.ErrorIs(t, err, status.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceBid_NonPositiveAmount(t *testing.T) {
	service, _ := setupTestAuctionService()

	_, err := service.PlaceBid(context.Background(), "reef", "item1", "buyer1", decimal.Zero)

	var tooLow *status.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
}

func TestActivateItem_Success(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	endsAt := time.Now().Add(60 * time.Second).UnixMilli()

	expectLiveStream(mock, "reef", "seller1")
	mock.ExpectEval(activateLua,
		[]string{"stream:reef", "auction:reef:item1", "auction:active"},
		"item1", 60, "reef/item1").
		SetVal([]interface{}{int64(1), "ok", "item1", endsAt})
	mock.ExpectHGetAll("auction:reef:item1").SetVal(map[string]string{
		"name":           "Zoa colony",
		"status":         "active",
		"starting_price": "20",
		"duration_sec":   "60",
		"highest_bid":    "20",
		"highest_bidder": "",
		"ends_at_ms":     "1756700000000",
	})

	item, err := service.ActivateItem(context.Background(), "reef", "item1", 60, "seller1")

	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusActive, item.Status)
	assert.Equal(t, "Zoa colony", item.Name)
	require.NotNil(t, item.EndsAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateItem_AlreadyActive(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	expectLiveStream(mock, "reef", "seller1")
	mock.ExpectEval(activateLua,
		[]string{"stream:reef", "auction:reef:item2", "auction:active"},
		"item2", 30, "reef/item2").
		SetVal([]interface{}{int64(0), "already_active", "item1", int64(0)})

	_, err := service.ActivateItem(context.Background(), "reef", "item2", 30, "seller1")

	assert.ErrorIs(t, err, status.ErrAlreadyActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateItem_InvalidDuration(t *testing.T) {
	service, _ := setupTestAuctionService()

	_, err := service.ActivateItem(context.Background(), "reef", "item1", 45, "seller1")

	assert.ErrorIs(t, err, status.ErrInvalidDuration)
}

func TestActivateItem_WrongSeller(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	expectLiveStream(mock, "reef", "seller1")

	_, err := service.ActivateItem(context.Background(), "reef", "item1", 60, "intruder")

	assert.ErrorIs(t, err, status.ErrUnauthorized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateItem_PassedWithoutBids(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	expectLiveStream(mock, "reef", "seller1")
	mock.ExpectEval(settleLua,
		[]string{"stream:reef", "auction:reef:item1", "auction:active"},
		"item1", "reef/item1").
		SetVal([]interface{}{int64(1), "passed", "passed", "", "20", ""})

	result, err := service.DeactivateItem(context.Background(), "reef", "item1", "seller1")

	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusPassed, result.Status)
	assert.Empty(t, result.WinnerUID)
	assert.False(t, result.Already)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateItem_SecondCallSeesPriorOutcome(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	// The retry observes the claim the first caller already won. No second
	// order, no state change.
	expectLiveStream(mock, "reef", "seller1")
	mock.ExpectEval(settleLua,
		[]string{"stream:reef", "auction:reef:item1", "auction:active"},
		"item1", "reef/item1").
		SetVal([]interface{}{int64(0), "settled", "sold", "buyer7", "42", "order9"})

	result, err := service.DeactivateItem(context.Background(), "reef", "item1", "seller1")

	require.NoError(t, err)
	assert.True(t, result.Already)
	assert.Equal(t, models.ItemStatusSold, result.Status)
	assert.Equal(t, "buyer7", result.WinnerUID)
	assert.Equal(t, "order9", result.OrderID)
	assert.True(t, result.FinalBid.Equal(decimal.NewFromInt(42)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateItem_NotActive(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	expectLiveStream(mock, "reef", "seller1")
	mock.ExpectEval(settleLua,
		[]string{"stream:reef", "auction:reef:item1", "auction:active"},
		"item1", "reef/item1").
		SetVal([]interface{}{int64(0), "not_active", "queued", "", "0", ""})

	_, err := service.DeactivateItem(context.Background(), "reef", "item1", "seller1")

	assert.ErrorIs(t, err, status.ErrItemNotActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveQueueItem_Success(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	expectLiveStream(mock, "reef", "seller1")
	mock.ExpectEval(removeLua, []string{"auction:reef:item1"}).
		SetVal([]interface{}{int64(1), "ok"})

	err := service.RemoveQueueItem(context.Background(), "reef", "item1", "seller1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveQueueItem_NotFound(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	expectLiveStream(mock, "reef", "seller1")
	mock.ExpectEval(removeLua, []string{"auction:reef:ghost"}).
		SetVal([]interface{}{int64(0), "not_found"})

	err := service.RemoveQueueItem(context.Background(), "reef", "ghost", "seller1")

	assert.ErrorIs(t, err, status.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveItem_IdleChannel(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	mock.ExpectHGet("stream:reef", "current_item_id").SetVal("")

	_, err := service.GetActiveItem(context.Background(), "reef")

	assert.ErrorIs(t, err, status.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepExpired_SettlesElapsedItem(t *testing.T) {
	service, mock := setupTestAuctionService()
	defer mock.ClearExpect()

	past := time.Now().Add(-5 * time.Second).UnixMilli()
	future := time.Now().Add(time.Hour).UnixMilli()

	mock.ExpectSMembers("auction:active").SetVal([]string{"reef/old", "reef/fresh"})

	// Elapsed item goes through the same settlement claim.
	mock.ExpectHGet("auction:reef:old", "ends_at_ms").SetVal(formatMs(past))
	mock.ExpectEval(settleLua,
		[]string{"stream:reef", "auction:reef:old", "auction:active"},
		"old", "reef/old").
		SetVal([]interface{}{int64(1), "passed", "passed", "", "15", ""})

	// Still-running item is left alone.
	mock.ExpectHGet("auction:reef:fresh", "ends_at_ms").SetVal(formatMs(future))

	service.SweepExpired(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseReply_Malformed(t *testing.T) {
	ok, code, _ := parseReply("garbage")
	assert.False(t, ok)
	assert.Equal(t, "bad_reply", code)

	ok, code, _ = parseReply([]interface{}{int64(1)})
	assert.False(t, ok)
	assert.Equal(t, "bad_reply", code)
}

func TestSplitActiveMember(t *testing.T) {
	channel, itemID, ok := splitActiveMember("reef/item1")
	assert.True(t, ok)
	assert.Equal(t, "reef", channel)
	assert.Equal(t, "item1", itemID)

	// Channel names may themselves contain slashes; the item id never does.
	channel, itemID, ok = splitActiveMember("reef/tank/item1")
	assert.True(t, ok)
	assert.Equal(t, "reef/tank", channel)
	assert.Equal(t, "item1", itemID)

	_, _, ok = splitActiveMember("noslash")
	assert.False(t, ok)
}

func formatMs(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

var errSentinel = errors.New("sentinel")

func TestBidErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(status.ErrAuctionExpired, status.ErrItemNotActive))
	assert.False(t, errors.Is(status.ErrAlreadyActive, errSentinel))
}
