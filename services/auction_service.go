package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"livebid/config"
	"livebid/internal/status"
	"livebid/models"
	"livebid/monitoring"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/core"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Redis owns the contested auction state. Every cross-participant race
// (activation, bidding, settlement) is resolved by a single Lua script so
// the read-modify-write happens inside the store, never in this process.
//
// Keys:
//
//	stream:<channel>            hash: seller_uid, status, current_item_id
//	auction:<channel>:<itemID>  hash: name, status, starting_price,
//	                            duration_sec, highest_bid, highest_bidder,
//	                            ends_at_ms, last_bid_at_ms, order_id
//	auction:active              set of "<channel>/<itemID>" for the sweeper
const (
	activeSetKey = "auction:active"
)

func streamKey(channel string) string {
	return fmt.Sprintf("stream:%s", channel)
}

func itemKey(channel, itemID string) string {
	return fmt.Sprintf("auction:%s:%s", channel, itemID)
}

// activateLua flips exactly one queued item to active. The channel's
// current_item_id is the compare-and-swap guard: a second activation on the
// same channel loses with already_active. endsAt is computed from the Redis
// server clock so every participant shares one authority.
//
// Reply: {ok, code, currentItemID, endsAtMs}
const activateLua = `
if redis.call('EXISTS', KEYS[2]) == 0 then
  return {0, 'not_found', '', 0}
end
local current = redis.call('HGET', KEYS[1], 'current_item_id')
if current and current ~= '' then
  return {0, 'already_active', current, 0}
end
local st = redis.call('HGET', KEYS[2], 'status')
if st ~= 'queued' then
  return {0, 'not_queued', st or '', 0}
end
local t = redis.call('TIME')
local now_ms = t[1] * 1000 + math.floor(t[2] / 1000)
local ends_at = now_ms + tonumber(ARGV[2]) * 1000
redis.call('HSET', KEYS[1], 'current_item_id', ARGV[1])
redis.call('HSET', KEYS[2], 'status', 'active', 'ends_at_ms', ends_at, 'duration_sec', ARGV[2])
redis.call('SADD', KEYS[3], ARGV[3])
return {1, 'ok', ARGV[1], ends_at}
`

// bidLua is the whole bid arbitration: status check, expiry check against
// the store clock, strict greater-than compare and the overwrite, atomically.
// Two racing bids above the old highest cannot both win; the loser re-reads
// a highest bid it must now exceed.
//
// Reply: {ok, code, currentHighest, nowMs}
const bidLua = `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {0, 'not_found', '0', 0}
end
local st = redis.call('HGET', KEYS[1], 'status')
local current = redis.call('HGET', KEYS[1], 'highest_bid') or '0'
if st ~= 'active' then
  return {0, 'not_active', current, 0}
end
local t = redis.call('TIME')
local now_ms = t[1] * 1000 + math.floor(t[2] / 1000)
local ends_at = tonumber(redis.call('HGET', KEYS[1], 'ends_at_ms') or '0')
if ends_at > 0 and now_ms >= ends_at then
  return {0, 'expired', current, now_ms}
end
local amount = tonumber(ARGV[1])
if amount == nil or amount <= tonumber(current) then
  return {0, 'too_low', current, now_ms}
end
redis.call('HSET', KEYS[1], 'highest_bid', ARGV[1], 'highest_bidder', ARGV[2], 'last_bid_at_ms', now_ms)
return {1, 'ok', current, now_ms}
`

// settleLua claims the settlement exactly once. Retried deactivations see
// code 'settled' and produce no second order. The channel pointer is cleared
// only if it still references this item.
//
// Reply: {ok, code, finalStatus, winner, finalBid, orderID}
const settleLua = `
if redis.call('EXISTS', KEYS[2]) == 0 then
  return {0, 'not_found', '', '', '0', ''}
end
local st = redis.call('HGET', KEYS[2], 'status')
if st == 'sold' or st == 'passed' then
  return {0, 'settled', st,
    redis.call('HGET', KEYS[2], 'highest_bidder') or '',
    redis.call('HGET', KEYS[2], 'highest_bid') or '0',
    redis.call('HGET', KEYS[2], 'order_id') or ''}
end
if st ~= 'active' then
  return {0, 'not_active', st or '', '', '0', ''}
end
local bidder = redis.call('HGET', KEYS[2], 'highest_bidder') or ''
local final = 'passed'
if bidder ~= '' then
  final = 'sold'
end
redis.call('HSET', KEYS[2], 'status', final)
if redis.call('HGET', KEYS[1], 'current_item_id') == ARGV[1] then
  redis.call('HSET', KEYS[1], 'current_item_id', '')
end
redis.call('SREM', KEYS[3], ARGV[2])
return {1, final, final, bidder, redis.call('HGET', KEYS[2], 'highest_bid') or '0', ''}
`

// removeLua deletes a queued, never-bid-on item.
//
// Reply: {ok, code}
const removeLua = `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {0, 'not_found'}
end
if redis.call('HGET', KEYS[1], 'status') ~= 'queued' then
  return {0, 'not_queued'}
end
local bidder = redis.call('HGET', KEYS[1], 'highest_bidder') or ''
if bidder ~= '' then
  return {0, 'has_bids'}
end
redis.call('DEL', KEYS[1])
return {1, 'ok'}
`

type AuctionService struct {
	App    core.App
	Redis  *redis.Client
	pubnub *pubnub.PubNub
	orders *OrderService
	Config *config.Config
}

func NewAuctionService(app core.App, redisClient *redis.Client, pn *pubnub.PubNub, orders *OrderService, cfg *config.Config) *AuctionService {
	return &AuctionService{
		App:    app,
		Redis:  redisClient,
		pubnub: pn,
		orders: orders,
		Config: cfg,
	}
}

// SettleResult is the outcome of a deactivation. Already is set when the
// item had been settled before this call.
type SettleResult struct {
	Status    string          `json:"status"`
	WinnerUID string          `json:"winner_uid,omitempty"`
	FinalBid  decimal.Decimal `json:"final_bid"`
	OrderID   string          `json:"order_id,omitempty"`
	Already   bool            `json:"already_settled"`
}

// AddQueueItem creates a queued lot on the seller's channel.
func (s *AuctionService) AddQueueItem(ctx context.Context, channel, sellerUID string, item *models.Item) (*models.Item, error) {
	if !item.StartingPrice.IsPositive() {
		return nil, fmt.Errorf("starting price must be positive")
	}
	if !s.Config.DurationAllowed(item.DurationSec) {
		return nil, status.ErrInvalidDuration
	}
	if !models.ValidCategory(item.Category) {
		return nil, fmt.Errorf("unknown category %q", item.Category)
	}

	if err := s.requireSeller(ctx, channel, sellerUID); err != nil {
		return nil, err
	}

	collection, err := s.App.FindCollectionByNameOrId("items")
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("channel", channel)
	record.Set("name", item.Name)
	record.Set("starting_price", item.StartingPrice.InexactFloat64())
	record.Set("duration_sec", item.DurationSec)
	record.Set("status", models.ItemStatusQueued)
	record.Set("highest_bid", item.StartingPrice.InexactFloat64())
	record.Set("highest_bidder", "")
	record.Set("image_url", item.ImageURL)
	record.Set("category", item.Category)
	if err := s.App.Save(record); err != nil {
		return nil, err
	}

	// Highest bid opens at the starting price with no bidder, so the first
	// accepted bid is always strictly above the asking price.
	err = s.Redis.HSet(ctx, itemKey(channel, record.Id), map[string]any{
		"name":           item.Name,
		"status":         models.ItemStatusQueued,
		"starting_price": item.StartingPrice.String(),
		"duration_sec":   item.DurationSec,
		"highest_bid":    item.StartingPrice.String(),
		"highest_bidder": "",
		"ends_at_ms":     0,
	}).Err()
	if err != nil {
		return nil, err
	}

	out := *item
	out.ID = record.Id
	out.Channel = channel
	out.Status = models.ItemStatusQueued
	out.HighestBid = item.StartingPrice
	out.CreatedAt = record.GetDateTime("created").Time()
	return &out, nil
}

// RemoveQueueItem deletes a queued item that never received a bid.
func (s *AuctionService) RemoveQueueItem(ctx context.Context, channel, itemID, sellerUID string) error {
	if err := s.requireSeller(ctx, channel, sellerUID); err != nil {
		return err
	}

	reply, err := s.Redis.Eval(ctx, removeLua, []string{itemKey(channel, itemID)}).Result()
	if err != nil {
		return err
	}
	ok, code, _ := parseReply(reply)
	if !ok {
		switch code {
		case "not_found":
			return status.ErrNotFound
		default:
			return status.ErrItemNotActive
		}
	}

	if s.App != nil {
		if record, err := s.App.FindRecordById("items", itemID); err == nil {
			if err := s.App.Delete(record); err != nil {
				log.Printf("failed to delete item record %s: %v", itemID, err)
			}
		}
	}
	return nil
}

// ActivateItem transitions one queued item to active and arms its expiry.
func (s *AuctionService) ActivateItem(ctx context.Context, channel, itemID string, durationSec int, sellerUID string) (*models.Item, error) {
	if !s.Config.DurationAllowed(durationSec) {
		return nil, status.ErrInvalidDuration
	}
	if err := s.requireSeller(ctx, channel, sellerUID); err != nil {
		return nil, err
	}

	keys := []string{streamKey(channel), itemKey(channel, itemID), activeSetKey}
	reply, err := s.Redis.Eval(ctx, activateLua, keys, itemID, durationSec, activeMember(channel, itemID)).Result()
	if err != nil {
		return nil, err
	}

	ok, code, rest := parseReply(reply)
	if !ok {
		switch code {
		case "not_found":
			return nil, status.ErrNotFound
		case "already_active":
			return nil, status.ErrAlreadyActive
		default: // not_queued
			return nil, status.ErrItemNotActive
		}
	}

	endsAt := time.UnixMilli(replyInt(rest, 1))
	s.mirrorItem(itemID, map[string]any{
		"status":       models.ItemStatusActive,
		"ends_at":      endsAt,
		"duration_sec": durationSec,
	})
	s.mirrorChannel(channel, map[string]any{"current_item_id": itemID})

	item, err := s.GetItem(ctx, channel, itemID)
	if err != nil {
		return nil, err
	}

	s.notifyStream(channel, map[string]any{
		"type":      "item_activated",
		"item_id":   itemID,
		"item_name": item.Name,
		"ends_at":   endsAt.UnixMilli(),
	})

	return item, nil
}

// PlaceBid runs bid arbitration. The persisted state at arbitration time is
// authoritative: the caller's view of the countdown is never consulted.
func (s *AuctionService) PlaceBid(ctx context.Context, channel, itemID, bidderUID string, amount decimal.Decimal) (*models.BidEvent, error) {
	if !amount.IsPositive() {
		return nil, &status.BidTooLowError{Current: decimal.Zero}
	}

	started := time.Now()
	reply, err := s.Redis.Eval(ctx, bidLua, []string{itemKey(channel, itemID)}, amount.String(), bidderUID).Result()
	monitoring.ObserveBidArbitration(time.Since(started))
	if err != nil {
		return nil, err
	}

	ok, code, rest := parseReply(reply)
	current := replyDecimal(rest, 0)
	if !ok {
		monitoring.TrackBid(channel, code)
		switch code {
		case "not_found":
			return nil, status.ErrNotFound
		case "not_active":
			return nil, status.ErrItemNotActive
		case "expired":
			return nil, status.ErrAuctionExpired
		default: // too_low
			return nil, &status.BidTooLowError{Current: current}
		}
	}
	monitoring.TrackBid(channel, "accepted")

	placedAt := time.UnixMilli(replyInt(rest, 1))
	event := &models.BidEvent{
		EventID:     uuid.New().String(),
		Channel:     channel,
		ItemID:      itemID,
		BidderUID:   bidderUID,
		Amount:      amount,
		PreviousBid: current,
		PlacedAt:    placedAt,
	}

	// Mirror and fan-out are advisory; arbitration already committed.
	s.mirrorItem(itemID, map[string]any{
		"highest_bid":    amount.InexactFloat64(),
		"highest_bidder": bidderUID,
		"last_bid_at":    placedAt,
	})
	s.notifyStream(channel, map[string]any{
		"type":         "bid_accepted",
		"event_id":     event.EventID,
		"item_id":      itemID,
		"bidder_uid":   bidderUID,
		"amount":       amount.String(),
		"previous_bid": current.String(),
	})

	return event, nil
}

// DeactivateItem ends the auction and settles it. Safe to retry: only the
// first caller wins the claim and creates the order.
func (s *AuctionService) DeactivateItem(ctx context.Context, channel, itemID, sellerUID string) (*SettleResult, error) {
	if err := s.requireSeller(ctx, channel, sellerUID); err != nil {
		return nil, err
	}
	return s.settle(ctx, channel, itemID)
}

func (s *AuctionService) settle(ctx context.Context, channel, itemID string) (*SettleResult, error) {
	keys := []string{streamKey(channel), itemKey(channel, itemID), activeSetKey}
	reply, err := s.Redis.Eval(ctx, settleLua, keys, itemID, activeMember(channel, itemID)).Result()
	if err != nil {
		return nil, err
	}

	ok, code, rest := parseReply(reply)
	if !ok {
		switch code {
		case "not_found":
			return nil, status.ErrNotFound
		case "settled":
			result := &SettleResult{
				Status:    replyString(rest, 0),
				WinnerUID: replyString(rest, 1),
				FinalBid:  replyDecimal(rest, 2),
				OrderID:   replyString(rest, 3),
				Already:   true,
			}
			// A prior settlement that crashed between the claim and the
			// order insert left a sold item without an order. Repair it.
			if result.Status == models.ItemStatusSold && result.OrderID == "" && result.WinnerUID != "" {
				if order, err := s.createSettlementOrder(ctx, channel, itemID, result.WinnerUID, result.FinalBid); err == nil {
					result.OrderID = order.ID
				}
			}
			return result, nil
		default:
			return nil, status.ErrItemNotActive
		}
	}

	result := &SettleResult{
		Status:    replyString(rest, 0),
		WinnerUID: replyString(rest, 1),
		FinalBid:  replyDecimal(rest, 2),
	}
	monitoring.TrackSettlement(channel, result.Status)

	if result.Status == models.ItemStatusSold {
		order, err := s.createSettlementOrder(ctx, channel, itemID, result.WinnerUID, result.FinalBid)
		if err != nil {
			// The claim is committed; the sweeper will retry the order.
			log.Printf("settlement order for item %s failed: %v", itemID, err)
		} else {
			result.OrderID = order.ID
		}
	}

	s.mirrorItem(itemID, map[string]any{
		"status":   result.Status,
		"order_id": result.OrderID,
	})
	s.mirrorChannel(channel, map[string]any{"current_item_id": ""})

	s.notifyStream(channel, map[string]any{
		"type":       "item_" + result.Status,
		"item_id":    itemID,
		"final_bid":  result.FinalBid.String(),
		"winner_uid": result.WinnerUID,
		"order_id":   result.OrderID,
	})

	return result, nil
}

func (s *AuctionService) createSettlementOrder(ctx context.Context, channel, itemID, winnerUID string, amount decimal.Decimal) (*models.Order, error) {
	sellerUID, err := s.Redis.HGet(ctx, streamKey(channel), "seller_uid").Result()
	if err != nil {
		return nil, err
	}
	itemName, _ := s.Redis.HGet(ctx, itemKey(channel, itemID), "name").Result()

	order, err := s.orders.CreateFromSettlement(ctx, &models.Order{
		ItemID:    itemID,
		ItemName:  itemName,
		Channel:   channel,
		SellerUID: sellerUID,
		BuyerUID:  winnerUID,
		Amount:    amount,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Redis.HSet(ctx, itemKey(channel, itemID), "order_id", order.ID).Err(); err != nil {
		log.Printf("failed to record order id on item %s: %v", itemID, err)
	}
	return order, nil
}

// GetItem reads the live item state from the Redis hash.
func (s *AuctionService) GetItem(ctx context.Context, channel, itemID string) (*models.Item, error) {
	fields, err := s.Redis.HGetAll(ctx, itemKey(channel, itemID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, status.ErrNotFound
	}
	return itemFromHash(channel, itemID, fields), nil
}

// GetActiveItem resolves the channel's current item, or NotFound when idle.
func (s *AuctionService) GetActiveItem(ctx context.Context, channel string) (*models.Item, error) {
	itemID, err := s.Redis.HGet(ctx, streamKey(channel), "current_item_id").Result()
	if err == redis.Nil || itemID == "" {
		return nil, status.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, channel, itemID)
}

// ListQueue returns the channel's queued and settled lots in creation order
// from the durable store.
func (s *AuctionService) ListQueue(ctx context.Context, channel string) ([]*models.Item, error) {
	records, err := s.App.FindRecordsByFilter(
		"items",
		"channel = {:channel}",
		"created",
		200,
		0,
		map[string]any{"channel": channel},
	)
	if err != nil {
		return nil, err
	}

	items := make([]*models.Item, 0, len(records))
	for _, record := range records {
		// Live fields come from Redis while the lot is still racing.
		if item, err := s.GetItem(ctx, channel, record.Id); err == nil {
			items = append(items, item)
			continue
		}
		items = append(items, itemFromRecord(record))
	}
	return items, nil
}

// SweepExpired settles every active item whose window has elapsed. Covers
// seller consoles that vanished without deactivating.
func (s *AuctionService) SweepExpired(ctx context.Context) {
	members, err := s.Redis.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		log.Printf("sweep: reading active set: %v", err)
		return
	}

	for _, member := range members {
		channel, itemID, ok := splitActiveMember(member)
		if !ok {
			s.Redis.SRem(ctx, activeSetKey, member)
			continue
		}

		endsAtMs, err := s.Redis.HGet(ctx, itemKey(channel, itemID), "ends_at_ms").Int64()
		if err != nil {
			if err == redis.Nil {
				s.Redis.SRem(ctx, activeSetKey, member)
			}
			continue
		}
		if endsAtMs == 0 || time.Now().UnixMilli() < endsAtMs {
			continue
		}

		if result, err := s.settle(ctx, channel, itemID); err != nil {
			log.Printf("sweep: settling %s: %v", member, err)
		} else if !result.Already {
			log.Printf("sweep: settled expired item %s as %s", member, result.Status)
		}
	}
}

// StartSweeper runs SweepExpired on a fixed cadence until ctx is cancelled.
func (s *AuctionService) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.Config.SweepInterval)
	defer ticker.Stop()

	log.Println("Auction sweeper started")
	for {
		select {
		case <-ticker.C:
			s.SweepExpired(ctx)
		case <-ctx.Done():
			log.Println("Auction sweeper stopping")
			return
		}
	}
}

func (s *AuctionService) requireSeller(ctx context.Context, channel, sellerUID string) error {
	fields, err := s.Redis.HGetAll(ctx, streamKey(channel)).Result()
	if err != nil {
		return err
	}
	if len(fields) == 0 || fields["status"] != models.ChannelStatusLive {
		return status.ErrNotFound
	}
	if fields["seller_uid"] != sellerUID {
		return status.ErrUnauthorized
	}
	return nil
}

// mirrorItem copies committed auction state onto the durable item record.
func (s *AuctionService) mirrorItem(itemID string, fields map[string]any) {
	if s.App == nil {
		return
	}
	record, err := s.App.FindRecordById("items", itemID)
	if err != nil {
		log.Printf("mirror: item record %s: %v", itemID, err)
		return
	}
	for k, v := range fields {
		record.Set(k, v)
	}
	if err := s.App.Save(record); err != nil {
		log.Printf("mirror: saving item record %s: %v", itemID, err)
	}
}

func (s *AuctionService) mirrorChannel(channel string, fields map[string]any) {
	if s.App == nil {
		return
	}
	record, err := s.App.FindFirstRecordByFilter("channels", "channel = {:channel}", map[string]any{"channel": channel})
	if err != nil {
		log.Printf("mirror: channel record %s: %v", channel, err)
		return
	}
	for k, v := range fields {
		record.Set(k, v)
	}
	if err := s.App.Save(record); err != nil {
		log.Printf("mirror: saving channel record %s: %v", channel, err)
	}
}

func (s *AuctionService) notifyStream(channel string, message map[string]any) {
	if s.pubnub == nil {
		return
	}
	s.pubnub.Publish().
		Channel(fmt.Sprintf("stream-%s", channel)).
		Message(message).
		Execute()
}

func activeMember(channel, itemID string) string {
	return channel + "/" + itemID
}

func splitActiveMember(member string) (channel, itemID string, ok bool) {
	for i := len(member) - 1; i >= 0; i-- {
		if member[i] == '/' {
			return member[:i], member[i+1:], true
		}
	}
	return "", "", false
}

// parseReply unpacks the {ok, code, rest...} convention shared by the Lua
// scripts above.
func parseReply(reply any) (ok bool, code string, rest []any) {
	values, isSlice := reply.([]any)
	if !isSlice || len(values) < 2 {
		return false, "bad_reply", nil
	}
	okInt, _ := values[0].(int64)
	code, _ = values[1].(string)
	return okInt == 1, code, values[2:]
}

func replyString(rest []any, i int) string {
	if i >= len(rest) {
		return ""
	}
	s, _ := rest[i].(string)
	return s
}

func replyInt(rest []any, i int) int64 {
	if i >= len(rest) {
		return 0
	}
	switch v := rest[i].(type) {
	case int64:
		return v
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func replyDecimal(rest []any, i int) decimal.Decimal {
	if i >= len(rest) {
		return decimal.Zero
	}
	switch v := rest[i].(type) {
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case int64:
		return decimal.NewFromInt(v)
	}
	return decimal.Zero
}

func itemFromHash(channel, itemID string, fields map[string]string) *models.Item {
	item := &models.Item{
		ID:            itemID,
		Channel:       channel,
		Name:          fields["name"],
		Status:        fields["status"],
		HighestBidder: fields["highest_bidder"],
		OrderID:       fields["order_id"],
	}
	if d, err := decimal.NewFromString(fields["starting_price"]); err == nil {
		item.StartingPrice = d
	}
	if d, err := decimal.NewFromString(fields["highest_bid"]); err == nil {
		item.HighestBid = d
	}
	if n, err := strconv.Atoi(fields["duration_sec"]); err == nil {
		item.DurationSec = n
	}
	if ms, err := strconv.ParseInt(fields["ends_at_ms"], 10, 64); err == nil && ms > 0 {
		t := time.UnixMilli(ms)
		item.EndsAt = &t
	}
	if ms, err := strconv.ParseInt(fields["last_bid_at_ms"], 10, 64); err == nil && ms > 0 {
		t := time.UnixMilli(ms)
		item.LastBidAt = &t
	}
	return item
}

func itemFromRecord(record *core.Record) *models.Item {
	item := &models.Item{
		ID:            record.Id,
		Channel:       record.GetString("channel"),
		Name:          record.GetString("name"),
		StartingPrice: decimal.NewFromFloat(record.GetFloat("starting_price")),
		DurationSec:   record.GetInt("duration_sec"),
		Status:        record.GetString("status"),
		HighestBid:    decimal.NewFromFloat(record.GetFloat("highest_bid")),
		HighestBidder: record.GetString("highest_bidder"),
		OrderID:       record.GetString("order_id"),
		ImageURL:      record.GetString("image_url"),
		Category:      record.GetString("category"),
		CreatedAt:     record.GetDateTime("created").Time(),
	}
	if endsAt := record.GetDateTime("ends_at"); !endsAt.IsZero() {
		t := endsAt.Time()
		item.EndsAt = &t
	}
	if lastBid := record.GetDateTime("last_bid_at"); !lastBid.IsZero() {
		t := lastBid.Time()
		item.LastBidAt = &t
	}
	return item
}
