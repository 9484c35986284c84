package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"livebid/internal/status"
	"livebid/models"

	"github.com/pocketbase/pocketbase/core"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

type StreamService struct {
	App      core.App
	Redis    *redis.Client
	pubnub   *pubnub.PubNub
	auctions *AuctionService
	presence *PresenceService
}

func NewStreamService(app core.App, redisClient *redis.Client, pn *pubnub.PubNub, auctions *AuctionService, presence *PresenceService) *StreamService {
	return &StreamService{
		App:      app,
		Redis:    redisClient,
		pubnub:   pn,
		auctions: auctions,
		presence: presence,
	}
}

// StartStream marks the channel live for the seller. Calling it again for
// the same (channel, seller) refreshes the session; a channel already live
// under someone else is refused.
func (s *StreamService) StartStream(ctx context.Context, channel, sellerUID, category, thumbnailURL string) (*models.Channel, error) {
	if !models.ValidCategory(category) {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	fields, err := s.Redis.HGetAll(ctx, streamKey(channel)).Result()
	if err != nil {
		return nil, err
	}
	if fields["status"] == models.ChannelStatusLive && fields["seller_uid"] != sellerUID {
		return nil, status.ErrUnauthorized
	}

	record, err := s.App.FindFirstRecordByFilter("channels", "channel = {:channel}", map[string]any{"channel": channel})
	if err != nil {
		collection, cerr := s.App.FindCollectionByNameOrId("channels")
		if cerr != nil {
			return nil, cerr
		}
		record = core.NewRecord(collection)
		record.Set("channel", channel)
	} else if record.GetString("seller_uid") != "" && record.GetString("seller_uid") != sellerUID && record.GetString("status") == models.ChannelStatusLive {
		return nil, status.ErrUnauthorized
	}

	now := time.Now()
	record.Set("seller_uid", sellerUID)
	record.Set("status", models.ChannelStatusLive)
	record.Set("current_item_id", "")
	record.Set("started_at", now)
	record.Set("ended_at", nil)
	if category != "" {
		record.Set("category", category)
	}
	if thumbnailURL != "" {
		record.Set("thumbnail_url", thumbnailURL)
	}
	if err := s.App.Save(record); err != nil {
		return nil, err
	}

	err = s.Redis.HSet(ctx, streamKey(channel), map[string]any{
		"seller_uid":      sellerUID,
		"status":          models.ChannelStatusLive,
		"current_item_id": "",
	}).Err()
	if err != nil {
		return nil, err
	}

	s.notify(channel, map[string]any{"type": "stream_started", "channel": channel})
	return channelFromRecord(record), nil
}

// EndStream closes the channel. A still-active item is settled first so
// ending a stream can never strand a running auction.
func (s *StreamService) EndStream(ctx context.Context, channel, sellerUID string) (*models.Channel, error) {
	fields, err := s.Redis.HGetAll(ctx, streamKey(channel)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 || fields["status"] != models.ChannelStatusLive {
		return nil, status.ErrNotFound
	}
	if fields["seller_uid"] != sellerUID {
		return nil, status.ErrUnauthorized
	}

	if itemID := fields["current_item_id"]; itemID != "" {
		if _, err := s.auctions.settle(ctx, channel, itemID); err != nil {
			log.Printf("end stream %s: settling item %s: %v", channel, itemID, err)
		}
	}

	err = s.Redis.HSet(ctx, streamKey(channel), map[string]any{
		"status":          models.ChannelStatusEnded,
		"current_item_id": "",
	}).Err()
	if err != nil {
		return nil, err
	}

	record, err := s.App.FindFirstRecordByFilter("channels", "channel = {:channel}", map[string]any{"channel": channel})
	if err != nil {
		return nil, status.ErrNotFound
	}
	record.Set("status", models.ChannelStatusEnded)
	record.Set("current_item_id", "")
	record.Set("ended_at", time.Now())
	if err := s.App.Save(record); err != nil {
		return nil, err
	}

	if s.presence != nil {
		s.presence.Clear(ctx, channel)
	}
	s.notify(channel, map[string]any{"type": "stream_ended", "channel": channel})
	return channelFromRecord(record), nil
}

// ListLiveStreams powers the explore page.
func (s *StreamService) ListLiveStreams(ctx context.Context, filter models.StreamFilter) ([]*models.Channel, error) {
	expr := "status = {:status}"
	params := map[string]any{"status": models.ChannelStatusLive}
	if filter.Category != "" {
		expr += " && category = {:category}"
		params["category"] = filter.Category
	}
	if filter.Featured {
		expr += " && featured = true"
	}

	sort := "-started_at"
	switch filter.SortBy {
	case "viewers":
		sort = "-viewer_count"
	case "rating":
		sort = "-rating"
	}

	records, err := s.App.FindRecordsByFilter("channels", expr, sort, 100, 0, params)
	if err != nil {
		return nil, err
	}

	channels := make([]*models.Channel, 0, len(records))
	for _, record := range records {
		ch := channelFromRecord(record)
		if s.presence != nil {
			if n, err := s.presence.Count(ctx, ch.Channel); err == nil {
				ch.ViewerCount = int(n)
			}
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// GetStream returns one channel with a live viewer count.
func (s *StreamService) GetStream(ctx context.Context, channel string) (*models.Channel, error) {
	record, err := s.App.FindFirstRecordByFilter("channels", "channel = {:channel}", map[string]any{"channel": channel})
	if err != nil {
		return nil, status.ErrNotFound
	}
	ch := channelFromRecord(record)
	if s.presence != nil {
		if n, err := s.presence.Count(ctx, channel); err == nil {
			ch.ViewerCount = int(n)
		}
	}
	return ch, nil
}

func (s *StreamService) notify(channel string, message map[string]any) {
	if s.pubnub == nil {
		return
	}
	s.pubnub.Publish().
		Channel(fmt.Sprintf("stream-%s", channel)).
		Message(message).
		Execute()
}

func channelFromRecord(record *core.Record) *models.Channel {
	ch := &models.Channel{
		ID:            record.Id,
		Channel:       record.GetString("channel"),
		SellerUID:     record.GetString("seller_uid"),
		Status:        record.GetString("status"),
		CurrentItemID: record.GetString("current_item_id"),
		Category:      record.GetString("category"),
		ThumbnailURL:  record.GetString("thumbnail_url"),
		Featured:      record.GetBool("featured"),
		ViewerCount:   record.GetInt("viewer_count"),
		Rating:        record.GetFloat("rating"),
		ReviewCount:   record.GetInt("review_count"),
		StartedAt:     record.GetDateTime("started_at").Time(),
	}
	if endedAt := record.GetDateTime("ended_at"); !endedAt.IsZero() {
		t := endedAt.Time()
		ch.EndedAt = &t
	}
	return ch
}
