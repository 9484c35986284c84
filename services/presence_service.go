package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"livebid/config"

	"github.com/redis/go-redis/v9"
)

// PresenceService tracks viewers per channel in a Redis zset keyed by uid
// and scored by last heartbeat. Counting trusts only members whose heartbeat
// is inside the liveness window, so a crashed client that never sent leave
// drops out of the count on its own and the reaper removes it later.
type PresenceService struct {
	Redis  *redis.Client
	Config *config.Config
	now    func() time.Time
}

func NewPresenceService(redisClient *redis.Client, cfg *config.Config) *PresenceService {
	return &PresenceService{Redis: redisClient, Config: cfg, now: time.Now}
}

func presenceKey(channel string) string {
	return fmt.Sprintf("presence:%s", channel)
}

// Join registers the viewer. Re-joining just refreshes the heartbeat.
func (s *PresenceService) Join(ctx context.Context, channel, viewerUID string) error {
	return s.Heartbeat(ctx, channel, viewerUID)
}

// Heartbeat refreshes the viewer's last-seen score.
func (s *PresenceService) Heartbeat(ctx context.Context, channel, viewerUID string) error {
	return s.Redis.ZAdd(ctx, presenceKey(channel), redis.Z{
		Score:  float64(s.now().Unix()),
		Member: viewerUID,
	}).Err()
}

// Leave removes the viewer immediately.
func (s *PresenceService) Leave(ctx context.Context, channel, viewerUID string) error {
	return s.Redis.ZRem(ctx, presenceKey(channel), viewerUID).Err()
}

// Count returns viewers with a heartbeat inside the liveness window.
func (s *PresenceService) Count(ctx context.Context, channel string) (int64, error) {
	cutoff := s.now().Add(-s.Config.PresenceTTL).Unix()
	return s.Redis.ZCount(ctx, presenceKey(channel), strconv.FormatInt(cutoff, 10), "+inf").Result()
}

// Clear drops all presence for a channel, used when a stream ends.
func (s *PresenceService) Clear(ctx context.Context, channel string) error {
	return s.Redis.Del(ctx, presenceKey(channel)).Err()
}

// Reap prunes members whose heartbeat fell out of the window across every
// channel's presence set.
func (s *PresenceService) Reap(ctx context.Context) {
	cutoff := strconv.FormatInt(s.now().Add(-s.Config.PresenceTTL).Unix(), 10)

	var cursor uint64
	for {
		keys, next, err := s.Redis.Scan(ctx, cursor, "presence:*", 100).Result()
		if err != nil {
			log.Printf("presence reaper: scan: %v", err)
			return
		}
		for _, key := range keys {
			if removed, err := s.Redis.ZRemRangeByScore(ctx, key, "-inf", "("+cutoff).Result(); err != nil {
				log.Printf("presence reaper: %s: %v", key, err)
			} else if removed > 0 {
				log.Printf("presence reaper: pruned %d stale viewers from %s", removed, key)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// StartReaper runs Reap on a fixed cadence until ctx is cancelled.
func (s *PresenceService) StartReaper(ctx context.Context) {
	ticker := time.NewTicker(s.Config.PresenceReapInterval)
	defer ticker.Stop()

	log.Println("Presence reaper started")
	for {
		select {
		case <-ticker.C:
			s.Reap(ctx)
		case <-ctx.Done():
			log.Println("Presence reaper stopping")
			return
		}
	}
}
