package monitoring

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	bidsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Bid arbitration outcomes",
		},
		[]string{"channel", "result"},
	)

	activeAuctions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_active_items_total",
			Help: "Items currently in the active state across all channels",
		},
	)

	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_settlements_total",
			Help: "Item settlements by terminal state",
		},
		[]string{"channel", "status"},
	)

	viewerCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stream_viewers_total",
			Help: "Live viewer presence per channel",
		},
		[]string{"channel"},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order lifecycle transitions",
		},
		[]string{"to", "result"},
	)

	bidArbitrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auction_bid_arbitration_seconds",
			Help:    "Wall time of the bid arbitration round trip",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

const (
	activeSetKey      = "auction:active"
	presenceKeyPrefix = "presence:"
)

type Monitor struct {
	redis    *redis.Client
	interval time.Duration
}

func NewMonitor(redisClient *redis.Client, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{redis: redisClient, interval: interval}
}

// Run collects gauge metrics until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.collect(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) collect(ctx context.Context) {
	if count, err := m.redis.SCard(ctx, activeSetKey).Result(); err == nil {
		activeAuctions.Set(float64(count))
	}

	keys, err := m.redis.Keys(ctx, presenceKeyPrefix+"*").Result()
	if err != nil {
		return
	}
	for _, key := range keys {
		channel := strings.TrimPrefix(key, presenceKeyPrefix)
		count, err := m.redis.ZCard(ctx, key).Result()
		if err != nil {
			continue
		}
		viewerCount.WithLabelValues(channel).Set(float64(count))
	}
}

func TrackBid(channel, result string) {
	bidsTotal.WithLabelValues(channel, result).Inc()
}

func TrackSettlement(channel, status string) {
	settlementsTotal.WithLabelValues(channel, status).Inc()
}

func TrackOrderTransition(to, result string) {
	orderTransitions.WithLabelValues(to, result).Inc()
}

func ObserveBidArbitration(d time.Duration) {
	bidArbitrationDuration.Observe(d.Seconds())
}
