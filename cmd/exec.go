package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"livebid/config"
	"livebid/handlers"
	"livebid/models"
	"livebid/monitoring"
	"livebid/payments"
	"livebid/security"
	"livebid/services"
	"livebid/utils"

	_ "livebid/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub for stream and user push
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	} else {
		log.Println("PubNub keys not configured, realtime push disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Payout provider is optional; the marketplace runs without it.
	var payoutProvider payments.PayoutProvider
	if cfg.Payout.BaseURL != "" {
		provider, err := payments.NewProvider(ctx, "connect", &cfg.Payout)
		if err != nil {
			return err
		}
		payoutProvider = provider
		defer payoutProvider.Close(context.Background())
	} else {
		log.Println("Payout provider not configured, onboarding disabled")
	}

	// Initialize services
	alertService := services.NewAlertService(app, pn)
	orderService := services.NewOrderService(app, alertService)
	presenceService := services.NewPresenceService(redisClient, cfg)
	auctionService := services.NewAuctionService(app, redisClient, pn, orderService, cfg)
	streamService := services.NewStreamService(app, redisClient, pn, auctionService, presenceService)
	chatService := services.NewChatService(app, pn)
	analyticsService := services.NewAnalyticsService(app)
	payoutService := services.NewPayoutService(app, payoutProvider, alertService)

	// Initialize handlers
	streamHandler := handlers.NewStreamHandler(app, streamService)
	auctionHandler := handlers.NewAuctionHandler(app, auctionService)
	orderHandler := handlers.NewOrderHandler(app, orderService)
	chatHandler := handlers.NewChatHandler(app, chatService, cfg)
	presenceHandler := handlers.NewPresenceHandler(app, presenceService)
	alertHandler := handlers.NewAlertHandler(app, alertService, analyticsService)
	payoutHandler := handlers.NewPayoutHandler(app, payoutService)

	rateLimiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go auctionService.StartSweeper(ctx)
	go presenceService.StartReaper(ctx)
	if payoutProvider != nil {
		go payoutService.Listen(ctx)
	}
	if cfg.EnableMetrics {
		go monitoring.NewMonitor(redisClient, cfg.CollectInterval).Run(ctx)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		syncLiveChannelsToRedis(app, redisClient)

		// Stream endpoints
		e.Router.POST("/api/streams/start", streamHandler.StartStream)
		e.Router.POST("/api/streams/end", streamHandler.EndStream)
		e.Router.GET("/api/streams", streamHandler.ListStreams)
		e.Router.GET("/api/streams/{channel}", streamHandler.GetStream)

		// Auction endpoints
		e.Router.POST("/api/channels/{channel}/items", auctionHandler.AddItem)
		e.Router.GET("/api/channels/{channel}/items", auctionHandler.ListItems)
		e.Router.GET("/api/channels/{channel}/items/active", auctionHandler.GetActiveItem)
		e.Router.DELETE("/api/channels/{channel}/items/{itemId}", auctionHandler.RemoveItem)
		e.Router.POST("/api/channels/{channel}/items/{itemId}/activate", auctionHandler.ActivateItem)
		e.Router.POST("/api/channels/{channel}/items/{itemId}/bid", auctionHandler.PlaceBid).
			BindFunc(rateLimiter.BidRateLimit(cfg.BidRateLimit, cfg.BidRateWindow))
		e.Router.POST("/api/channels/{channel}/items/{itemId}/close", auctionHandler.CloseItem)

		// Chat endpoints
		e.Router.GET("/api/channels/{channel}/messages", chatHandler.ListMessages)
		e.Router.POST("/api/channels/{channel}/messages", chatHandler.SendMessage)

		// Presence endpoints
		e.Router.POST("/api/channels/{channel}/presence/join", presenceHandler.Join)
		e.Router.POST("/api/channels/{channel}/presence/heartbeat", presenceHandler.Heartbeat)
		e.Router.POST("/api/channels/{channel}/presence/leave", presenceHandler.Leave)
		e.Router.GET("/api/channels/{channel}/presence/count", presenceHandler.Count)

		// Order endpoints
		e.Router.GET("/api/orders/selling", orderHandler.ListSelling)
		e.Router.GET("/api/orders/buying", orderHandler.ListBuying)
		e.Router.GET("/api/orders/{orderId}", orderHandler.GetOrder)
		e.Router.POST("/api/orders/{orderId}/transition", orderHandler.Transition)

		// Alerts and analytics
		e.Router.GET("/api/alerts", alertHandler.ListAlerts)
		e.Router.GET("/api/analytics/me", alertHandler.MyAnalytics)
		e.Router.GET("/api/analytics/leaderboard", alertHandler.Leaderboard)

		// Payout onboarding
		e.Router.POST("/api/payout/onboard", payoutHandler.Onboard)
		e.Router.GET("/api/payout/status", payoutHandler.Status)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// syncLiveChannelsToRedis rebuilds the channel hashes for every live stream
// after a restart, so sellers do not have to restart their streams when the
// server comes back.
func syncLiveChannelsToRedis(app *pocketbase.PocketBase, redisClient *redis.Client) {
	ctx := context.Background()

	records, err := app.FindRecordsByFilter(
		"channels",
		"status = {:status}",
		"",
		500,
		0,
		map[string]any{"status": models.ChannelStatusLive},
	)
	if err != nil {
		log.Printf("Error fetching live channels: %v", err)
		return
	}

	for _, record := range records {
		channel := record.GetString("channel")
		err := redisClient.HSet(ctx, "stream:"+channel, map[string]any{
			"seller_uid":      record.GetString("seller_uid"),
			"status":          models.ChannelStatusLive,
			"current_item_id": record.GetString("current_item_id"),
		}).Err()
		if err != nil {
			slog.Error("Failed to restore channel hash", "channel", channel, "error", err)
		}
	}

	if len(records) > 0 {
		log.Printf("Restored %d live channels to Redis", len(records))
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
