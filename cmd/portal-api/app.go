package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/config"
	"carbon-connect/portal-backend/internal/ledger"
	"carbon-connect/portal-backend/internal/market"
	"carbon-connect/portal-backend/internal/metrics"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/internal/notifications/websocket"
	"carbon-connect/portal-backend/internal/oversight"
	"carbon-connect/portal-backend/internal/projects"
	"carbon-connect/portal-backend/internal/reports"
	"carbon-connect/portal-backend/internal/store"
	"carbon-connect/portal-backend/internal/verification"
)

// app is the wired process: store, services, background jobs and router.
type app struct {
	router  *gin.Engine
	store   *store.Store
	monitor *compliance.Monitor
	stream  *websocket.Manager
	logger  *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*app, error) {
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	// Event fan-out
	m := metrics.New(reg, gatherer)
	feed := notifications.NewFeed(cfg.Events.FeedSize)
	stream := websocket.NewManager(logger, func(*http.Request) bool { return true })
	bus := notifications.NewBus(logger)
	bus.Subscribe("feed", feed)
	bus.Subscribe("websocket", stream)
	bus.Subscribe("metrics", m)
	if cfg.Events.SNSTopicARN != "" {
		sns, err := notifications.NewSNSPublisherFromEnv(ctx, cfg.Events.AWSRegion, cfg.Events.SNSTopicARN)
		if err != nil {
			stream.Close()
			st.Close()
			return nil, err
		}
		bus.Subscribe("sns", sns)
		logger.Info("Forwarding events to SNS", zap.String("topic_arn", cfg.Events.SNSTopicARN))
	}

	// Services
	ledgerClient := ledger.NewSimulatedClient(cfg.Ledger.Network)
	ledgerClient.SetOutage(cfg.Ledger.SimulateOutage)

	policy := compliance.Policy{
		WarningThreshold: cfg.Compliance.WarningThreshold,
		DailyAverage:     cfg.Compliance.DailyAverage,
		DefaultQuota:     cfg.Compliance.DefaultQuota,
	}
	registry := projects.NewRegistry(st.Projects, bus, logger)
	workflow := verification.NewWorkflow(st.Projects, st.Mints, ledgerClient, bus, logger)
	accounts := compliance.NewLedger(st.Accounts, policy, bus, logger)
	monitor := compliance.NewMonitor(accounts, bus, logger)
	monitor.Observe(m)
	mkt := market.NewMarket(
		market.NewCatalog(cfg.Market),
		market.NewHMACVerifier(cfg.Security.PaymentWebhookSecret),
		st.Accounts,
		policy,
		bus,
		logger,
	)

	if cfg.Seed.Demo {
		if err := store.SeedDemo(ctx, registry, workflow, accounts, logger); err != nil {
			stream.Close()
			st.Close()
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	// Router
	router := gin.New()
	router.Use(gin.Recovery(), m.Middleware(), cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"driver":    st.Driver,
			"timestamp": time.Now(),
		})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	marketHandler := market.NewHandler(mkt, logger)
	marketHandler.RegisterWebhook(router.Group("/api/v1"))

	api := router.Group("/api/v1")
	api.Use(auth.Middleware([]byte(cfg.Security.JWTSecret), logger))
	{
		auth.NewHandler().RegisterRoutes(api)
		projects.NewHandler(registry, logger).RegisterRoutes(api)
		verification.NewHandler(workflow, logger).RegisterRoutes(api)
		compliance.NewHandler(accounts, monitor, logger).RegisterRoutes(api)
		marketHandler.RegisterRoutes(api)
		reports.NewHandler(reports.NewService(accounts, logger), logger).RegisterRoutes(api)
		oversight.NewHandler(oversight.NewService(registry, accounts, feed), stream, logger).RegisterRoutes(api)
	}

	return &app{
		router:  router,
		store:   st,
		monitor: monitor,
		stream:  stream,
		logger:  logger,
	}, nil
}

// start launches background jobs. An empty schedule leaves the sweep manual.
func (a *app) start(schedule string) error {
	if schedule == "" {
		a.logger.Info("Compliance monitor schedule empty, sweeps are manual")
		return nil
	}
	return a.monitor.Start(schedule)
}

func (a *app) close() {
	a.monitor.Stop()
	a.stream.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close store", zap.Error(err))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
