package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/config"
	"carbon-connect/portal-backend/internal/metrics"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/internal/store"
)

// The compliance worker runs the balance sweep outside the API process, for
// deployments that keep the API replicas free of scheduled work.
func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.Logging.Development {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	bus := notifications.NewBus(logger)
	bus.Subscribe("log", notifications.PublisherFunc(func(_ context.Context, e notifications.Event) error {
		logger.Info("Compliance alert", zap.String("event_type", string(e.Type)), zap.String("account_id", e.Subject))
		return nil
	}))
	if cfg.Events.SNSTopicARN != "" {
		sns, err := notifications.NewSNSPublisherFromEnv(ctx, cfg.Events.AWSRegion, cfg.Events.SNSTopicARN)
		if err != nil {
			logger.Fatal("Failed to configure SNS", zap.Error(err))
		}
		bus.Subscribe("sns", sns)
	}

	policy := compliance.Policy{
		WarningThreshold: cfg.Compliance.WarningThreshold,
		DailyAverage:     cfg.Compliance.DailyAverage,
		DefaultQuota:     cfg.Compliance.DefaultQuota,
	}
	ledger := compliance.NewLedger(st.Accounts, policy, bus, logger)
	monitor := compliance.NewMonitor(ledger, bus, logger)
	monitor.Observe(metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer))

	if *once {
		if _, err := monitor.Sweep(ctx); err != nil {
			logger.Fatal("Compliance sweep failed", zap.Error(err))
		}
		return
	}

	if cfg.Compliance.MonitorSchedule == "" {
		logger.Fatal("compliance.monitor_schedule is empty; use -once for a single sweep")
	}
	if err := monitor.Start(cfg.Compliance.MonitorSchedule); err != nil {
		logger.Fatal("Failed to start compliance monitor", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	monitor.Stop()
	logger.Info("Compliance worker stopped")
}
