package compliance

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/notifications"
)

// SweepResult summarises one monitor run.
type SweepResult struct {
	Checked  int `json:"checked"`
	Warnings int `json:"warnings"`
	Deficits int `json:"deficits"`
}

// SweepObserver receives the counts of each finished sweep.
type SweepObserver interface {
	ObserveSweep(warnings, deficits int)
}

// Monitor periodically flags accounts that have slipped below the warning
// threshold or into deficit.
type Monitor struct {
	ledger    Ledger
	publisher notifications.Publisher
	logger    *zap.Logger
	cron      *cron.Cron
	observer  SweepObserver

	mu      sync.Mutex
	running bool
}

func NewMonitor(ledger Ledger, publisher notifications.Publisher, logger *zap.Logger) *Monitor {
	return &Monitor{
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Observe registers o to receive every sweep result. Call before Start.
func (m *Monitor) Observe(o SweepObserver) {
	m.observer = o
}

// Start schedules the sweep with a five-field cron expression.
func (m *Monitor) Start(schedule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("compliance monitor already running")
	}
	if _, err := m.cron.AddFunc(schedule, func() {
		if _, err := m.Sweep(context.Background()); err != nil {
			m.logger.Error("Compliance sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule compliance sweep: %w", err)
	}

	m.cron.Start()
	m.running = true
	m.logger.Info("Compliance monitor started", zap.String("schedule", schedule))
	return nil
}

// Stop waits for a running sweep to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	<-m.cron.Stop().Done()
	m.running = false
	m.logger.Info("Compliance monitor stopped")
}

// Sweep classifies every account and publishes an event for each one that is
// not compliant.
func (m *Monitor) Sweep(ctx context.Context) (*SweepResult, error) {
	reports, err := m.ledger.Accounts(ctx, auth.System)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	result := &SweepResult{Checked: len(reports)}
	for _, r := range reports {
		var eventType notifications.EventType
		switch r.Status {
		case StatusWarning:
			result.Warnings++
			eventType = notifications.EventComplianceWarning
		case StatusDeficit:
			result.Deficits++
			eventType = notifications.EventComplianceDeficit
		default:
			continue
		}

		event := notifications.NewEvent(eventType, r.AccountID, auth.System.UserID, map[string]interface{}{
			"remaining":       r.Remaining.String(),
			"credits_owned":   r.CreditsOwned.String(),
			"total_emissions": r.TotalEmissions.String(),
		})
		if err := m.publisher.Publish(ctx, event); err != nil {
			m.logger.Warn("Failed to publish compliance alert", zap.String("account_id", r.AccountID), zap.Error(err))
		}
	}

	if m.observer != nil {
		m.observer.ObserveSweep(result.Warnings, result.Deficits)
	}
	m.logger.Info("Compliance sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("warnings", result.Warnings),
		zap.Int("deficits", result.Deficits))
	return result, nil
}
