package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/config"
	"carbon-connect/portal-backend/internal/ledger"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/internal/projects"
	"carbon-connect/portal-backend/internal/verification"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(context.Background(), config.DatabaseConfig{Driver: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Driver)
	assert.NotNil(t, s.Projects)
	assert.NotNil(t, s.Mints)
	assert.NotNil(t, s.Accounts)
	assert.NoError(t, s.Close())
}

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.DatabaseConfig{Driver: "memory"}, zap.NewNop())
	require.NoError(t, err)

	logger := zap.NewNop()
	policy := compliance.Policy{
		WarningThreshold: decimal.NewFromInt(10),
		DailyAverage:     decimal.RequireFromString("2.5"),
		DefaultQuota:     decimal.NewFromInt(50),
	}
	registry := projects.NewRegistry(s.Projects, notifications.Nop, logger)
	workflow := verification.NewWorkflow(s.Projects, s.Mints, ledger.NewSimulatedClient("testnet"), notifications.Nop, logger)
	accounts := compliance.NewLedger(s.Accounts, policy, notifications.Nop, logger)

	require.NoError(t, SeedDemo(ctx, registry, workflow, accounts, logger))
	require.NoError(t, SeedDemo(ctx, registry, workflow, accounts, logger))

	totals, err := registry.Totals(ctx, auth.System)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Projects)
	assert.Equal(t, 1, totals.Pending)
	assert.True(t, totals.VerifiedAbsorbed.Equal(decimal.NewFromInt(350)))
	assert.True(t, totals.TotalAbsorbed.Equal(decimal.NewFromInt(395)))

	report, err := accounts.Balance(ctx, DemoIndustry, DemoIndustry.UserID)
	require.NoError(t, err)
	assert.True(t, report.TotalEmissions.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, report.Remaining.Equal(decimal.RequireFromString("37.5")))
	assert.Equal(t, compliance.StatusCompliant, report.Status)
}
