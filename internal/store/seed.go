package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/projects"
	"carbon-connect/portal-backend/internal/verification"
)

var (
	// DemoWetlands owns the seeded projects.
	DemoWetlands = auth.Principal{UserID: "demo-wetlands", Role: auth.RoleWetlands, Name: "Sundarbans Restoration Trust"}
	// DemoIndustry owns the seeded compliance account.
	DemoIndustry = auth.Principal{UserID: "demo-industry", Role: auth.RoleIndustry, Name: "Tata Steel Plant"}
)

type demoProject struct {
	input   projects.RegisterInput
	approve bool
}

var demoProjects = []demoProject{
	{
		input: projects.RegisterInput{
			Name:         "Mangrove Alpha",
			Location:     "Sundarbans, West Bengal",
			Hectares:     decimal.NewFromInt(50),
			Rate:         decimal.NewFromInt(7),
			Period:       decimal.NewFromInt(1),
			EvidenceLink: "https://drive.google.com/file/d/mangrove-alpha",
		},
		approve: true,
	},
	{
		input: projects.RegisterInput{
			Name:         "Peatland Beta",
			Location:     "Loktak Lake, Manipur",
			Hectares:     decimal.NewFromInt(20),
			Rate:         decimal.RequireFromString("2.25"),
			Period:       decimal.NewFromInt(1),
			EvidenceLink: "https://drive.google.com/file/d/peatland-beta",
		},
	},
}

var demoLogs = []compliance.LogEmissionInput{
	{Date: "2023-10-24", Amount: decimal.RequireFromString("2.1")},
	{Date: "2023-10-25", Amount: decimal.RequireFromString("3.4")},
	{Date: "2023-10-26", Amount: decimal.RequireFromString("1.9")},
	{Date: "2023-10-27", Amount: decimal.RequireFromString("5.1")},
}

// SeedDemo loads the demonstration dataset through the services so every
// invariant and event applies. It does nothing when projects already exist.
func SeedDemo(
	ctx context.Context,
	registry projects.Registry,
	workflow verification.Workflow,
	ledger compliance.Ledger,
	logger *zap.Logger,
) error {
	existing, err := registry.List(ctx, auth.System)
	if err != nil {
		return fmt.Errorf("failed to check existing projects: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("Skipping demo seed, store is not empty", zap.Int("projects", len(existing)))
		return nil
	}

	for _, d := range demoProjects {
		p, err := registry.Register(ctx, DemoWetlands, d.input)
		if err != nil {
			return fmt.Errorf("failed to seed project %q: %w", d.input.Name, err)
		}
		if d.approve {
			if _, err := workflow.Approve(ctx, auth.System, p.ID); err != nil {
				return fmt.Errorf("failed to verify project %q: %w", d.input.Name, err)
			}
		}
	}

	quota := ledger.Policy().DefaultQuota
	if _, err := ledger.OpenAccount(ctx, auth.System, compliance.OpenAccountInput{
		AccountID: DemoIndustry.UserID,
		Name:      DemoIndustry.Name,
		Quota:     &quota,
	}); err != nil {
		return fmt.Errorf("failed to seed account: %w", err)
	}
	for _, l := range demoLogs {
		if _, err := ledger.LogEmission(ctx, DemoIndustry, DemoIndustry.UserID, l); err != nil {
			return fmt.Errorf("failed to seed emission log %s: %w", l.Date, err)
		}
	}

	logger.Info("Demo data seeded",
		zap.Int("projects", len(demoProjects)),
		zap.Int("emission_logs", len(demoLogs)))
	return nil
}
