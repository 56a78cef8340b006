package oversight

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/internal/projects"
)

// Summary is the government dashboard view across both sides of the market.
type Summary struct {
	Projects       projects.Totals `json:"projects"`
	Accounts       int             `json:"accounts"`
	Compliant      int             `json:"compliant"`
	Warnings       int             `json:"warnings"`
	Deficits       int             `json:"deficits"`
	CreditsOwned   decimal.Decimal `json:"credits_owned"`
	TotalEmissions decimal.Decimal `json:"total_emissions"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// Service aggregates registry and ledger state for regulators.
type Service interface {
	Summary(ctx context.Context, actor auth.Principal) (*Summary, error)
	Recent(ctx context.Context, actor auth.Principal, limit int) ([]notifications.Event, error)
}

type service struct {
	registry projects.Registry
	ledger   compliance.Ledger
	feed     *notifications.Feed
	now      func() time.Time
}

func NewService(registry projects.Registry, ledger compliance.Ledger, feed *notifications.Feed) Service {
	return &service{
		registry: registry,
		ledger:   ledger,
		feed:     feed,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Summary(ctx context.Context, actor auth.Principal) (*Summary, error) {
	if err := auth.Require(actor, auth.RoleAdmin, auth.RoleGov); err != nil {
		return nil, err
	}

	var (
		totals  *projects.Totals
		reports []compliance.BalanceReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.registry.Totals(gctx, actor)
		return err
	})
	g.Go(func() error {
		var err error
		reports, err = s.ledger.Accounts(gctx, actor)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Projects:       *totals,
		Accounts:       len(reports),
		CreditsOwned:   decimal.Zero,
		TotalEmissions: decimal.Zero,
		GeneratedAt:    s.now(),
	}
	for _, r := range reports {
		summary.CreditsOwned = summary.CreditsOwned.Add(r.CreditsOwned)
		summary.TotalEmissions = summary.TotalEmissions.Add(r.TotalEmissions)
		switch r.Status {
		case compliance.StatusCompliant:
			summary.Compliant++
		case compliance.StatusWarning:
			summary.Warnings++
		case compliance.StatusDeficit:
			summary.Deficits++
		}
	}
	return summary, nil
}

// Recent returns the latest events, newest first.
func (s *service) Recent(_ context.Context, actor auth.Principal, limit int) ([]notifications.Event, error) {
	if err := auth.Require(actor, auth.RoleAdmin, auth.RoleGov); err != nil {
		return nil, err
	}
	return s.feed.Recent(limit), nil
}
