package projects

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/pkg/apperrors"
)

// Registry owns the collection of restoration projects.
type Registry interface {
	Register(ctx context.Context, actor auth.Principal, input RegisterInput) (*Project, error)
	ListPending(ctx context.Context, actor auth.Principal) ([]*Project, error)
	ListByStatus(ctx context.Context, actor auth.Principal, status string) ([]*Project, error)
	List(ctx context.Context, actor auth.Principal) ([]*Project, error)
	Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Project, error)
	History(ctx context.Context, actor auth.Principal, id uuid.UUID) ([]StatusChange, error)
	TotalAbsorbed(ctx context.Context, actor auth.Principal) (decimal.Decimal, error)
	VerifiedAbsorbed(ctx context.Context, actor auth.Principal) (decimal.Decimal, error)
	Totals(ctx context.Context, actor auth.Principal) (*Totals, error)
}

type registry struct {
	repo      Repository
	publisher notifications.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewRegistry(repo Repository, publisher notifications.Publisher, logger *zap.Logger) Registry {
	return &registry{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *registry) Register(ctx context.Context, actor auth.Principal, input RegisterInput) (*Project, error) {
	if err := auth.Require(actor, auth.RoleWetlands); err != nil {
		return nil, err
	}
	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	now := r.now()
	project := &Project{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Location:     strings.TrimSpace(input.Location),
		Hectares:     input.Hectares,
		Rate:         input.Rate,
		Period:       input.Period,
		Absorbed:     input.Hectares.Mul(input.Rate).Mul(input.Period),
		Status:       StatusAuditing,
		EvidenceLink: strings.TrimSpace(input.EvidenceLink),
		OwnerID:      actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	initial := &StatusChange{
		ID:        uuid.New(),
		ProjectID: project.ID,
		To:        StatusAuditing,
		ChangedBy: actor.UserID,
		ChangedAt: now,
	}

	if err := r.repo.Create(ctx, project, initial); err != nil {
		return nil, fmt.Errorf("failed to register project: %w", err)
	}

	r.logger.Info("Project registered",
		zap.String("project_id", project.ID.String()),
		zap.String("owner_id", project.OwnerID),
		zap.String("absorbed", project.Absorbed.String()))

	r.publish(ctx, notifications.NewEvent(notifications.EventProjectRegistered, project.ID.String(), actor.UserID,
		map[string]interface{}{
			"name":     project.Name,
			"absorbed": project.Absorbed.String(),
		}))

	return project, nil
}

func validateRegistration(input RegisterInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.Validation("name", "is required")
	}
	if !input.Hectares.IsPositive() {
		return apperrors.Validation("hectares", "must be greater than zero")
	}
	if !input.Rate.IsPositive() {
		return apperrors.Validation("rate", "must be greater than zero")
	}
	if !input.Period.IsPositive() {
		return apperrors.Validation("period", "must be greater than zero")
	}
	return validateEvidenceLink(input.EvidenceLink)
}

// validateEvidenceLink is a syntactic check only; the document is never fetched.
func validateEvidenceLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return apperrors.Validation("evidence_link", "is required")
	}
	u, err := url.ParseRequestURI(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperrors.Validation("evidence_link", "must be an absolute http(s) URI")
	}
	return nil
}

func (r *registry) ListPending(ctx context.Context, actor auth.Principal) ([]*Project, error) {
	if err := auth.Require(actor, auth.RoleAdmin, auth.RoleGov); err != nil {
		return nil, err
	}
	return r.repo.List(ctx, Filter{Statuses: []Status{StatusSeedling, StatusAuditing}})
}

func (r *registry) ListByStatus(ctx context.Context, actor auth.Principal, status string) ([]*Project, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	st, err := ParseStatus(status)
	if err != nil {
		return nil, apperrors.Validation("status", err.Error())
	}
	return r.repo.List(ctx, r.scope(actor, Filter{Statuses: []Status{st}}))
}

func (r *registry) List(ctx context.Context, actor auth.Principal) ([]*Project, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	return r.repo.List(ctx, r.scope(actor, Filter{}))
}

// scope restricts wetlands operators to their own submissions.
func (r *registry) scope(actor auth.Principal, f Filter) Filter {
	if actor.Role == auth.RoleWetlands {
		f.OwnerID = actor.UserID
	}
	return f
}

func (r *registry) Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Project, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	p, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleWetlands && p.OwnerID != actor.UserID {
		return nil, apperrors.NotFound("project", id.String())
	}
	return p, nil
}

func (r *registry) History(ctx context.Context, actor auth.Principal, id uuid.UUID) ([]StatusChange, error) {
	if _, err := r.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleIndustry {
		return nil, apperrors.Forbidden("audit logs are restricted to owners and reviewers")
	}
	return r.repo.History(ctx, id)
}

// TotalAbsorbed sums every project regardless of status, matching the dashboard aggregate.
func (r *registry) TotalAbsorbed(ctx context.Context, actor auth.Principal) (decimal.Decimal, error) {
	if err := requireAuthenticated(actor); err != nil {
		return decimal.Zero, err
	}
	all, err := r.repo.List(ctx, Filter{})
	if err != nil {
		return decimal.Zero, err
	}
	return SumAbsorbed(all), nil
}

func (r *registry) VerifiedAbsorbed(ctx context.Context, actor auth.Principal) (decimal.Decimal, error) {
	if err := requireAuthenticated(actor); err != nil {
		return decimal.Zero, err
	}
	verified, err := r.repo.List(ctx, Filter{Statuses: []Status{StatusVerified}})
	if err != nil {
		return decimal.Zero, err
	}
	return SumAbsorbed(verified), nil
}

func (r *registry) Totals(ctx context.Context, actor auth.Principal) (*Totals, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	all, err := r.repo.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	totals := &Totals{
		TotalAbsorbed:    decimal.Zero,
		VerifiedAbsorbed: decimal.Zero,
		Projects:         len(all),
	}
	for _, p := range all {
		totals.TotalAbsorbed = totals.TotalAbsorbed.Add(p.Absorbed)
		switch {
		case p.Status == StatusVerified:
			totals.VerifiedAbsorbed = totals.VerifiedAbsorbed.Add(p.Absorbed)
		case p.Status.Pending():
			totals.Pending++
		}
	}
	return totals, nil
}

func (r *registry) publish(ctx context.Context, event notifications.Event) {
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("Failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func requireAuthenticated(actor auth.Principal) error {
	return auth.Require(actor, auth.RoleIndustry, auth.RoleWetlands, auth.RoleAdmin, auth.RoleGov)
}
