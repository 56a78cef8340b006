package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/ledger"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/internal/projects"
	"carbon-connect/portal-backend/pkg/apperrors"
)

// Workflow holds the administrative actions that move projects through review
// and the mint requests that verification unlocks.
type Workflow interface {
	Approve(ctx context.Context, actor auth.Principal, projectID uuid.UUID) (*projects.Project, error)
	Reject(ctx context.Context, actor auth.Principal, projectID uuid.UUID, reason string) (*projects.Project, error)
	Promote(ctx context.Context, actor auth.Principal, projectID uuid.UUID) (*projects.Project, error)
	RequestMint(ctx context.Context, actor auth.Principal, projectID uuid.UUID, input MintInput) (*MintRecord, error)
	Mints(ctx context.Context, actor auth.Principal, projectID uuid.UUID) ([]MintRecord, error)
}

type workflow struct {
	projects  projects.Repository
	mints     MintStore
	ledger    ledger.Client
	publisher notifications.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewWorkflow(
	projectRepo projects.Repository,
	mints MintStore,
	ledgerClient ledger.Client,
	publisher notifications.Publisher,
	logger *zap.Logger,
) Workflow {
	return &workflow{
		projects:  projectRepo,
		mints:     mints,
		ledger:    ledgerClient,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// transition applies to -> target under the project lock. Repeating the current
// terminal status is a no-op; applied reports whether anything changed.
func (w *workflow) transition(ctx context.Context, actor auth.Principal, projectID uuid.UUID, target projects.Status, reason string) (p *projects.Project, applied bool, err error) {
	p, err = w.projects.Transition(ctx, projectID, func(p *projects.Project) (*projects.StatusChange, error) {
		if p.Status == target {
			return nil, nil
		}
		if err := projects.Transitions.Validate(string(p.Status), string(target)); err != nil {
			return nil, err
		}

		now := w.now()
		change := projects.NewStatusChange(p, target, reason, actor.UserID, now)
		p.Status = target
		p.ReviewedBy = actor.UserID
		p.ReviewedAt = &now
		p.UpdatedAt = now
		if target == projects.StatusRejected {
			p.RejectionReason = reason
		}
		applied = true
		return change, nil
	})
	return p, applied, err
}

func (w *workflow) Approve(ctx context.Context, actor auth.Principal, projectID uuid.UUID) (*projects.Project, error) {
	if err := auth.Require(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}

	p, applied, err := w.transition(ctx, actor, projectID, projects.StatusVerified, "")
	if err != nil {
		return nil, err
	}
	if applied {
		w.logger.Info("Project verified", zap.String("project_id", p.ID.String()), zap.String("reviewer", actor.UserID))
		w.publish(ctx, notifications.NewEvent(notifications.EventProjectVerified, p.ID.String(), actor.UserID,
			map[string]interface{}{"name": p.Name, "absorbed": p.Absorbed.String()}))
	}
	return p, nil
}

func (w *workflow) Reject(ctx context.Context, actor auth.Principal, projectID uuid.UUID, reason string) (*projects.Project, error) {
	if err := auth.Require(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("reason", "is required")
	}

	p, applied, err := w.transition(ctx, actor, projectID, projects.StatusRejected, reason)
	if err != nil {
		return nil, err
	}
	if applied {
		w.logger.Info("Project rejected",
			zap.String("project_id", p.ID.String()),
			zap.String("reviewer", actor.UserID),
			zap.String("reason", reason))
		w.publish(ctx, notifications.NewEvent(notifications.EventProjectRejected, p.ID.String(), actor.UserID,
			map[string]interface{}{"name": p.Name, "reason": reason}))
	}
	return p, nil
}

func (w *workflow) Promote(ctx context.Context, actor auth.Principal, projectID uuid.UUID) (*projects.Project, error) {
	if err := auth.Require(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}

	p, applied, err := w.transition(ctx, actor, projectID, projects.StatusAuditing, "")
	if err != nil {
		return nil, err
	}
	if applied {
		w.publish(ctx, notifications.NewEvent(notifications.EventProjectPromoted, p.ID.String(), actor.UserID, nil))
	}
	return p, nil
}

func (w *workflow) RequestMint(ctx context.Context, actor auth.Principal, projectID uuid.UUID, input MintInput) (*MintRecord, error) {
	if err := auth.Require(actor, auth.RoleWetlands); err != nil {
		return nil, err
	}
	wallet := strings.TrimSpace(input.WalletAddress)
	if wallet == "" {
		return nil, apperrors.Validation("wallet_address", "a connected wallet is required to mint")
	}
	if input.Amount.IsNegative() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}

	p, err := w.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != actor.UserID {
		return nil, apperrors.Forbidden("only the submitting operator may mint this project")
	}
	if p.Status != projects.StatusVerified {
		return nil, &apperrors.Error{
			Code:    apperrors.CodeInvalidTransition,
			Message: fmt.Sprintf("project is %s; only Verified projects can be minted", p.Status),
		}
	}

	rec := &MintRecord{
		ID:            uuid.New(),
		ProjectID:     p.ID,
		Amount:        input.Amount,
		WalletAddress: wallet,
		RequestedBy:   actor.UserID,
		RequestedAt:   w.now(),
	}
	if err := w.mints.Reserve(ctx, rec, p.Absorbed); err != nil {
		return nil, err
	}

	receipt, err := w.ledger.Mint(ctx, ledger.MintRequest{
		ProjectID:     p.ID,
		Amount:        rec.Amount,
		WalletAddress: wallet,
		Reference:     rec.ID.String(),
	})
	if err != nil {
		// Release the reservation on a fresh context; the caller's may be done.
		if _, ferr := w.mints.Fail(context.WithoutCancel(ctx), rec.ID, err.Error(), w.now()); ferr != nil {
			w.logger.Error("Failed to release mint reservation", zap.String("mint_id", rec.ID.String()), zap.Error(ferr))
		}
		w.logger.Warn("Ledger mint failed", zap.String("project_id", p.ID.String()), zap.Error(err))
		w.publish(ctx, notifications.NewEvent(notifications.EventMintFailed, p.ID.String(), actor.UserID,
			map[string]interface{}{"mint_id": rec.ID.String(), "amount": rec.Amount.String()}))
		return nil, apperrors.LedgerUnavailable(err)
	}

	payload, err := json.Marshal(receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger receipt: %w", err)
	}
	minted, err := w.mints.Complete(ctx, rec.ID, receipt.TransactionID, datatypes.JSON(payload), w.now())
	if err != nil {
		return nil, fmt.Errorf("failed to record mint %s: %w", rec.ID, err)
	}

	w.logger.Info("Credits minted",
		zap.String("project_id", p.ID.String()),
		zap.String("amount", minted.Amount.String()),
		zap.String("transaction_id", minted.TransactionID))
	w.publish(ctx, notifications.NewEvent(notifications.EventCreditsMinted, p.ID.String(), actor.UserID,
		map[string]interface{}{
			"mint_id":        minted.ID.String(),
			"amount":         minted.Amount.String(),
			"transaction_id": minted.TransactionID,
		}))
	return minted, nil
}

func (w *workflow) Mints(ctx context.Context, actor auth.Principal, projectID uuid.UUID) ([]MintRecord, error) {
	if err := auth.Require(actor, auth.RoleWetlands, auth.RoleAdmin, auth.RoleGov); err != nil {
		return nil, err
	}
	p, err := w.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleWetlands && p.OwnerID != actor.UserID {
		return nil, apperrors.NotFound("project", projectID.String())
	}
	return w.mints.ListByProject(ctx, projectID)
}

func (w *workflow) publish(ctx context.Context, event notifications.Event) {
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Warn("Failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
