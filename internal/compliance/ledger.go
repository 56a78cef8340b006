package compliance

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/pkg/apperrors"
)

// Ledger tracks each emitter's quota against its logged emissions.
type Ledger interface {
	OpenAccount(ctx context.Context, actor auth.Principal, input OpenAccountInput) (*Account, error)
	Allocate(ctx context.Context, actor auth.Principal, accountID string, amount decimal.Decimal) (*Account, error)
	LogEmission(ctx context.Context, actor auth.Principal, accountID string, input LogEmissionInput) (*Account, error)
	Balance(ctx context.Context, actor auth.Principal, accountID string) (*BalanceReport, error)
	Logs(ctx context.Context, actor auth.Principal, accountID string) ([]LogEntry, error)
	Purchases(ctx context.Context, actor auth.Principal, accountID string) ([]Purchase, error)
	Statement(ctx context.Context, actor auth.Principal, accountID string) (*Statement, error)
	Accounts(ctx context.Context, actor auth.Principal) ([]BalanceReport, error)
	Policy() Policy
}

type ledger struct {
	store     Store
	policy    Policy
	publisher notifications.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewLedger(store Store, policy Policy, publisher notifications.Publisher, logger *zap.Logger) Ledger {
	return &ledger{
		store:     store,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (l *ledger) Policy() Policy {
	return l.policy
}

func (l *ledger) OpenAccount(ctx context.Context, actor auth.Principal, input OpenAccountInput) (*Account, error) {
	if err := auth.Require(actor, auth.RoleIndustry, auth.RoleAdmin); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(input.AccountID)
	quota := l.policy.DefaultQuota
	switch actor.Role {
	case auth.RoleIndustry:
		if id != "" && id != actor.UserID {
			return nil, apperrors.Forbidden("industry users may only open their own account")
		}
		if input.Quota != nil {
			return nil, apperrors.Validation("quota", "is allocated by an administrator")
		}
		id = actor.UserID
	case auth.RoleAdmin:
		if id == "" {
			return nil, apperrors.Validation("account_id", "is required")
		}
		if input.Quota != nil {
			if input.Quota.IsNegative() {
				return nil, apperrors.Validation("quota", "must not be negative")
			}
			quota = *input.Quota
		}
	}

	name := strings.TrimSpace(input.Name)
	if name == "" && actor.Role == auth.RoleIndustry {
		name = actor.Name
	}

	now := l.now()
	account := &Account{
		ID:             id,
		Name:           name,
		CreditsOwned:   quota,
		TotalEmissions: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := l.store.Create(ctx, account); err != nil {
		return nil, err
	}

	l.logger.Info("Compliance account opened", zap.String("account_id", id), zap.String("quota", quota.String()))
	l.publish(ctx, notifications.NewEvent(notifications.EventAccountOpened, id, actor.UserID,
		map[string]interface{}{"quota": quota.String()}))
	return account, nil
}

func (l *ledger) Allocate(ctx context.Context, actor auth.Principal, accountID string, amount decimal.Decimal) (*Account, error) {
	if err := auth.Require(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}

	account, err := l.store.AddCredits(ctx, accountID, amount, l.now())
	if err != nil {
		return nil, err
	}

	l.publish(ctx, notifications.NewEvent(notifications.EventQuotaAllocated, accountID, actor.UserID,
		map[string]interface{}{"amount": amount.String(), "credits_owned": account.CreditsOwned.String()}))
	return account, nil
}

func (l *ledger) LogEmission(ctx context.Context, actor auth.Principal, accountID string, input LogEmissionInput) (*Account, error) {
	if err := auth.Require(actor, auth.RoleIndustry); err != nil {
		return nil, err
	}
	if actor.UserID != accountID {
		return nil, apperrors.Forbidden("emissions may only be logged against your own account")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}

	now := l.now()
	date := strings.TrimSpace(input.Date)
	if date == "" {
		date = now.Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, apperrors.Validation("date", "must be a calendar date in YYYY-MM-DD form")
	}

	account, err := l.store.AppendLog(ctx, accountID, DailyLog{
		Date:     date,
		Amount:   input.Amount,
		LoggedBy: actor.UserID,
		LoggedAt: now,
	})
	if err != nil {
		return nil, err
	}

	report := l.policy.Report(account)
	l.logger.Debug("Emission logged",
		zap.String("account_id", accountID),
		zap.String("amount", input.Amount.String()),
		zap.String("remaining", report.Remaining.String()))
	l.publish(ctx, notifications.NewEvent(notifications.EventEmissionLogged, accountID, actor.UserID,
		map[string]interface{}{
			"date":          date,
			"amount":        input.Amount.String(),
			"above_average": l.policy.AboveAverage(input.Amount),
			"status":        string(report.Status),
		}))
	return account, nil
}

// authorizeRead lets the owner, administrators and government observers read an account.
func authorizeRead(actor auth.Principal, accountID string) error {
	if err := auth.Require(actor, auth.RoleIndustry, auth.RoleAdmin, auth.RoleGov); err != nil {
		return err
	}
	if actor.Role == auth.RoleIndustry && actor.UserID != accountID {
		return apperrors.Forbidden("industry users may only view their own account")
	}
	return nil
}

func (l *ledger) Balance(ctx context.Context, actor auth.Principal, accountID string) (*BalanceReport, error) {
	if err := authorizeRead(actor, accountID); err != nil {
		return nil, err
	}
	account, err := l.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	report := l.policy.Report(account)
	return &report, nil
}

func (l *ledger) Logs(ctx context.Context, actor auth.Principal, accountID string) ([]LogEntry, error) {
	if err := authorizeRead(actor, accountID); err != nil {
		return nil, err
	}
	account, err := l.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return l.entries(account), nil
}

func (l *ledger) entries(account *Account) []LogEntry {
	out := make([]LogEntry, len(account.DailyLogs))
	for i, log := range account.DailyLogs {
		out[i] = LogEntry{DailyLog: log, AboveAverage: l.policy.AboveAverage(log.Amount)}
	}
	return out
}

func (l *ledger) Purchases(ctx context.Context, actor auth.Principal, accountID string) ([]Purchase, error) {
	if err := authorizeRead(actor, accountID); err != nil {
		return nil, err
	}
	return l.store.Purchases(ctx, accountID)
}

func (l *ledger) Statement(ctx context.Context, actor auth.Principal, accountID string) (*Statement, error) {
	if err := authorizeRead(actor, accountID); err != nil {
		return nil, err
	}
	account, err := l.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	purchases, err := l.store.Purchases(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Statement{
		Balance:     l.policy.Report(account),
		Logs:        l.entries(account),
		Purchases:   purchases,
		GeneratedAt: l.now(),
	}, nil
}

func (l *ledger) Accounts(ctx context.Context, actor auth.Principal) ([]BalanceReport, error) {
	if err := auth.Require(actor, auth.RoleAdmin, auth.RoleGov); err != nil {
		return nil, err
	}
	accounts, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BalanceReport, len(accounts))
	for i, a := range accounts {
		out[i] = l.policy.Report(a)
	}
	return out, nil
}

func (l *ledger) publish(ctx context.Context, event notifications.Event) {
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.logger.Warn("Failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
