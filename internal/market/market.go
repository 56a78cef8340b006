package market

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/pkg/apperrors"
)

// Receipt is the result of a confirmation. Applied is false when the payment
// reference had already been applied.
type Receipt struct {
	Account  compliance.BalanceReport `json:"account"`
	Purchase compliance.Purchase      `json:"purchase"`
	Applied  bool                     `json:"applied"`
}

// Market reconciles external payment confirmations into quota.
type Market interface {
	Catalog() []Package
	ConfirmPurchase(ctx context.Context, c Confirmation) (*Receipt, error)
}

type market struct {
	catalog   *Catalog
	verifier  Verifier
	accounts  compliance.Store
	policy    compliance.Policy
	publisher notifications.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewMarket(
	catalog *Catalog,
	verifier Verifier,
	accounts compliance.Store,
	policy compliance.Policy,
	publisher notifications.Publisher,
	logger *zap.Logger,
) Market {
	return &market{
		catalog:   catalog,
		verifier:  verifier,
		accounts:  accounts,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *market) Catalog() []Package {
	return m.catalog.Packages()
}

func (m *market) ConfirmPurchase(ctx context.Context, c Confirmation) (*Receipt, error) {
	c.AccountID = strings.TrimSpace(c.AccountID)
	c.PaymentReference = strings.TrimSpace(c.PaymentReference)

	pkg, ok := m.catalog.Lookup(c.PackageID)
	if !ok {
		return nil, apperrors.Validation("package_id", "unknown package "+quoteOrEmpty(c.PackageID))
	}
	if c.AccountID == "" {
		return nil, apperrors.Validation("account_id", "is required")
	}
	if err := m.verifier.Verify(c); err != nil {
		m.logger.Warn("Rejected payment confirmation",
			zap.String("payment_id", c.PaymentReference),
			zap.String("account_id", c.AccountID),
			zap.Error(err))
		return nil, err
	}

	acct, stored, applied, err := m.accounts.ApplyPurchase(ctx, compliance.Purchase{
		Reference:   c.PaymentReference,
		AccountID:   c.AccountID,
		PackageID:   pkg.ID,
		Amount:      pkg.Amount,
		Price:       pkg.Price,
		Currency:    pkg.Currency,
		ConfirmedAt: m.now(),
	})
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		Account:  m.policy.Report(acct),
		Purchase: *stored,
		Applied:  applied,
	}

	if !applied {
		m.logger.Info("Duplicate payment confirmation ignored",
			zap.String("payment_id", c.PaymentReference),
			zap.String("account_id", c.AccountID))
		return receipt, nil
	}

	m.logger.Info("Purchase confirmed",
		zap.String("payment_id", c.PaymentReference),
		zap.String("account_id", c.AccountID),
		zap.String("package_id", pkg.ID),
		zap.String("credits_owned", acct.CreditsOwned.String()))

	event := notifications.NewEvent(notifications.EventPurchaseConfirmed, c.AccountID, c.AccountID, map[string]interface{}{
		"payment_id": c.PaymentReference,
		"package_id": pkg.ID,
		"amount":     pkg.Amount.String(),
		"price":      pkg.Price.String(),
		"currency":   pkg.Currency,
	})
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("Failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
	return receipt, nil
}
