package market

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-connect/portal-backend/internal/auth"
	"carbon-connect/portal-backend/internal/compliance"
	"carbon-connect/portal-backend/internal/config"
	"carbon-connect/portal-backend/internal/notifications"
	"carbon-connect/portal-backend/pkg/apperrors"
)

const testSecret = "whsec_test"

type fixture struct {
	market   Market
	ledger   compliance.Ledger
	verifier *HMACVerifier
	feed     *notifications.Feed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	policy := compliance.Policy{
		WarningThreshold: cfg.Compliance.WarningThreshold,
		DailyAverage:     cfg.Compliance.DailyAverage,
		DefaultQuota:     cfg.Compliance.DefaultQuota,
	}
	store := compliance.NewMemoryStore()
	feed := notifications.NewFeed(50)
	verifier := NewHMACVerifier(testSecret)
	f := &fixture{
		market:   NewMarket(NewCatalog(cfg.Market), verifier, store, policy, feed, zap.NewNop()),
		ledger:   compliance.NewLedger(store, policy, notifications.Nop, zap.NewNop()),
		verifier: verifier,
		feed:     feed,
	}

	_, err := f.ledger.OpenAccount(context.Background(), auth.Principal{UserID: "ind-1", Role: auth.RoleIndustry}, compliance.OpenAccountInput{})
	require.NoError(t, err)
	return f
}

func (f *fixture) confirmation(paymentID, packageID string) Confirmation {
	return Confirmation{
		AccountID:        "ind-1",
		PackageID:        packageID,
		PaymentReference: paymentID,
		OrderID:          "order_" + paymentID,
		Status:           PaymentStatusCaptured,
		Signature:        f.verifier.Sign("order_"+paymentID, paymentID),
	}
}

func TestCatalogOrderAndPricing(t *testing.T) {
	f := newFixture(t)
	packages := f.market.Catalog()

	require.Len(t, packages, 3)
	assert.Equal(t, []string{"starter", "factory-standard", "enterprise"},
		[]string{packages[0].ID, packages[1].ID, packages[2].ID})
	assert.True(t, packages[1].Amount.Equal(decimal.NewFromInt(50)))
	assert.True(t, packages[1].Price.Equal(decimal.NewFromInt(7000)))
	assert.True(t, packages[1].BestValue)
	assert.Equal(t, "INR", packages[2].Currency)
	assert.True(t, packages[1].PricePerCredit().Equal(decimal.NewFromInt(140)))

	packages[0].Label = "tampered"
	assert.Equal(t, "Starter Pack", f.market.Catalog()[0].Label)
}

func TestConfirmPurchaseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.market.ConfirmPurchase(ctx, f.confirmation("pay_001", "factory-standard"))
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.True(t, first.Account.CreditsOwned.Equal(decimal.NewFromInt(100)))

	second, err := f.market.ConfirmPurchase(ctx, f.confirmation("pay_001", "factory-standard"))
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.True(t, second.Account.CreditsOwned.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, first.Purchase.ConfirmedAt, second.Purchase.ConfirmedAt)

	events := f.feed.Recent(0)
	require.Len(t, events, 1)
	assert.Equal(t, notifications.EventPurchaseConfirmed, events[0].Type)
}

func TestConcurrentDuplicateConfirmationsApplyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.market.ConfirmPurchase(ctx, f.confirmation("pay_dup", "starter"))
			if assert.NoError(t, err) && r.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	report, err := f.ledger.Balance(ctx, auth.Principal{UserID: "gov-1", Role: auth.RoleGov}, "ind-1")
	require.NoError(t, err)
	assert.True(t, report.CreditsOwned.Equal(decimal.NewFromInt(60)))
}

func TestConfirmPurchaseRejectsUnconfirmedPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(*Confirmation){
		"bad signature":   func(c *Confirmation) { c.Signature = f.verifier.Sign("other_order", c.PaymentReference) },
		"not hex":         func(c *Confirmation) { c.Signature = "zz" },
		"failed status":   func(c *Confirmation) { c.Status = "failed" },
		"missing status":  func(c *Confirmation) { c.Status = "" },
		"empty reference": func(c *Confirmation) { c.PaymentReference = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := f.confirmation("pay_bad", "starter")
			mutate(&c)
			_, err := f.market.ConfirmPurchase(ctx, c)
			assert.True(t, apperrors.Is(err, apperrors.CodePaymentNotConfirmed), "got %v", err)
		})
	}

	report, err := f.ledger.Balance(ctx, auth.Principal{UserID: "ind-1", Role: auth.RoleIndustry}, "ind-1")
	require.NoError(t, err)
	assert.True(t, report.CreditsOwned.Equal(decimal.NewFromInt(50)))
}

func TestConfirmPurchaseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.market.ConfirmPurchase(ctx, f.confirmation("pay_1", "platinum"))
	assert.Equal(t, "package_id", apperrors.FieldOf(err))

	c := f.confirmation("pay_2", "starter")
	c.AccountID = ""
	_, err = f.market.ConfirmPurchase(ctx, c)
	assert.Equal(t, "account_id", apperrors.FieldOf(err))

	c = f.confirmation("pay_3", "starter")
	c.AccountID = "ind-unknown"
	_, err = f.market.ConfirmPurchase(ctx, c)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestReusedReferenceForDifferentPackageConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.market.ConfirmPurchase(ctx, f.confirmation("pay_9", "starter"))
	require.NoError(t, err)

	_, err = f.market.ConfirmPurchase(ctx, f.confirmation("pay_9", "enterprise"))
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
}

func TestVerifierWithoutSecretRejects(t *testing.T) {
	v := NewHMACVerifier("")
	err := v.Verify(Confirmation{PaymentReference: "p", Status: PaymentStatusCaptured, Signature: v.Sign("o", "p")})
	assert.True(t, apperrors.Is(err, apperrors.CodePaymentNotConfirmed))
}
