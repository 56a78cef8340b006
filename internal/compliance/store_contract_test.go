package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"carbon-connect/portal-backend/pkg/apperrors"
)

// StoreSuite is the behaviour every Store implementation must share.
type StoreSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

func (s *StoreSuite) open(id string, quota string) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.Create(s.ctx, &Account{
		ID: id, Name: id, CreditsOwned: d(quota), TotalEmissions: decimal.Zero,
		CreatedAt: now, UpdatedAt: now,
	}))
}

func (s *StoreSuite) TestCreateRejectsDuplicate() {
	s.open("ind-1", "50")
	err := s.store.Create(s.ctx, &Account{ID: "ind-1", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	s.True(apperrors.Is(err, apperrors.CodeConflict))
}

func (s *StoreSuite) TestAppendLogKeepsSubmissionOrder() {
	s.open("ind-1", "50")
	for _, entry := range []struct{ date, amount string }{
		{"2023-10-27", "5.1"}, {"2023-10-24", "2.1"}, {"2023-10-25", "3.4"},
	} {
		_, err := s.store.AppendLog(s.ctx, "ind-1", DailyLog{
			Date: entry.date, Amount: d(entry.amount), LoggedBy: "ind-1", LoggedAt: time.Now().UTC(),
		})
		s.Require().NoError(err)
	}

	a, err := s.store.Get(s.ctx, "ind-1")
	s.Require().NoError(err)
	s.Require().Len(a.DailyLogs, 3)
	s.Equal("2023-10-27", a.DailyLogs[0].Date)
	s.Equal("2023-10-24", a.DailyLogs[1].Date)
	s.True(a.TotalEmissions.Equal(d("10.6")))
}

func (s *StoreSuite) TestConcurrentAppendsNeverLoseUpdates() {
	s.open("ind-1", "50")

	var g errgroup.Group
	for i := 0; i < 40; i++ {
		g.Go(func() error {
			_, err := s.store.AppendLog(s.ctx, "ind-1", DailyLog{
				Date: "2023-10-24", Amount: d("0.25"), LoggedBy: "ind-1", LoggedAt: time.Now().UTC(),
			})
			return err
		})
	}
	s.Require().NoError(g.Wait())

	a, err := s.store.Get(s.ctx, "ind-1")
	s.Require().NoError(err)
	s.Len(a.DailyLogs, 40)
	s.True(a.TotalEmissions.Equal(d("10")))

	sum := decimal.Zero
	for _, l := range a.DailyLogs {
		sum = sum.Add(l.Amount)
	}
	s.True(sum.Equal(a.TotalEmissions))
}

func (s *StoreSuite) TestApplyPurchaseOnce() {
	s.open("ind-1", "50")
	p := Purchase{
		Reference: "pay_001", AccountID: "ind-1", PackageID: "factory-standard",
		Amount: d("50"), Price: d("7000"), Currency: "INR", ConfirmedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	acct, stored, applied, err := s.store.ApplyPurchase(s.ctx, p)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal("pay_001", stored.Reference)
	s.True(acct.CreditsOwned.Equal(d("100")))

	acct, stored, applied, err = s.store.ApplyPurchase(s.ctx, p)
	s.Require().NoError(err)
	s.False(applied)
	s.Equal("factory-standard", stored.PackageID)
	s.True(acct.CreditsOwned.Equal(d("100")))

	purchases, err := s.store.Purchases(s.ctx, "ind-1")
	s.Require().NoError(err)
	s.Len(purchases, 1)
}

func (s *StoreSuite) TestApplyPurchaseConflictingReuse() {
	s.open("ind-1", "0")
	s.open("ind-2", "0")
	p := Purchase{Reference: "pay_002", AccountID: "ind-1", PackageID: "starter", Amount: d("10"), Price: d("1500"), Currency: "INR", ConfirmedAt: time.Now().UTC()}
	_, _, _, err := s.store.ApplyPurchase(s.ctx, p)
	s.Require().NoError(err)

	p.AccountID = "ind-2"
	_, _, _, err = s.store.ApplyPurchase(s.ctx, p)
	s.True(apperrors.Is(err, apperrors.CodeConflict))

	other, err := s.store.Get(s.ctx, "ind-2")
	s.Require().NoError(err)
	s.True(other.CreditsOwned.IsZero())
}

func (s *StoreSuite) TestConcurrentDuplicatePurchasesApplyOnce() {
	s.open("ind-1", "0")

	results := make([]bool, 25)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			_, _, applied, err := s.store.ApplyPurchase(s.ctx, Purchase{
				Reference: "pay_dup", AccountID: "ind-1", PackageID: "enterprise",
				Amount: d("100"), Price: d("13500"), Currency: "INR", ConfirmedAt: time.Now().UTC(),
			})
			results[i] = applied
			return err
		})
	}
	s.Require().NoError(g.Wait())

	appliedCount := 0
	for _, applied := range results {
		if applied {
			appliedCount++
		}
	}
	s.Equal(1, appliedCount)

	a, err := s.store.Get(s.ctx, "ind-1")
	s.Require().NoError(err)
	s.True(a.CreditsOwned.Equal(d("100")))
}

func (s *StoreSuite) TestUnknownAccount() {
	_, err := s.store.Get(s.ctx, "missing")
	s.True(apperrors.Is(err, apperrors.CodeNotFound))

	_, err = s.store.AppendLog(s.ctx, "missing", DailyLog{Date: "2023-10-24", Amount: d("1"), LoggedAt: time.Now()})
	s.True(apperrors.Is(err, apperrors.CodeNotFound))

	_, _, _, err = s.store.ApplyPurchase(s.ctx, Purchase{Reference: "pay_x", AccountID: "missing", Amount: d("1"), Price: d("1"), Currency: "INR", ConfirmedAt: time.Now()})
	s.True(apperrors.Is(err, apperrors.CodeNotFound))
}

func (s *StoreSuite) TestListInOpeningOrder() {
	for i := 0; i < 3; i++ {
		s.open(fmt.Sprintf("ind-%d", i), "10")
	}
	accounts, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(accounts, 3)
	s.Equal("ind-0", accounts[0].ID)
	s.Equal("ind-2", accounts[2].ID)
}
