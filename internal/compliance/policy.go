package compliance

import "github.com/shopspring/decimal"

// Policy holds the configurable thresholds. They are policy, not physics.
type Policy struct {
	WarningThreshold decimal.Decimal
	DailyAverage     decimal.Decimal
	DefaultQuota     decimal.Decimal
}

// Remaining is quota minus cumulative emissions; negative is a deficit.
func Remaining(creditsOwned, totalEmissions decimal.Decimal) decimal.Decimal {
	return creditsOwned.Sub(totalEmissions)
}

// Classify maps a remaining balance onto a compliance status.
func (p Policy) Classify(remaining decimal.Decimal) Status {
	switch {
	case remaining.IsNegative():
		return StatusDeficit
	case remaining.LessThan(p.WarningThreshold):
		return StatusWarning
	default:
		return StatusCompliant
	}
}

// ProgressRatio is min(emissions/quota, 1). A zero quota reads as fully consumed.
func ProgressRatio(creditsOwned, totalEmissions decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if !creditsOwned.IsPositive() {
		return one
	}
	ratio := totalEmissions.Div(creditsOwned)
	if ratio.GreaterThan(one) {
		return one
	}
	return ratio
}

// AboveAverage flags a daily amount over the benchmark. Display only.
func (p Policy) AboveAverage(amount decimal.Decimal) bool {
	return amount.GreaterThan(p.DailyAverage)
}

// Report derives the balance view of an account.
func (p Policy) Report(a *Account) BalanceReport {
	remaining := Remaining(a.CreditsOwned, a.TotalEmissions)
	return BalanceReport{
		AccountID:      a.ID,
		Name:           a.Name,
		CreditsOwned:   a.CreditsOwned,
		TotalEmissions: a.TotalEmissions,
		Remaining:      remaining,
		Status:         p.Classify(remaining),
		ProgressRatio:  ProgressRatio(a.CreditsOwned, a.TotalEmissions),
	}
}
