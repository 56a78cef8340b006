package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format of emission logs.
const DateLayout = "2006-01-02"

// Account is the compliance position of one industrial emitter. Its ID is the
// emitter's user id. TotalEmissions always equals the sum of DailyLogs.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CreditsOwned   decimal.Decimal `json:"credits_owned"`
	TotalEmissions decimal.Decimal `json:"total_emissions"`
	DailyLogs      []DailyLog      `json:"daily_logs,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// DailyLog is one append-only emission entry, kept in submission order.
type DailyLog struct {
	Date     string          `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	LoggedBy string          `json:"logged_by"`
	LoggedAt time.Time       `json:"logged_at"`
}

// Purchase is the record of an applied payment; Reference is unique.
type Purchase struct {
	Reference   string          `json:"reference"`
	AccountID   string          `json:"account_id"`
	PackageID   string          `json:"package_id"`
	Amount      decimal.Decimal `json:"amount"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

// Status classifies a compliance balance.
type Status string

const (
	StatusCompliant Status = "Compliant"
	StatusWarning   Status = "Warning"
	StatusDeficit   Status = "Deficit"
)

// BalanceReport is the derived view of an account.
type BalanceReport struct {
	AccountID      string          `json:"account_id"`
	Name           string          `json:"name"`
	CreditsOwned   decimal.Decimal `json:"credits_owned"`
	TotalEmissions decimal.Decimal `json:"total_emissions"`
	Remaining      decimal.Decimal `json:"remaining"`
	Status         Status          `json:"status"`
	ProgressRatio  decimal.Decimal `json:"progress_ratio"`
}

// LogEntry is a daily log decorated for display.
type LogEntry struct {
	DailyLog
	AboveAverage bool `json:"above_average"`
}

// Statement bundles everything an export needs about one account.
type Statement struct {
	Balance     BalanceReport `json:"balance"`
	Logs        []LogEntry    `json:"logs"`
	Purchases   []Purchase    `json:"purchases"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// OpenAccountInput opens a compliance account. Industry callers may omit
// AccountID and must omit Quota; administrators supply both as needed.
type OpenAccountInput struct {
	AccountID string           `json:"account_id"`
	Name      string           `json:"name"`
	Quota     *decimal.Decimal `json:"quota,omitempty"`
}

// LogEmissionInput is one daily submission. An empty date means today (UTC).
type LogEmissionInput struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

// AllocateInput adds quota to an account.
type AllocateInput struct {
	Amount decimal.Decimal `json:"amount"`
}
