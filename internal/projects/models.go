package projects

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"carbon-connect/portal-backend/pkg/workflows"
)

// Status is the verification state of a restoration project.
type Status string

const (
	StatusSeedling Status = "Seedling Stage"
	StatusAuditing Status = "Auditing"
	StatusVerified Status = "Verified"
	StatusRejected Status = "Rejected"
)

// ParseStatus accepts the exact status names.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusSeedling, StatusAuditing, StatusVerified, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown project status %q", s)
	}
}

// Pending reports whether the project is waiting in the verification queue.
func (s Status) Pending() bool {
	return s == StatusSeedling || s == StatusAuditing
}

// Transitions is the verification state machine. Verified and Rejected are terminal.
var Transitions = workflows.NewStateMachine(map[string][]string{
	string(StatusSeedling): {string(StatusAuditing), string(StatusVerified), string(StatusRejected)},
	string(StatusAuditing): {string(StatusVerified), string(StatusRejected)},
	string(StatusVerified): {},
	string(StatusRejected): {},
})

// Project represents a wetland restoration project
type Project struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Seq             int64           `gorm:"autoIncrement;uniqueIndex;not null" json:"seq"`
	Name            string          `gorm:"not null" json:"name"`
	Location        string          `json:"location"`
	Hectares        decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"hectares"`
	Rate            decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"rate"`
	Period          decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"period"`
	Absorbed        decimal.Decimal `gorm:"type:numeric(30,6);not null" json:"absorbed"`
	Status          Status          `gorm:"type:varchar(32);not null;index" json:"status"`
	EvidenceLink    string          `gorm:"not null" json:"evidence_link"`
	OwnerID         string          `gorm:"not null;index" json:"owner_id"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	ReviewedBy      string          `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// StatusChange tracks status changes
type StatusChange struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	From      Status    `gorm:"column:from_status;type:varchar(32)" json:"from"`
	To        Status    `gorm:"column:to_status;type:varchar(32);not null" json:"to"`
	Reason    string    `json:"reason,omitempty"`
	ChangedBy string    `gorm:"not null" json:"changed_by"`
	ChangedAt time.Time `gorm:"not null" json:"changed_at"`
}

func (StatusChange) TableName() string {
	return "project_status_changes"
}

// RegisterInput is what a wetlands operator submits.
type RegisterInput struct {
	Name         string          `json:"name"`
	Location     string          `json:"location"`
	Hectares     decimal.Decimal `json:"hectares"`
	Rate         decimal.Decimal `json:"rate"`
	Period       decimal.Decimal `json:"period"`
	EvidenceLink string          `json:"evidence_link"`
}

// Totals is the aggregate absorption report.
type Totals struct {
	TotalAbsorbed    decimal.Decimal `json:"total_absorbed"`
	VerifiedAbsorbed decimal.Decimal `json:"verified_absorbed"`
	Projects         int             `json:"projects"`
	Pending          int             `json:"pending"`
}

// Filter narrows a listing. Zero value lists everything.
type Filter struct {
	Statuses []Status
	OwnerID  string
}

func (f Filter) matches(p *Project) bool {
	if f.OwnerID != "" && p.OwnerID != f.OwnerID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if p.Status == s {
			return true
		}
	}
	return false
}

// NewStatusChange builds an audit row for an effective transition.
func NewStatusChange(p *Project, to Status, reason, actorID string, at time.Time) *StatusChange {
	return &StatusChange{
		ID:        uuid.New(),
		ProjectID: p.ID,
		From:      p.Status,
		To:        to,
		Reason:    reason,
		ChangedBy: actorID,
		ChangedAt: at,
	}
}
