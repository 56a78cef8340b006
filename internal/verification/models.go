package verification

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MintStatus is the lifecycle of a mint request.
type MintStatus string

const (
	MintStatusPending MintStatus = "pending"
	MintStatusMinted  MintStatus = "minted"
	MintStatusFailed  MintStatus = "failed"
)

// MintRecord tracks one request to issue a verified project's tonnage on the ledger.
// Pending and minted records count against the project's absorbed total.
type MintRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"project_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(30,6);not null" json:"amount"`
	WalletAddress string          `gorm:"not null" json:"wallet_address"`
	Status        MintStatus      `gorm:"type:varchar(16);not null;index" json:"status"`
	TransactionID string          `gorm:"index" json:"transaction_id,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	RequestedBy   string          `gorm:"not null" json:"requested_by"`
	RequestedAt   time.Time       `gorm:"not null" json:"requested_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	LedgerPayload datatypes.JSON  `gorm:"type:jsonb" json:"ledger_payload,omitempty"`
}

func (MintRecord) TableName() string {
	return "mint_records"
}

func (m *MintRecord) counts() bool {
	return m.Status == MintStatusPending || m.Status == MintStatusMinted
}

// MintInput is the body of a mint request. A zero amount mints the unminted remainder.
type MintInput struct {
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"wallet_address"`
}

// RejectInput carries the auditor's reason.
type RejectInput struct {
	Reason string `json:"reason"`
}
