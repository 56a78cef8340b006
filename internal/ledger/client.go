package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when the ledger cannot accept a submission.
var ErrUnavailable = errors.New("ledger unavailable")

// MintRequest represents a request to mint carbon credit tokens
type MintRequest struct {
	ProjectID     uuid.UUID       `json:"project_id"`
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"wallet_address"`
	// Reference is the mint record id, letting the ledger deduplicate resubmissions.
	Reference string `json:"reference"`
}

// Receipt is the ledger's acknowledgement of a mint.
type Receipt struct {
	TransactionID string    `json:"transaction_id"`
	Network       string    `json:"network"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Client is the narrow interface to the external ledger/wallet collaborator.
type Client interface {
	Mint(ctx context.Context, req MintRequest) (*Receipt, error)
}

// SimulatedClient stands in for the ledger until a settlement network is wired.
// Transaction ids are deterministic per reference.
type SimulatedClient struct {
	network string
	outage  atomic.Bool
}

func NewSimulatedClient(network string) *SimulatedClient {
	return &SimulatedClient{network: network}
}

// SetOutage makes every subsequent Mint fail with ErrUnavailable.
func (c *SimulatedClient) SetOutage(down bool) {
	c.outage.Store(down)
}

func (c *SimulatedClient) Mint(ctx context.Context, req MintRequest) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if c.outage.Load() {
		return nil, ErrUnavailable
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%s",
		c.network, req.Reference, req.ProjectID, req.Amount.String(), req.WalletAddress)))

	return &Receipt{
		TransactionID: hex.EncodeToString(sum[:]),
		Network:       c.network,
		SubmittedAt:   time.Now().UTC(),
	}, nil
}
