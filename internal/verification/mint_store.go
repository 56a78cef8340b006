package verification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"carbon-connect/portal-backend/pkg/apperrors"
)

// MintStore persists mint records. Reserve is the only write that can grow the
// outstanding total, and it does so atomically against the given limit.
type MintStore interface {
	// Reserve inserts rec as pending when outstanding+rec.Amount <= limit. A zero
	// amount is replaced by the remaining headroom.
	Reserve(ctx context.Context, rec *MintRecord, limit decimal.Decimal) error
	Complete(ctx context.Context, id uuid.UUID, transactionID string, payload datatypes.JSON, at time.Time) (*MintRecord, error)
	Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*MintRecord, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]MintRecord, error)
}

// reserveAmount resolves the amount to reserve or reports why it cannot be.
func reserveAmount(requested, outstanding, limit decimal.Decimal) (decimal.Decimal, error) {
	remaining := limit.Sub(outstanding)
	if requested.IsZero() {
		if !remaining.IsPositive() {
			return decimal.Zero, apperrors.Validation("amount", "no unminted credits remain for this project")
		}
		return remaining, nil
	}
	if requested.GreaterThan(remaining) {
		return decimal.Zero, apperrors.Validation("amount",
			fmt.Sprintf("exceeds the unminted remainder of %s", remaining.String()))
	}
	return requested, nil
}

type memoryMintStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*MintRecord
}

func NewMemoryMintStore() MintStore {
	return &memoryMintStore{records: make(map[uuid.UUID]*MintRecord)}
}

func (s *memoryMintStore) Reserve(_ context.Context, rec *MintRecord, limit decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	outstanding := decimal.Zero
	for _, r := range s.records {
		if r.ProjectID == rec.ProjectID && r.counts() {
			outstanding = outstanding.Add(r.Amount)
		}
	}

	amount, err := reserveAmount(rec.Amount, outstanding, limit)
	if err != nil {
		return err
	}
	rec.Amount = amount
	rec.Status = MintStatusPending

	stored := *rec
	s.records[rec.ID] = &stored
	return nil
}

func (s *memoryMintStore) finish(id uuid.UUID, apply func(*MintRecord)) (*MintRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, apperrors.NotFound("mint", id.String())
	}
	if rec.Status != MintStatusPending {
		return nil, apperrors.InvalidTransition(string(rec.Status), "completed")
	}
	apply(rec)
	out := *rec
	return &out, nil
}

func (s *memoryMintStore) Complete(_ context.Context, id uuid.UUID, transactionID string, payload datatypes.JSON, at time.Time) (*MintRecord, error) {
	return s.finish(id, func(r *MintRecord) {
		r.Status = MintStatusMinted
		r.TransactionID = transactionID
		r.LedgerPayload = payload
		r.CompletedAt = &at
	})
}

func (s *memoryMintStore) Fail(_ context.Context, id uuid.UUID, reason string, at time.Time) (*MintRecord, error) {
	return s.finish(id, func(r *MintRecord) {
		r.Status = MintStatusFailed
		r.FailureReason = reason
		r.CompletedAt = &at
	})
}

func (s *memoryMintStore) ListByProject(_ context.Context, projectID uuid.UUID) ([]MintRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []MintRecord
	for _, r := range s.records {
		if r.ProjectID == projectID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}
