package compliance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"carbon-connect/portal-backend/pkg/apperrors"
)

// Store persists compliance accounts. Each mutating call is one atomic
// read-modify-write; concurrent callers never lose an update.
type Store interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, id string) (*Account, error)
	// List returns accounts in opening order, without their daily logs.
	List(ctx context.Context) ([]*Account, error)
	AppendLog(ctx context.Context, id string, log DailyLog) (*Account, error)
	AddCredits(ctx context.Context, id string, amount decimal.Decimal, at time.Time) (*Account, error)
	// ApplyPurchase credits the account and records p in one step, keyed by
	// p.Reference. A known reference returns the stored purchase and applied=false.
	ApplyPurchase(ctx context.Context, p Purchase) (acct *Account, stored *Purchase, applied bool, err error)
	Purchases(ctx context.Context, accountID string) ([]Purchase, error)
}

// samePurchase reports whether a redelivered confirmation matches the stored one.
func samePurchase(stored, incoming Purchase) error {
	if stored.AccountID != incoming.AccountID || stored.PackageID != incoming.PackageID {
		return apperrors.Conflict(fmt.Sprintf(
			"payment reference %s was already applied to account %s package %s",
			stored.Reference, stored.AccountID, stored.PackageID))
	}
	return nil
}

type memoryStore struct {
	mu        sync.RWMutex
	order     []string
	accounts  map[string]*Account
	purchases map[string]Purchase
	byAccount map[string][]string
}

func NewMemoryStore() Store {
	return &memoryStore{
		accounts:  make(map[string]*Account),
		purchases: make(map[string]Purchase),
		byAccount: make(map[string][]string),
	}
}

func cloneAccount(a *Account, withLogs bool) *Account {
	out := *a
	out.DailyLogs = nil
	if withLogs {
		out.DailyLogs = append([]DailyLog(nil), a.DailyLogs...)
	}
	return &out
}

func (s *memoryStore) Create(_ context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return apperrors.Conflict(fmt.Sprintf("account %s already exists", a.ID))
	}
	s.accounts[a.ID] = cloneAccount(a, true)
	s.order = append(s.order, a.ID)
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, apperrors.NotFound("account", id)
	}
	return cloneAccount(a, true), nil
}

func (s *memoryStore) List(_ context.Context) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Account, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneAccount(s.accounts[id], false))
	}
	return out, nil
}

func (s *memoryStore) AppendLog(_ context.Context, id string, log DailyLog) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, apperrors.NotFound("account", id)
	}
	a.DailyLogs = append(a.DailyLogs, log)
	a.TotalEmissions = a.TotalEmissions.Add(log.Amount)
	a.UpdatedAt = log.LoggedAt
	return cloneAccount(a, true), nil
}

func (s *memoryStore) AddCredits(_ context.Context, id string, amount decimal.Decimal, at time.Time) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, apperrors.NotFound("account", id)
	}
	a.CreditsOwned = a.CreditsOwned.Add(amount)
	a.UpdatedAt = at
	return cloneAccount(a, true), nil
}

func (s *memoryStore) ApplyPurchase(_ context.Context, p Purchase) (*Account, *Purchase, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.purchases[p.Reference]; ok {
		if err := samePurchase(stored, p); err != nil {
			return nil, nil, false, err
		}
		a := s.accounts[stored.AccountID]
		return cloneAccount(a, true), &stored, false, nil
	}

	a, ok := s.accounts[p.AccountID]
	if !ok {
		return nil, nil, false, apperrors.NotFound("account", p.AccountID)
	}
	a.CreditsOwned = a.CreditsOwned.Add(p.Amount)
	a.UpdatedAt = p.ConfirmedAt
	s.purchases[p.Reference] = p
	s.byAccount[p.AccountID] = append(s.byAccount[p.AccountID], p.Reference)

	stored := p
	return cloneAccount(a, true), &stored, true, nil
}

func (s *memoryStore) Purchases(_ context.Context, accountID string) ([]Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, apperrors.NotFound("account", accountID)
	}
	refs := s.byAccount[accountID]
	out := make([]Purchase, 0, len(refs))
	for _, ref := range refs {
		out = append(out, s.purchases[ref])
	}
	return out, nil
}
