package projects

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"carbon-connect/portal-backend/pkg/apperrors"
)

// MutateFunc inspects a locked project and either mutates it and returns the
// audit row to persist, returns nil to leave the project untouched, or fails.
type MutateFunc func(p *Project) (*StatusChange, error)

// Repository stores projects and their status history. Every write is atomic.
type Repository interface {
	Create(ctx context.Context, p *Project, initial *StatusChange) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context, filter Filter) ([]*Project, error)
	Transition(ctx context.Context, id uuid.UUID, fn MutateFunc) (*Project, error)
	History(ctx context.Context, id uuid.UUID) ([]StatusChange, error)
}

// memoryRepository keeps projects in registry order behind a single mutex.
type memoryRepository struct {
	mu       sync.RWMutex
	seq      int64
	projects map[uuid.UUID]*Project
	history  map[uuid.UUID][]StatusChange
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		projects: make(map[uuid.UUID]*Project),
		history:  make(map[uuid.UUID][]StatusChange),
	}
}

func (r *memoryRepository) Create(_ context.Context, p *Project, initial *StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.projects[p.ID]; exists {
		return apperrors.Conflict("project " + p.ID.String() + " already exists")
	}

	r.seq++
	p.Seq = r.seq
	stored := *p
	r.projects[p.ID] = &stored
	if initial != nil {
		r.history[p.ID] = append(r.history[p.ID], *initial)
	}
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, apperrors.NotFound("project", id.String())
	}
	out := *p
	return &out, nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		if filter.matches(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *memoryRepository) Transition(_ context.Context, id uuid.UUID, fn MutateFunc) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.projects[id]
	if !ok {
		return nil, apperrors.NotFound("project", id.String())
	}

	working := *stored
	change, err := fn(&working)
	if err != nil {
		return nil, err
	}
	if change == nil {
		out := *stored
		return &out, nil
	}

	*stored = working
	r.history[id] = append(r.history[id], *change)
	out := working
	return &out, nil
}

func (r *memoryRepository) History(_ context.Context, id uuid.UUID) ([]StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.projects[id]; !ok {
		return nil, apperrors.NotFound("project", id.String())
	}
	return append([]StatusChange(nil), r.history[id]...), nil
}

// SumAbsorbed totals the absorbed tonnage of the given projects.
func SumAbsorbed(projects []*Project) decimal.Decimal {
	total := decimal.Zero
	for _, p := range projects {
		total = total.Add(p.Absorbed)
	}
	return total
}
