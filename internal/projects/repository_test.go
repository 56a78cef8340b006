package projects

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-connect/portal-backend/pkg/apperrors"
)

func seedProject(t *testing.T, repo Repository) *Project {
	t.Helper()
	p := &Project{
		ID:       uuid.New(),
		Name:     "Mangrove Alpha",
		Hectares: dec("50"), Rate: dec("7"), Period: dec("1"),
		Absorbed: dec("350"),
		Status:   StatusAuditing,
		OwnerID:  "wet-1",
	}
	require.NoError(t, repo.Create(context.Background(), p, nil))
	return p
}

func TestMemoryTransitionNoOpWritesNothing(t *testing.T) {
	repo := NewMemoryRepository()
	p := seedProject(t, repo)

	got, err := repo.Transition(context.Background(), p.ID, func(p *Project) (*StatusChange, error) {
		p.Name = "ignored"
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Mangrove Alpha", got.Name)

	history, err := repo.History(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryTransitionErrorLeavesProjectUntouched(t *testing.T) {
	repo := NewMemoryRepository()
	p := seedProject(t, repo)

	_, err := repo.Transition(context.Background(), p.ID, func(p *Project) (*StatusChange, error) {
		p.Status = StatusRejected
		return nil, errors.New("abort")
	})
	require.Error(t, err)

	stored, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAuditing, stored.Status)
}

func TestMemoryTransitionPersistsChange(t *testing.T) {
	repo := NewMemoryRepository()
	p := seedProject(t, repo)
	at := time.Date(2023, 10, 27, 9, 0, 0, 0, time.UTC)

	got, err := repo.Transition(context.Background(), p.ID, func(p *Project) (*StatusChange, error) {
		change := NewStatusChange(p, StatusVerified, "", "adm-1", at)
		p.Status = StatusVerified
		return change, nil
	})
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, got.Status)

	history, err := repo.History(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusAuditing, history[0].From)
	assert.Equal(t, StatusVerified, history[0].To)
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	id := uuid.New()

	_, err := repo.GetByID(context.Background(), id)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = repo.Transition(context.Background(), id, func(*Project) (*StatusChange, error) { return nil, nil })
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = repo.History(context.Background(), id)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	p := seedProject(t, repo)

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	got.Status = StatusRejected

	again, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAuditing, again.Status)
}

func TestTransitionsTable(t *testing.T) {
	assert.True(t, Transitions.CanTransition(string(StatusAuditing), string(StatusVerified)))
	assert.True(t, Transitions.CanTransition(string(StatusSeedling), string(StatusAuditing)))
	assert.True(t, Transitions.IsTerminal(string(StatusVerified)))
	assert.True(t, Transitions.IsTerminal(string(StatusRejected)))
	assert.False(t, Transitions.CanTransition(string(StatusVerified), string(StatusRejected)))
}
