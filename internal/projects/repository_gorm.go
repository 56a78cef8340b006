package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carbon-connect/portal-backend/pkg/apperrors"
)

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository returns a postgres-backed repository. Transitions take a
// row lock so concurrent reviewers serialise on the project.
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Migrate creates the project tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Project{}, &StatusChange{}); err != nil {
		return fmt.Errorf("failed to migrate project tables: %w", err)
	}
	return nil
}

func (r *gormRepository) Create(ctx context.Context, p *Project, initial *StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		if initial != nil {
			if err := tx.Create(initial).Error; err != nil {
				return fmt.Errorf("failed to record status change: %w", err)
			}
		}
		return nil
	})
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	var p Project
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("project", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &p, nil
}

func (r *gormRepository) List(ctx context.Context, filter Filter) ([]*Project, error) {
	query := r.db.WithContext(ctx).Model(&Project{})
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var out []*Project
	if err := query.Order("seq ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return out, nil
}

func (r *gormRepository) Transition(ctx context.Context, id uuid.UUID, fn MutateFunc) (*Project, error) {
	var result Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Project
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("project", id.String())
		}
		if err != nil {
			return fmt.Errorf("failed to lock project: %w", err)
		}

		change, err := fn(&p)
		if err != nil {
			return err
		}
		if change != nil {
			if err := tx.Save(&p).Error; err != nil {
				return fmt.Errorf("failed to update project: %w", err)
			}
			if err := tx.Create(change).Error; err != nil {
				return fmt.Errorf("failed to record status change: %w", err)
			}
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *gormRepository) History(ctx context.Context, id uuid.UUID) ([]StatusChange, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	var out []StatusChange
	err := r.db.WithContext(ctx).
		Where("project_id = ?", id).
		Order("changed_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	return out, nil
}
