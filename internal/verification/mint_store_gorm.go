package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carbon-connect/portal-backend/internal/projects"
	"carbon-connect/portal-backend/pkg/apperrors"
)

type gormMintStore struct {
	db *gorm.DB
}

// NewGormMintStore serialises reservations on the project row lock.
func NewGormMintStore(db *gorm.DB) MintStore {
	return &gormMintStore{db: db}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&MintRecord{}); err != nil {
		return fmt.Errorf("failed to migrate mint tables: %w", err)
	}
	return nil
}

func (s *gormMintStore) Reserve(ctx context.Context, rec *MintRecord, limit decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked projects.Project
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").First(&locked, "id = ?", rec.ProjectID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("project", rec.ProjectID.String())
		}
		if err != nil {
			return fmt.Errorf("failed to lock project: %w", err)
		}

		var outstanding decimal.Decimal
		err = tx.Model(&MintRecord{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("project_id = ? AND status IN ?", rec.ProjectID, []MintStatus{MintStatusPending, MintStatusMinted}).
			Row().Scan(&outstanding)
		if err != nil {
			return fmt.Errorf("failed to sum outstanding mints: %w", err)
		}

		amount, err := reserveAmount(rec.Amount, outstanding, limit)
		if err != nil {
			return err
		}
		rec.Amount = amount
		rec.Status = MintStatusPending

		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to create mint record: %w", err)
		}
		return nil
	})
}

func (s *gormMintStore) finish(ctx context.Context, id uuid.UUID, apply func(*MintRecord)) (*MintRecord, error) {
	var rec MintRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("mint", id.String())
		}
		if err != nil {
			return fmt.Errorf("failed to lock mint record: %w", err)
		}
		if rec.Status != MintStatusPending {
			return apperrors.InvalidTransition(string(rec.Status), "completed")
		}
		apply(&rec)
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("failed to update mint record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormMintStore) Complete(ctx context.Context, id uuid.UUID, transactionID string, payload datatypes.JSON, at time.Time) (*MintRecord, error) {
	return s.finish(ctx, id, func(r *MintRecord) {
		r.Status = MintStatusMinted
		r.TransactionID = transactionID
		r.LedgerPayload = payload
		r.CompletedAt = &at
	})
}

func (s *gormMintStore) Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*MintRecord, error) {
	return s.finish(ctx, id, func(r *MintRecord) {
		r.Status = MintStatusFailed
		r.FailureReason = reason
		r.CompletedAt = &at
	})
}

func (s *gormMintStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]MintRecord, error) {
	var out []MintRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("requested_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mint records: %w", err)
	}
	return out, nil
}
