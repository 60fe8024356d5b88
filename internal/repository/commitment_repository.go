package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
)

// CommitmentFilter narrows a commitment query. Nil fields are ignored.
// PeriodFrom is inclusive, PeriodTo exclusive, both matched against the
// normalized period start.
type CommitmentFilter struct {
	Timeframe          *model.Timeframe
	Section            *model.Section
	PeriodFrom         *time.Time
	PeriodTo           *time.Time
	TaskID             *uint
	ParentCommitmentID *uint
}

// SortUpdate is one (id, sortOrder) pair of a batched reorder persist.
type SortUpdate struct {
	ID        uint
	SortOrder int
}

// SectionMove is one (id, sortOrder, section) triple of a batched
// cross-section move persist.
type SectionMove struct {
	ID        uint
	SortOrder int
	Section   model.Section
}

// CommitmentRepository handles CRUD for commitments.
type CommitmentRepository struct {
	db *gorm.DB
}

func NewCommitmentRepository(db *gorm.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

func (r *CommitmentRepository) Create(ctx context.Context, c *model.Commitment) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}
	return nil
}

func (r *CommitmentRepository) Save(ctx context.Context, c *model.Commitment) error {
	if err := r.db.WithContext(ctx).Save(c).Error; err != nil {
		return fmt.Errorf("save commitment: %w", err)
	}
	return nil
}

func (r *CommitmentRepository) FindByID(ctx context.Context, userID, id uint) (*model.Commitment, error) {
	var c model.Commitment
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&c).Error; err != nil {
		return nil, fmt.Errorf("find commitment: %w", err)
	}
	return &c, nil
}

// List returns the user's commitments matching the filter, ordered by
// sort order.
func (r *CommitmentRepository) List(ctx context.Context, userID uint, f CommitmentFilter) ([]model.Commitment, error) {
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Timeframe != nil {
		db = db.Where("timeframe = ?", *f.Timeframe)
	}
	if f.Section != nil {
		db = db.Where("section = ?", *f.Section)
	}
	if f.PeriodFrom != nil {
		db = db.Where("period_start >= ?", *f.PeriodFrom)
	}
	if f.PeriodTo != nil {
		db = db.Where("period_start < ?", *f.PeriodTo)
	}
	if f.TaskID != nil {
		db = db.Where("task_id = ?", *f.TaskID)
	}
	if f.ParentCommitmentID != nil {
		db = db.Where("parent_commitment_id = ?", *f.ParentCommitmentID)
	}

	var commitments []model.Commitment
	if err := db.Order("sort_order, id").Find(&commitments).Error; err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	return commitments, nil
}

func (r *CommitmentRepository) Delete(ctx context.Context, userID, id uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).
		Delete(&model.Commitment{}).Error; err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	return nil
}

func (r *CommitmentRepository) DeleteByIDs(ctx context.Context, userID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&model.Commitment{}).Error; err != nil {
		return fmt.Errorf("delete commitments: %w", err)
	}
	return nil
}

// BatchUpdateSortOrders persists a reorder result in one transaction.
func (r *CommitmentRepository) BatchUpdateSortOrders(ctx context.Context, updates []SortUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Model(&model.Commitment{}).Where("id = ?", u.ID).
				Update("sort_order", u.SortOrder).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch update sort orders: %w", err)
	}
	return nil
}

// BatchUpdateSortOrdersAndSections persists a cross-section move result
// in one transaction.
func (r *CommitmentRepository) BatchUpdateSortOrdersAndSections(ctx context.Context, moves []SectionMove) error {
	if len(moves) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range moves {
			updates := map[string]interface{}{
				"sort_order": m.SortOrder,
				"section":    m.Section,
			}
			if err := tx.Model(&model.Commitment{}).Where("id = ?", m.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch update sections: %w", err)
	}
	return nil
}
