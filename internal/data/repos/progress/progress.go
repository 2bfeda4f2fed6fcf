package progress

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type ProgressRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.ProgressRecord) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.ProgressRecord, error)
	// ListAllByUser returns the complete history ordered oldest-first; the
	// stats recompute consumes it whole.
	ListAllByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ProgressRecord, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	LatestCreatedAt(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*time.Time, error)
}

type progressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRepo {
	repoLog := baseLog.With("repo", "ProgressRepo")
	return &progressRepo{db: db, log: repoLog}
}

func (pr *progressRepo) Create(ctx context.Context, tx *gorm.DB, record *types.ProgressRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if record == nil {
		return fault.New(fault.CodeValidation, "progress.create", "nil record", nil)
	}

	return transaction.WithContext(ctx).Create(record).Error
}

func (pr *progressRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.ProgressRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var results []*types.ProgressRecord
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("session_date DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *progressRepo) ListAllByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ProgressRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.ProgressRecord
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("session_date ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *progressRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.ProgressRecord{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (pr *progressRepo) LatestCreatedAt(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var record types.ProgressRecord
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Select("created_at").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t := record.CreatedAt
	return &t, nil
}
