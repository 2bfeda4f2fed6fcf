package progress

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type StatsRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserStats, error)
	// Upsert replaces the whole row; the aggregator never patches fields
	// incrementally.
	Upsert(ctx context.Context, tx *gorm.DB, stats *types.UserStats) error
	// ListStaleUserIDs finds users whose stats row is missing or older than
	// their newest progress record. Reconciler input.
	ListStaleUserIDs(ctx context.Context, tx *gorm.DB, limit int) ([]uuid.UUID, error)
}

type statsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStatsRepo(db *gorm.DB, baseLog *logger.Logger) StatsRepo {
	repoLog := baseLog.With("repo", "StatsRepo")
	return &statsRepo{db: db, log: repoLog}
}

func (sr *statsRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var stats types.UserStats
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

func (sr *statsRepo) Upsert(ctx context.Context, tx *gorm.DB, stats *types.UserStats) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_sessions",
				"average_content_score",
				"average_voice_score",
				"average_face_score",
				"average_overall_score",
				"best_overall_score",
				"most_recent_session",
				"streak_days",
				"updated_at",
			}),
		}).
		Create(stats).Error
}

func (sr *statsRepo) ListStaleUserIDs(ctx context.Context, tx *gorm.DB, limit int) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if limit <= 0 {
		limit = 100
	}

	var ids []uuid.UUID
	err := transaction.WithContext(ctx).
		Table("progress_record AS p").
		Joins("LEFT JOIN user_stats s ON s.user_id = p.user_id").
		Where("s.user_id IS NULL OR p.created_at > s.updated_at").
		Distinct("p.user_id").
		Limit(limit).
		Pluck("p.user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
