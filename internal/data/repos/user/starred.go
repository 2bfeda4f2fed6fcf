package user

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type StarredQuestionRepo interface {
	// Star inserts the bookmark, ignoring the duplicate when it already
	// exists, and returns the stored row either way.
	Star(ctx context.Context, tx *gorm.DB, userID uuid.UUID, questionID string) (*types.StarredQuestion, error)
	Unstar(ctx context.Context, tx *gorm.DB, userID uuid.UUID, questionID string) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.StarredQuestion, error)
}

type starredQuestionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStarredQuestionRepo(db *gorm.DB, baseLog *logger.Logger) StarredQuestionRepo {
	repoLog := baseLog.With("repo", "StarredQuestionRepo")
	return &starredQuestionRepo{db: db, log: repoLog}
}

func (sr *starredQuestionRepo) Star(ctx context.Context, tx *gorm.DB, userID uuid.UUID, questionID string) (*types.StarredQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if questionID == "" {
		return nil, fault.New(fault.CodeValidation, "starred.star", "empty question_id", nil)
	}

	row := &types.StarredQuestion{UserID: userID, QuestionID: questionID}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
	if err != nil {
		return nil, err
	}

	// The insert may have been a no-op on conflict; read the stored row back
	// so callers always see the original star time.
	var stored types.StarredQuestion
	err = transaction.WithContext(ctx).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (sr *starredQuestionRepo) Unstar(ctx context.Context, tx *gorm.DB, userID uuid.UUID, questionID string) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	result := transaction.WithContext(ctx).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Delete(&types.StarredQuestion{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fault.New(fault.CodeNotFound, "starred.unstar", "question not starred", nil)
	}
	return nil
}

func (sr *starredQuestionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.StarredQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.StarredQuestion
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
