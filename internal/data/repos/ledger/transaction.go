package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type TransactionRepo interface {
	// Create appends one immutable ledger entry. Must run inside the same
	// database transaction as the balance update it records.
	Create(ctx context.Context, tx *gorm.DB, txn *types.CreditTransaction) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.CreditTransaction, error)
	CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	// SumChangesByUser folds the full log; audit counterpart of the cached
	// account balance.
	SumChangesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	LastByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.CreditTransaction, error)
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	repoLog := baseLog.With("repo", "TransactionRepo")
	return &transactionRepo{db: db, log: repoLog}
}

func (tr *transactionRepo) Create(ctx context.Context, tx *gorm.DB, txn *types.CreditTransaction) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if txn == nil {
		return fault.New(fault.CodeValidation, "credit_txn.create", "nil transaction", nil)
	}
	if !txn.TransactionType.Valid() {
		return fault.New(fault.CodeValidation, "credit_txn.create", "unknown transaction type", nil)
	}
	if txn.CreditsChange == 0 {
		return fault.New(fault.CodeValidation, "credit_txn.create", "zero credits_change", nil)
	}

	return transaction.WithContext(ctx).Create(txn).Error
}

func (tr *transactionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.CreditTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var results []*types.CreditTransaction
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *transactionRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.CreditTransaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (tr *transactionRepo) SumChangesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var sum int64
	err := transaction.WithContext(ctx).
		Model(&types.CreditTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(credits_change), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (tr *transactionRepo) LastByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.CreditTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var txn types.CreditTransaction
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.New(fault.CodeNotFound, "credit_txn.last", "no transactions for user", err)
		}
		return nil, err
	}
	return &txn, nil
}
