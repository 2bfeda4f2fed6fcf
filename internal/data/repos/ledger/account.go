package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type AccountRepo interface {
	Create(ctx context.Context, tx *gorm.DB, account *types.Account) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Account, error)
	// GetByUserIDForUpdate takes a row lock so a concurrent debit/credit on
	// the same account blocks until this transaction commits.
	GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Account, error)
	SetBalance(ctx context.Context, tx *gorm.DB, userID uuid.UUID, balance int64) error
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	repoLog := baseLog.With("repo", "AccountRepo")
	return &accountRepo{db: db, log: repoLog}
}

func (ar *accountRepo) Create(ctx context.Context, tx *gorm.DB, account *types.Account) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	if account == nil {
		return fault.New(fault.CodeValidation, "account.create", "nil account", nil)
	}
	if account.Balance < 0 {
		return fault.New(fault.CodeValidation, "account.create", "negative starting balance", nil)
	}

	return transaction.WithContext(ctx).Create(account).Error
}

func (ar *accountRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var account types.Account
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.New(fault.CodeAccountNotFound, "account.get", "no account row for user", err)
		}
		return nil, err
	}
	return &account, nil
}

func (ar *accountRepo) GetByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	query := transaction.WithContext(ctx)
	// SQLite has no FOR UPDATE; its single-writer transactions already
	// serialize balance mutations.
	if transaction.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var account types.Account
	err := query.
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.New(fault.CodeAccountNotFound, "account.lock", "no account row for user", err)
		}
		return nil, err
	}
	return &account, nil
}

func (ar *accountRepo) SetBalance(ctx context.Context, tx *gorm.DB, userID uuid.UUID, balance int64) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	if balance < 0 {
		return fault.New(fault.CodeValidation, "account.set_balance", "balance may not go negative", nil)
	}

	result := transaction.WithContext(ctx).
		Model(&types.Account{}).
		Where("user_id = ?", userID).
		Update("balance", balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fault.New(fault.CodeAccountNotFound, "account.set_balance", "no account row for user", nil)
	}
	return nil
}
