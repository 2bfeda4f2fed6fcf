package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ledgerrepo "github.com/mockly-app/mockly-backend/internal/data/repos/ledger"
	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

// CreditsService is the only mutation path for account balances. Every
// change goes through one database transaction that locks the account row,
// re-checks sufficiency, updates the cached balance and appends the ledger
// entry, so the balance always equals the sum of the log.
type CreditsService interface {
	// Authorize is an advisory read: it answers "could the user afford
	// this right now". Debit re-checks under lock regardless.
	Authorize(ctx context.Context, userID uuid.UUID, required int64) (bool, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int64, txnType types.TransactionType, description string, sessionID *uuid.UUID) (*types.CreditTransaction, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64, txnType types.TransactionType, description string, sessionID *uuid.UUID) (*types.CreditTransaction, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.CreditTransaction, int64, error)
	StartSession(ctx context.Context, userID uuid.UUID) (uuid.UUID, int64, error)
	Purchase(ctx context.Context, userID uuid.UUID, amount int64, paymentMethod string) (*types.CreditTransaction, error)
	Refund(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*types.CreditTransaction, error)
	// GrantSignupBonus runs inside the caller's transaction so the user,
	// account and welcome credit commit or roll back together.
	GrantSignupBonus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int64) error
}

const (
	defaultTxnPageSize = 20
	maxTxnPageSize     = 100
)

type creditsService struct {
	db          *gorm.DB
	log         *logger.Logger
	accountRepo ledgerrepo.AccountRepo
	txnRepo     ledgerrepo.TransactionRepo
	analytics   AnalyticsService
}

func NewCreditsService(db *gorm.DB, log *logger.Logger, accountRepo ledgerrepo.AccountRepo, txnRepo ledgerrepo.TransactionRepo, analytics AnalyticsService) CreditsService {
	serviceLog := log.With("service", "CreditsService")
	return &creditsService{
		db:          db,
		log:         serviceLog,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		analytics:   analytics,
	}
}

func (cs *creditsService) Authorize(ctx context.Context, userID uuid.UUID, required int64) (bool, error) {
	if required < 0 {
		return false, fault.New(fault.CodeInvalidAmount, "credits.authorize", fmt.Sprintf("required amount must not be negative, got %d", required), nil)
	}
	account, err := cs.accountRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return false, fault.MapStorage("credits.authorize", err)
	}
	return account.Balance >= required, nil
}

func (cs *creditsService) Debit(ctx context.Context, userID uuid.UUID, amount int64, txnType types.TransactionType, description string, sessionID *uuid.UUID) (*types.CreditTransaction, error) {
	const op = "credits.debit"
	if err := validateAmount(op, amount, txnType); err != nil {
		return nil, err
	}

	var entry *types.CreditTransaction
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applyErr error
		entry, applyErr = cs.applyTx(ctx, tx, op, userID, -amount, txnType, description, sessionID)
		return applyErr
	})
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}

	cs.log.Info("Debited credits",
		"user_id", userID,
		"amount", amount,
		"type", txnType,
		"balance_after", entry.BalanceAfter,
	)
	return entry, nil
}

func (cs *creditsService) Credit(ctx context.Context, userID uuid.UUID, amount int64, txnType types.TransactionType, description string, sessionID *uuid.UUID) (*types.CreditTransaction, error) {
	const op = "credits.credit"
	if err := validateAmount(op, amount, txnType); err != nil {
		return nil, err
	}

	var entry *types.CreditTransaction
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applyErr error
		entry, applyErr = cs.applyTx(ctx, tx, op, userID, amount, txnType, description, sessionID)
		return applyErr
	})
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}

	cs.log.Info("Credited credits",
		"user_id", userID,
		"amount", amount,
		"type", txnType,
		"balance_after", entry.BalanceAfter,
	)
	return entry, nil
}

// applyTx performs one locked read-modify-append. change is signed: negative
// for debits, positive for credits. Callers own the surrounding transaction.
func (cs *creditsService) applyTx(ctx context.Context, tx *gorm.DB, op string, userID uuid.UUID, change int64, txnType types.TransactionType, description string, sessionID *uuid.UUID) (*types.CreditTransaction, error) {
	account, err := cs.accountRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if change < 0 && account.Balance < -change {
		return nil, fault.New(fault.CodeInsufficientCredits, op,
			fmt.Sprintf("balance %d is below required %d", account.Balance, -change), nil)
	}

	newBalance := account.Balance + change
	if err := cs.accountRepo.SetBalance(ctx, tx, userID, newBalance); err != nil {
		return nil, err
	}

	entry := &types.CreditTransaction{
		UserID:          userID,
		TransactionType: txnType,
		CreditsChange:   change,
		BalanceAfter:    newBalance,
		Description:     description,
		SessionID:       sessionID,
	}
	if err := cs.txnRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func validateAmount(op string, amount int64, txnType types.TransactionType) error {
	if amount <= 0 {
		return fault.New(fault.CodeInvalidAmount, op, fmt.Sprintf("amount must be positive, got %d", amount), nil)
	}
	if !txnType.Valid() {
		return fault.New(fault.CodeValidation, op, fmt.Sprintf("unknown transaction type %q", txnType), nil)
	}
	return nil
}

func (cs *creditsService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	account, err := cs.accountRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return 0, fault.MapStorage("credits.balance", err)
	}
	return account.Balance, nil
}

func (cs *creditsService) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.CreditTransaction, int64, error) {
	const op = "credits.transactions"
	if limit <= 0 {
		limit = defaultTxnPageSize
	}
	if limit > maxTxnPageSize {
		limit = maxTxnPageSize
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := cs.txnRepo.ListByUser(ctx, nil, userID, limit, offset)
	if err != nil {
		return nil, 0, fault.MapStorage(op, err)
	}
	total, err := cs.txnRepo.CountByUser(ctx, nil, userID)
	if err != nil {
		return nil, 0, fault.MapStorage(op, err)
	}
	return entries, total, nil
}

func (cs *creditsService) StartSession(ctx context.Context, userID uuid.UUID) (uuid.UUID, int64, error) {
	sessionID := uuid.New()
	entry, err := cs.Debit(ctx, userID, 1, types.TxnSessionStart, "Interview session started", &sessionID)
	if err != nil {
		return uuid.Nil, 0, err
	}

	cs.analytics.Capture(userID, "session_started", map[string]interface{}{
		"session_id":    sessionID.String(),
		"balance_after": entry.BalanceAfter,
	})
	return sessionID, entry.BalanceAfter, nil
}

func (cs *creditsService) Purchase(ctx context.Context, userID uuid.UUID, amount int64, paymentMethod string) (*types.CreditTransaction, error) {
	if paymentMethod == "" {
		paymentMethod = "card"
	}
	description := fmt.Sprintf("Purchased %d credits via %s", amount, paymentMethod)
	entry, err := cs.Credit(ctx, userID, amount, types.TxnPurchase, description, nil)
	if err != nil {
		return nil, err
	}

	cs.analytics.Capture(userID, "credits_purchased", map[string]interface{}{
		"amount":         amount,
		"payment_method": paymentMethod,
		"balance_after":  entry.BalanceAfter,
	})
	return entry, nil
}

func (cs *creditsService) Refund(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*types.CreditTransaction, error) {
	description := fmt.Sprintf("Refund: %s", reason)
	entry, err := cs.Credit(ctx, userID, amount, types.TxnRefund, description, nil)
	if err != nil {
		return nil, err
	}

	cs.analytics.Capture(userID, "credits_refunded", map[string]interface{}{
		"amount":        amount,
		"reason":        reason,
		"balance_after": entry.BalanceAfter,
	})
	return entry, nil
}

func (cs *creditsService) GrantSignupBonus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int64) error {
	const op = "credits.signup_bonus"
	if amount == 0 {
		return nil
	}
	if amount < 0 {
		return fault.New(fault.CodeInvalidAmount, op, fmt.Sprintf("bonus amount must not be negative, got %d", amount), nil)
	}

	description := fmt.Sprintf("Welcome bonus: %d credits", amount)
	if _, err := cs.applyTx(ctx, tx, op, userID, amount, types.TxnSignupBonus, description, nil); err != nil {
		return fault.MapStorage(op, err)
	}
	return nil
}
