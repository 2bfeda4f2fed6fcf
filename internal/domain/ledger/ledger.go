package ledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionType enumerates the causes of a balance change.
type TransactionType string

const (
	TypeSessionStart TransactionType = "session_start"
	TypePurchase     TransactionType = "purchase"
	TypeRefund       TransactionType = "refund"
	TypeSignupBonus  TransactionType = "signup_bonus"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeSessionStart, TypePurchase, TypeRefund, TypeSignupBonus:
		return true
	}
	return false
}

// Account caches a user's credit balance. The transaction log is the source
// of truth; balance is the projection and may only be written together with a
// matching CreditTransaction in the same database transaction.
type Account struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0;column:balance" json:"balance"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Account) TableName() string { return "account" }

// CreditTransaction is an immutable ledger entry. Entries for a user ordered
// by (created_at, id) form a prefix-sum sequence: each BalanceAfter equals
// the running sum of CreditsChange up to and including that entry.
type CreditTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_credit_txn_user_created,priority:1" json:"user_id"`
	TransactionType TransactionType `gorm:"not null;column:transaction_type" json:"transaction_type"`
	CreditsChange   int64           `gorm:"not null;column:credits_change" json:"credits_change"`
	BalanceAfter    int64           `gorm:"not null;column:balance_after" json:"balance_after"`
	Description     string          `gorm:"column:description" json:"description"`
	SessionID       *uuid.UUID      `gorm:"type:uuid;column:session_id" json:"session_id,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;index:idx_credit_txn_user_created,priority:2" json:"created_at"`
}

func (CreditTransaction) TableName() string { return "credit_transaction" }

func (t *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
