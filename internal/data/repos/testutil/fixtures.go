package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mockly-app/mockly-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "pw",
		FirstName:    "A",
		LastName:     "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// UniqueEmail keeps parallel tests from tripping the user email unique index.
func UniqueEmail(tb testing.TB) string {
	tb.Helper()
	return fmt.Sprintf("u-%s@test.local", uuid.NewString()[:8])
}

func SeedAccount(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, balance int64) *types.Account {
	tb.Helper()
	a := &types.Account{
		UserID:  userID,
		Balance: balance,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed account: %v", err)
	}
	return a
}

// SeedLedger seeds an account plus a transaction log consistent with it: one
// entry per delta, balance_after tracking the running sum.
func SeedLedger(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, deltas []int64) *types.Account {
	tb.Helper()
	var balance int64
	base := time.Now().Add(-time.Duration(len(deltas)) * time.Minute)
	for i, d := range deltas {
		balance += d
		txnType := types.TxnPurchase
		if d < 0 {
			txnType = types.TxnSessionStart
		}
		entry := &types.CreditTransaction{
			ID:              uuid.New(),
			UserID:          userID,
			TransactionType: txnType,
			CreditsChange:   d,
			BalanceAfter:    balance,
			Description:     "seed",
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
			tb.Fatalf("seed ledger entry: %v", err)
		}
	}
	return SeedAccount(tb, ctx, tx, userID, balance)
}

func SeedProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessionDate time.Time, content, voice, face, overall *float64) *types.ProgressRecord {
	tb.Helper()
	r := &types.ProgressRecord{
		ID:           uuid.New(),
		UserID:       userID,
		SessionDate:  sessionDate,
		QuestionType: "behavioral",
		ContentScore: content,
		VoiceScore:   voice,
		FaceScore:    face,
		OverallScore: overall,
		Completed:    true,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed progress record: %v", err)
	}
	return r
}
