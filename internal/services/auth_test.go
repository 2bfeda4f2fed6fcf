package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	ledgerrepo "github.com/mockly-app/mockly-backend/internal/data/repos/ledger"
	"github.com/mockly-app/mockly-backend/internal/data/repos/testutil"
	userrepo "github.com/mockly-app/mockly-backend/internal/data/repos/user"
	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/requestdata"
)

func newAuthService(tb testing.TB, db *gorm.DB, secret string, ttl time.Duration, signupBonus int64) AuthService {
	tb.Helper()
	log := testutil.Logger(tb)
	analytics := NewAnalyticsService(log, "", "")
	userRepo := userrepo.NewUserRepo(db, log)
	accountRepo := ledgerrepo.NewAccountRepo(db, log)
	txnRepo := ledgerrepo.NewTransactionRepo(db, log)
	credits := NewCreditsService(db, log, accountRepo, txnRepo, analytics)
	return NewAuthService(db, log, userRepo, accountRepo, credits, analytics, secret, ttl, signupBonus)
}

func TestTokenRoundTrip(t *testing.T) {
	as := newAuthService(t, nil, "test-secret", time.Hour, 0).(*authService)

	userID := uuid.New()
	token, expiresAt, err := as.generateAccessToken(userID)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry %v is not in the future", expiresAt)
	}

	parsed, err := as.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed != userID {
		t.Fatalf("parsed subject = %s, want %s", parsed, userID)
	}

	ctx, err := as.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if got := requestdata.UserID(ctx); got != userID {
		t.Fatalf("context user = %s, want %s", got, userID)
	}
}

func TestParseTokenRejections(t *testing.T) {
	as := newAuthService(t, nil, "test-secret", time.Hour, 0).(*authService)
	other := newAuthService(t, nil, "other-secret", time.Hour, 0).(*authService)
	expired := newAuthService(t, nil, "test-secret", -time.Minute, 0).(*authService)

	goodToken, _, err := as.generateAccessToken(uuid.New())
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	expiredToken, _, err := expired.generateAccessToken(uuid.New())
	if err != nil {
		t.Fatalf("generateAccessToken expired: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
		{name: "wrong secret", token: goodToken[:len(goodToken)-2] + "xx"},
		{name: "expired", token: expiredToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := as.ParseToken(tc.token); !fault.IsCode(err, fault.CodeUnauthorized) {
				t.Fatalf("want unauthorized, got %v", err)
			}
		})
	}

	// A token minted under a different secret never validates.
	foreign, _, err := other.generateAccessToken(uuid.New())
	if err != nil {
		t.Fatalf("generateAccessToken foreign: %v", err)
	}
	if _, err := as.ParseToken(foreign); !fault.IsCode(err, fault.CodeUnauthorized) {
		t.Fatalf("foreign token: want unauthorized, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	as := newAuthService(t, nil, "test-secret", time.Hour, 3)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "longenough"},
		{name: "no at sign", email: "userexample.com", password: "longenough"},
		{name: "no domain dot", email: "user@example", password: "longenough"},
		{name: "spaces inside", email: "us er@example.com", password: "longenough"},
		{name: "short password", email: "user@example.com", password: "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := as.Register(ctx, tc.email, tc.password, "A", "B"); !fault.IsCode(err, fault.CodeValidation) {
				t.Fatalf("want validation, got %v", err)
			}
		})
	}
}

func TestRegisterGrantsSignupBonus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	as := newAuthService(t, tx, "test-secret", time.Hour, 3)
	txnRepo := ledgerrepo.NewTransactionRepo(tx, testutil.Logger(t))
	accountRepo := ledgerrepo.NewAccountRepo(tx, testutil.Logger(t))

	email := testutil.UniqueEmail(t)
	result, err := as.Register(ctx, "  "+email+"  ", "hunter2hunter2", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.User.Email != email {
		t.Fatalf("stored email = %q, want trimmed %q", result.User.Email, email)
	}
	if result.AccessToken == "" {
		t.Fatal("no access token issued")
	}

	acct, err := accountRepo.GetByUserID(ctx, tx, result.User.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if acct.Balance != 3 {
		t.Fatalf("balance after register = %d, want 3", acct.Balance)
	}
	last, err := txnRepo.LastByUser(ctx, tx, result.User.ID)
	if err != nil {
		t.Fatalf("LastByUser: %v", err)
	}
	if last.TransactionType != types.TxnSignupBonus || last.CreditsChange != 3 {
		t.Fatalf("bonus entry = (%s, %d), want (signup_bonus, 3)", last.TransactionType, last.CreditsChange)
	}

	// Same email again, any casing, is a conflict.
	if _, err := as.Register(ctx, email, "hunter2hunter2", "A", "B"); !fault.IsCode(err, fault.CodeConflict) {
		t.Fatalf("duplicate email: want conflict, got %v", err)
	}
}

func TestRegisterWithoutBonus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	as := newAuthService(t, tx, "test-secret", time.Hour, 0)
	txnRepo := ledgerrepo.NewTransactionRepo(tx, testutil.Logger(t))
	accountRepo := ledgerrepo.NewAccountRepo(tx, testutil.Logger(t))

	result, err := as.Register(ctx, testutil.UniqueEmail(t), "hunter2hunter2", "A", "B")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	acct, err := accountRepo.GetByUserID(ctx, tx, result.User.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if acct.Balance != 0 {
		t.Fatalf("balance = %d, want 0", acct.Balance)
	}
	count, err := txnRepo.CountByUser(ctx, tx, result.User.ID)
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	if count != 0 {
		t.Fatalf("ledger entries = %d, want 0", count)
	}
}

func TestLogin(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	as := newAuthService(t, tx, "test-secret", time.Hour, 0)

	email := testutil.UniqueEmail(t)
	if _, err := as.Register(ctx, email, "hunter2hunter2", "Ada", "Lovelace"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Casing and padding on the email are forgiven at login.
	result, err := as.Login(ctx, "  "+email+"  ", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.Email != email {
		t.Fatalf("login user email = %q, want %q", result.User.Email, email)
	}
	parsed, err := as.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed != result.User.ID {
		t.Fatalf("token subject = %s, want %s", parsed, result.User.ID)
	}

	// Wrong password and unknown email fail identically so the response
	// does not leak which emails exist.
	_, wrongPass := as.Login(ctx, email, "wrong-password")
	_, unknown := as.Login(ctx, testutil.UniqueEmail(t), "hunter2hunter2")
	for name, err := range map[string]error{"wrong password": wrongPass, "unknown email": unknown} {
		if !fault.IsCode(err, fault.CodeUnauthorized) {
			t.Fatalf("%s: want unauthorized, got %v", name, err)
		}
		fe, ok := fault.As(err)
		if !ok || fe.Message != "invalid email or password" {
			t.Fatalf("%s: message = %v, want generic credentials message", name, err)
		}
	}
}
