package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	jobsrepo "github.com/mockly-app/mockly-backend/internal/data/repos/jobs"
	ledgerrepo "github.com/mockly-app/mockly-backend/internal/data/repos/ledger"
	progressrepo "github.com/mockly-app/mockly-backend/internal/data/repos/progress"
	"github.com/mockly-app/mockly-backend/internal/data/repos/testutil"
	userrepo "github.com/mockly-app/mockly-backend/internal/data/repos/user"
	httpH "github.com/mockly-app/mockly-backend/internal/http/handlers"
	httpMW "github.com/mockly-app/mockly-backend/internal/http/middleware"
	"github.com/mockly-app/mockly-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSignupBonus = 3

// testRouter assembles the full API surface on top of the given handle,
// mirroring the production wiring minus Redis and OTel exporters.
func testRouter(tb testing.TB, tx *gorm.DB) *gin.Engine {
	tb.Helper()
	tb.Setenv("CREDIT_PACKS_YAML", "")

	log := testutil.Logger(tb)
	userRepo := userrepo.NewUserRepo(tx, log)
	starredRepo := userrepo.NewStarredQuestionRepo(tx, log)
	accountRepo := ledgerrepo.NewAccountRepo(tx, log)
	txnRepo := ledgerrepo.NewTransactionRepo(tx, log)
	progressRepo := progressrepo.NewProgressRepo(tx, log)
	statsRepo := progressrepo.NewStatsRepo(tx, log)
	jobRepo := jobsrepo.NewJobRunRepo(tx, log)

	analytics := services.NewAnalyticsService(log, "", "")
	catalog, err := services.NewPackCatalog(log)
	if err != nil {
		tb.Fatalf("catalog: %v", err)
	}
	credits := services.NewCreditsService(tx, log, accountRepo, txnRepo, analytics)
	auth := services.NewAuthService(tx, log, userRepo, accountRepo, credits, analytics, "router-secret", time.Hour, testSignupBonus)
	progress := services.NewProgressService(tx, log, progressRepo, jobRepo, analytics)
	stats := services.NewStatsService(tx, log, statsRepo, progressRepo, nil)
	user := services.NewUserService(tx, log, userRepo, starredRepo, progressRepo, stats)

	return NewRouter(RouterConfig{
		Log:             log,
		AuthHandler:     httpH.NewAuthHandler(auth),
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, auth),
		UserHandler:     httpH.NewUserHandler(user),
		CreditsHandler:  httpH.NewCreditsHandler(credits, catalog),
		ProgressHandler: httpH.NewProgressHandler(progress, stats),
		HealthHandler:   httpH.NewHealthHandler(),
	})
}

func do(tb testing.TB, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	tb.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			tb.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode(tb testing.TB, rr *httptest.ResponseRecorder, out any) {
	tb.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		tb.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func registerUser(tb testing.TB, r *gin.Engine) (userID, token string) {
	tb.Helper()
	rr := do(tb, r, http.MethodPost, "/api/register", "", gin.H{
		"email":      testutil.UniqueEmail(tb),
		"password":   "hunter2hunter2",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	})
	if rr.Code != http.StatusCreated {
		tb.Fatalf("register: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	decode(tb, rr, &out)
	if out.AccessToken == "" {
		tb.Fatal("register returned no access token")
	}
	return out.User.ID, out.AccessToken
}

func TestHealthcheck(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	r := testRouter(t, tx)

	rr := do(t, r, http.MethodGet, "/healthcheck", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "ok" {
		t.Fatalf("body = %q, want ok", rr.Body.String())
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	r := testRouter(t, tx)

	for _, path := range []string{
		"/api/me",
		"/api/credits/balance",
		"/api/users/stats",
		"/api/users/profile",
	} {
		rr := do(t, r, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestCreditsFlow(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	r := testRouter(t, tx)

	_, token := registerUser(t, r)

	// The welcome bonus lands before the first balance read.
	rr := do(t, r, http.MethodGet, "/api/credits/balance", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("balance: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var balance struct {
		Credits int64  `json:"credits"`
		Message string `json:"message"`
	}
	decode(t, rr, &balance)
	if balance.Credits != testSignupBonus {
		t.Fatalf("credits = %d, want %d", balance.Credits, testSignupBonus)
	}
	if balance.Message != fmt.Sprintf("You have %d credits remaining", testSignupBonus) {
		t.Fatalf("message = %q", balance.Message)
	}

	rr = do(t, r, http.MethodPost, "/api/credits/purchase", token, gin.H{"amount": 10})
	if rr.Code != http.StatusOK {
		t.Fatalf("purchase: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var purchase struct {
		Credits int64  `json:"credits"`
		Message string `json:"message"`
	}
	decode(t, rr, &purchase)
	if purchase.Credits != 13 {
		t.Fatalf("credits after purchase = %d, want 13", purchase.Credits)
	}
	if purchase.Message != "Successfully purchased 10 credits. New balance: 13 credits" {
		t.Fatalf("message = %q", purchase.Message)
	}

	rr = do(t, r, http.MethodPost, "/api/sessions/start", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("session start: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var started struct {
		SessionID string `json:"session_id"`
		Credits   int64  `json:"credits"`
	}
	decode(t, rr, &started)
	if started.SessionID == "" {
		t.Fatal("no session id")
	}
	if started.Credits != 12 {
		t.Fatalf("credits after start = %d, want 12", started.Credits)
	}

	rr = do(t, r, http.MethodPost, "/api/credits/refund", token, gin.H{"amount": 1, "reason": "aborted session"})
	if rr.Code != http.StatusOK {
		t.Fatalf("refund: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var refund struct {
		Credits int64 `json:"credits"`
	}
	decode(t, rr, &refund)
	if refund.Credits != 13 {
		t.Fatalf("credits after refund = %d, want 13", refund.Credits)
	}

	rr = do(t, r, http.MethodGet, "/api/credits/transactions", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("transactions: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var txns struct {
		Transactions []struct {
			TransactionType string `json:"transaction_type"`
			CreditsChange   int64  `json:"credits_change"`
			BalanceAfter    int64  `json:"balance_after"`
		} `json:"transactions"`
		TotalTransactions int64 `json:"total_transactions"`
	}
	decode(t, rr, &txns)
	if txns.TotalTransactions != 4 {
		t.Fatalf("total_transactions = %d, want 4 (bonus, purchase, start, refund)", txns.TotalTransactions)
	}
	if txns.Transactions[0].TransactionType != "refund" || txns.Transactions[0].BalanceAfter != 13 {
		t.Fatalf("newest txn = %+v", txns.Transactions[0])
	}

	rr = do(t, r, http.MethodGet, "/api/credits/packs", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("packs: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var packs struct {
		Packs []struct {
			ID string `json:"id"`
		} `json:"packs"`
	}
	decode(t, rr, &packs)
	if len(packs.Packs) != 3 {
		t.Fatalf("packs = %d, want 3", len(packs.Packs))
	}
}

func TestCreditsFaultStatuses(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	r := testRouter(t, tx)

	_, token := registerUser(t, r)

	rr := do(t, r, http.MethodPost, "/api/credits/purchase", token, gin.H{"amount": 0})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("zero purchase: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, rr, &envelope)
	if envelope.Error.Code != "invalid_amount" {
		t.Fatalf("code = %q, want invalid_amount", envelope.Error.Code)
	}

	// Burn through the signup bonus; the next start must be refused with
	// 402 and leave the balance untouched.
	for i := 0; i < testSignupBonus; i++ {
		rr = do(t, r, http.MethodPost, "/api/sessions/start", token, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("start %d: status=%d body=%s", i, rr.Code, rr.Body.String())
		}
	}
	rr = do(t, r, http.MethodPost, "/api/sessions/start", token, nil)
	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("broke start: status=%d body=%s", rr.Code, rr.Body.String())
	}
	decode(t, rr, &envelope)
	if envelope.Error.Code != "insufficient_credits" {
		t.Fatalf("code = %q, want insufficient_credits", envelope.Error.Code)
	}

	rr = do(t, r, http.MethodGet, "/api/credits/balance", token, nil)
	var balance struct {
		Credits int64 `json:"credits"`
	}
	decode(t, rr, &balance)
	if balance.Credits != 0 {
		t.Fatalf("credits = %d, want 0", balance.Credits)
	}
}

func TestRegisterConflictAndValidation(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	r := testRouter(t, tx)

	email := testutil.UniqueEmail(t)
	body := gin.H{"email": email, "password": "hunter2hunter2", "first_name": "A", "last_name": "B"}

	rr := do(t, r, http.MethodPost, "/api/register", "", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, r, http.MethodPost, "/api/register", "", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, r, http.MethodPost, "/api/register", "", gin.H{"email": "nope", "password": "hunter2hunter2"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad email: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, r, http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "wrong-password"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, r, http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "hunter2hunter2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestProgressAndProfileFlow(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	r := testRouter(t, tx)

	userID, token := registerUser(t, r)

	rr := do(t, r, http.MethodPost, "/api/users/progress", token, gin.H{
		"question_type":            "behavioral",
		"question_text":            "Tell me about yourself.",
		"voice_score":              3.5,
		"transcript":               "Well...",
		"session_duration_seconds": 240,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create progress: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var record struct {
		UserID       string   `json:"user_id"`
		OverallScore *float64 `json:"overall_score"`
	}
	decode(t, rr, &record)
	if record.UserID != userID {
		t.Fatalf("record user = %q, want %q", record.UserID, userID)
	}
	if record.OverallScore == nil || *record.OverallScore != 3.5 {
		t.Fatalf("overall_score = %v, want 3.5", record.OverallScore)
	}

	rr = do(t, r, http.MethodGet, "/api/users/progress", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list progress: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var records []json.RawMessage
	decode(t, rr, &records)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	// The stats view materializes on first read; the recompute itself is
	// asynchronous, so a fresh row still reports zero sessions.
	rr = do(t, r, http.MethodGet, "/api/users/stats", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var stats struct {
		UserID        string `json:"user_id"`
		TotalSessions int64  `json:"total_sessions"`
	}
	decode(t, rr, &stats)
	if stats.UserID != userID {
		t.Fatalf("stats user = %q, want %q", stats.UserID, userID)
	}

	rr = do(t, r, http.MethodPost, "/api/users/starred-questions", token, gin.H{"question_id": "q-100"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("star: status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, r, http.MethodGet, "/api/users/starred-questions", token, nil)
	var starred struct {
		StarredQuestions []struct {
			QuestionID string `json:"question_id"`
		} `json:"starred_questions"`
	}
	decode(t, rr, &starred)
	if len(starred.StarredQuestions) != 1 || starred.StarredQuestions[0].QuestionID != "q-100" {
		t.Fatalf("starred = %+v", starred.StarredQuestions)
	}

	rr = do(t, r, http.MethodGet, "/api/users/profile", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("profile: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var profile struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Stats            json.RawMessage   `json:"stats"`
		RecentProgress   []json.RawMessage `json:"recent_progress"`
		StarredQuestions []json.RawMessage `json:"starred_questions"`
	}
	decode(t, rr, &profile)
	if profile.User.ID != userID {
		t.Fatalf("profile user = %q, want %q", profile.User.ID, userID)
	}
	if len(profile.Stats) == 0 {
		t.Fatal("profile has no stats section")
	}
	if len(profile.RecentProgress) != 1 || len(profile.StarredQuestions) != 1 {
		t.Fatalf("profile sections = (%d, %d), want (1, 1)", len(profile.RecentProgress), len(profile.StarredQuestions))
	}

	rr = do(t, r, http.MethodDelete, "/api/users/starred-questions/q-100", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("unstar: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var unstar struct {
		Message string `json:"message"`
	}
	decode(t, rr, &unstar)
	if unstar.Message != "Question unstarred successfully" {
		t.Fatalf("message = %q", unstar.Message)
	}
	rr = do(t, r, http.MethodDelete, "/api/users/starred-questions/q-100", token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second unstar: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUpdateMeOverHTTP(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	r := testRouter(t, tx)

	_, token := registerUser(t, r)

	rr := do(t, r, http.MethodPatch, "/api/me", token, gin.H{"first_name": "Grace"})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch me: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Me struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"me"`
	}
	decode(t, rr, &out)
	if out.Me.FirstName != "Grace" {
		t.Fatalf("first_name = %q, want Grace", out.Me.FirstName)
	}
	if out.Me.LastName != "Lovelace" {
		t.Fatalf("last_name = %q, want untouched Lovelace", out.Me.LastName)
	}
}
