package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mockly-app/mockly-backend/internal/domain/fault"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusForCode(t *testing.T) {
	cases := []struct {
		code fault.Code
		want int
	}{
		{fault.CodeValidation, http.StatusBadRequest},
		{fault.CodeInvalidAmount, http.StatusBadRequest},
		{fault.CodeUnauthorized, http.StatusUnauthorized},
		{fault.CodeInsufficientCredits, http.StatusPaymentRequired},
		{fault.CodeAccountNotFound, http.StatusNotFound},
		{fault.CodeNotFound, http.StatusNotFound},
		{fault.CodeConflict, http.StatusConflict},
		{fault.CodeStorageFailure, http.StatusServiceUnavailable},
		{fault.CodeAggregationFailure, http.StatusInternalServerError},
		{fault.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := statusForCode(tc.code); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRespondFault(t *testing.T) {
	t.Run("domain error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rr)

		RespondFault(c, fault.New(fault.CodeInsufficientCredits, "credits.debit", "balance 0 is below required 1", nil))

		if rr.Code != http.StatusPaymentRequired {
			t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
		}
		var envelope ErrorEnvelope
		if err := json.NewDecoder(rr.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if envelope.Error.Code != string(fault.CodeInsufficientCredits) {
			t.Fatalf("code = %q, want insufficient_credits", envelope.Error.Code)
		}
		if envelope.Error.Message != "balance 0 is below required 1" {
			t.Fatalf("message = %q", envelope.Error.Message)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rr)

		RespondFault(c, errors.New("something broke"))

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
		}
		var envelope ErrorEnvelope
		if err := json.NewDecoder(rr.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if envelope.Error.Code != string(fault.CodeInternal) {
			t.Fatalf("code = %q, want internal", envelope.Error.Code)
		}
	})
}
