package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/http/response"
	"github.com/mockly-app/mockly-backend/internal/requestdata"
	"github.com/mockly-app/mockly-backend/internal/services"
)

type CreditsHandler struct {
	creditsService services.CreditsService
	catalog        services.PackCatalog
}

func NewCreditsHandler(creditsService services.CreditsService, catalog services.PackCatalog) *CreditsHandler {
	return &CreditsHandler{creditsService: creditsService, catalog: catalog}
}

// GET /api/credits/balance
func (ch *CreditsHandler) Balance(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())

	balance, err := ch.creditsService.Balance(c.Request.Context(), userID)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"credits": balance,
		"message": fmt.Sprintf("You have %d credits remaining", balance),
	})
}

// GET /api/credits/transactions?limit=20&offset=0
func (ch *CreditsHandler) Transactions(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	entries, total, err := ch.creditsService.Transactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"transactions":       entries,
		"total_transactions": total,
	})
}

// POST /api/credits/purchase
// body: { "amount": 10, "payment_method": "card" }
func (ch *CreditsHandler) Purchase(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())

	var req struct {
		Amount        int64  `json:"amount"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFault(c, fault.New(fault.CodeValidation, "credits.purchase", "invalid request body", err))
		return
	}

	entry, err := ch.creditsService.Purchase(c.Request.Context(), userID, req.Amount, req.PaymentMethod)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"credits": entry.BalanceAfter,
		"message": fmt.Sprintf("Successfully purchased %d credits. New balance: %d credits", req.Amount, entry.BalanceAfter),
	})
}

// POST /api/credits/refund
// body: { "amount": 1, "reason": "..." }
func (ch *CreditsHandler) Refund(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())

	var req struct {
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFault(c, fault.New(fault.CodeValidation, "credits.refund", "invalid request body", err))
		return
	}

	entry, err := ch.creditsService.Refund(c.Request.Context(), userID, req.Amount, req.Reason)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"credits": entry.BalanceAfter,
		"message": fmt.Sprintf("Successfully refunded %d credits. New balance: %d credits", req.Amount, entry.BalanceAfter),
	})
}

// GET /api/credits/packs
func (ch *CreditsHandler) Packs(c *gin.Context) {
	response.RespondOK(c, gin.H{"packs": ch.catalog.Packs()})
}

// POST /api/sessions/start
func (ch *CreditsHandler) StartSession(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())

	sessionID, balance, err := ch.creditsService.StartSession(c.Request.Context(), userID)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"session_id": sessionID,
		"credits":    balance,
		"message":    "Interview session started",
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
