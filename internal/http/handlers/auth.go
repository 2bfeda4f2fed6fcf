package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/http/response"
	"github.com/mockly-app/mockly-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/register
// body: { "email": "...", "password": "...", "first_name": "...", "last_name": "..." }
func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFault(c, fault.New(fault.CodeValidation, "auth.register", "invalid request body", err))
		return
	}

	result, err := ah.authService.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondCreated(c, result)
}

// POST /api/login
// body: { "email": "...", "password": "..." }
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFault(c, fault.New(fault.CodeValidation, "auth.login", "invalid request body", err))
		return
	}

	result, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, result)
}
