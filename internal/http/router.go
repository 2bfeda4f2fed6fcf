package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/mockly-app/mockly-backend/internal/http/handlers"
	httpMW "github.com/mockly-app/mockly-backend/internal/http/middleware"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	UserHandler     *httpH.UserHandler
	CreditsHandler  *httpH.CreditsHandler
	ProgressHandler *httpH.ProgressHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("mockly-backend"))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.PATCH("/me", cfg.UserHandler.UpdateMe)
		}

		// Credits
		if cfg.CreditsHandler != nil {
			protected.GET("/credits/balance", cfg.CreditsHandler.Balance)
			protected.GET("/credits/transactions", cfg.CreditsHandler.Transactions)
			protected.POST("/credits/purchase", cfg.CreditsHandler.Purchase)
			protected.POST("/credits/refund", cfg.CreditsHandler.Refund)
			protected.GET("/credits/packs", cfg.CreditsHandler.Packs)
			protected.POST("/sessions/start", cfg.CreditsHandler.StartSession)
		}

		// Progress + stats
		if cfg.ProgressHandler != nil {
			protected.POST("/users/progress", cfg.ProgressHandler.CreateProgress)
			protected.GET("/users/progress", cfg.ProgressHandler.ListProgress)
			protected.GET("/users/stats", cfg.ProgressHandler.GetStats)
		}

		// Profile + starred questions
		if cfg.UserHandler != nil {
			protected.GET("/users/profile", cfg.UserHandler.GetProfile)
			protected.GET("/users/starred-questions", cfg.UserHandler.ListStarred)
			protected.POST("/users/starred-questions", cfg.UserHandler.StarQuestion)
			protected.DELETE("/users/starred-questions/:question_id", cfg.UserHandler.UnstarQuestion)
		}
	}

	return r
}
