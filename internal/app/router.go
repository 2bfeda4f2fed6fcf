package app

import (
	httpS "github.com/mockly-app/mockly-backend/internal/http"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

func wireRouter(log *logger.Logger, handlers Handlers, middleware Middleware) *httpS.Server {
	return httpS.NewServer(httpS.RouterConfig{
		Log:             log,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		UserHandler:     handlers.User,
		CreditsHandler:  handlers.Credits,
		ProgressHandler: handlers.Progress,
		HealthHandler:   handlers.Health,
	})
}
