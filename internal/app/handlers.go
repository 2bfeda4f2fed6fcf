package app

import (
	httpH "github.com/mockly-app/mockly-backend/internal/http/handlers"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	User     *httpH.UserHandler
	Credits  *httpH.CreditsHandler
	Progress *httpH.ProgressHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Auth:     httpH.NewAuthHandler(services.Auth),
		User:     httpH.NewUserHandler(services.User),
		Credits:  httpH.NewCreditsHandler(services.Credits, services.Catalog),
		Progress: httpH.NewProgressHandler(services.Progress, services.Stats),
	}
}
