package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
	"github.com/mockly-app/mockly-backend/internal/utils"
)

// Open connects to the configured database. DB_DRIVER selects postgres
// (default) or sqlite for local development and CI.
func Open(log *logger.Logger) (*gorm.DB, error) {
	driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "postgres", log))
	switch driver {
	case "postgres", "postgresql":
		svc, err := NewPostgresService(log)
		if err != nil {
			return nil, err
		}
		return svc.DB(), nil
	case "sqlite", "sqlite3":
		svc, err := NewSQLiteService(log)
		if err != nil {
			return nil, err
		}
		return svc.DB(), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}
