package db

import (
	"gorm.io/gorm"

	types "github.com/mockly-app/mockly-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Identity
		&types.User{},
		&types.StarredQuestion{},

		// Credit ledger
		&types.Account{},
		&types.CreditTransaction{},

		// Progress + derived stats
		&types.ProgressRecord{},
		&types.UserStats{},

		// Async work
		&types.JobRun{},
	)
}
