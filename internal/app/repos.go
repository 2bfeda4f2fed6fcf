package app

import (
	"gorm.io/gorm"

	jobsrepo "github.com/mockly-app/mockly-backend/internal/data/repos/jobs"
	ledgerrepo "github.com/mockly-app/mockly-backend/internal/data/repos/ledger"
	progressrepo "github.com/mockly-app/mockly-backend/internal/data/repos/progress"
	userrepo "github.com/mockly-app/mockly-backend/internal/data/repos/user"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type Repos struct {
	User    userrepo.UserRepo
	Starred userrepo.StarredQuestionRepo

	Account     ledgerrepo.AccountRepo
	Transaction ledgerrepo.TransactionRepo

	Progress progressrepo.ProgressRepo
	Stats    progressrepo.StatsRepo

	JobRun jobsrepo.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        userrepo.NewUserRepo(db, log),
		Starred:     userrepo.NewStarredQuestionRepo(db, log),
		Account:     ledgerrepo.NewAccountRepo(db, log),
		Transaction: ledgerrepo.NewTransactionRepo(db, log),
		Progress:    progressrepo.NewProgressRepo(db, log),
		Stats:       progressrepo.NewStatsRepo(db, log),
		JobRun:      jobsrepo.NewJobRunRepo(db, log),
	}
}
