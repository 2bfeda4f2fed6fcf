package app

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/jobs/worker"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
	"github.com/mockly-app/mockly-backend/internal/services"
)

type Services struct {
	Analytics services.AnalyticsService
	Catalog   services.PackCatalog
	Credits   services.CreditsService
	Auth      services.AuthService
	Progress  services.ProgressService
	Stats     services.StatsService
	User      services.UserService

	JobWorker  *worker.Worker
	Reconciler *worker.Reconciler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, rdb *redis.Client) (Services, error) {
	log.Info("Wiring services...")

	analytics := services.NewAnalyticsService(log, cfg.PostHogAPIKey, cfg.PostHogHost)

	catalog, err := services.NewPackCatalog(log)
	if err != nil {
		return Services{}, err
	}

	credits := services.NewCreditsService(db, log, repos.Account, repos.Transaction, analytics)
	auth := services.NewAuthService(db, log, repos.User, repos.Account, credits, analytics, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.SignupBonus)
	progress := services.NewProgressService(db, log, repos.Progress, repos.JobRun, analytics)
	stats := services.NewStatsService(db, log, repos.Stats, repos.Progress, rdb)
	user := services.NewUserService(db, log, repos.User, repos.Starred, repos.Progress, stats)

	jobWorker := worker.NewWorker(db, log, repos.JobRun)
	jobWorker.Register(types.JobKindStatsRecompute, worker.StatsRecomputeHandler(stats))

	reconciler := worker.NewReconciler(db, log, repos.Stats, repos.JobRun)

	return Services{
		Analytics:  analytics,
		Catalog:    catalog,
		Credits:    credits,
		Auth:       auth,
		Progress:   progress,
		Stats:      stats,
		User:       user,
		JobWorker:  jobWorker,
		Reconciler: reconciler,
	}, nil
}
