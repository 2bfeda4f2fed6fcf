package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	jobsrepo "github.com/mockly-app/mockly-backend/internal/data/repos/jobs"
	progressrepo "github.com/mockly-app/mockly-backend/internal/data/repos/progress"
	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

const (
	reconcileInterval    = 5 * time.Minute
	reconcileScanLimit   = 200
	reconcileConcurrency = 4
)

// Reconciler is the backstop behind the inline enqueue: it sweeps for users
// whose stats row is missing or older than their newest progress record and
// queues a recompute. Covers lost jobs and ones that exhausted retries.
type Reconciler struct {
	db        *gorm.DB
	log       *logger.Logger
	statsRepo progressrepo.StatsRepo
	jobRepo   jobsrepo.JobRunRepo
}

func NewReconciler(db *gorm.DB, baseLog *logger.Logger, statsRepo progressrepo.StatsRepo, jobRepo jobsrepo.JobRunRepo) *Reconciler {
	return &Reconciler{
		db:        db,
		log:       baseLog.With("component", "StatsReconciler"),
		statsRepo: statsRepo,
		jobRepo:   jobRepo,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.log.Info("Reconciler stopped")
				return
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	}()
}

func (r *Reconciler) sweep(ctx context.Context) {
	ids, err := r.statsRepo.ListStaleUserIDs(ctx, nil, reconcileScanLimit)
	if err != nil {
		r.log.Warn("Stale stats scan failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	r.log.Info("Reconciling stale user stats", "users", len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, id := range ids {
		userID := id
		g.Go(func() error {
			if err := r.enqueue(gctx, userID); err != nil {
				r.log.Warn("Failed to enqueue recompute", "user_id", userID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Reconciler) enqueue(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		queued, err := r.jobRepo.HasQueued(ctx, tx, types.JobKindStatsRecompute, userID)
		if err != nil {
			return err
		}
		if queued {
			return nil
		}
		payload, err := json.Marshal(map[string]string{"user_id": userID.String()})
		if err != nil {
			return err
		}
		entityID := userID
		return r.jobRepo.Create(ctx, tx, &types.JobRun{
			Kind:       types.JobKindStatsRecompute,
			EntityType: types.JobEntityUser,
			EntityID:   &entityID,
			Status:     types.JobStatusQueued,
			Payload:    payload,
		})
	})
}
