package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	jobsrepo "github.com/mockly-app/mockly-backend/internal/data/repos/jobs"
	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
	"github.com/mockly-app/mockly-backend/internal/utils"
)

// HandlerFunc executes one claimed job. Returning an error marks the job
// failed and schedules a retry while attempts remain.
type HandlerFunc func(ctx context.Context, job *types.JobRun) error

const (
	pollInterval      = 1 * time.Second
	retryDelay        = 30 * time.Second
	staleRunning      = 30 * time.Minute
	heartbeatInterval = 30 * time.Second
	maxLastErrorLen   = 2000
)

// Worker polls the job_run table and dispatches claimed jobs to registered
// handlers. Delivery is at least once: a crashed worker leaves a running row
// with a stale heartbeat, which a later claim picks back up.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     jobsrepo.JobRunRepo
	handlers map[string]HandlerFunc
	kinds    []string
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo jobsrepo.JobRunRepo) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		handlers: map[string]HandlerFunc{},
	}
}

// Register binds a handler to a job kind. Call before Start; the handler
// map is read-only afterwards.
func (w *Worker) Register(kind string, h HandlerFunc) {
	if _, dup := w.handlers[kind]; dup {
		w.log.Warn("Handler already registered for kind, replacing", "kind", kind)
	} else {
		w.kinds = append(w.kinds, kind)
	}
	w.handlers[kind] = h
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 2, w.log)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting job worker pool", "concurrency", concurrency, "kinds", w.kinds)

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			for _, kind := range w.kinds {
				w.claimAndRun(ctx, workerID, kind)
			}
		}
	}
}

func (w *Worker) claimAndRun(ctx context.Context, workerID int, kind string) {
	job, err := w.repo.ClaimNextRunnable(ctx, nil, kind, retryDelay, staleRunning)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "kind", kind, "error", err)
		}
		return
	}
	if job == nil {
		return
	}

	h, ok := w.handlers[job.Kind]
	if !ok {
		w.markFailed(ctx, job, fmt.Errorf("no handler registered for kind %q", job.Kind))
		return
	}

	stopHB := w.startHeartbeat(ctx, job.ID)
	defer stopHB()

	runErr := w.runHandler(ctx, workerID, h, job)
	if runErr != nil {
		w.log.Warn("Job failed",
			"worker_id", workerID,
			"job_id", job.ID,
			"kind", job.Kind,
			"attempt", job.Attempts,
			"error", runErr,
		)
		w.markFailed(ctx, job, runErr)
		return
	}
	w.markSucceeded(ctx, job)
}

func (w *Worker) runHandler(ctx context.Context, workerID int, h HandlerFunc, job *types.JobRun) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic",
				"worker_id", workerID,
				"job_id", job.ID,
				"kind", job.Kind,
				"panic", r,
			)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, job)
}

// startHeartbeat refreshes heartbeat_at while a handler runs so the row is
// not mistaken for an abandoned one.
func (w *Worker) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := w.repo.Heartbeat(hbCtx, nil, jobID); err != nil && hbCtx.Err() == nil {
					w.log.Warn("Job heartbeat failed", "job_id", jobID, "error", err)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (w *Worker) markSucceeded(ctx context.Context, job *types.JobRun) {
	now := time.Now()
	err := w.repo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":       types.JobStatusSucceeded,
		"heartbeat_at": now,
		"last_error":   "",
	})
	if err != nil {
		w.log.Warn("Failed to mark job succeeded", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) markFailed(ctx context.Context, job *types.JobRun, cause error) {
	msg := cause.Error()
	if len(msg) > maxLastErrorLen {
		msg = msg[:maxLastErrorLen]
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":        types.JobStatusFailed,
		"last_error":    msg,
		"last_error_at": now,
	}
	if job.Attempts >= job.MaxAttempts {
		w.log.Error("Job exhausted attempts",
			"job_id", job.ID,
			"kind", job.Kind,
			"attempts", job.Attempts,
			"error", msg,
		)
	}
	if err := w.repo.UpdateFields(ctx, nil, job.ID, updates); err != nil {
		w.log.Warn("Failed to mark job failed", "job_id", job.ID, "error", err)
	}
}
