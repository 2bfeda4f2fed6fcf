package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobsrepo "github.com/mockly-app/mockly-backend/internal/data/repos/jobs"
	progressrepo "github.com/mockly-app/mockly-backend/internal/data/repos/progress"
	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type ProgressService interface {
	RecordSession(ctx context.Context, userID uuid.UUID, input RecordSessionInput) (*types.ProgressRecord, error)
	ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.ProgressRecord, error)
}

// RecordSessionInput carries everything a finished practice session reports.
// OverallScore is intentionally absent: it is always derived here from the
// axis scores, never accepted from the client.
type RecordSessionInput struct {
	QuestionType           string
	QuestionText           string
	ContentScore           *float64
	VoiceScore             *float64
	FaceScore              *float64
	Transcript             string
	StarAnalysis           datatypes.JSON
	TipsProvided           datatypes.JSON
	SessionDurationSeconds int
	SessionDate            *time.Time
	Completed              *bool
}

const (
	defaultProgressPageSize = 20
	maxProgressPageSize     = 100
)

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	progressRepo progressrepo.ProgressRepo
	jobRepo      jobsrepo.JobRunRepo
	analytics    AnalyticsService
}

func NewProgressService(db *gorm.DB, log *logger.Logger, progressRepo progressrepo.ProgressRepo, jobRepo jobsrepo.JobRunRepo, analytics AnalyticsService) ProgressService {
	serviceLog := log.With("service", "ProgressService")
	return &progressService{
		db:           db,
		log:          serviceLog,
		progressRepo: progressRepo,
		jobRepo:      jobRepo,
		analytics:    analytics,
	}
}

func (ps *progressService) RecordSession(ctx context.Context, userID uuid.UUID, input RecordSessionInput) (*types.ProgressRecord, error) {
	const op = "progress.record_session"

	record := &types.ProgressRecord{
		ID:                     uuid.New(),
		UserID:                 userID,
		QuestionType:           input.QuestionType,
		QuestionText:           input.QuestionText,
		ContentScore:           input.ContentScore,
		VoiceScore:             input.VoiceScore,
		FaceScore:              input.FaceScore,
		OverallScore:           meanOfPresent(input.ContentScore, input.VoiceScore, input.FaceScore),
		Transcript:             input.Transcript,
		StarAnalysis:           input.StarAnalysis,
		TipsProvided:           input.TipsProvided,
		SessionDurationSeconds: input.SessionDurationSeconds,
		Completed:              true,
	}
	if input.SessionDate != nil {
		record.SessionDate = input.SessionDate.UTC()
	}
	if input.Completed != nil {
		record.Completed = *input.Completed
	}

	// The record and the recompute job commit together: the stats view can
	// lag but can never miss a session.
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cErr := ps.progressRepo.Create(ctx, tx, record); cErr != nil {
			return cErr
		}
		return ps.enqueueRecompute(ctx, tx, userID)
	})
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}

	ps.analytics.Capture(userID, "progress_saved", map[string]interface{}{
		"question_type": record.QuestionType,
		"overall_score": record.OverallScore,
	})
	return record, nil
}

// enqueueRecompute queues a stats rebuild unless an unclaimed one is already
// waiting. A running job does not suppress the enqueue; it may have read the
// history before this session landed.
func (ps *progressService) enqueueRecompute(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	queued, err := ps.jobRepo.HasQueued(ctx, tx, types.JobKindStatsRecompute, userID)
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
	job := &types.JobRun{
		Kind:       types.JobKindStatsRecompute,
		EntityType: types.JobEntityUser,
		EntityID:   &entityID,
		Status:     types.JobStatusQueued,
		Payload:    payload,
	}
	if err := ps.jobRepo.Create(ctx, tx, job); err != nil {
		return err
	}
	ps.log.Debug("Enqueued stats recompute", "user_id", userID, "job_id", job.ID)
	return nil
}

func (ps *progressService) ListSessions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.ProgressRecord, error) {
	if limit <= 0 {
		limit = defaultProgressPageSize
	}
	if limit > maxProgressPageSize {
		limit = maxProgressPageSize
	}
	if offset < 0 {
		offset = 0
	}

	records, err := ps.progressRepo.ListByUser(ctx, nil, userID, limit, offset)
	if err != nil {
		return nil, fault.MapStorage("progress.list_sessions", err)
	}
	return records, nil
}

// meanOfPresent averages the non-nil scores, nil when none are present.
func meanOfPresent(scores ...*float64) *float64 {
	var sum float64
	var n int
	for _, s := range scores {
		if s == nil {
			continue
		}
		sum += *s
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
