package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	progressrepo "github.com/mockly-app/mockly-backend/internal/data/repos/progress"
	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

// StatsService maintains the per-user aggregate view over progress records.
// Recompute derives every field from the full history, so running it twice
// in a row yields the same numbers.
type StatsService interface {
	Get(ctx context.Context, userID uuid.UUID) (*types.UserStats, error)
	Recompute(ctx context.Context, userID uuid.UUID) (*types.UserStats, error)
}

const statsCacheTTL = 5 * time.Minute

type statsService struct {
	db           *gorm.DB
	log          *logger.Logger
	statsRepo    progressrepo.StatsRepo
	progressRepo progressrepo.ProgressRepo
	rdb          *redis.Client
}

// NewStatsService wires the aggregator. rdb may be nil, which disables the
// read cache without changing behavior.
func NewStatsService(db *gorm.DB, log *logger.Logger, statsRepo progressrepo.StatsRepo, progressRepo progressrepo.ProgressRepo, rdb *redis.Client) StatsService {
	serviceLog := log.With("service", "StatsService")
	return &statsService{
		db:           db,
		log:          serviceLog,
		statsRepo:    statsRepo,
		progressRepo: progressRepo,
		rdb:          rdb,
	}
}

func statsCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("stats:v1:%s", userID)
}

func (ss *statsService) Get(ctx context.Context, userID uuid.UUID) (*types.UserStats, error) {
	const op = "stats.get"

	if cached := ss.readCache(ctx, userID); cached != nil {
		return cached, nil
	}

	stats, err := ss.statsRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}
	if stats == nil {
		// First read before any session: materialize the empty row so the
		// view exists from here on.
		stats = &types.UserStats{UserID: userID, UpdatedAt: time.Now().UTC()}
		if err := ss.statsRepo.Upsert(ctx, nil, stats); err != nil {
			return nil, fault.MapStorage(op, err)
		}
	}

	ss.writeCache(ctx, userID, stats)
	return stats, nil
}

func (ss *statsService) Recompute(ctx context.Context, userID uuid.UUID) (*types.UserStats, error) {
	const op = "stats.recompute"

	records, err := ss.progressRepo.ListAllByUser(ctx, nil, userID)
	if err != nil {
		return nil, fault.Wrap(fault.CodeAggregationFailure, op, err)
	}

	stats := aggregate(userID, records)
	if err := ss.statsRepo.Upsert(ctx, nil, stats); err != nil {
		return nil, fault.Wrap(fault.CodeAggregationFailure, op, err)
	}

	ss.invalidateCache(ctx, userID)
	ss.log.Debug("Recomputed user stats",
		"user_id", userID,
		"total_sessions", stats.TotalSessions,
		"streak_days", stats.StreakDays,
	)
	return stats, nil
}

// aggregate folds the complete history into one stats row. A user with no
// records still gets a row: zero sessions, all averages null.
func aggregate(userID uuid.UUID, records []*types.ProgressRecord) *types.UserStats {
	stats := &types.UserStats{
		UserID:        userID,
		TotalSessions: int64(len(records)),
		UpdatedAt:     time.Now().UTC(),
	}

	var content, voice, face, overall meanAcc
	var best *float64
	var mostRecent *time.Time

	for _, r := range records {
		content.add(r.ContentScore)
		voice.add(r.VoiceScore)
		face.add(r.FaceScore)
		overall.add(r.OverallScore)

		if r.OverallScore != nil && (best == nil || *r.OverallScore > *best) {
			v := *r.OverallScore
			best = &v
		}
		if mostRecent == nil || r.SessionDate.After(*mostRecent) {
			t := r.SessionDate
			mostRecent = &t
		}
	}

	stats.AverageContentScore = content.mean()
	stats.AverageVoiceScore = voice.mean()
	stats.AverageFaceScore = face.mean()
	stats.AverageOverallScore = overall.mean()
	stats.BestOverallScore = best
	stats.MostRecentSession = mostRecent
	stats.StreakDays = streakDays(records)
	return stats
}

type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(v *float64) {
	if v == nil {
		return
	}
	a.sum += *v
	a.n++
}

func (a *meanAcc) mean() *float64 {
	if a.n == 0 {
		return nil
	}
	m := a.sum / float64(a.n)
	return &m
}

// streakDays counts consecutive UTC calendar days with at least one
// completed session, ending at the most recent such day. A gap resets the
// run; no completed sessions means zero.
func streakDays(records []*types.ProgressRecord) int {
	days := make(map[time.Time]struct{})
	var latest time.Time
	for _, r := range records {
		if !r.Completed {
			continue
		}
		day := r.SessionDate.UTC().Truncate(24 * time.Hour)
		days[day] = struct{}{}
		if day.After(latest) {
			latest = day
		}
	}
	if len(days) == 0 {
		return 0
	}

	streak := 0
	for d := latest; ; d = d.AddDate(0, 0, -1) {
		if _, ok := days[d]; !ok {
			break
		}
		streak++
	}
	return streak
}

func (ss *statsService) readCache(ctx context.Context, userID uuid.UUID) *types.UserStats {
	if ss.rdb == nil {
		return nil
	}
	raw, err := ss.rdb.Get(ctx, statsCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			ss.log.Warn("Stats cache read failed", "user_id", userID, "error", err)
		}
		return nil
	}
	var stats types.UserStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		ss.log.Warn("Stats cache entry corrupt, dropping", "user_id", userID, "error", err)
		ss.invalidateCache(ctx, userID)
		return nil
	}
	return &stats
}

func (ss *statsService) writeCache(ctx context.Context, userID uuid.UUID, stats *types.UserStats) {
	if ss.rdb == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := ss.rdb.Set(ctx, statsCacheKey(userID), raw, statsCacheTTL).Err(); err != nil {
		ss.log.Warn("Stats cache write failed", "user_id", userID, "error", err)
	}
}

func (ss *statsService) invalidateCache(ctx context.Context, userID uuid.UUID) {
	if ss.rdb == nil {
		return
	}
	if err := ss.rdb.Del(ctx, statsCacheKey(userID)).Err(); err != nil {
		ss.log.Warn("Stats cache invalidation failed", "user_id", userID, "error", err)
	}
}
