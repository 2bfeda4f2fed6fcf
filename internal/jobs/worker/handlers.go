package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/services"
)

// StatsRecomputeHandler rebuilds one user's aggregate stats. Safe to run
// more than once for the same enqueue.
func StatsRecomputeHandler(stats services.StatsService) HandlerFunc {
	return func(ctx context.Context, job *types.JobRun) error {
		userID, err := jobUserID(job)
		if err != nil {
			return err
		}
		_, err = stats.Recompute(ctx, userID)
		return err
	}
}

func jobUserID(job *types.JobRun) (uuid.UUID, error) {
	if job.EntityID != nil && *job.EntityID != uuid.Nil {
		return *job.EntityID, nil
	}
	if len(job.Payload) > 0 {
		var p struct {
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(job.Payload, &p); err == nil && p.UserID != "" {
			return uuid.Parse(p.UserID)
		}
	}
	return uuid.Nil, fmt.Errorf("job %s carries no user id", job.ID)
}
