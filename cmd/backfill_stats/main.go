package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mockly-app/mockly-backend/internal/app"
	types "github.com/mockly-app/mockly-backend/internal/domain"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var users idList
	var dryRun bool
	var limit int
	flag.Var(&users, "user", "user_id to recompute (repeatable; default: all stale users)")
	flag.BoolVar(&dryRun, "dry-run", false, "print planned jobs without enqueueing")
	flag.IntVar(&limit, "limit", 1000, "limit number of users scanned for staleness")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()

	var ids []uuid.UUID
	if len(users) > 0 {
		for _, s := range users {
			id, err := uuid.Parse(strings.TrimSpace(s))
			if err == nil && id != uuid.Nil {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			fmt.Println("no valid user_id values provided")
			return
		}
	} else {
		ids, err = application.Repos.Stats.ListStaleUserIDs(ctx, nil, limit)
		if err != nil {
			fmt.Printf("list stale users: %v\n", err)
			os.Exit(1)
		}
	}

	enqueued := 0
	skipped := 0
	for _, userID := range ids {
		if userID == uuid.Nil {
			continue
		}
		if dryRun {
			fmt.Printf("[dry-run] enqueue %s user_id=%s\n", types.JobKindStatsRecompute, userID.String())
			continue
		}
		err := application.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			queued, err := application.Repos.JobRun.HasQueued(ctx, tx, types.JobKindStatsRecompute, userID)
			if err != nil {
				return err
			}
			if queued {
				skipped++
				return nil
			}
			payload, err := json.Marshal(map[string]string{"user_id": userID.String()})
			if err != nil {
				return err
			}
			entityID := userID
			if err := application.Repos.JobRun.Create(ctx, tx, &types.JobRun{
				Kind:       types.JobKindStatsRecompute,
				EntityType: types.JobEntityUser,
				EntityID:   &entityID,
				Status:     types.JobStatusQueued,
				Payload:    payload,
			}); err != nil {
				return err
			}
			enqueued++
			return nil
		})
		if err != nil {
			fmt.Printf("enqueue failed for user %s: %v\n", userID.String(), err)
			continue
		}
	}

	fmt.Printf("done; enqueued=%d skipped=%d\n", enqueued, skipped)
}
