package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const (
	KindStatsRecompute = "stats.recompute"
)

const (
	EntityUser = "user"
)

// JobRun is one unit of asynchronous work, claimed and executed by the
// worker pool. Rows are claimed with FOR UPDATE SKIP LOCKED so multiple
// workers never run the same job concurrently.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind        string         `gorm:"not null;index:idx_job_run_kind_status,priority:1;column:kind" json:"kind"`
	EntityType  string         `gorm:"column:entity_type" json:"entity_type,omitempty"`
	EntityID    *uuid.UUID     `gorm:"type:uuid;column:entity_id;index" json:"entity_id,omitempty"`
	Status      string         `gorm:"not null;index:idx_job_run_kind_status,priority:2;column:status" json:"status"`
	Attempts    int            `gorm:"not null;default:0;column:attempts" json:"attempts"`
	MaxAttempts int            `gorm:"not null;default:5;column:max_attempts" json:"max_attempts"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	LastError   string         `gorm:"column:last_error" json:"last_error,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	RunAfter    *time.Time     `gorm:"column:run_after;index" json:"run_after,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }

func (j *JobRun) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
