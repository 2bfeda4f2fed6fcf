package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record stores the outcome of one completed interview practice session.
// Score axes are nullable; OverallScore is the mean of whichever axes were
// present at creation time and is never recomputed afterwards.
type Record struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_progress_user_session,priority:1" json:"user_id"`
	SessionDate  time.Time `gorm:"not null;index:idx_progress_user_session,priority:2" json:"session_date"`
	QuestionType string    `gorm:"column:question_type" json:"question_type"`
	QuestionText string    `gorm:"column:question_text" json:"question_text"`

	ContentScore *float64 `gorm:"column:content_score" json:"content_score"`
	VoiceScore   *float64 `gorm:"column:voice_score" json:"voice_score"`
	FaceScore    *float64 `gorm:"column:face_score" json:"face_score"`
	OverallScore *float64 `gorm:"column:overall_score" json:"overall_score"`

	Transcript   string         `gorm:"column:transcript" json:"transcript"`
	StarAnalysis datatypes.JSON `gorm:"column:star_analysis" json:"star_analysis,omitempty"`
	TipsProvided datatypes.JSON `gorm:"column:tips_provided" json:"tips_provided,omitempty"`

	SessionDurationSeconds int  `gorm:"column:session_duration_seconds" json:"session_duration_seconds"`
	Completed              bool `gorm:"not null;default:true;column:completed" json:"completed"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Record) TableName() string { return "progress_record" }

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.SessionDate.IsZero() {
		r.SessionDate = time.Now().UTC()
	}
	return nil
}

// UserStats is a materialized view over a user's Records: every field is
// derivable from the full history, and recompute overwrites the whole row.
type UserStats struct {
	UserID        uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	TotalSessions int64     `gorm:"not null;default:0;column:total_sessions" json:"total_sessions"`

	AverageContentScore *float64 `gorm:"column:average_content_score" json:"average_content_score"`
	AverageVoiceScore   *float64 `gorm:"column:average_voice_score" json:"average_voice_score"`
	AverageFaceScore    *float64 `gorm:"column:average_face_score" json:"average_face_score"`
	AverageOverallScore *float64 `gorm:"column:average_overall_score" json:"average_overall_score"`
	BestOverallScore    *float64 `gorm:"column:best_overall_score" json:"best_overall_score"`

	MostRecentSession *time.Time `gorm:"column:most_recent_session" json:"most_recent_session"`
	StreakDays        int        `gorm:"not null;default:0;column:streak_days" json:"streak_days"`

	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserStats) TableName() string { return "user_stats" }
