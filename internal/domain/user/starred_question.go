package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StarredQuestion bookmarks a practice question for a user. (user_id,
// question_id) is unique so starring twice is a no-op.
type StarredQuestion struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_starred_user_question" json:"user_id"`
	QuestionID string    `gorm:"not null;uniqueIndex:idx_starred_user_question;column:question_id" json:"question_id"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}

func (StarredQuestion) TableName() string { return "starred_question" }

func (s *StarredQuestion) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
