package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	progressrepo "github.com/mockly-app/mockly-backend/internal/data/repos/progress"
	userrepo "github.com/mockly-app/mockly-backend/internal/data/repos/user"
	types "github.com/mockly-app/mockly-backend/internal/domain"
	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
)

type UserService interface {
	Me(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, patch UpdateProfileInput) (*types.User, error)
	Profile(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	Star(ctx context.Context, userID uuid.UUID, questionID string) (*types.StarredQuestion, error)
	Unstar(ctx context.Context, userID uuid.UUID, questionID string) error
	ListStarred(ctx context.Context, userID uuid.UUID) ([]*types.StarredQuestion, error)
}

// UpdateProfileInput is a sparse patch: nil fields are left untouched.
type UpdateProfileInput struct {
	FirstName         *string
	LastName          *string
	ProfilePictureURL *string
}

// UserProfile is the one-call dashboard payload: identity, aggregates,
// the ten most recent sessions and the starred question list.
type UserProfile struct {
	User             *types.User              `json:"user"`
	Stats            *types.UserStats         `json:"stats"`
	RecentProgress   []*types.ProgressRecord  `json:"recent_progress"`
	StarredQuestions []*types.StarredQuestion `json:"starred_questions"`
}

const profileRecentSessions = 10

type userService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     userrepo.UserRepo
	starredRepo  userrepo.StarredQuestionRepo
	progressRepo progressrepo.ProgressRepo
	stats        StatsService
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo userrepo.UserRepo, starredRepo userrepo.StarredQuestionRepo, progressRepo progressrepo.ProgressRepo, stats StatsService) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{
		db:           db,
		log:          serviceLog,
		userRepo:     userRepo,
		starredRepo:  starredRepo,
		progressRepo: progressRepo,
		stats:        stats,
	}
}

func (us *userService) Me(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	u, err := us.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fault.MapStorage("user.me", err)
	}
	return u, nil
}

func (us *userService) UpdateMe(ctx context.Context, userID uuid.UUID, patch UpdateProfileInput) (*types.User, error) {
	const op = "user.update_me"

	fields := map[string]interface{}{}
	if patch.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*patch.LastName)
	}
	if patch.ProfilePictureURL != nil {
		fields["profile_picture_url"] = strings.TrimSpace(*patch.ProfilePictureURL)
	}
	if len(fields) == 0 {
		return us.Me(ctx, userID)
	}

	var updated *types.User
	err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if uErr := us.userRepo.UpdateProfile(ctx, tx, userID, fields); uErr != nil {
			return uErr
		}
		var gErr error
		updated, gErr = us.userRepo.GetByID(ctx, tx, userID)
		return gErr
	})
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}
	return updated, nil
}

func (us *userService) Profile(ctx context.Context, userID uuid.UUID) (*UserProfile, error) {
	const op = "user.profile"

	u, err := us.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}
	stats, err := us.stats.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := us.progressRepo.ListByUser(ctx, nil, userID, profileRecentSessions, 0)
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}
	starred, err := us.starredRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}

	return &UserProfile{
		User:             u,
		Stats:            stats,
		RecentProgress:   recent,
		StarredQuestions: starred,
	}, nil
}

func (us *userService) Star(ctx context.Context, userID uuid.UUID, questionID string) (*types.StarredQuestion, error) {
	const op = "user.star_question"

	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return nil, fault.New(fault.CodeValidation, op, "question_id is required", nil)
	}

	sq, err := us.starredRepo.Star(ctx, nil, userID, questionID)
	if err != nil {
		return nil, fault.MapStorage(op, err)
	}
	return sq, nil
}

func (us *userService) Unstar(ctx context.Context, userID uuid.UUID, questionID string) error {
	if err := us.starredRepo.Unstar(ctx, nil, userID, strings.TrimSpace(questionID)); err != nil {
		return fault.MapStorage("user.unstar_question", err)
	}
	return nil
}

func (us *userService) ListStarred(ctx context.Context, userID uuid.UUID) ([]*types.StarredQuestion, error) {
	starred, err := us.starredRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fault.MapStorage("user.list_starred", err)
	}
	return starred, nil
}
