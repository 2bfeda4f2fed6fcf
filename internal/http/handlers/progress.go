package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/http/response"
	"github.com/mockly-app/mockly-backend/internal/requestdata"
	"github.com/mockly-app/mockly-backend/internal/services"
)

type ProgressHandler struct {
	progressService services.ProgressService
	statsService    services.StatsService
}

func NewProgressHandler(progressService services.ProgressService, statsService services.StatsService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, statsService: statsService}
}

// POST /api/users/progress
func (ph *ProgressHandler) CreateProgress(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())

	var req struct {
		QuestionType           string         `json:"question_type"`
		QuestionText           string         `json:"question_text"`
		ContentScore           *float64       `json:"content_score"`
		VoiceScore             *float64       `json:"voice_score"`
		FaceScore              *float64       `json:"face_score"`
		Transcript             string         `json:"transcript"`
		StarAnalysis           datatypes.JSON `json:"star_analysis"`
		TipsProvided           datatypes.JSON `json:"tips_provided"`
		SessionDurationSeconds int            `json:"session_duration_seconds"`
		SessionDate            *time.Time     `json:"session_date"`
		Completed              *bool          `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFault(c, fault.New(fault.CodeValidation, "progress.record_session", "invalid request body", err))
		return
	}

	record, err := ph.progressService.RecordSession(c.Request.Context(), userID, services.RecordSessionInput{
		QuestionType:           req.QuestionType,
		QuestionText:           req.QuestionText,
		ContentScore:           req.ContentScore,
		VoiceScore:             req.VoiceScore,
		FaceScore:              req.FaceScore,
		Transcript:             req.Transcript,
		StarAnalysis:           req.StarAnalysis,
		TipsProvided:           req.TipsProvided,
		SessionDurationSeconds: req.SessionDurationSeconds,
		SessionDate:            req.SessionDate,
		Completed:              req.Completed,
	})
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondCreated(c, record)
}

// GET /api/users/progress?limit=20&offset=0
func (ph *ProgressHandler) ListProgress(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	records, err := ph.progressService.ListSessions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, records)
}

// GET /api/users/stats
func (ph *ProgressHandler) GetStats(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())

	stats, err := ph.statsService.Get(c.Request.Context(), userID)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, stats)
}
