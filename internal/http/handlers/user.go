package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mockly-app/mockly-backend/internal/domain/fault"
	"github.com/mockly-app/mockly-backend/internal/http/response"
	"github.com/mockly-app/mockly-backend/internal/requestdata"
	"github.com/mockly-app/mockly-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.Me(c.Request.Context(), requestdata.UserID(c.Request.Context()))
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}

// PATCH /api/me
// body: { "first_name": "...", "last_name": "...", "profile_picture_url": "..." }
func (uh *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		FirstName         *string `json:"first_name"`
		LastName          *string `json:"last_name"`
		ProfilePictureURL *string `json:"profile_picture_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFault(c, fault.New(fault.CodeValidation, "user.update_me", "invalid request body", err))
		return
	}

	me, err := uh.userService.UpdateMe(c.Request.Context(), requestdata.UserID(c.Request.Context()), services.UpdateProfileInput{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}

// GET /api/users/profile
func (uh *UserHandler) GetProfile(c *gin.Context) {
	profile, err := uh.userService.Profile(c.Request.Context(), requestdata.UserID(c.Request.Context()))
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, profile)
}

// GET /api/users/starred-questions
func (uh *UserHandler) ListStarred(c *gin.Context) {
	starred, err := uh.userService.ListStarred(c.Request.Context(), requestdata.UserID(c.Request.Context()))
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"starred_questions": starred})
}

// POST /api/users/starred-questions
// body: { "question_id": "..." }
func (uh *UserHandler) StarQuestion(c *gin.Context) {
	var req struct {
		QuestionID string `json:"question_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFault(c, fault.New(fault.CodeValidation, "user.star_question", "invalid request body", err))
		return
	}

	starred, err := uh.userService.Star(c.Request.Context(), requestdata.UserID(c.Request.Context()), req.QuestionID)
	if err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondCreated(c, starred)
}

// DELETE /api/users/starred-questions/:question_id
func (uh *UserHandler) UnstarQuestion(c *gin.Context) {
	questionID := c.Param("question_id")

	if err := uh.userService.Unstar(c.Request.Context(), requestdata.UserID(c.Request.Context()), questionID); err != nil {
		response.RespondFault(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Question unstarred successfully"})
}
