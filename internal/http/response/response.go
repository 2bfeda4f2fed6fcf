package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mockly-app/mockly-backend/internal/domain/fault"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondFault translates a domain error into its HTTP shape. Unknown
// errors come out as 500 with the generic code.
func RespondFault(c *gin.Context, err error) {
	code := fault.CodeOf(err)
	status := statusForCode(code)

	msg := err.Error()
	if fe, ok := fault.As(err); ok && fe.Message != "" {
		msg = fe.Message
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    string(code),
		},
	})
}

func statusForCode(code fault.Code) int {
	switch code {
	case fault.CodeValidation, fault.CodeInvalidAmount:
		return http.StatusBadRequest
	case fault.CodeUnauthorized:
		return http.StatusUnauthorized
	case fault.CodeInsufficientCredits:
		return http.StatusPaymentRequired
	case fault.CodeAccountNotFound, fault.CodeNotFound:
		return http.StatusNotFound
	case fault.CodeConflict:
		return http.StatusConflict
	case fault.CodeStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
