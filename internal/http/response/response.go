package response

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studyforge-backend/internal/platform/apierr"
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

// RespondErr maps err to its status and sentinel code. Errors without a code
// are reported as a generic 500 so internal details stay in the logs.
func RespondErr(c *gin.Context, err error) {
	code := apierr.CodeOf(err)
	status := apierr.StatusOf(err)
	if code == "" {
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if status == http.StatusTooManyRequests {
		if secs := retryAfterSeconds(code); secs != "" {
			c.Header("Retry-After", secs)
		}
	}
	msg := code
	var e *apierr.Error
	if errors.As(err, &e) && e.Err != nil {
		msg = e.Err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}

// retryAfterSeconds pulls <n> out of RATE_LIMITED_RETRY_AFTER_<n>_SECONDS.
func retryAfterSeconds(code string) string {
	if !strings.HasPrefix(code, apierr.PrefixRateLimited) {
		return ""
	}
	n := strings.TrimSuffix(strings.TrimPrefix(code, apierr.PrefixRateLimited), "_SECONDS")
	if _, err := strconv.Atoi(n); err != nil {
		return ""
	}
	return n
}
