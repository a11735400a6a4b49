package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursefront-backend/internal/platform/apierr"
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

// RespondAPIError writes err using the status and code of the *apierr.Error
// in its chain. For 5xx the message is replaced by the status text and err is
// attached to the gin context for the request logger.
func RespondAPIError(c *gin.Context, err error) {
	status, code := apierr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		RespondError(c, status, code, errors.New(http.StatusText(status)))
		return
	}
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
