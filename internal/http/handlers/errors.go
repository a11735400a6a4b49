package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursefront-backend/internal/http/response"
	"github.com/yungbote/coursefront-backend/internal/platform/apierr"
	"github.com/yungbote/coursefront-backend/internal/services"
)

func mapServiceError(err error) *apierr.Error {
	switch {
	case errors.Is(err, services.ErrLessonNotFound):
		return apierr.New(http.StatusNotFound, "lesson_not_found", err)
	case errors.Is(err, services.ErrCourseNotFound):
		return apierr.New(http.StatusNotFound, "course_not_found", err)
	case errors.Is(err, services.ErrInvalidRequest):
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, services.ErrOrderingInvariant):
		return apierr.New(http.StatusInternalServerError, "ordering_invariant", err)
	case errors.Is(err, context.Canceled):
		return apierr.New(499, "request_cancelled", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}

func respondServiceError(c *gin.Context, err error) {
	response.RespondAPIError(c, mapServiceError(err))
}
