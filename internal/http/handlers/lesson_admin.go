package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursefront-backend/internal/http/response"
	"github.com/yungbote/coursefront-backend/internal/learning/audiopath"
	"github.com/yungbote/coursefront-backend/internal/services"
)

type LessonAdminHandler struct {
	lessons services.LessonService
	coord   services.ReorderCoordinator
}

func NewLessonAdminHandler(lessons services.LessonService, coord services.ReorderCoordinator) *LessonAdminHandler {
	return &LessonAdminHandler{lessons: lessons, coord: coord}
}

type updatePositionRequest struct {
	Position *int `json:"position"`
}

// PATCH /api/admin/lessons/:id/position
func (h *LessonAdminHandler) UpdatePosition(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_lesson_id", errors.New("invalid lesson id"))
		return
	}
	var req updatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Position == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("position is required"))
		return
	}
	lesson, err := h.coord.HandleReorderRequest(c.Request.Context(), lessonID, *req.Position)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": audiopath.NormalizeLesson(lesson)})
}

// POST /api/admin/courses/:id/lessons
func (h *LessonAdminHandler) CreateLesson(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", errors.New("invalid course id"))
		return
	}
	var req services.CreateLessonInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	lesson, err := h.lessons.CreateLesson(c.Request.Context(), courseID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lesson": audiopath.NormalizeLesson(lesson)})
}

// DELETE /api/admin/lessons/:id
func (h *LessonAdminHandler) DeleteLesson(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_lesson_id", errors.New("invalid lesson id"))
		return
	}
	if err := h.coord.RemoveLesson(c.Request.Context(), lessonID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/admin/courses/:id/audio/migrate
func (h *LessonAdminHandler) MigrateCourseAudio(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", errors.New("invalid course id"))
		return
	}
	reports, err := h.coord.MigrateCourseAudio(c.Request.Context(), courseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reports": reports})
}
