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

type LessonHandler struct {
	svc services.LessonService
}

func NewLessonHandler(svc services.LessonService) *LessonHandler {
	return &LessonHandler{svc: svc}
}

// GET /api/lessons/:id
func (h *LessonHandler) GetLesson(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_lesson_id", errors.New("invalid lesson id"))
		return
	}
	lesson, err := h.svc.GetLesson(c.Request.Context(), lessonID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": audiopath.NormalizeLesson(lesson)})
}

// GET /api/courses/:id/lessons
func (h *LessonHandler) ListCourseLessons(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", errors.New("invalid course id"))
		return
	}
	lessons, err := h.svc.ListCourseLessons(c.Request.Context(), courseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lessons": normalizeLessonsAudio(lessons)})
}
