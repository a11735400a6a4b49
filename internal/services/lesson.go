package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	learningrepo "github.com/yungbote/coursefront-backend/internal/data/repos/learning"
	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/domain/learning"
	"github.com/yungbote/coursefront-backend/internal/platform/dbctx"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type CreateLessonInput struct {
	Title   string        `json:"title"`
	Content string        `json:"content"`
	Slides  []types.Slide `json:"slides"`
}

type LessonService interface {
	GetLesson(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, error)
	ListCourseLessons(ctx context.Context, courseID uuid.UUID) ([]*types.Lesson, error)
	CreateLesson(ctx context.Context, courseID uuid.UUID, in CreateLessonInput) (*types.Lesson, error)
}

type lessonService struct {
	log        *logger.Logger
	courseRepo learningrepo.CourseRepo
	lessonRepo learningrepo.LessonRepo
	order      LessonOrderService
}

func NewLessonService(
	log *logger.Logger,
	courseRepo learningrepo.CourseRepo,
	lessonRepo learningrepo.LessonRepo,
	order LessonOrderService,
) LessonService {
	return &lessonService{
		log:        log.With("service", "LessonService"),
		courseRepo: courseRepo,
		lessonRepo: lessonRepo,
		order:      order,
	}
}

func (s *lessonService) GetLesson(ctx context.Context, lessonID uuid.UUID) (*types.Lesson, error) {
	if lessonID == uuid.Nil {
		return nil, ErrLessonNotFound
	}
	l, err := s.lessonRepo.GetByID(dbctx.Context{Ctx: ctx}, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *lessonService) ListCourseLessons(ctx context.Context, courseID uuid.UUID) ([]*types.Lesson, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if courseID == uuid.Nil {
		return nil, ErrCourseNotFound
	}
	if _, err := s.courseRepo.GetByID(dbc, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return s.lessonRepo.ListByCourse(dbc, courseID)
}

// CreateLesson appends a new lesson after the course's last one. Slides
// without a version or kind are taken as narrated v1 slides.
func (s *lessonService) CreateLesson(ctx context.Context, courseID uuid.UUID, in CreateLessonInput) (*types.Lesson, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", ErrInvalidRequest)
	}
	slides := make([]types.Slide, 0, len(in.Slides))
	for i, sl := range in.Slides {
		if sl.Version == 0 {
			sl.Version = learning.SlideVersion
		}
		if sl.Kind == "" {
			sl.Kind = types.SlideKindNarrated
		}
		if sl.Index == 0 {
			sl.Index = i + 1
		}
		slides = append(slides, sl)
	}
	if err := learning.ValidateSlides(slides); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.order.Append(ctx, &types.Lesson{
		CourseID: courseID,
		Title:    title,
		Content:  in.Content,
		Slides:   slides,
	})
}
