package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	learningrepo "github.com/yungbote/coursefront-backend/internal/data/repos/learning"
	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/observability"
	"github.com/yungbote/coursefront-backend/internal/platform/dbctx"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type ReorderCoordinatorConfig struct {
	// MigrationTimeout bounds the audio copy that runs before a reorder.
	MigrationTimeout time.Duration
}

func DefaultReorderCoordinatorConfig() ReorderCoordinatorConfig {
	return ReorderCoordinatorConfig{MigrationTimeout: 60 * time.Second}
}

// ReorderCoordinator makes sure a lesson's narration is reachable by id
// before any write that would change its position.
type ReorderCoordinator interface {
	HandleReorderRequest(ctx context.Context, lessonID uuid.UUID, requested int) (*types.Lesson, error)
	RemoveLesson(ctx context.Context, lessonID uuid.UUID) error
	MigrateCourseAudio(ctx context.Context, courseID uuid.UUID) ([]MigrationReport, error)
}

type reorderCoordinator struct {
	log        *logger.Logger
	courseRepo learningrepo.CourseRepo
	lessonRepo learningrepo.LessonRepo
	order      LessonOrderService
	migration  AudioMigrationService
	notifier   LessonNotifier
	cfg        ReorderCoordinatorConfig
}

func NewReorderCoordinator(
	log *logger.Logger,
	courseRepo learningrepo.CourseRepo,
	lessonRepo learningrepo.LessonRepo,
	order LessonOrderService,
	migration AudioMigrationService,
	notifier LessonNotifier,
	cfg ReorderCoordinatorConfig,
) ReorderCoordinator {
	if cfg.MigrationTimeout <= 0 {
		cfg.MigrationTimeout = DefaultReorderCoordinatorConfig().MigrationTimeout
	}
	return &reorderCoordinator{
		log:        log.With("service", "ReorderCoordinator"),
		courseRepo: courseRepo,
		lessonRepo: lessonRepo,
		order:      order,
		migration:  migration,
		notifier:   notifier,
		cfg:        cfg,
	}
}

func (c *reorderCoordinator) HandleReorderRequest(ctx context.Context, lessonID uuid.UUID, requested int) (lesson *types.Lesson, err error) {
	ctx, span := observability.StartSpan(ctx, "lesson.reorder",
		attribute.String("lesson_id", lessonID.String()),
		attribute.Int("requested", requested),
	)
	start := time.Now()
	outcome := "failed"
	defer func() {
		observability.EndSpan(span, err)
		observability.Current().ObserveReorder(outcome, time.Since(start))
	}()
	log := c.log.WithContext(ctx).With("lesson_id", lessonID, "requested", requested)

	if requested < 1 {
		outcome = "rejected"
		return nil, fmt.Errorf("%w: position must be >= 1, got %d", ErrInvalidRequest, requested)
	}
	siblings, err := c.siblingsOf(ctx, lessonID)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			outcome = "rejected"
		}
		return nil, err
	}
	plan, err := PlanReorder(siblings, lessonID, requested)
	if err != nil {
		outcome = "rejected"
		return nil, err
	}
	span.SetAttributes(attribute.String("course_id", plan.CourseID.String()))

	c.migrateBeforeMove(ctx, log, plan.Affected())

	if err := ctx.Err(); err != nil {
		log.Warn("reorder request cancelled before transaction", "error", err)
		return nil, err
	}

	out, err := c.order.ReorderDetailed(ctx, lessonID, requested)
	if err != nil {
		log.Error("reorder failed", "error", err)
		return nil, err
	}
	outcome = "noop"
	if !out.Plan.NoOp() {
		outcome = "moved"
		c.notify(ctx, "reorder", out.Plan.CourseID, lessonID, out.Plan.From, out.Plan.To, out.Positions)
	}
	return out.Lesson, nil
}

func (c *reorderCoordinator) RemoveLesson(ctx context.Context, lessonID uuid.UUID) error {
	log := c.log.WithContext(ctx).With("lesson_id", lessonID)
	siblings, err := c.siblingsOf(ctx, lessonID)
	if err != nil {
		return err
	}
	target := findLesson(siblings, lessonID)
	var affected []types.LessonRef
	for _, sh := range RemovalShifts(siblings, target.Position) {
		affected = append(affected, types.LessonRef{ID: sh.LessonID, Position: sh.From})
	}

	c.migrateBeforeMove(ctx, log, affected)

	if err := ctx.Err(); err != nil {
		log.Warn("remove request cancelled before transaction", "error", err)
		return err
	}
	out, err := c.order.Remove(ctx, lessonID)
	if err != nil {
		log.Error("remove failed", "error", err)
		return err
	}
	c.notify(ctx, "remove", out.Lesson.CourseID, lessonID, out.Lesson.Position, 0, out.Positions)
	return nil
}

func (c *reorderCoordinator) MigrateCourseAudio(ctx context.Context, courseID uuid.UUID) ([]MigrationReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := c.courseRepo.GetByID(dbc, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	lessons, err := c.lessonRepo.ListByCourse(dbc, courseID)
	if err != nil {
		return nil, err
	}
	return c.migration.EnsureStableAudio(ctx, refs(lessons)), nil
}

// migrateBeforeMove copies audio for lessons at their current positions.
// It runs detached from the request so a client disconnect cannot cut a
// copy short, and never fails the caller.
func (c *reorderCoordinator) migrateBeforeMove(ctx context.Context, log *logger.Logger, lessons []types.LessonRef) {
	if len(lessons) == 0 {
		return
	}
	mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.MigrationTimeout)
	defer cancel()
	reports := c.migration.EnsureStableAudio(mctx, lessons)
	for _, r := range reports {
		if r.Status == MigrationFailed {
			log.Warn("audio migration incomplete; continuing", "affected_lesson_id", r.LessonID, "position", r.Position, "error", r.Error)
		}
	}
}

func (c *reorderCoordinator) siblingsOf(ctx context.Context, lessonID uuid.UUID) ([]*types.Lesson, error) {
	dbc := dbctx.Context{Ctx: ctx}
	lesson, err := c.lessonRepo.GetByID(dbc, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	siblings, err := c.lessonRepo.ListByCourse(dbc, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if findLesson(siblings, lessonID) == nil {
		return nil, ErrLessonNotFound
	}
	return siblings, nil
}

func (c *reorderCoordinator) notify(ctx context.Context, reason string, courseID, lessonID uuid.UUID, from, to int, positions []types.LessonRef) {
	if c.notifier == nil {
		return
	}
	c.notifier.LessonOrderChanged(ctx, LessonOrderChanged{
		CourseID:  courseID,
		LessonID:  lessonID,
		Reason:    reason,
		From:      from,
		To:        to,
		Positions: positions,
	})
}
