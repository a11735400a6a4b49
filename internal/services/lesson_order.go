package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	learningrepo "github.com/yungbote/coursefront-backend/internal/data/repos/learning"
	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/observability"
	"github.com/yungbote/coursefront-backend/internal/platform/dbctx"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

// sentinelPosition parks the moving lesson while its neighbours shift. It is
// never visible outside the transaction.
const sentinelPosition = 0

type PositionShift struct {
	LessonID uuid.UUID `json:"lesson_id"`
	From     int       `json:"from"`
	To       int       `json:"to"`
}

type ReorderPlan struct {
	LessonID  uuid.UUID
	CourseID  uuid.UUID
	Requested int
	From      int
	To        int
	N         int
	// Delta is applied to every lesson in Band: -1 when the target moves
	// down the list, +1 when it moves up.
	Delta int
	// Band is in the order the updates must be applied so that no two rows
	// ever share a position.
	Band []PositionShift
}

func (p ReorderPlan) NoOp() bool { return p.From == p.To }

// Affected lists every lesson whose position changes, at its current
// position, target first.
func (p ReorderPlan) Affected() []types.LessonRef {
	if p.NoOp() {
		return []types.LessonRef{}
	}
	out := make([]types.LessonRef, 0, len(p.Band)+1)
	out = append(out, types.LessonRef{ID: p.LessonID, Position: p.From})
	for _, b := range p.Band {
		out = append(out, types.LessonRef{ID: b.LessonID, Position: b.From})
	}
	return out
}

// PlanReorder computes the moves for placing lessonID at requested among
// siblings. requested above N is treated as N. It does not check that
// siblings are dense.
func PlanReorder(siblings []*types.Lesson, lessonID uuid.UUID, requested int) (ReorderPlan, error) {
	if requested < 1 {
		return ReorderPlan{}, fmt.Errorf("%w: position must be >= 1, got %d", ErrInvalidRequest, requested)
	}
	sorted := make([]*types.Lesson, 0, len(siblings))
	var target *types.Lesson
	for _, l := range siblings {
		if l == nil {
			continue
		}
		sorted = append(sorted, l)
		if l.ID == lessonID {
			target = l
		}
	}
	if target == nil {
		return ReorderPlan{}, ErrLessonNotFound
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	n := len(sorted)
	to := requested
	if to > n {
		to = n
	}
	plan := ReorderPlan{
		LessonID:  target.ID,
		CourseID:  target.CourseID,
		Requested: requested,
		From:      target.Position,
		To:        to,
		N:         n,
		Band:      []PositionShift{},
	}
	switch {
	case plan.To > plan.From:
		// Moving down: (from, to] shift up by one, lowest first.
		plan.Delta = -1
		for _, l := range sorted {
			if l.Position > plan.From && l.Position <= plan.To {
				plan.Band = append(plan.Band, PositionShift{LessonID: l.ID, From: l.Position, To: l.Position - 1})
			}
		}
	case plan.To < plan.From:
		// Moving up: [to, from) shift down by one, highest first.
		plan.Delta = 1
		for i := len(sorted) - 1; i >= 0; i-- {
			l := sorted[i]
			if l.Position >= plan.To && l.Position < plan.From {
				plan.Band = append(plan.Band, PositionShift{LessonID: l.ID, From: l.Position, To: l.Position + 1})
			}
		}
	}
	return plan, nil
}

type ReorderOutcome struct {
	Lesson *types.Lesson
	Plan   ReorderPlan
	// Positions holds every lesson of the course after commit.
	Positions []types.LessonRef
}

type RemoveOutcome struct {
	Lesson    *types.Lesson
	Shifted   []PositionShift
	Positions []types.LessonRef
}

// LessonOrderService owns every write to lesson positions.
type LessonOrderService interface {
	Reorder(ctx context.Context, lessonID uuid.UUID, requested int) (*types.Lesson, error)
	ReorderDetailed(ctx context.Context, lessonID uuid.UUID, requested int) (*ReorderOutcome, error)
	Append(ctx context.Context, lesson *types.Lesson) (*types.Lesson, error)
	Remove(ctx context.Context, lessonID uuid.UUID) (*RemoveOutcome, error)
}

type lessonOrderService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo learningrepo.CourseRepo
	lessonRepo learningrepo.LessonRepo
}

func NewLessonOrderService(
	db *gorm.DB,
	log *logger.Logger,
	courseRepo learningrepo.CourseRepo,
	lessonRepo learningrepo.LessonRepo,
) LessonOrderService {
	return &lessonOrderService{
		db:         db,
		log:        log.With("service", "LessonOrderService"),
		courseRepo: courseRepo,
		lessonRepo: lessonRepo,
	}
}

func (s *lessonOrderService) Reorder(ctx context.Context, lessonID uuid.UUID, requested int) (*types.Lesson, error) {
	out, err := s.ReorderDetailed(ctx, lessonID, requested)
	if err != nil {
		return nil, err
	}
	return out.Lesson, nil
}

func (s *lessonOrderService) ReorderDetailed(ctx context.Context, lessonID uuid.UUID, requested int) (out *ReorderOutcome, err error) {
	ctx, span := observability.StartSpan(ctx, "lesson.reconcile",
		attribute.String("lesson_id", lessonID.String()),
		attribute.Int("requested", requested),
	)
	defer func() { observability.EndSpan(span, err) }()

	if requested < 1 {
		return nil, fmt.Errorf("%w: position must be >= 1, got %d", ErrInvalidRequest, requested)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		siblings, err := s.lockSiblings(dbc, lessonID)
		if err != nil {
			return err
		}
		plan, err := PlanReorder(siblings, lessonID, requested)
		if err != nil {
			return err
		}
		span.SetAttributes(
			attribute.String("course_id", plan.CourseID.String()),
			attribute.Int("from", plan.From),
			attribute.Int("to", plan.To),
		)

		if plan.NoOp() {
			out = &ReorderOutcome{Lesson: findLesson(siblings, lessonID), Plan: plan, Positions: refs(siblings)}
			return nil
		}

		if err := s.lessonRepo.UpdatePosition(dbc, plan.LessonID, sentinelPosition); err != nil {
			return s.writeErr("park lesson", err)
		}
		for _, b := range plan.Band {
			if err := s.lessonRepo.UpdatePosition(dbc, b.LessonID, b.To); err != nil {
				return s.writeErr("shift lesson", err)
			}
		}
		if err := s.lessonRepo.UpdatePosition(dbc, plan.LessonID, plan.To); err != nil {
			return s.writeErr("place lesson", err)
		}
		if err := s.verifyDensity(dbc, plan.CourseID, int64(plan.N)); err != nil {
			return err
		}

		after, err := s.lessonRepo.ListByCourse(dbc, plan.CourseID)
		if err != nil {
			return err
		}
		out = &ReorderOutcome{Lesson: findLesson(after, lessonID), Plan: plan, Positions: refs(after)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.Plan.NoOp() {
		s.log.WithContext(ctx).Info("lesson reordered",
			"lesson_id", lessonID,
			"course_id", out.Plan.CourseID,
			"from", out.Plan.From,
			"to", out.Plan.To,
			"shifted", len(out.Plan.Band),
		)
	}
	return out, nil
}

// Append places lesson at N+1 of its course.
func (s *lessonOrderService) Append(ctx context.Context, lesson *types.Lesson) (*types.Lesson, error) {
	if lesson == nil || lesson.CourseID == uuid.Nil {
		return nil, fmt.Errorf("%w: lesson with course_id required", ErrInvalidRequest)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.courseRepo.LockByID(dbc, lesson.CourseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}
		n, err := s.lessonRepo.CountByCourse(dbc, lesson.CourseID)
		if err != nil {
			return err
		}
		lesson.Position = int(n) + 1
		if _, err := s.lessonRepo.Create(dbc, []*types.Lesson{lesson}); err != nil {
			return s.writeErr("create lesson", err)
		}
		return s.verifyDensity(dbc, lesson.CourseID, n+1)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("lesson appended", "lesson_id", lesson.ID, "course_id", lesson.CourseID, "position", lesson.Position)
	return lesson, nil
}

// Remove deletes the lesson and closes the gap by moving every later lesson
// up one place, lowest first.
func (s *lessonOrderService) Remove(ctx context.Context, lessonID uuid.UUID) (out *RemoveOutcome, err error) {
	ctx, span := observability.StartSpan(ctx, "lesson.remove", attribute.String("lesson_id", lessonID.String()))
	defer func() { observability.EndSpan(span, err) }()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		siblings, err := s.lockSiblings(dbc, lessonID)
		if err != nil {
			return err
		}
		target := findLesson(siblings, lessonID)
		if err := s.lessonRepo.Delete(dbc, lessonID); err != nil {
			return err
		}
		shifted := RemovalShifts(siblings, target.Position)
		for _, sh := range shifted {
			if err := s.lessonRepo.UpdatePosition(dbc, sh.LessonID, sh.To); err != nil {
				return s.writeErr("shift lesson", err)
			}
		}
		if err := s.verifyDensity(dbc, target.CourseID, int64(len(siblings)-1)); err != nil {
			return err
		}
		after, err := s.lessonRepo.ListByCourse(dbc, target.CourseID)
		if err != nil {
			return err
		}
		out = &RemoveOutcome{Lesson: target, Shifted: shifted, Positions: refs(after)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("lesson removed", "lesson_id", lessonID, "course_id", out.Lesson.CourseID, "position", out.Lesson.Position, "shifted", len(out.Shifted))
	return out, nil
}

// RemovalShifts returns the moves that close the gap left at removedPos,
// ascending.
func RemovalShifts(siblings []*types.Lesson, removedPos int) []PositionShift {
	sorted := make([]*types.Lesson, 0, len(siblings))
	for _, l := range siblings {
		if l != nil && l.Position > removedPos {
			sorted = append(sorted, l)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	out := make([]PositionShift, 0, len(sorted))
	for _, l := range sorted {
		out = append(out, PositionShift{LessonID: l.ID, From: l.Position, To: l.Position - 1})
	}
	return out
}

// lockSiblings resolves the lesson's course, locks it, and returns all of
// the course's lessons as seen under the lock.
func (s *lessonOrderService) lockSiblings(dbc dbctx.Context, lessonID uuid.UUID) ([]*types.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(dbc, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	if _, err := s.courseRepo.LockByID(dbc, lesson.CourseID); err != nil {
		return nil, fmt.Errorf("lock course %s: %w", lesson.CourseID, err)
	}
	siblings, err := s.lessonRepo.ListByCourse(dbc, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if findLesson(siblings, lessonID) == nil {
		// Deleted between the lookup and the lock.
		return nil, ErrLessonNotFound
	}
	return siblings, nil
}

func (s *lessonOrderService) verifyDensity(dbc dbctx.Context, courseID uuid.UUID, n int64) error {
	stats, err := s.lessonRepo.PositionStats(dbc, courseID)
	if err != nil {
		return err
	}
	if n == 0 && stats.Count == 0 {
		return nil
	}
	if stats.Count != n || stats.Distinct != n || stats.Min != 1 || int64(stats.Max) != n {
		s.log.WithContext(dbc.Ctx).Error("lesson positions not dense, rolling back",
			"course_id", courseID,
			"want_n", n,
			"count", stats.Count,
			"distinct", stats.Distinct,
			"min", stats.Min,
			"max", stats.Max,
		)
		observability.Current().IncOrderingViolation("density")
		return fmt.Errorf("%w: course %s has count=%d distinct=%d min=%d max=%d, want 1..%d",
			ErrOrderingInvariant, courseID, stats.Count, stats.Distinct, stats.Min, stats.Max, n)
	}
	return nil
}

func (s *lessonOrderService) writeErr(step string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s: %v", ErrOrderingInvariant, step, err)
	}
	return fmt.Errorf("%s: %w", step, err)
}

func findLesson(rows []*types.Lesson, id uuid.UUID) *types.Lesson {
	for _, l := range rows {
		if l != nil && l.ID == id {
			return l
		}
	}
	return nil
}

func refs(rows []*types.Lesson) []types.LessonRef {
	out := make([]types.LessonRef, 0, len(rows))
	for _, l := range rows {
		if l != nil {
			out = append(out, l.Ref())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
