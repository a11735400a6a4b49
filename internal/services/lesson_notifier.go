package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/observability"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
	"github.com/yungbote/coursefront-backend/internal/realtime/bus"
)

type LessonOrderChanged struct {
	CourseID  uuid.UUID         `json:"course_id"`
	LessonID  uuid.UUID         `json:"lesson_id"`
	Reason    string            `json:"reason"`
	From      int               `json:"from"`
	To        int               `json:"to"`
	Positions []types.LessonRef `json:"positions"`
}

// LessonNotifier publishes lesson events after commit. Delivery is best
// effort.
type LessonNotifier interface {
	LessonOrderChanged(ctx context.Context, evt LessonOrderChanged)
}

type lessonNotifier struct {
	log *logger.Logger
	bus bus.Bus
}

// NewLessonNotifier accepts a nil bus, in which case events are dropped.
func NewLessonNotifier(log *logger.Logger, b bus.Bus) LessonNotifier {
	return &lessonNotifier{log: log.With("service", "LessonNotifier"), bus: b}
}

func (n *lessonNotifier) LessonOrderChanged(ctx context.Context, evt LessonOrderChanged) {
	if n == nil || n.bus == nil {
		return
	}
	msg, err := bus.NewMessage(bus.EventLessonOrderChanged, evt)
	if err != nil {
		n.log.Warn("encode lesson_order_changed failed", "error", err)
		observability.Current().IncLessonEvent("encode_failed")
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := n.bus.Publish(pctx, msg); err != nil {
		n.log.WithContext(ctx).Warn("publish lesson_order_changed failed", "course_id", evt.CourseID, "lesson_id", evt.LessonID, "error", err)
		observability.Current().IncLessonEvent("failed")
		return
	}
	observability.Current().IncLessonEvent("published")
}
