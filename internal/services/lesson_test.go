package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/yungbote/coursefront-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
	"github.com/yungbote/coursefront-backend/internal/realtime/bus"
)

func TestLessonServiceCreateAndRead(t *testing.T) {
	f := newOrderFixture(t)
	svc := NewLessonService(testutil.Logger(t), f.courses, f.lessons, f.order)
	ctx := context.Background()
	c, _ := f.seed(t, 2)

	created, err := svc.CreateLesson(ctx, c.ID, CreateLessonInput{
		Title:  "  Closures ",
		Slides: []types.Slide{{BodyMD: "first", AudioReference: "audio/lesson3/slide1.mp3"}, {BodyMD: "second"}},
	})
	if err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	if created.Position != 3 || created.Title != "Closures" {
		t.Fatalf("created=%+v", created)
	}
	if created.Slides[1].Index != 2 || created.Slides[1].Kind != types.SlideKindNarrated {
		t.Fatalf("slide defaults not applied: %+v", created.Slides)
	}

	got, err := svc.GetLesson(ctx, created.ID)
	if err != nil || len(got.Slides) != 2 || got.Slides[0].AudioReference != "audio/lesson3/slide1.mp3" {
		t.Fatalf("GetLesson: %+v err=%v", got, err)
	}
	list, err := svc.ListCourseLessons(ctx, c.ID)
	if err != nil || len(list) != 3 || list[2].ID != created.ID {
		t.Fatalf("ListCourseLessons: len=%d err=%v", len(list), err)
	}

	if _, err := svc.GetLesson(ctx, uuid.New()); !errors.Is(err, ErrLessonNotFound) {
		t.Fatalf("GetLesson missing: %v", err)
	}
	if _, err := svc.ListCourseLessons(ctx, uuid.New()); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("ListCourseLessons missing: %v", err)
	}
	if _, err := svc.CreateLesson(ctx, c.ID, CreateLessonInput{Title: ""}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty title: %v", err)
	}
	bad := CreateLessonInput{Title: "x", Slides: []types.Slide{{Kind: "video"}}}
	if _, err := svc.CreateLesson(ctx, c.ID, bad); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("bad slide kind: %v", err)
	}
}

func TestLessonNotifierPublishesToBus(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := bus.NewRedisBus(logger.Nop(), bus.Config{Addr: mr.Addr(), Channel: "lessons"})
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan bus.Message, 1)
	if err := b.StartForwarder(ctx, func(m bus.Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	evt := LessonOrderChanged{CourseID: uuid.New(), LessonID: uuid.New(), Reason: "reorder", From: 2, To: 5}
	NewLessonNotifier(logger.Nop(), b).LessonOrderChanged(ctx, evt)

	select {
	case m := <-got:
		var decoded LessonOrderChanged
		if err := json.Unmarshal(m.Data, &decoded); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if m.Event != bus.EventLessonOrderChanged || decoded.LessonID != evt.LessonID || decoded.To != 5 {
			t.Fatalf("message=%+v decoded=%+v", m, decoded)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}

	// A nil bus disables publishing without failing.
	NewLessonNotifier(logger.Nop(), nil).LessonOrderChanged(ctx, evt)
}
