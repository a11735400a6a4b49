package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/domain/learning"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:    uuid.New(),
		Title: title,
		Slug:  fmt.Sprintf("%s-%s", title, uuid.NewString()[:8]),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedLessons creates n lessons at positions 1..n, each with one narrated
// slide pointing at its legacy audio path.
func SeedLessons(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, n int) []*types.Lesson {
	tb.Helper()
	out := make([]*types.Lesson, 0, n)
	for i := 1; i <= n; i++ {
		l := &types.Lesson{
			ID:       uuid.New(),
			CourseID: courseID,
			Position: i,
			Title:    fmt.Sprintf("Lesson %d", i),
			Slides: []types.Slide{
				learning.NarratedSlide(1, "Intro", "body", fmt.Sprintf("audio/lesson%d/slide1.mp3", i)),
			},
		}
		if err := tx.WithContext(ctx).Create(l).Error; err != nil {
			tb.Fatalf("seed lesson %d: %v", i, err)
		}
		out = append(out, l)
	}
	return out
}

// Positions maps lesson id to its stored position.
func Positions(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID) map[uuid.UUID]int {
	tb.Helper()
	var rows []*types.Lesson
	if err := tx.WithContext(ctx).Where("course_id = ?", courseID).Find(&rows).Error; err != nil {
		tb.Fatalf("load positions: %v", err)
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Position
	}
	return out
}

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }
