package handlers

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/domain/learning"
)

func TestNormalizeLessonsAudioSkipsNil(t *testing.T) {
	id := uuid.New()
	l := &types.Lesson{ID: id, Slides: []types.Slide{learning.NarratedSlide(1, "", "", "audio/lesson3/slide1.mp3")}}
	got := normalizeLessonsAudio([]*types.Lesson{nil, l})
	if len(got) != 1 {
		t.Fatalf("len=%d", len(got))
	}
	if want := "audio/lesson-" + id.String() + "/slide1.mp3"; got[0].Slides[0].AudioReference != want {
		t.Fatalf("audio=%q want %q", got[0].Slides[0].AudioReference, want)
	}
}
