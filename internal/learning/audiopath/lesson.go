package audiopath

import (
	types "github.com/yungbote/coursefront-backend/internal/domain"
)

// NormalizeLesson returns a copy of l whose slide audio references point at
// the id-addressed location. The stored lesson is not modified.
func NormalizeLesson(l *types.Lesson) *types.Lesson {
	if l == nil {
		return nil
	}
	out := *l
	if len(l.Slides) == 0 {
		return &out
	}
	slides := make([]types.Slide, len(l.Slides))
	copy(slides, l.Slides)
	for i := range slides {
		if rewritten, ok := Normalize(slides[i].AudioReference, l.ID); ok {
			slides[i].AudioReference = rewritten
		}
	}
	out.Slides = slides
	return &out
}
