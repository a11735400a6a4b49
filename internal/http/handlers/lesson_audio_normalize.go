package handlers

import (
	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/learning/audiopath"
)

func normalizeLessonsAudio(ls []*types.Lesson) []*types.Lesson {
	out := make([]*types.Lesson, 0, len(ls))
	for _, l := range ls {
		if l == nil {
			continue
		}
		out = append(out, audiopath.NormalizeLesson(l))
	}
	return out
}
