package domain

import "github.com/yungbote/coursefront-backend/internal/domain/learning"

type (
	Course    = learning.Course
	Lesson    = learning.Lesson
	LessonRef = learning.LessonRef
	Slide     = learning.Slide
	SlideKind = learning.SlideKind
)

const (
	SlideKindNarrated      = learning.SlideKindNarrated
	SlideKindLegacyContent = learning.SlideKindLegacyContent
)
