package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursefront-backend/internal/data/repos/learning"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type CourseRepo = learning.CourseRepo
type LessonRepo = learning.LessonRepo
type PositionStats = learning.PositionStats

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return learning.NewLessonRepo(db, baseLog)
}
