package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/coursefront-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Course{},
		&types.Lesson{},
	); err != nil {
		return err
	}
	return EnsureLessonIndexes(db)
}

// EnsureLessonIndexes keeps the (course_id, position) uniqueness in place on
// databases created before the gorm tag carried it.
func EnsureLessonIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_lesson_course_position
		ON lesson(course_id, position);
	`).Error; err != nil {
		return fmt.Errorf("create idx_lesson_course_position: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	// Position 0 is the in-transaction sentinel used while reordering.
	if err := db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_lesson_position_nonnegative'
			) THEN
				ALTER TABLE lesson ADD CONSTRAINT chk_lesson_position_nonnegative CHECK (position >= 0);
			END IF;
		END $$;
	`).Error; err != nil {
		return fmt.Errorf("create chk_lesson_position_nonnegative: %w", err)
	}
	return nil
}
