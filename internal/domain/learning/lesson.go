package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lesson positions within a course are always exactly 1..N. Only the
// reorder path moves them; the ID never changes once assigned.
type Lesson struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_course_position,priority:1" json:"course_id"`
	Position int       `gorm:"column:position;not null;uniqueIndex:idx_lesson_course_position,priority:2" json:"position"`
	Title    string    `gorm:"column:title;not null" json:"title"`

	Slides  datatypes.JSONSlice[Slide] `gorm:"column:slides" json:"slides"`
	Content string                     `gorm:"column:content;type:text" json:"content,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// EffectiveSlides returns the structured slides, or a single legacy_content
// slide carrying Content when there are none.
func (l *Lesson) EffectiveSlides() []Slide {
	if l == nil {
		return nil
	}
	if len(l.Slides) > 0 {
		return []Slide(l.Slides)
	}
	if l.Content == "" {
		return []Slide{}
	}
	return []Slide{LegacyContentSlide(l.Title, l.Content)}
}

// LessonRef is the minimal identity/position pair used by audio migration.
type LessonRef struct {
	ID       uuid.UUID `json:"id"`
	Position int       `json:"position"`
}

func (l *Lesson) Ref() LessonRef {
	return LessonRef{ID: l.ID, Position: l.Position}
}
