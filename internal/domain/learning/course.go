package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title string    `gorm:"column:title;not null" json:"title"`
	Slug  string    `gorm:"column:slug;uniqueIndex" json:"slug"`

	Lessons []Lesson `gorm:"foreignKey:CourseID;references:ID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
