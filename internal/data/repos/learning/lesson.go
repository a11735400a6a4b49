package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/platform/dbctx"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type PositionStats struct {
	Count    int64
	Min      int
	Max      int
	Distinct int64
}

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error)
	CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error)
	PositionStats(dbc dbctx.Context, courseID uuid.UUID) (PositionStats, error)
	UpdatePosition(dbc dbctx.Context, id uuid.UUID, position int) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

// GetByID returns gorm.ErrRecordNotFound when the lesson does not exist.
func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out types.Lesson
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *lessonRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error) {
	if courseID == uuid.Nil {
		return nil, fmt.Errorf("missing course_id")
	}
	var out []*types.Lesson
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonRepo) CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *lessonRepo) PositionStats(dbc dbctx.Context, courseID uuid.UUID) (PositionStats, error) {
	var row struct {
		Cnt  int64
		MinP *int
		MaxP *int
		Dist int64
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Lesson{}).
		Select("COUNT(*) AS cnt, MIN(position) AS min_p, MAX(position) AS max_p, COUNT(DISTINCT position) AS dist").
		Where("course_id = ?", courseID).
		Scan(&row).Error; err != nil {
		return PositionStats{}, err
	}
	out := PositionStats{Count: row.Cnt, Distinct: row.Dist}
	if row.MinP != nil {
		out.Min = *row.MinP
	}
	if row.MaxP != nil {
		out.Max = *row.MaxP
	}
	return out, nil
}

// UpdatePosition moves exactly one row. Zero affected rows is an error.
func (r *lessonRepo) UpdatePosition(dbc dbctx.Context, id uuid.UUID, position int) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Lesson{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"position":   position,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("update position of lesson %s: %d rows affected", id, res.RowsAffected)
	}
	return nil
}

func (r *lessonRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Lesson{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
