package learning

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coursefront-backend/internal/domain"
	"github.com/yungbote/coursefront-backend/internal/platform/dbctx"
	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

type CourseRepo interface {
	Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(courses) == 0 {
		return []*types.Course{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// GetByID returns gorm.ErrRecordNotFound when the course does not exist.
func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Course
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// LockByID takes a row lock on the course for the rest of dbc.Tx. Every
// writer of the course's lesson positions goes through this lock.
func (r *courseRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out types.Course
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
