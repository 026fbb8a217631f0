package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/types"
)

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error)
	GetByID(ctx context.Context, tx *gorm.DB, courseID uint) (*types.Course, error)
	GetBySubjectID(ctx context.Context, tx *gorm.DB, subjectID uint) ([]*types.Course, error)
	Save(ctx context.Context, tx *gorm.DB, course *types.Course) error
	DeleteByID(ctx context.Context, tx *gorm.DB, courseID uint) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courses) == 0 {
		return []*types.Course{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, courseID uint) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Course
	if err := transaction.WithContext(ctx).
		Where("id = ?", courseID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *courseRepo) GetBySubjectID(ctx context.Context, tx *gorm.DB, subjectID uint) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if err := transaction.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) Save(ctx context.Context, tx *gorm.DB, course *types.Course) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(course).Error
}

func (r *courseRepo) DeleteByID(ctx context.Context, tx *gorm.DB, courseID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", courseID).
		Delete(&types.Course{}).Error
}
