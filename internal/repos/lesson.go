package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/types"
)

type LessonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByID(ctx context.Context, tx *gorm.DB, lessonID uint) (*types.Lesson, error)
	GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) ([]*types.Lesson, error)
	// GetStatusStale returns lessons whose stored status no longer matches
	// what their interval implies at the given instant.
	GetStatusStale(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.Lesson, error)
	Save(ctx context.Context, tx *gorm.DB, lesson *types.Lesson) error
	DeleteByID(ctx context.Context, tx *gorm.DB, lessonID uint) error
	DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	repoLog := baseLog.With("repo", "LessonRepo")
	return &lessonRepo{db: db, log: repoLog}
}

func (r *lessonRepo) Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByID(ctx context.Context, tx *gorm.DB, lessonID uint) (*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Lesson
	if err := transaction.WithContext(ctx).
		Where("id = ?", lessonID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *lessonRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Lesson
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("start_time ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) GetStatusStale(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.Lesson, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Lesson
	if err := transaction.WithContext(ctx).
		Where("(status = ? AND start_time <= ?) OR (status = ? AND end_time <= ?)",
			types.LessonStatusScheduled, now, types.LessonStatusOngoing, now).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) Save(ctx context.Context, tx *gorm.DB, lesson *types.Lesson) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(lesson).Error
}

func (r *lessonRepo) DeleteByID(ctx context.Context, tx *gorm.DB, lessonID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", lessonID).
		Delete(&types.Lesson{}).Error
}

func (r *lessonRepo) DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.Lesson{}).Error
}
