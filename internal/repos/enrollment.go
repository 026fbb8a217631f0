package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/types"
)

type StudentCourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.StudentCourse) ([]*types.StudentCourse, error)
	GetByStudentAndCourse(ctx context.Context, tx *gorm.DB, studentID string, courseID uint) (*types.StudentCourse, error)
	GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) ([]*types.StudentCourse, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.StudentCourse) error
	DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) error
}

type studentCourseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentCourseRepo(db *gorm.DB, baseLog *logger.Logger) StudentCourseRepo {
	repoLog := baseLog.With("repo", "StudentCourseRepo")
	return &studentCourseRepo{db: db, log: repoLog}
}

func (r *studentCourseRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.StudentCourse) ([]*types.StudentCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.StudentCourse{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *studentCourseRepo) GetByStudentAndCourse(ctx context.Context, tx *gorm.DB, studentID string, courseID uint) (*types.StudentCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.StudentCourse
	if err := transaction.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *studentCourseRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) ([]*types.StudentCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudentCourse
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *studentCourseRepo) Save(ctx context.Context, tx *gorm.DB, row *types.StudentCourse) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *studentCourseRepo) DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.StudentCourse{}).Error
}

type TeacherCourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.TeacherCourse) ([]*types.TeacherCourse, error)
	GetByTeacherAndCourse(ctx context.Context, tx *gorm.DB, teacherID string, courseID uint) (*types.TeacherCourse, error)
	GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) ([]*types.TeacherCourse, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.TeacherCourse) error
	DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) error
}

type teacherCourseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeacherCourseRepo(db *gorm.DB, baseLog *logger.Logger) TeacherCourseRepo {
	repoLog := baseLog.With("repo", "TeacherCourseRepo")
	return &teacherCourseRepo{db: db, log: repoLog}
}

func (r *teacherCourseRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.TeacherCourse) ([]*types.TeacherCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.TeacherCourse{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *teacherCourseRepo) GetByTeacherAndCourse(ctx context.Context, tx *gorm.DB, teacherID string, courseID uint) (*types.TeacherCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.TeacherCourse
	if err := transaction.WithContext(ctx).
		Where("teacher_id = ? AND course_id = ?", teacherID, courseID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *teacherCourseRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) ([]*types.TeacherCourse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.TeacherCourse
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *teacherCourseRepo) Save(ctx context.Context, tx *gorm.DB, row *types.TeacherCourse) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *teacherCourseRepo) DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.TeacherCourse{}).Error
}
