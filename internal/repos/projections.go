package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/types"
)

// Projection repos are written exclusively by the owning service's consumers.
// Request handlers read them, they never write them.

type CourseRefRepo interface {
	Create(ctx context.Context, tx *gorm.DB, refs []*types.CourseRef) ([]*types.CourseRef, error)
	GetByID(ctx context.Context, tx *gorm.DB, courseID uint) (*types.CourseRef, error)
	Save(ctx context.Context, tx *gorm.DB, ref *types.CourseRef) error
	DeleteByID(ctx context.Context, tx *gorm.DB, courseID uint) error
}

type courseRefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRefRepo(db *gorm.DB, baseLog *logger.Logger) CourseRefRepo {
	repoLog := baseLog.With("repo", "CourseRefRepo")
	return &courseRefRepo{db: db, log: repoLog}
}

func (r *courseRefRepo) Create(ctx context.Context, tx *gorm.DB, refs []*types.CourseRef) ([]*types.CourseRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(refs) == 0 {
		return []*types.CourseRef{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *courseRefRepo) GetByID(ctx context.Context, tx *gorm.DB, courseID uint) (*types.CourseRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.CourseRef
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

func (r *courseRefRepo) Save(ctx context.Context, tx *gorm.DB, ref *types.CourseRef) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(ref).Error
}

func (r *courseRefRepo) DeleteByID(ctx context.Context, tx *gorm.DB, courseID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", courseID).
		Delete(&types.CourseRef{}).Error
}

type SubjectRefRepo interface {
	Create(ctx context.Context, tx *gorm.DB, refs []*types.SubjectRef) ([]*types.SubjectRef, error)
	GetByID(ctx context.Context, tx *gorm.DB, subjectID uint) (*types.SubjectRef, error)
	Save(ctx context.Context, tx *gorm.DB, ref *types.SubjectRef) error
	DeleteByID(ctx context.Context, tx *gorm.DB, subjectID uint) error
}

type subjectRefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRefRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRefRepo {
	repoLog := baseLog.With("repo", "SubjectRefRepo")
	return &subjectRefRepo{db: db, log: repoLog}
}

func (r *subjectRefRepo) Create(ctx context.Context, tx *gorm.DB, refs []*types.SubjectRef) ([]*types.SubjectRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(refs) == 0 {
		return []*types.SubjectRef{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *subjectRefRepo) GetByID(ctx context.Context, tx *gorm.DB, subjectID uint) (*types.SubjectRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.SubjectRef
	if err := transaction.WithContext(ctx).
		Where("id = ?", subjectID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *subjectRefRepo) Save(ctx context.Context, tx *gorm.DB, ref *types.SubjectRef) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(ref).Error
}

func (r *subjectRefRepo) DeleteByID(ctx context.Context, tx *gorm.DB, subjectID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", subjectID).
		Delete(&types.SubjectRef{}).Error
}

type UserRefRepo interface {
	Create(ctx context.Context, tx *gorm.DB, refs []*types.UserRef) ([]*types.UserRef, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID string) (*types.UserRef, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []string) ([]*types.UserRef, error)
	Save(ctx context.Context, tx *gorm.DB, ref *types.UserRef) error
	DeleteByID(ctx context.Context, tx *gorm.DB, userID string) error
}

type userRefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRefRepo(db *gorm.DB, baseLog *logger.Logger) UserRefRepo {
	repoLog := baseLog.With("repo", "UserRefRepo")
	return &userRefRepo{db: db, log: repoLog}
}

func (r *userRefRepo) Create(ctx context.Context, tx *gorm.DB, refs []*types.UserRef) ([]*types.UserRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(refs) == 0 {
		return []*types.UserRef{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *userRefRepo) GetByID(ctx context.Context, tx *gorm.DB, userID string) (*types.UserRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.UserRef
	if err := transaction.WithContext(ctx).
		Where("id = ?", userID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *userRefRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []string) ([]*types.UserRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.UserRef
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRefRepo) Save(ctx context.Context, tx *gorm.DB, ref *types.UserRef) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(ref).Error
}

func (r *userRefRepo) DeleteByID(ctx context.Context, tx *gorm.DB, userID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", userID).
		Delete(&types.UserRef{}).Error
}
