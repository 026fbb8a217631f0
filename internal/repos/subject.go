package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/types"
)

type SubjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, subjects []*types.Subject) ([]*types.Subject, error)
	GetByID(ctx context.Context, tx *gorm.DB, subjectID uint) (*types.Subject, error)
	NameExists(ctx context.Context, tx *gorm.DB, name string) (bool, error)
	Save(ctx context.Context, tx *gorm.DB, subject *types.Subject) error
	DeleteByID(ctx context.Context, tx *gorm.DB, subjectID uint) error
}

type subjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	repoLog := baseLog.With("repo", "SubjectRepo")
	return &subjectRepo{db: db, log: repoLog}
}

func (r *subjectRepo) Create(ctx context.Context, tx *gorm.DB, subjects []*types.Subject) ([]*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(subjects) == 0 {
		return []*types.Subject{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *subjectRepo) GetByID(ctx context.Context, tx *gorm.DB, subjectID uint) (*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Subject
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

func (r *subjectRepo) NameExists(ctx context.Context, tx *gorm.DB, name string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Subject{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *subjectRepo) Save(ctx context.Context, tx *gorm.DB, subject *types.Subject) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(subject).Error
}

func (r *subjectRepo) DeleteByID(ctx context.Context, tx *gorm.DB, subjectID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", subjectID).
		Delete(&types.Subject{}).Error
}
