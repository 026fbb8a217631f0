package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/types"
)

type MaterialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, materials []*types.Material) ([]*types.Material, error)
	GetByID(ctx context.Context, tx *gorm.DB, materialID uint) (*types.Material, error)
	GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) ([]*types.Material, error)
	Save(ctx context.Context, tx *gorm.DB, material *types.Material) error
	DeleteByID(ctx context.Context, tx *gorm.DB, materialID uint) error
	DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) error
}

type materialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	repoLog := baseLog.With("repo", "MaterialRepo")
	return &materialRepo{db: db, log: repoLog}
}

func (r *materialRepo) Create(ctx context.Context, tx *gorm.DB, materials []*types.Material) ([]*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(materials) == 0 {
		return []*types.Material{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepo) GetByID(ctx context.Context, tx *gorm.DB, materialID uint) (*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Material
	if err := transaction.WithContext(ctx).
		Where("id = ?", materialID).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *materialRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) ([]*types.Material, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Material
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *materialRepo) Save(ctx context.Context, tx *gorm.DB, material *types.Material) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(material).Error
}

func (r *materialRepo) DeleteByID(ctx context.Context, tx *gorm.DB, materialID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", materialID).
		Delete(&types.Material{}).Error
}

func (r *materialRepo) DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.Material{}).Error
}

type MaterialFileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, files []*types.MaterialFile) ([]*types.MaterialFile, error)
	GetByMaterialID(ctx context.Context, tx *gorm.DB, materialID uint) ([]*types.MaterialFile, error)
	DeleteByIDs(ctx context.Context, tx *gorm.DB, fileIDs []uint) error
	DeleteByMaterialIDs(ctx context.Context, tx *gorm.DB, materialIDs []uint) error
}

type materialFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialFileRepo(db *gorm.DB, baseLog *logger.Logger) MaterialFileRepo {
	repoLog := baseLog.With("repo", "MaterialFileRepo")
	return &materialFileRepo{db: db, log: repoLog}
}

func (r *materialFileRepo) Create(ctx context.Context, tx *gorm.DB, files []*types.MaterialFile) ([]*types.MaterialFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(files) == 0 {
		return []*types.MaterialFile{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *materialFileRepo) GetByMaterialID(ctx context.Context, tx *gorm.DB, materialID uint) ([]*types.MaterialFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.MaterialFile
	if err := transaction.WithContext(ctx).
		Where("material_id = ?", materialID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *materialFileRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, fileIDs []uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fileIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("id IN ?", fileIDs).
		Delete(&types.MaterialFile{}).Error
}

func (r *materialFileRepo) DeleteByMaterialIDs(ctx context.Context, tx *gorm.DB, materialIDs []uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(materialIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("material_id IN ?", materialIDs).
		Delete(&types.MaterialFile{}).Error
}
