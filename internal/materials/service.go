package materials

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/apierr"
	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/types"
	"github.com/RK2301/classify-backend/internal/uow"
)

type FileInput struct {
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
}

// Service owns materials and their files. Materials hang off courses the
// service only knows through its course_ref projection; the projection is
// the prerequisite checked on create.
type Service interface {
	CreateMaterial(ctx context.Context, courseID uint, title, description string, files []FileInput) (*types.Material, error)
	UpdateMaterial(ctx context.Context, materialID uint, patch types.MaterialPatch) (*types.Material, error)
	DeleteMaterial(ctx context.Context, materialID uint) error
	AddFiles(ctx context.Context, materialID uint, files []FileInput) ([]*types.MaterialFile, error)
	RemoveFile(ctx context.Context, materialID, fileID uint) error
}

type service struct {
	db  *gorm.DB
	log *logger.Logger
	uow *uow.UnitOfWork

	materialRepo  repos.MaterialRepo
	fileRepo      repos.MaterialFileRepo
	courseRefRepo repos.CourseRefRepo
}

func NewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	pub broker.Publisher,
	materialRepo repos.MaterialRepo,
	fileRepo repos.MaterialFileRepo,
	courseRefRepo repos.CourseRefRepo,
) Service {
	serviceLog := baseLog.With("service", "MaterialService")
	return &service{
		db:            db,
		log:           serviceLog,
		uow:           uow.New(db, pub, serviceLog),
		materialRepo:  materialRepo,
		fileRepo:      fileRepo,
		courseRefRepo: courseRefRepo,
	}
}

// CreateMaterial commits the material and all of its files together.
func (s *service) CreateMaterial(ctx context.Context, courseID uint, title, description string, files []FileInput) (*types.Material, error) {
	if title == "" {
		return nil, apierr.NewValidation("missing_title", fmt.Errorf("material title is required"))
	}
	var material *types.Material
	err := s.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		ref, err := s.courseRefRepo.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if ref == nil {
			return apierr.NewNotFound("course_not_found", fmt.Errorf("course %d unknown", courseID))
		}
		material = &types.Material{
			CourseID:    courseID,
			Title:       title,
			Description: description,
			Version:     1,
		}
		if _, err := s.materialRepo.Create(ctx, tx, []*types.Material{material}); err != nil {
			return err
		}
		rows := buildFiles(material.ID, files)
		if _, err := s.fileRepo.Create(ctx, tx, rows); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return material, nil
}

func (s *service) UpdateMaterial(ctx context.Context, materialID uint, patch types.MaterialPatch) (*types.Material, error) {
	var material *types.Material
	err := s.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		var err error
		material, err = s.materialRepo.GetByID(ctx, tx, materialID)
		if err != nil {
			return err
		}
		if material == nil {
			return apierr.NewNotFound("material_not_found", fmt.Errorf("material %d unknown", materialID))
		}
		if !types.ApplyMutation(material, func() bool { return material.Apply(patch) }) {
			return nil
		}
		return s.materialRepo.Save(ctx, tx, material)
	})
	if err != nil {
		return nil, err
	}
	return material, nil
}

func (s *service) DeleteMaterial(ctx context.Context, materialID uint) error {
	return s.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		material, err := s.materialRepo.GetByID(ctx, tx, materialID)
		if err != nil {
			return err
		}
		if material == nil {
			return apierr.NewNotFound("material_not_found", fmt.Errorf("material %d unknown", materialID))
		}
		if err := s.fileRepo.DeleteByMaterialIDs(ctx, tx, []uint{materialID}); err != nil {
			return err
		}
		return s.materialRepo.DeleteByID(ctx, tx, materialID)
	})
}

func (s *service) AddFiles(ctx context.Context, materialID uint, files []FileInput) ([]*types.MaterialFile, error) {
	if len(files) == 0 {
		return nil, apierr.NewValidation("no_files", fmt.Errorf("at least one file is required"))
	}
	var rows []*types.MaterialFile
	err := s.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		material, err := s.materialRepo.GetByID(ctx, tx, materialID)
		if err != nil {
			return err
		}
		if material == nil {
			return apierr.NewNotFound("material_not_found", fmt.Errorf("material %d unknown", materialID))
		}
		rows = buildFiles(materialID, files)
		if _, err := s.fileRepo.Create(ctx, tx, rows); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *service) RemoveFile(ctx context.Context, materialID, fileID uint) error {
	return s.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		existing, err := s.fileRepo.GetByMaterialID(ctx, tx, materialID)
		if err != nil {
			return err
		}
		for _, f := range existing {
			if f.ID == fileID {
				return s.fileRepo.DeleteByIDs(ctx, tx, []uint{fileID})
			}
		}
		return apierr.NewNotFound("file_not_found", fmt.Errorf("file %d not on material %d", fileID, materialID))
	})
}

func buildFiles(materialID uint, files []FileInput) []*types.MaterialFile {
	rows := make([]*types.MaterialFile, 0, len(files))
	for _, f := range files {
		rows = append(rows, &types.MaterialFile{
			MaterialID: materialID,
			FileName:   f.FileName,
			MimeType:   f.MimeType,
			SizeBytes:  f.SizeBytes,
			StorageKey: f.StorageKey,
		})
	}
	return rows
}
