package subjects

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

// Service owns the subject catalog. Every accepted mutation publishes the
// full subject snapshot so the courses service can mirror it.
type Service interface {
	CreateSubject(ctx context.Context, name, description string) (*types.Subject, error)
	UpdateSubject(ctx context.Context, subjectID uint, patch types.SubjectPatch) (*types.Subject, error)
	DeleteSubject(ctx context.Context, subjectID uint) error
}

type service struct {
	db  *gorm.DB
	log *logger.Logger
	uow *uow.UnitOfWork

	subjectRepo repos.SubjectRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, pub broker.Publisher, subjectRepo repos.SubjectRepo) Service {
	serviceLog := baseLog.With("service", "SubjectService")
	return &service{
		db:          db,
		log:         serviceLog,
		uow:         uow.New(db, pub, serviceLog),
		subjectRepo: subjectRepo,
	}
}

func (s *service) CreateSubject(ctx context.Context, name, description string) (*types.Subject, error) {
	if name == "" {
		return nil, apierr.NewValidation("missing_name", fmt.Errorf("subject name is required"))
	}
	var subject *types.Subject
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		exists, err := s.subjectRepo.NameExists(ctx, tx, name)
		if err != nil {
			return err
		}
		if exists {
			return apierr.NewValidation("duplicate_name", fmt.Errorf("subject %q already exists", name))
		}
		subject = &types.Subject{
			Name:        name,
			Description: description,
			Version:     1,
		}
		if _, err := s.subjectRepo.Create(ctx, tx, []*types.Subject{subject}); err != nil {
			return err
		}
		events.Queue(broker.ExchangeSubjectCreated, subject)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *service) UpdateSubject(ctx context.Context, subjectID uint, patch types.SubjectPatch) (*types.Subject, error) {
	var subject *types.Subject
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		var err error
		subject, err = s.subjectRepo.GetByID(ctx, tx, subjectID)
		if err != nil {
			return err
		}
		if subject == nil {
			return apierr.NewNotFound("subject_not_found", fmt.Errorf("subject %d unknown", subjectID))
		}
		if !types.ApplyMutation(subject, func() bool { return subject.Apply(patch) }) {
			return nil
		}
		if err := s.subjectRepo.Save(ctx, tx, subject); err != nil {
			return err
		}
		events.Queue(broker.ExchangeSubjectUpdated, subject)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *service) DeleteSubject(ctx context.Context, subjectID uint) error {
	return s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		subject, err := s.subjectRepo.GetByID(ctx, tx, subjectID)
		if err != nil {
			return err
		}
		if subject == nil {
			return apierr.NewNotFound("subject_not_found", fmt.Errorf("subject %d unknown", subjectID))
		}
		if err := s.subjectRepo.DeleteByID(ctx, tx, subjectID); err != nil {
			return err
		}
		events.Queue(broker.ExchangeSubjectDeleted, &types.DeletedEvent{ID: subjectID})
		return nil
	})
}
