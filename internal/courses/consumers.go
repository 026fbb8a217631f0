package courses

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/apierr"
	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/types"
	"github.com/RK2301/classify-backend/internal/uow"
)

// Consumers maintains the courses service's projections: subject_ref from the
// subjects service and user_ref from the users service. Each handler commits
// its writes in one transaction and only a nil return acknowledges the
// delivery.
//
// Version mismatches split two ways. incoming <= local is a duplicate
// redelivery: the state was already applied, so the handler drops it and
// acks. incoming > local+1 is a real gap, surfaced as Conflict so the
// delivery stays unacked for operator attention.
type Consumers struct {
	log *logger.Logger
	uow *uow.UnitOfWork

	courseRepo     repos.CourseRepo
	subjectRefRepo repos.SubjectRefRepo
	userRefRepo    repos.UserRefRepo
}

func NewConsumers(
	db *gorm.DB,
	baseLog *logger.Logger,
	pub broker.Publisher,
	courseRepo repos.CourseRepo,
	subjectRefRepo repos.SubjectRefRepo,
	userRefRepo repos.UserRefRepo,
) *Consumers {
	consumerLog := baseLog.With("component", "CourseConsumers")
	return &Consumers{
		log:            consumerLog,
		uow:            uow.New(db, pub, consumerLog),
		courseRepo:     courseRepo,
		subjectRefRepo: subjectRefRepo,
		userRefRepo:    userRefRepo,
	}
}

func (c *Consumers) Register(sub broker.Subscriber) {
	sub.Subscribe(broker.ExchangeSubjectCreated, c.handleSubjectCreated)
	sub.Subscribe(broker.ExchangeSubjectUpdated, c.handleSubjectUpdated)
	sub.Subscribe(broker.ExchangeSubjectDeleted, c.handleSubjectDeleted)
	sub.Subscribe(broker.ExchangeUserCreated, c.handleUserCreated)
	sub.Subscribe(broker.ExchangeUserUpdated, c.handleUserUpdated)
	sub.Subscribe(broker.ExchangeUserDeleted, c.handleUserDeleted)
}

func (c *Consumers) handleSubjectCreated(ctx context.Context, data json.RawMessage) error {
	var subject types.Subject
	if err := json.Unmarshal(data, &subject); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		existing, err := c.subjectRefRepo.GetByID(ctx, tx, subject.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if types.IsStaleVersion(subject.Version, existing.Version) {
				c.log.Debug("duplicate SubjectCreated dropped", "subject_id", subject.ID, "version", subject.Version)
				return nil
			}
			return apierr.NewConflict("version_gap", fmt.Errorf("SubjectCreated %d carries version %d, local is %d", subject.ID, subject.Version, existing.Version))
		}
		_, err = c.subjectRefRepo.Create(ctx, tx, []*types.SubjectRef{{
			ID:      subject.ID,
			Name:    subject.Name,
			Version: subject.Version,
		}})
		return err
	})
}

func (c *Consumers) handleSubjectUpdated(ctx context.Context, data json.RawMessage) error {
	var subject types.Subject
	if err := json.Unmarshal(data, &subject); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		existing, err := c.subjectRefRepo.GetByID(ctx, tx, subject.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apierr.NewNotFound("subject_ref_missing", fmt.Errorf("SubjectUpdated for unknown subject %d", subject.ID))
		}
		if types.IsStaleVersion(subject.Version, existing.Version) {
			c.log.Debug("duplicate SubjectUpdated dropped", "subject_id", subject.ID, "version", subject.Version)
			return nil
		}
		if !types.NextVersionOK(subject.Version, existing.Version) {
			return apierr.NewConflict("version_gap", fmt.Errorf("SubjectUpdated %d carries version %d, local is %d", subject.ID, subject.Version, existing.Version))
		}
		existing.Name = subject.Name
		existing.Version = subject.Version
		return c.subjectRefRepo.Save(ctx, tx, existing)
	})
}

// handleSubjectDeleted drops the projection row and detaches every course
// still pointing at the subject. Detaching is a local authored mutation of
// the course, so each touched course bumps its version and republishes.
func (c *Consumers) handleSubjectDeleted(ctx context.Context, data json.RawMessage) error {
	var ev types.DeletedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		affected, err := c.courseRepo.GetBySubjectID(ctx, tx, ev.ID)
		if err != nil {
			return err
		}
		for _, course := range affected {
			if !types.ApplyMutation(course, func() bool { return course.Apply(types.CoursePatch{ClearSubject: true}) }) {
				continue
			}
			if err := c.courseRepo.Save(ctx, tx, course); err != nil {
				return err
			}
			events.Queue(broker.ExchangeCourseUpdated, course)
		}
		return c.subjectRefRepo.DeleteByID(ctx, tx, ev.ID)
	})
}

func (c *Consumers) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var user types.User
	if err := json.Unmarshal(data, &user); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		existing, err := c.userRefRepo.GetByID(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if types.IsStaleVersion(user.Version, existing.Version) {
				c.log.Debug("duplicate UserCreated dropped", "user_id", user.ID, "version", user.Version)
				return nil
			}
			return apierr.NewConflict("version_gap", fmt.Errorf("UserCreated %s carries version %d, local is %d", user.ID, user.Version, existing.Version))
		}
		_, err = c.userRefRepo.Create(ctx, tx, []*types.UserRef{{
			ID:        user.ID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
			Phone:     user.Phone,
			Role:      user.Role,
			Version:   user.Version,
		}})
		return err
	})
}

// handleUserUpdated is a strict consumer: an update for a user this service
// has never seen is a missing prerequisite, not an implicit create.
func (c *Consumers) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var user types.User
	if err := json.Unmarshal(data, &user); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		existing, err := c.userRefRepo.GetByID(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apierr.NewNotFound("user_ref_missing", fmt.Errorf("UserUpdated for unknown user %s", user.ID))
		}
		if types.IsStaleVersion(user.Version, existing.Version) {
			c.log.Debug("duplicate UserUpdated dropped", "user_id", user.ID, "version", user.Version)
			return nil
		}
		if !types.NextVersionOK(user.Version, existing.Version) {
			return apierr.NewConflict("version_gap", fmt.Errorf("UserUpdated %s carries version %d, local is %d", user.ID, user.Version, existing.Version))
		}
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.Email = user.Email
		existing.Phone = user.Phone
		existing.Role = user.Role
		existing.Version = user.Version
		return c.userRefRepo.Save(ctx, tx, existing)
	})
}

func (c *Consumers) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var ev types.UserDeletedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		return c.userRefRepo.DeleteByID(ctx, tx, ev.ID)
	})
}
