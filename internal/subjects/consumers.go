package subjects

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

// Consumers mirrors the course catalog so subject views can list the courses
// taught under each subject without a cross-service call.
type Consumers struct {
	log *logger.Logger
	uow *uow.UnitOfWork

	courseRefRepo repos.CourseRefRepo
}

func NewConsumers(db *gorm.DB, baseLog *logger.Logger, pub broker.Publisher, courseRefRepo repos.CourseRefRepo) *Consumers {
	consumerLog := baseLog.With("component", "SubjectConsumers")
	return &Consumers{
		log:           consumerLog,
		uow:           uow.New(db, pub, consumerLog),
		courseRefRepo: courseRefRepo,
	}
}

func (c *Consumers) Register(sub broker.Subscriber) {
	sub.Subscribe(broker.ExchangeCourseCreated, c.handleCourseCreated)
	sub.Subscribe(broker.ExchangeCourseUpdated, c.handleCourseUpdated)
	sub.Subscribe(broker.ExchangeCourseDeleted, c.handleCourseDeleted)
}

func (c *Consumers) handleCourseCreated(ctx context.Context, data json.RawMessage) error {
	var ev types.CourseCreatedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		existing, err := c.courseRefRepo.GetByID(ctx, tx, ev.Course.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if types.IsStaleVersion(ev.Course.Version, existing.Version) {
				c.log.Debug("duplicate CourseCreated dropped", "course_id", ev.Course.ID)
				return nil
			}
			return apierr.NewConflict("version_gap", fmt.Errorf("CourseCreated %d carries version %d, local is %d", ev.Course.ID, ev.Course.Version, existing.Version))
		}
		_, err = c.courseRefRepo.Create(ctx, tx, []*types.CourseRef{{
			ID:              ev.Course.ID,
			Title:           ev.Course.Title,
			StartDate:       ev.Course.StartDate,
			EndDate:         ev.Course.EndDate,
			NumberOfLessons: ev.Course.NumberOfLessons,
			Version:         ev.Course.Version,
		}})
		return err
	})
}

func (c *Consumers) handleCourseUpdated(ctx context.Context, data json.RawMessage) error {
	var course types.Course
	if err := json.Unmarshal(data, &course); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		existing, err := c.courseRefRepo.GetByID(ctx, tx, course.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apierr.NewNotFound("course_ref_missing", fmt.Errorf("CourseUpdated for unknown course %d", course.ID))
		}
		if types.IsStaleVersion(course.Version, existing.Version) {
			c.log.Debug("duplicate CourseUpdated dropped", "course_id", course.ID, "version", course.Version)
			return nil
		}
		if !types.NextVersionOK(course.Version, existing.Version) {
			return apierr.NewConflict("version_gap", fmt.Errorf("CourseUpdated %d carries version %d, local is %d", course.ID, course.Version, existing.Version))
		}
		existing.Title = course.Title
		existing.StartDate = course.StartDate
		existing.EndDate = course.EndDate
		existing.NumberOfLessons = course.NumberOfLessons
		existing.Version = course.Version
		return c.courseRefRepo.Save(ctx, tx, existing)
	})
}

func (c *Consumers) handleCourseDeleted(ctx context.Context, data json.RawMessage) error {
	var ev types.DeletedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		return c.courseRefRepo.DeleteByID(ctx, tx, ev.ID)
	})
}
