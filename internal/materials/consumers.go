package materials

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

// Consumers keeps the course_ref projection in step with the courses
// service. The ref deliberately drops the subject linkage; only the fields
// materials care about replicate here.
type Consumers struct {
	log *logger.Logger
	uow *uow.UnitOfWork

	courseRefRepo repos.CourseRefRepo
	materialRepo  repos.MaterialRepo
	fileRepo      repos.MaterialFileRepo
}

func NewConsumers(
	db *gorm.DB,
	baseLog *logger.Logger,
	pub broker.Publisher,
	courseRefRepo repos.CourseRefRepo,
	materialRepo repos.MaterialRepo,
	fileRepo repos.MaterialFileRepo,
) *Consumers {
	consumerLog := baseLog.With("component", "MaterialConsumers")
	return &Consumers{
		log:           consumerLog,
		uow:           uow.New(db, pub, consumerLog),
		courseRefRepo: courseRefRepo,
		materialRepo:  materialRepo,
		fileRepo:      fileRepo,
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
		_, err = c.courseRefRepo.Create(ctx, tx, []*types.CourseRef{courseRefFrom(&ev.Course)})
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

// handleCourseDeleted removes the ref and everything hanging off it. The
// explicit deletes mirror the cascade constraints so the projection cleanup
// does not depend on database support.
func (c *Consumers) handleCourseDeleted(ctx context.Context, data json.RawMessage) error {
	var ev types.DeletedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		orphaned, err := c.materialRepo.GetByCourseID(ctx, tx, ev.ID)
		if err != nil {
			return err
		}
		materialIDs := make([]uint, 0, len(orphaned))
		for _, m := range orphaned {
			materialIDs = append(materialIDs, m.ID)
		}
		if err := c.fileRepo.DeleteByMaterialIDs(ctx, tx, materialIDs); err != nil {
			return err
		}
		if err := c.materialRepo.DeleteByCourseID(ctx, tx, ev.ID); err != nil {
			return err
		}
		return c.courseRefRepo.DeleteByID(ctx, tx, ev.ID)
	})
}

func courseRefFrom(course *types.Course) *types.CourseRef {
	return &types.CourseRef{
		ID:              course.ID,
		Title:           course.Title,
		StartDate:       course.StartDate,
		EndDate:         course.EndDate,
		NumberOfLessons: course.NumberOfLessons,
		Version:         course.Version,
	}
}
