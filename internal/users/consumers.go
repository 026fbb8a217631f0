package users

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

// Consumers keeps the per-user course view current: the course catalog plus
// the enrollment and assignment rows owned by the courses service.
type Consumers struct {
	log *logger.Logger
	uow *uow.UnitOfWork

	courseRefRepo     repos.CourseRefRepo
	studentCourseRepo repos.StudentCourseRepo
	teacherCourseRepo repos.TeacherCourseRepo
}

func NewConsumers(
	db *gorm.DB,
	baseLog *logger.Logger,
	pub broker.Publisher,
	courseRefRepo repos.CourseRefRepo,
	studentCourseRepo repos.StudentCourseRepo,
	teacherCourseRepo repos.TeacherCourseRepo,
) *Consumers {
	consumerLog := baseLog.With("component", "UserConsumers")
	return &Consumers{
		log:               consumerLog,
		uow:               uow.New(db, pub, consumerLog),
		courseRefRepo:     courseRefRepo,
		studentCourseRepo: studentCourseRepo,
		teacherCourseRepo: teacherCourseRepo,
	}
}

func (c *Consumers) Register(sub broker.Subscriber) {
	sub.Subscribe(broker.ExchangeCourseCreated, c.handleCourseCreated)
	sub.Subscribe(broker.ExchangeCourseUpdated, c.handleCourseUpdated)
	sub.Subscribe(broker.ExchangeCourseDeleted, c.handleCourseDeleted)
	sub.Subscribe(broker.ExchangeStudentEnrolled, c.handleStudentEnrolled)
	sub.Subscribe(broker.ExchangeStudentWithdrawal, c.handleStudentWithdrawal)
	sub.Subscribe(broker.ExchangeTeacherAssigned, c.handleTeacherAssigned)
	sub.Subscribe(broker.ExchangeTeacherUnassigned, c.handleTeacherUnassigned)
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
		if _, err := c.courseRefRepo.Create(ctx, tx, []*types.CourseRef{{
			ID:              ev.Course.ID,
			Title:           ev.Course.Title,
			StartDate:       ev.Course.StartDate,
			EndDate:         ev.Course.EndDate,
			NumberOfLessons: ev.Course.NumberOfLessons,
			Version:         ev.Course.Version,
		}}); err != nil {
			return err
		}
		// Teachers assigned at creation ride along on the course event
		// instead of separate TeacherAssigned messages.
		for _, assignment := range ev.Teachers {
			if err := c.upsertTeacherCourse(ctx, tx, assignment); err != nil {
				return err
			}
		}
		return nil
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
		if err := c.studentCourseRepo.DeleteByCourseID(ctx, tx, ev.ID); err != nil {
			return err
		}
		if err := c.teacherCourseRepo.DeleteByCourseID(ctx, tx, ev.ID); err != nil {
			return err
		}
		return c.courseRefRepo.DeleteByID(ctx, tx, ev.ID)
	})
}

// handleStudentEnrolled covers both first enrollment and reactivation of a
// withdrawn row, so an absent local row is created rather than rejected.
func (c *Consumers) handleStudentEnrolled(ctx context.Context, data json.RawMessage) error {
	var row types.StudentCourse
	if err := json.Unmarshal(data, &row); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		return c.upsertStudentCourse(ctx, tx, &row)
	})
}

func (c *Consumers) handleStudentWithdrawal(ctx context.Context, data json.RawMessage) error {
	var row types.StudentCourse
	if err := json.Unmarshal(data, &row); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		existing, err := c.studentCourseRepo.GetByStudentAndCourse(ctx, tx, row.StudentID, row.CourseID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apierr.NewNotFound("enrollment_missing", fmt.Errorf("StudentWithdrawal for unknown enrollment student=%s course=%d", row.StudentID, row.CourseID))
		}
		if types.IsStaleVersion(row.Version, existing.Version) {
			c.log.Debug("duplicate StudentWithdrawal dropped", "student_id", row.StudentID, "course_id", row.CourseID)
			return nil
		}
		if !types.NextVersionOK(row.Version, existing.Version) {
			return apierr.NewConflict("version_gap", fmt.Errorf("StudentWithdrawal student=%s course=%d carries version %d, local is %d", row.StudentID, row.CourseID, row.Version, existing.Version))
		}
		existing.Status = row.Status
		existing.EnrolledAt = row.EnrolledAt
		existing.WithdrawnAt = row.WithdrawnAt
		existing.Version = row.Version
		return c.studentCourseRepo.Save(ctx, tx, existing)
	})
}

func (c *Consumers) handleTeacherAssigned(ctx context.Context, data json.RawMessage) error {
	var row types.TeacherCourse
	if err := json.Unmarshal(data, &row); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		return c.upsertTeacherCourse(ctx, tx, &row)
	})
}

func (c *Consumers) handleTeacherUnassigned(ctx context.Context, data json.RawMessage) error {
	var row types.TeacherCourse
	if err := json.Unmarshal(data, &row); err != nil {
		return apierr.NewValidation("bad_payload", err)
	}
	return c.uow.Run(ctx, func(tx *gorm.DB, _ *uow.Events) error {
		existing, err := c.teacherCourseRepo.GetByTeacherAndCourse(ctx, tx, row.TeacherID, row.CourseID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apierr.NewNotFound("assignment_missing", fmt.Errorf("TeacherUnassigned for unknown assignment teacher=%s course=%d", row.TeacherID, row.CourseID))
		}
		if types.IsStaleVersion(row.Version, existing.Version) {
			c.log.Debug("duplicate TeacherUnassigned dropped", "teacher_id", row.TeacherID, "course_id", row.CourseID)
			return nil
		}
		if !types.NextVersionOK(row.Version, existing.Version) {
			return apierr.NewConflict("version_gap", fmt.Errorf("TeacherUnassigned teacher=%s course=%d carries version %d, local is %d", row.TeacherID, row.CourseID, row.Version, existing.Version))
		}
		existing.Status = row.Status
		existing.AssignedAt = row.AssignedAt
		existing.UnassignedAt = row.UnassignedAt
		existing.Version = row.Version
		return c.teacherCourseRepo.Save(ctx, tx, existing)
	})
}

func (c *Consumers) upsertStudentCourse(ctx context.Context, tx *gorm.DB, row *types.StudentCourse) error {
	existing, err := c.studentCourseRepo.GetByStudentAndCourse(ctx, tx, row.StudentID, row.CourseID)
	if err != nil {
		return err
	}
	if existing == nil {
		_, err := c.studentCourseRepo.Create(ctx, tx, []*types.StudentCourse{row})
		return err
	}
	if types.IsStaleVersion(row.Version, existing.Version) {
		c.log.Debug("duplicate StudentEnrolled dropped", "student_id", row.StudentID, "course_id", row.CourseID)
		return nil
	}
	if !types.NextVersionOK(row.Version, existing.Version) {
		return apierr.NewConflict("version_gap", fmt.Errorf("StudentEnrolled student=%s course=%d carries version %d, local is %d", row.StudentID, row.CourseID, row.Version, existing.Version))
	}
	existing.Status = row.Status
	existing.EnrolledAt = row.EnrolledAt
	existing.WithdrawnAt = row.WithdrawnAt
	existing.Version = row.Version
	return c.studentCourseRepo.Save(ctx, tx, existing)
}

func (c *Consumers) upsertTeacherCourse(ctx context.Context, tx *gorm.DB, row *types.TeacherCourse) error {
	existing, err := c.teacherCourseRepo.GetByTeacherAndCourse(ctx, tx, row.TeacherID, row.CourseID)
	if err != nil {
		return err
	}
	if existing == nil {
		_, err := c.teacherCourseRepo.Create(ctx, tx, []*types.TeacherCourse{row})
		return err
	}
	if types.IsStaleVersion(row.Version, existing.Version) {
		c.log.Debug("duplicate TeacherAssigned dropped", "teacher_id", row.TeacherID, "course_id", row.CourseID)
		return nil
	}
	if !types.NextVersionOK(row.Version, existing.Version) {
		return apierr.NewConflict("version_gap", fmt.Errorf("TeacherAssigned teacher=%s course=%d carries version %d, local is %d", row.TeacherID, row.CourseID, row.Version, existing.Version))
	}
	existing.Status = row.Status
	existing.AssignedAt = row.AssignedAt
	existing.UnassignedAt = row.UnassignedAt
	existing.Version = row.Version
	return c.teacherCourseRepo.Save(ctx, tx, existing)
}
