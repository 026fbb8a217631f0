package courses

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/apierr"
	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/types"
	"github.com/RK2301/classify-backend/internal/uow"
)

type CreateCourseInput struct {
	Title           string
	SubjectID       *uint
	StartDate       time.Time
	NumberOfLessons int
	Pattern         []types.WeeklySlot
	TeacherIDs      []string
}

// Service owns the courses tables: course, lesson and the two join tables.
// Every operation that touches more than one row runs in one unit of work,
// and the matching event goes out only after that unit committed.
type Service interface {
	CreateCourse(ctx context.Context, in CreateCourseInput) (*types.CourseCreatedEvent, error)
	UpdateCourse(ctx context.Context, courseID uint, patch types.CoursePatch) (*types.Course, error)
	DeleteCourse(ctx context.Context, courseID uint) error
	AddLesson(ctx context.Context, courseID uint, start, end time.Time) (*types.Lesson, error)
	DeleteLesson(ctx context.Context, lessonID uint) error
	EnrollStudent(ctx context.Context, studentID string, courseID uint) (*types.StudentCourse, error)
	WithdrawStudent(ctx context.Context, studentID string, courseID uint) (*types.StudentCourse, error)
	AssignTeacher(ctx context.Context, teacherID string, courseID uint) (*types.TeacherCourse, error)
	UnassignTeacher(ctx context.Context, teacherID string, courseID uint) (*types.TeacherCourse, error)
}

type service struct {
	db  *gorm.DB
	log *logger.Logger
	uow *uow.UnitOfWork

	courseRepo        repos.CourseRepo
	lessonRepo        repos.LessonRepo
	teacherCourseRepo repos.TeacherCourseRepo
	studentCourseRepo repos.StudentCourseRepo
	subjectRefRepo    repos.SubjectRefRepo
	userRefRepo       repos.UserRefRepo

	now func() time.Time
}

func NewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	pub broker.Publisher,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	teacherCourseRepo repos.TeacherCourseRepo,
	studentCourseRepo repos.StudentCourseRepo,
	subjectRefRepo repos.SubjectRefRepo,
	userRefRepo repos.UserRefRepo,
) Service {
	serviceLog := baseLog.With("service", "CourseService")
	return &service{
		db:                db,
		log:               serviceLog,
		uow:               uow.New(db, pub, serviceLog),
		courseRepo:        courseRepo,
		lessonRepo:        lessonRepo,
		teacherCourseRepo: teacherCourseRepo,
		studentCourseRepo: studentCourseRepo,
		subjectRefRepo:    subjectRefRepo,
		userRefRepo:       userRefRepo,
		now:               time.Now,
	}
}

// CreateCourse is the composite write: one course row, its materialized
// lessons and its teacher assignments commit together, then exactly one
// enriched CourseCreated event is published.
func (s *service) CreateCourse(ctx context.Context, in CreateCourseInput) (*types.CourseCreatedEvent, error) {
	if in.Title == "" {
		return nil, apierr.NewValidation("missing_title", fmt.Errorf("course title is required"))
	}
	now := s.now()
	lessons, err := MaterializeLessons(in.StartDate, in.NumberOfLessons, in.Pattern, now)
	if err != nil {
		return nil, err
	}
	if err := CheckCollisions(nil, lessons); err != nil {
		return nil, err
	}

	var event *types.CourseCreatedEvent
	err = s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		if in.SubjectID != nil {
			ref, err := s.subjectRefRepo.GetByID(ctx, tx, *in.SubjectID)
			if err != nil {
				return err
			}
			if ref == nil {
				return apierr.NewNotFound("subject_not_found", fmt.Errorf("subject %d unknown", *in.SubjectID))
			}
		}
		teacherRefs, err := s.userRefRepo.GetByIDs(ctx, tx, in.TeacherIDs)
		if err != nil {
			return err
		}
		known := map[string]*types.UserRef{}
		for _, ref := range teacherRefs {
			known[ref.ID] = ref
		}
		for _, id := range in.TeacherIDs {
			ref, ok := known[id]
			if !ok {
				return apierr.NewNotFound("teacher_not_found", fmt.Errorf("teacher %s unknown", id))
			}
			if ref.Role != types.RoleTeacher {
				return apierr.NewValidation("not_a_teacher", fmt.Errorf("user %s has role %s", id, ref.Role))
			}
		}

		pattern, err := json.Marshal(in.Pattern)
		if err != nil {
			return err
		}
		course := &types.Course{
			Title:           in.Title,
			SubjectID:       in.SubjectID,
			StartDate:       in.StartDate,
			EndDate:         lessons[len(lessons)-1].EndTime,
			NumberOfLessons: in.NumberOfLessons,
			Pattern:         datatypes.JSON(pattern),
			Version:         1,
		}
		if _, err := s.courseRepo.Create(ctx, tx, []*types.Course{course}); err != nil {
			return err
		}
		for _, l := range lessons {
			l.CourseID = course.ID
		}
		if _, err := s.lessonRepo.Create(ctx, tx, lessons); err != nil {
			return err
		}
		assignments := make([]*types.TeacherCourse, 0, len(in.TeacherIDs))
		for _, id := range in.TeacherIDs {
			assignments = append(assignments, &types.TeacherCourse{
				TeacherID:  id,
				CourseID:   course.ID,
				Status:     types.AssignmentStatusActive,
				AssignedAt: now,
				Version:    1,
			})
		}
		if _, err := s.teacherCourseRepo.Create(ctx, tx, assignments); err != nil {
			return err
		}

		event = &types.CourseCreatedEvent{Course: *course, Lessons: lessons, Teachers: assignments}
		events.Queue(broker.ExchangeCourseCreated, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("course created", "course_id", event.Course.ID, "lessons", len(event.Lessons), "teachers", len(event.Teachers))
	return event, nil
}

func (s *service) UpdateCourse(ctx context.Context, courseID uint, patch types.CoursePatch) (*types.Course, error) {
	var course *types.Course
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		var err error
		course, err = s.courseRepo.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if course == nil {
			return apierr.NewNotFound("course_not_found", fmt.Errorf("course %d unknown", courseID))
		}
		if patch.SubjectID != nil {
			ref, err := s.subjectRefRepo.GetByID(ctx, tx, *patch.SubjectID)
			if err != nil {
				return err
			}
			if ref == nil {
				return apierr.NewNotFound("subject_not_found", fmt.Errorf("subject %d unknown", *patch.SubjectID))
			}
		}
		if !types.ApplyMutation(course, func() bool { return course.Apply(patch) }) {
			return nil
		}
		if err := s.courseRepo.Save(ctx, tx, course); err != nil {
			return err
		}
		events.Queue(broker.ExchangeCourseUpdated, course)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// DeleteCourse removes the course and all dependent rows in one transaction.
// Dependents are deleted explicitly so the behavior does not hinge on
// database-level cascade support; the FK constraints are a backstop.
func (s *service) DeleteCourse(ctx context.Context, courseID uint) error {
	return s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		course, err := s.courseRepo.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if course == nil {
			return apierr.NewNotFound("course_not_found", fmt.Errorf("course %d unknown", courseID))
		}
		if err := s.lessonRepo.DeleteByCourseID(ctx, tx, courseID); err != nil {
			return err
		}
		if err := s.teacherCourseRepo.DeleteByCourseID(ctx, tx, courseID); err != nil {
			return err
		}
		if err := s.studentCourseRepo.DeleteByCourseID(ctx, tx, courseID); err != nil {
			return err
		}
		if err := s.courseRepo.DeleteByID(ctx, tx, courseID); err != nil {
			return err
		}
		events.Queue(broker.ExchangeCourseDeleted, &types.DeletedEvent{ID: courseID})
		return nil
	})
}

// AddLesson inserts one lesson and recomputes the course's lesson count and
// end date in the same transaction.
func (s *service) AddLesson(ctx context.Context, courseID uint, start, end time.Time) (*types.Lesson, error) {
	if !end.After(start) {
		return nil, apierr.NewValidation("bad_slot_interval", fmt.Errorf("lesson must end after it starts"))
	}
	var lesson *types.Lesson
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		course, err := s.courseRepo.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if course == nil {
			return apierr.NewNotFound("course_not_found", fmt.Errorf("course %d unknown", courseID))
		}
		existing, err := s.lessonRepo.GetByCourseID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		now := s.now()
		lesson = &types.Lesson{
			CourseID:  courseID,
			StartTime: start,
			EndTime:   end,
			Status:    types.DeriveLessonStatus(start, end, now),
			Version:   1,
		}
		if err := CheckCollisions(existing, []*types.Lesson{lesson}); err != nil {
			return err
		}
		if _, err := s.lessonRepo.Create(ctx, tx, []*types.Lesson{lesson}); err != nil {
			return err
		}
		if err := s.recomputeCourse(ctx, tx, course, append(existing, lesson), events); err != nil {
			return err
		}
		events.Queue(broker.ExchangeLessonCreated, lesson)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *service) DeleteLesson(ctx context.Context, lessonID uint) error {
	return s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		lesson, err := s.lessonRepo.GetByID(ctx, tx, lessonID)
		if err != nil {
			return err
		}
		if lesson == nil {
			return apierr.NewNotFound("lesson_not_found", fmt.Errorf("lesson %d unknown", lessonID))
		}
		course, err := s.courseRepo.GetByID(ctx, tx, lesson.CourseID)
		if err != nil {
			return err
		}
		if course == nil {
			return apierr.NewNotFound("course_not_found", fmt.Errorf("course %d unknown", lesson.CourseID))
		}
		if err := s.lessonRepo.DeleteByID(ctx, tx, lessonID); err != nil {
			return err
		}
		remaining, err := s.lessonRepo.GetByCourseID(ctx, tx, lesson.CourseID)
		if err != nil {
			return err
		}
		if err := s.recomputeCourse(ctx, tx, course, remaining, events); err != nil {
			return err
		}
		events.Queue(broker.ExchangeLessonDeleted, &types.DeletedEvent{ID: lessonID})
		return nil
	})
}

// recomputeCourse refreshes the lesson-derived course fields. The course's
// end date is the max lesson end time; with no lessons left it falls back to
// the start date.
func (s *service) recomputeCourse(ctx context.Context, tx *gorm.DB, course *types.Course, lessons []*types.Lesson, events *uow.Events) error {
	endDate := course.StartDate
	for _, l := range lessons {
		if l.EndTime.After(endDate) {
			endDate = l.EndTime
		}
	}
	changed := types.ApplyMutation(course, func() bool {
		dirty := false
		if course.NumberOfLessons != len(lessons) {
			course.NumberOfLessons = len(lessons)
			dirty = true
		}
		if !course.EndDate.Equal(endDate) {
			course.EndDate = endDate
			dirty = true
		}
		return dirty
	})
	if !changed {
		return nil
	}
	if err := s.courseRepo.Save(ctx, tx, course); err != nil {
		return err
	}
	events.Queue(broker.ExchangeCourseUpdated, course)
	return nil
}

// EnrollStudent creates the enrollment row on first enroll and reactivates
// the same row on re-enroll after a withdrawal.
func (s *service) EnrollStudent(ctx context.Context, studentID string, courseID uint) (*types.StudentCourse, error) {
	var row *types.StudentCourse
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		if err := s.requireUserRef(ctx, tx, studentID, types.RoleStudent); err != nil {
			return err
		}
		course, err := s.courseRepo.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if course == nil {
			return apierr.NewNotFound("course_not_found", fmt.Errorf("course %d unknown", courseID))
		}
		row, err = s.studentCourseRepo.GetByStudentAndCourse(ctx, tx, studentID, courseID)
		if err != nil {
			return err
		}
		now := s.now()
		if row == nil {
			row = &types.StudentCourse{
				StudentID:  studentID,
				CourseID:   courseID,
				Status:     types.EnrollmentStatusActive,
				EnrolledAt: now,
				Version:    1,
			}
			if _, err := s.studentCourseRepo.Create(ctx, tx, []*types.StudentCourse{row}); err != nil {
				return err
			}
			events.Queue(broker.ExchangeStudentEnrolled, row)
			return nil
		}
		if row.Status == types.EnrollmentStatusActive {
			return apierr.NewValidation("already_enrolled", fmt.Errorf("student %s already enrolled in course %d", studentID, courseID))
		}
		types.ApplyMutation(row, func() bool {
			row.Status = types.EnrollmentStatusActive
			row.EnrolledAt = now
			row.WithdrawnAt = nil
			return true
		})
		if err := s.studentCourseRepo.Save(ctx, tx, row); err != nil {
			return err
		}
		events.Queue(broker.ExchangeStudentEnrolled, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) WithdrawStudent(ctx context.Context, studentID string, courseID uint) (*types.StudentCourse, error) {
	var row *types.StudentCourse
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		var err error
		row, err = s.studentCourseRepo.GetByStudentAndCourse(ctx, tx, studentID, courseID)
		if err != nil {
			return err
		}
		if row == nil {
			return apierr.NewNotFound("enrollment_not_found", fmt.Errorf("student %s not enrolled in course %d", studentID, courseID))
		}
		if row.Status != types.EnrollmentStatusActive {
			return apierr.NewValidation("not_enrolled", fmt.Errorf("student %s already withdrawn from course %d", studentID, courseID))
		}
		now := s.now()
		types.ApplyMutation(row, func() bool {
			row.Status = types.EnrollmentStatusWithdrawn
			row.WithdrawnAt = &now
			return true
		})
		if err := s.studentCourseRepo.Save(ctx, tx, row); err != nil {
			return err
		}
		events.Queue(broker.ExchangeStudentWithdrawal, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) AssignTeacher(ctx context.Context, teacherID string, courseID uint) (*types.TeacherCourse, error) {
	var row *types.TeacherCourse
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		if err := s.requireUserRef(ctx, tx, teacherID, types.RoleTeacher); err != nil {
			return err
		}
		course, err := s.courseRepo.GetByID(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if course == nil {
			return apierr.NewNotFound("course_not_found", fmt.Errorf("course %d unknown", courseID))
		}
		row, err = s.teacherCourseRepo.GetByTeacherAndCourse(ctx, tx, teacherID, courseID)
		if err != nil {
			return err
		}
		now := s.now()
		if row == nil {
			row = &types.TeacherCourse{
				TeacherID:  teacherID,
				CourseID:   courseID,
				Status:     types.AssignmentStatusActive,
				AssignedAt: now,
				Version:    1,
			}
			if _, err := s.teacherCourseRepo.Create(ctx, tx, []*types.TeacherCourse{row}); err != nil {
				return err
			}
			events.Queue(broker.ExchangeTeacherAssigned, row)
			return nil
		}
		if row.Status == types.AssignmentStatusActive {
			return apierr.NewValidation("already_assigned", fmt.Errorf("teacher %s already assigned to course %d", teacherID, courseID))
		}
		types.ApplyMutation(row, func() bool {
			row.Status = types.AssignmentStatusActive
			row.AssignedAt = now
			row.UnassignedAt = nil
			return true
		})
		if err := s.teacherCourseRepo.Save(ctx, tx, row); err != nil {
			return err
		}
		events.Queue(broker.ExchangeTeacherAssigned, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) UnassignTeacher(ctx context.Context, teacherID string, courseID uint) (*types.TeacherCourse, error) {
	var row *types.TeacherCourse
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		var err error
		row, err = s.teacherCourseRepo.GetByTeacherAndCourse(ctx, tx, teacherID, courseID)
		if err != nil {
			return err
		}
		if row == nil {
			return apierr.NewNotFound("assignment_not_found", fmt.Errorf("teacher %s not assigned to course %d", teacherID, courseID))
		}
		if row.Status != types.AssignmentStatusActive {
			return apierr.NewValidation("not_assigned", fmt.Errorf("teacher %s already unassigned from course %d", teacherID, courseID))
		}
		now := s.now()
		types.ApplyMutation(row, func() bool {
			row.Status = types.AssignmentStatusUnassigned
			row.UnassignedAt = &now
			return true
		})
		if err := s.teacherCourseRepo.Save(ctx, tx, row); err != nil {
			return err
		}
		events.Queue(broker.ExchangeTeacherUnassigned, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) requireUserRef(ctx context.Context, tx *gorm.DB, userID, role string) error {
	ref, err := s.userRefRepo.GetByID(ctx, tx, userID)
	if err != nil {
		return err
	}
	if ref == nil {
		return apierr.NewNotFound("user_not_found", fmt.Errorf("user %s unknown", userID))
	}
	if ref.Role != role {
		return apierr.NewValidation("wrong_role", fmt.Errorf("user %s has role %s, expected %s", userID, ref.Role, role))
	}
	return nil
}
