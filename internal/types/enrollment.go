package types

import "time"

const (
	EnrollmentStatusActive    = "ACTIVE"
	EnrollmentStatusWithdrawn = "WITHDRAWN"

	AssignmentStatusActive     = "ACTIVE"
	AssignmentStatusUnassigned = "UNASSIGNED"
)

// StudentCourse is the M:N row between a student and a course. Re-enrolling a
// withdrawn student reactivates the same row, it never creates a second one.
type StudentCourse struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID   string     `gorm:"column:student_id;not null;index;uniqueIndex:uniq_student_course" json:"student_id"`
	CourseID    uint       `gorm:"column:course_id;not null;index;uniqueIndex:uniq_student_course" json:"course_id"`
	Status      string     `gorm:"column:status;not null;default:'ACTIVE'" json:"status"`
	EnrolledAt  time.Time  `gorm:"column:enrolled_at;not null" json:"enrolled_at"`
	WithdrawnAt *time.Time `gorm:"column:withdrawn_at" json:"withdrawn_at,omitempty"`
	Version     uint       `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (StudentCourse) TableName() string { return "student_course" }

func (sc *StudentCourse) EntityVersion() uint     { return sc.Version }
func (sc *StudentCourse) SetEntityVersion(v uint) { sc.Version = v }

// TeacherCourse is the M:N row between a teacher and a course.
type TeacherCourse struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TeacherID    string     `gorm:"column:teacher_id;not null;index;uniqueIndex:uniq_teacher_course" json:"teacher_id"`
	CourseID     uint       `gorm:"column:course_id;not null;index;uniqueIndex:uniq_teacher_course" json:"course_id"`
	Status       string     `gorm:"column:status;not null;default:'ACTIVE'" json:"status"`
	AssignedAt   time.Time  `gorm:"column:assigned_at;not null" json:"assigned_at"`
	UnassignedAt *time.Time `gorm:"column:unassigned_at" json:"unassigned_at,omitempty"`
	Version      uint       `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (TeacherCourse) TableName() string { return "teacher_course" }

func (tc *TeacherCourse) EntityVersion() uint     { return tc.Version }
func (tc *TeacherCourse) SetEntityVersion(v uint) { tc.Version = v }
