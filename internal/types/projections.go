package types

import "time"

// Projection rows: locally stored, non-authoritative copies of entities owned
// by another service. They are written exclusively by that service's own
// consumers, never by its request handlers, and their ids come from the event
// payloads instead of the local sequence.

// CourseRef is the replicated course subset shared by the materials, subjects
// and users services. It deliberately omits the subject linkage, only the
// courses service resolves subjects.
type CourseRef struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"column:title;not null" json:"title"`
	StartDate       time.Time `gorm:"column:start_date" json:"start_date"`
	EndDate         time.Time `gorm:"column:end_date" json:"end_date"`
	NumberOfLessons int       `gorm:"column:number_of_lessons;not null;default:0" json:"number_of_lessons"`
	Version         uint      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (CourseRef) TableName() string { return "course_ref" }

func (c *CourseRef) EntityVersion() uint     { return c.Version }
func (c *CourseRef) SetEntityVersion(v uint) { c.Version = v }

// SubjectRef is the courses service's copy of a subject.
type SubjectRef struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Version   uint      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (SubjectRef) TableName() string { return "subject_ref" }

func (s *SubjectRef) EntityVersion() uint     { return s.Version }
func (s *SubjectRef) SetEntityVersion(v uint) { s.Version = v }

// UserRef is the courses service's copy of a user, enough to validate teacher
// assignments and student enrollments.
type UserRef struct {
	ID        string    `gorm:"primaryKey;size:9" json:"id"`
	FirstName string    `gorm:"column:first_name;not null" json:"first_name"`
	LastName  string    `gorm:"column:last_name;not null" json:"last_name"`
	Email     string    `gorm:"column:email;not null" json:"email"`
	Phone     string    `gorm:"column:phone" json:"phone"`
	Role      string    `gorm:"column:role;not null" json:"role"`
	Version   uint      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserRef) TableName() string { return "user_ref" }

func (u *UserRef) EntityVersion() uint     { return u.Version }
func (u *UserRef) SetEntityVersion(v uint) { u.Version = v }
