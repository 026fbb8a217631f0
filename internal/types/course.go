package types

import (
	"time"

	"gorm.io/datatypes"
)

// WeeklySlot is one recurring lesson slot: a weekday plus a start/end wall
// clock time in "15:04" form. Day numbering follows time.Weekday (Sunday=0).
type WeeklySlot struct {
	Day       time.Weekday `json:"day"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
}

type Course struct {
	ID              uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string         `gorm:"column:title;not null" json:"title"`
	SubjectID       *uint          `gorm:"column:subject_id;index" json:"subject_id,omitempty"`
	StartDate       time.Time      `gorm:"column:start_date;not null" json:"start_date"`
	EndDate         time.Time      `gorm:"column:end_date" json:"end_date"`
	NumberOfLessons int            `gorm:"column:number_of_lessons;not null;default:0" json:"number_of_lessons"`
	Pattern         datatypes.JSON `gorm:"column:pattern" json:"pattern,omitempty"`
	Version         uint           `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) EntityVersion() uint     { return c.Version }
func (c *Course) SetEntityVersion(v uint) { c.Version = v }

// CoursePatch carries the fields a course update may touch. Lesson-derived
// fields (EndDate, NumberOfLessons) are recomputed by the lesson operations,
// never patched directly.
type CoursePatch struct {
	Title        *string
	SubjectID    *uint
	ClearSubject bool
}

func (c *Course) Apply(p CoursePatch) bool {
	changed := false
	if p.Title != nil && *p.Title != c.Title {
		c.Title = *p.Title
		changed = true
	}
	if p.ClearSubject {
		if c.SubjectID != nil {
			c.SubjectID = nil
			changed = true
		}
	} else if p.SubjectID != nil {
		if c.SubjectID == nil || *c.SubjectID != *p.SubjectID {
			subjectID := *p.SubjectID
			c.SubjectID = &subjectID
			changed = true
		}
	}
	return changed
}
