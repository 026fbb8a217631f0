package types

import "time"

const (
	LessonStatusScheduled = "scheduled"
	LessonStatusOngoing   = "ongoing"
	LessonStatusCompleted = "completed"
)

type Lesson struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID  uint      `gorm:"column:course_id;not null;index" json:"course_id"`
	StartTime time.Time `gorm:"column:start_time;not null" json:"start_time"`
	EndTime   time.Time `gorm:"column:end_time;not null" json:"end_time"`
	Status    string    `gorm:"column:status;not null;default:'scheduled'" json:"status"`
	Version   uint      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) EntityVersion() uint     { return l.Version }
func (l *Lesson) SetEntityVersion(v uint) { l.Version = v }

// DeriveLessonStatus maps a lesson interval onto its real-time status. The
// interval is half-open: a lesson is ongoing from its start up to, but not
// including, its end.
func DeriveLessonStatus(start, end, now time.Time) string {
	switch {
	case now.Before(start):
		return LessonStatusScheduled
	case now.Before(end):
		return LessonStatusOngoing
	default:
		return LessonStatusCompleted
	}
}
