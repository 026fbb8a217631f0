package types

import "time"

type Subject struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	Version     uint      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Subject) TableName() string { return "subject" }

func (s *Subject) EntityVersion() uint     { return s.Version }
func (s *Subject) SetEntityVersion(v uint) { s.Version = v }

type SubjectPatch struct {
	Name        *string
	Description *string
}

func (s *Subject) Apply(p SubjectPatch) bool {
	changed := false
	if p.Name != nil && *p.Name != s.Name {
		s.Name = *p.Name
		changed = true
	}
	if p.Description != nil && *p.Description != s.Description {
		s.Description = *p.Description
		changed = true
	}
	return changed
}
