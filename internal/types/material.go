package types

import "time"

// Material belongs to a course the materials service only knows through its
// CourseRef projection.
type Material struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID    uint      `gorm:"column:course_id;not null;index" json:"course_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	Version     uint      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Material) TableName() string { return "material" }

func (m *Material) EntityVersion() uint     { return m.Version }
func (m *Material) SetEntityVersion(v uint) { m.Version = v }

type MaterialPatch struct {
	Title       *string
	Description *string
}

func (m *Material) Apply(p MaterialPatch) bool {
	changed := false
	if p.Title != nil && *p.Title != m.Title {
		m.Title = *p.Title
		changed = true
	}
	if p.Description != nil && *p.Description != m.Description {
		m.Description = *p.Description
		changed = true
	}
	return changed
}

// MaterialFile is a dependent row, removed with its material. It is never
// replicated, so it carries no version.
type MaterialFile struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MaterialID uint      `gorm:"column:material_id;not null;index" json:"material_id"`
	FileName   string    `gorm:"column:file_name;not null" json:"file_name"`
	MimeType   string    `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes  int64     `gorm:"column:size_bytes" json:"size_bytes"`
	StorageKey string    `gorm:"column:storage_key;not null" json:"storage_key"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (MaterialFile) TableName() string { return "material_file" }
