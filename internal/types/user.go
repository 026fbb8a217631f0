package types

import "time"

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User is keyed by the 9 digit national id, not an autoincrement, so the same
// identifier names the person in every service.
type User struct {
	ID        string    `gorm:"primaryKey;size:9" json:"id"`
	FirstName string    `gorm:"column:first_name;not null" json:"first_name"`
	LastName  string    `gorm:"column:last_name;not null" json:"last_name"`
	Email     string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Phone     string    `gorm:"column:phone" json:"phone"`
	Role      string    `gorm:"column:role;not null" json:"role"`
	Version   uint      `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

func (u *User) EntityVersion() uint     { return u.Version }
func (u *User) SetEntityVersion(v uint) { u.Version = v }

type UserPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Role      *string
}

func (u *User) Apply(p UserPatch) bool {
	changed := false
	if p.FirstName != nil && *p.FirstName != u.FirstName {
		u.FirstName = *p.FirstName
		changed = true
	}
	if p.LastName != nil && *p.LastName != u.LastName {
		u.LastName = *p.LastName
		changed = true
	}
	if p.Email != nil && *p.Email != u.Email {
		u.Email = *p.Email
		changed = true
	}
	if p.Phone != nil && *p.Phone != u.Phone {
		u.Phone = *p.Phone
		changed = true
	}
	if p.Role != nil && *p.Role != u.Role {
		u.Role = *p.Role
		changed = true
	}
	return changed
}
