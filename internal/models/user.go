package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleDeveloper Role = "developer"
	RoleTechLead  Role = "tech_lead"
	RoleAdmin     Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleDeveloper, RoleTechLead, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDeveloper, RoleTechLead, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"type:varchar(100);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role         Role           `gorm:"type:varchar(20);not null;index" json:"role"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsLeadOrAdmin reports whether the user holds one of the elevated roles
// that may manage any task.
func (u *User) IsLeadOrAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleTechLead
}
