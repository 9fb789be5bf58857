package models

import "time"

// Board groups the columns and custom field definitions of one project board.
type Board struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string    `gorm:"size:36;index" json:"project_id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Columns []Column          `gorm:"foreignKey:BoardID" json:"-"`
	Fields  []FieldDefinition `gorm:"foreignKey:BoardID" json:"-"`
}

// BoardMember grants a user a role on a board.
type BoardMember struct {
	BoardID   string    `gorm:"primaryKey;size:36" json:"board_id"`
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`
	Role      string    `gorm:"size:16;not null;default:member" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Board roles, from most to least privileged.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// RoleRank orders roles by privilege; unknown roles rank 0.
func RoleRank(role string) int {
	switch role {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleMember:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}
