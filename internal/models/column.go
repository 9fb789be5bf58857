package models

import "time"

// Column is one lane of a board. WipLimit is nil when the column is unlimited.
// Version increments on every write that changes the column's ordering or
// occupancy.
type Column struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	BoardID   string    `gorm:"size:36;not null;index" json:"board_id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	WipLimit  *int      `json:"wip_limit"`
	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Board Board `gorm:"foreignKey:BoardID" json:"-"`
}
