package models

import "time"

// Task is a card on a board. Non-archived tasks of a column hold positions
// 0..n-1; archived tasks sit outside the ordering at position -1.
type Task struct {
	ID                string         `gorm:"primaryKey;size:36" json:"id"`
	BoardID           string         `gorm:"size:36;not null;index" json:"board_id"`
	ColumnID          string         `gorm:"size:36;not null;index:idx_column_position" json:"column_id"`
	Title             string         `gorm:"not null" json:"title"`
	Description       string         `gorm:"type:text" json:"description"`
	Position          int            `gorm:"not null;index:idx_column_position" json:"position"`
	Archived          bool           `gorm:"not null;default:false;index" json:"archived"`
	CustomFieldValues map[string]any `gorm:"type:json;serializer:json" json:"custom_fields"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
