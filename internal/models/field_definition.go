package models

import "time"

// FieldDefinition declares a typed custom field on a board. Config holds the
// type-specific settings as decoded JSON and is nil for unconfigured types.
type FieldDefinition struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	BoardID   string         `gorm:"size:36;not null;index" json:"board_id"`
	Name      string         `gorm:"size:128;not null" json:"name"`
	FieldType string         `gorm:"size:16;not null" json:"field_type"`
	Config    map[string]any `gorm:"type:json;serializer:json" json:"config"`
	Required  bool           `gorm:"not null;default:false" json:"required"`
	Position  int            `gorm:"not null;default:0" json:"position"`
	Version   int            `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
