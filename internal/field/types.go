// Package field implements board-defined custom fields: the catalog of field
// types with their configuration shapes, validators built from a definition,
// and enforcement of a task's whole value map against a board's definitions.
package field

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Type names a custom field type.
type Type string

// Supported field types.
const (
	TypeText     Type = "text"
	TypeNumber   Type = "number"
	TypeDate     Type = "date"
	TypeSelect   Type = "select"
	TypeCheckbox Type = "checkbox"
)

// Types lists every supported type in catalog order.
var Types = []Type{TypeText, TypeNumber, TypeDate, TypeSelect, TypeCheckbox}

// ErrUnknownFieldType is returned for a type outside the catalog.
var ErrUnknownFieldType = errors.New("field: unknown field type")

// Known reports whether t is in the catalog.
func Known(t Type) bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// Config is the type-specific configuration of a field definition. It is a
// closed set: TextConfig, NumberConfig, DateConfig, SelectConfig and
// CheckboxConfig are its only implementations.
type Config interface {
	Type() Type
	// Map returns the canonical JSON-ready form, nil when there is nothing to store.
	Map() map[string]any
	sealed()
}

// TextConfig configures a text field.
type TextConfig struct {
	MaxLength *int `json:"max_length,omitempty"`
}

// NumberConfig configures a number field. Bounds are inclusive.
type NumberConfig struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// DateConfig configures a date field. Bounds are inclusive.
type DateConfig struct {
	Min *time.Time
	Max *time.Time
}

// SelectConfig configures a single or multiple choice field.
type SelectConfig struct {
	Options  []string `json:"options"`
	Multiple bool     `json:"multiple,omitempty"`
}

// CheckboxConfig configures a checkbox field. It has no settings.
type CheckboxConfig struct{}

func (TextConfig) Type() Type     { return TypeText }
func (NumberConfig) Type() Type   { return TypeNumber }
func (DateConfig) Type() Type     { return TypeDate }
func (SelectConfig) Type() Type   { return TypeSelect }
func (CheckboxConfig) Type() Type { return TypeCheckbox }

func (TextConfig) sealed()     {}
func (NumberConfig) sealed()   {}
func (DateConfig) sealed()     {}
func (SelectConfig) sealed()   {}
func (CheckboxConfig) sealed() {}

func (c TextConfig) Map() map[string]any {
	if c.MaxLength == nil {
		return nil
	}
	return map[string]any{"max_length": *c.MaxLength}
}

func (c NumberConfig) Map() map[string]any {
	m := map[string]any{}
	if c.Min != nil {
		m["min"] = *c.Min
	}
	if c.Max != nil {
		m["max"] = *c.Max
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func (c DateConfig) Map() map[string]any {
	m := map[string]any{}
	if c.Min != nil {
		m["min"] = formatDate(*c.Min)
	}
	if c.Max != nil {
		m["max"] = formatDate(*c.Max)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func (c SelectConfig) Map() map[string]any {
	opts := make([]any, len(c.Options))
	for i, o := range c.Options {
		opts[i] = o
	}
	m := map[string]any{"options": opts}
	if c.Multiple {
		m["multiple"] = true
	}
	return m
}

func (CheckboxConfig) Map() map[string]any { return nil }

// ConfigError reports a configuration rejected at definition time.
type ConfigError struct {
	Type   Type
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("field: invalid %s config: %s", e.Type, e.Reason)
}

// ParseConfig builds the typed configuration for a field of type t from its
// raw JSON-decoded form, rejecting malformed settings. Unknown keys are
// rejected so typos do not silently disable a constraint.
func ParseConfig(t Type, raw map[string]any) (Config, error) {
	switch t {
	case TypeText:
		var c TextConfig
		if err := decodeStrict(raw, &c); err != nil {
			return nil, &ConfigError{Type: t, Reason: err.Error()}
		}
		if c.MaxLength != nil && *c.MaxLength < 0 {
			return nil, &ConfigError{Type: t, Reason: "max_length must not be negative"}
		}
		return c, nil

	case TypeNumber:
		var c NumberConfig
		if err := decodeStrict(raw, &c); err != nil {
			return nil, &ConfigError{Type: t, Reason: err.Error()}
		}
		if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
			return nil, &ConfigError{Type: t, Reason: "min must not exceed max"}
		}
		return c, nil

	case TypeDate:
		var wire struct {
			Min *string `json:"min,omitempty"`
			Max *string `json:"max,omitempty"`
		}
		if err := decodeStrict(raw, &wire); err != nil {
			return nil, &ConfigError{Type: t, Reason: err.Error()}
		}
		var c DateConfig
		if wire.Min != nil {
			d, err := parseDate(*wire.Min)
			if err != nil {
				return nil, &ConfigError{Type: t, Reason: "min: " + err.Error()}
			}
			c.Min = &d
		}
		if wire.Max != nil {
			d, err := parseDate(*wire.Max)
			if err != nil {
				return nil, &ConfigError{Type: t, Reason: "max: " + err.Error()}
			}
			c.Max = &d
		}
		if c.Min != nil && c.Max != nil && !c.Min.Before(*c.Max) {
			return nil, &ConfigError{Type: t, Reason: "min must be before max"}
		}
		return c, nil

	case TypeSelect:
		var c SelectConfig
		if err := decodeStrict(raw, &c); err != nil {
			return nil, &ConfigError{Type: t, Reason: err.Error()}
		}
		if len(c.Options) == 0 {
			return nil, &ConfigError{Type: t, Reason: "options must not be empty"}
		}
		seen := make(map[string]bool, len(c.Options))
		for _, o := range c.Options {
			if o == "" {
				return nil, &ConfigError{Type: t, Reason: "options must not contain empty values"}
			}
			if seen[o] {
				return nil, &ConfigError{Type: t, Reason: fmt.Sprintf("duplicate option %q", o)}
			}
			seen[o] = true
		}
		return c, nil

	case TypeCheckbox:
		var c CheckboxConfig
		if err := decodeStrict(raw, &c); err != nil {
			return nil, &ConfigError{Type: t, Reason: err.Error()}
		}
		return c, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFieldType, t)
	}
}

// decodeStrict re-encodes raw and decodes it into dst, refusing unknown keys.
func decodeStrict(raw map[string]any, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date (want YYYY-MM-DD or RFC 3339)", s)
	}
	return d.UTC(), nil
}

func formatDate(t time.Time) string {
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(dateLayout)
	}
	return t.Format(time.RFC3339)
}
