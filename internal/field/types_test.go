package field

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestKnown(t *testing.T) {
	for _, ft := range Types {
		if !Known(ft) {
			t.Errorf("Known(%q) = false", ft)
		}
	}
	if Known("rating") {
		t.Error(`Known("rating") = true`)
	}
}

func TestParseConfig_Valid(t *testing.T) {
	tests := []struct {
		name string
		ft   Type
		raw  map[string]any
		want Config
	}{
		{"text empty", TypeText, nil, TextConfig{}},
		{"number empty", TypeNumber, map[string]any{}, NumberConfig{}},
		{"checkbox", TypeCheckbox, nil, CheckboxConfig{}},
		{"select single", TypeSelect, map[string]any{"options": []any{"A", "B"}}, SelectConfig{Options: []string{"A", "B"}}},
		{"select multiple", TypeSelect, map[string]any{"options": []any{"A"}, "multiple": true}, SelectConfig{Options: []string{"A"}, Multiple: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig(tt.ft, tt.raw)
			if err != nil {
				t.Fatalf("ParseConfig: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseConfig = %#v, want %#v", got, tt.want)
			}
			if got.Type() != tt.ft {
				t.Errorf("Type() = %q, want %q", got.Type(), tt.ft)
			}
		})
	}
}

func TestParseConfig_Bounds(t *testing.T) {
	cfg, err := ParseConfig(TypeText, map[string]any{"max_length": float64(20)})
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if tc := cfg.(TextConfig); tc.MaxLength == nil || *tc.MaxLength != 20 {
		t.Errorf("MaxLength = %v, want 20", tc.MaxLength)
	}

	cfg, err = ParseConfig(TypeNumber, map[string]any{"min": float64(0), "max": float64(100)})
	if err != nil {
		t.Fatalf("number: %v", err)
	}
	nc := cfg.(NumberConfig)
	if *nc.Min != 0 || *nc.Max != 100 {
		t.Errorf("bounds = [%v, %v], want [0, 100]", *nc.Min, *nc.Max)
	}

	cfg, err = ParseConfig(TypeDate, map[string]any{"min": "2024-01-01", "max": "2024-12-31"})
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	if got := cfg.Map(); got["min"] != "2024-01-01" || got["max"] != "2024-12-31" {
		t.Errorf("date Map() = %v", got)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		ft     Type
		raw    map[string]any
		reason string
	}{
		{"select missing options", TypeSelect, nil, "options must not be empty"},
		{"select empty options", TypeSelect, map[string]any{"options": []any{}}, "options must not be empty"},
		{"select duplicate option", TypeSelect, map[string]any{"options": []any{"A", "A"}}, "duplicate option"},
		{"select blank option", TypeSelect, map[string]any{"options": []any{""}}, "empty values"},
		{"date min equals max", TypeDate, map[string]any{"min": "2024-05-01", "max": "2024-05-01"}, "min must be before max"},
		{"date min after max", TypeDate, map[string]any{"min": "2025-01-01", "max": "2024-01-01"}, "min must be before max"},
		{"date garbage", TypeDate, map[string]any{"min": "yesterday"}, "not a date"},
		{"number inverted", TypeNumber, map[string]any{"min": float64(10), "max": float64(1)}, "min must not exceed max"},
		{"text negative", TypeText, map[string]any{"max_length": float64(-1)}, "must not be negative"},
		{"text fractional", TypeText, map[string]any{"max_length": 2.5}, "max_length"},
		{"unknown key", TypeNumber, map[string]any{"minimum": float64(1)}, "unknown field"},
		{"checkbox with settings", TypeCheckbox, map[string]any{"default": true}, "unknown field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.ft, tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %T %v, want *ConfigError", err, err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error = %q, want to contain %q", err, tt.reason)
			}
		})
	}
}

func TestParseConfig_UnknownType(t *testing.T) {
	_, err := ParseConfig("rating", nil)
	if !errors.Is(err, ErrUnknownFieldType) {
		t.Fatalf("err = %v, want ErrUnknownFieldType", err)
	}
}

func TestConfigMap_RoundTrip(t *testing.T) {
	tests := []struct {
		ft  Type
		raw map[string]any
	}{
		{TypeText, map[string]any{"max_length": float64(12)}},
		{TypeNumber, map[string]any{"min": float64(-5), "max": float64(5)}},
		{TypeDate, map[string]any{"min": "2024-01-01"}},
		{TypeSelect, map[string]any{"options": []any{"low", "high"}, "multiple": true}},
		{TypeCheckbox, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.ft), func(t *testing.T) {
			cfg, err := ParseConfig(tt.ft, tt.raw)
			if err != nil {
				t.Fatalf("ParseConfig: %v", err)
			}
			again, err := ParseConfig(tt.ft, cfg.Map())
			if err != nil {
				t.Fatalf("ParseConfig(Map()): %v", err)
			}
			if !reflect.DeepEqual(cfg, again) {
				t.Errorf("round trip = %#v, want %#v", again, cfg)
			}
		})
	}
}
