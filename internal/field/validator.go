package field

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Value error codes.
const (
	CodeRequired        = "required"
	CodeInvalidType     = "invalid_type"
	CodeTooLong         = "too_long"
	CodeOutOfRange      = "out_of_range"
	CodeNotFinite       = "not_finite"
	CodeInvalidDate     = "invalid_date"
	CodeInvalidOption   = "invalid_option"
	CodeDuplicateOption = "duplicate_option"
	CodeUnknownField    = "unknown_field"
)

// ValueError reports why a single value was rejected.
type ValueError struct {
	Code    string
	Message string
}

func (e *ValueError) Error() string { return e.Message }

func reject(code, format string, args ...any) *ValueError {
	return &ValueError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validator checks a candidate value and returns its normalized form.
// A nil result with a nil error means the field is empty.
type Validator func(value any) (any, error)

// BuildValidator returns the validator for a field with the given config.
// When required is false, nil is accepted before any type check runs.
// It panics on a nil config, which can only come from a programming error.
func BuildValidator(cfg Config, required bool) Validator {
	check := typeCheck(cfg)
	return func(value any) (any, error) {
		if value == nil {
			if required {
				return nil, reject(CodeRequired, "value is required")
			}
			return nil, nil
		}
		return check(value, required)
	}
}

type checkFunc func(value any, required bool) (any, error)

func typeCheck(cfg Config) checkFunc {
	switch c := cfg.(type) {
	case TextConfig:
		return c.check
	case NumberConfig:
		return c.check
	case DateConfig:
		return c.check
	case SelectConfig:
		if c.Multiple {
			return c.checkMany
		}
		return c.checkOne
	case CheckboxConfig:
		return c.check
	default:
		panic(fmt.Sprintf("field: no validator for config %T", cfg))
	}
}

func (c TextConfig) check(value any, required bool) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, reject(CodeInvalidType, "expected text, got %s", kind(value))
	}
	if required && strings.TrimSpace(s) == "" {
		return nil, reject(CodeRequired, "value is required")
	}
	if c.MaxLength != nil {
		if n := utf8.RuneCountInString(s); n > *c.MaxLength {
			return nil, reject(CodeTooLong, "must be at most %d characters, got %d", *c.MaxLength, n)
		}
	}
	return s, nil
}

func (c NumberConfig) check(value any, _ bool) (any, error) {
	n, ok := toFloat(value)
	if !ok {
		return nil, reject(CodeInvalidType, "expected a number, got %s", kind(value))
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, reject(CodeNotFinite, "must be a finite number")
	}
	if c.Min != nil && n < *c.Min {
		return nil, reject(CodeOutOfRange, "must be at least %v", *c.Min)
	}
	if c.Max != nil && n > *c.Max {
		return nil, reject(CodeOutOfRange, "must be at most %v", *c.Max)
	}
	return n, nil
}

func (c DateConfig) check(value any, _ bool) (any, error) {
	var d time.Time
	switch v := value.(type) {
	case time.Time:
		d = v.UTC()
	case string:
		parsed, err := parseDate(v)
		if err != nil {
			return nil, reject(CodeInvalidDate, "%s", err.Error())
		}
		d = parsed
	default:
		return nil, reject(CodeInvalidType, "expected a date, got %s", kind(value))
	}
	if c.Min != nil && d.Before(*c.Min) {
		return nil, reject(CodeOutOfRange, "must be on or after %s", formatDate(*c.Min))
	}
	if c.Max != nil && d.After(*c.Max) {
		return nil, reject(CodeOutOfRange, "must be on or before %s", formatDate(*c.Max))
	}
	return formatDate(d), nil
}

func (c SelectConfig) checkOne(value any, _ bool) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, reject(CodeInvalidType, "expected one option, got %s", kind(value))
	}
	if !c.allows(s) {
		return nil, reject(CodeInvalidOption, "%q is not one of %s", s, c.optionList())
	}
	return s, nil
}

func (c SelectConfig) checkMany(value any, required bool) (any, error) {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		return nil, reject(CodeInvalidType, "expected a list of options, got %s", kind(value))
	}
	if required && len(items) == 0 {
		return nil, reject(CodeRequired, "at least one option is required")
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, reject(CodeInvalidType, "item %d: expected an option, got %s", i, kind(item))
		}
		if !c.allows(s) {
			return nil, reject(CodeInvalidOption, "item %d: %q is not one of %s", i, s, c.optionList())
		}
		if seen[s] {
			return nil, reject(CodeDuplicateOption, "item %d: %q selected twice", i, s)
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

func (c SelectConfig) allows(s string) bool {
	for _, o := range c.Options {
		if o == s {
			return true
		}
	}
	return false
}

func (c SelectConfig) optionList() string {
	return "[" + strings.Join(c.Options, ", ") + "]"
}

func (CheckboxConfig) check(value any, _ bool) (any, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, reject(CodeInvalidType, "expected true or false, got %s", kind(value))
	}
	return b, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func kind(v any) string {
	switch v.(type) {
	case string:
		return "text"
	case bool:
		return "a boolean"
	case float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return "a number"
	case []any, []string:
		return "a list"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
