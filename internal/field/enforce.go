package field

import (
	"errors"
	"sort"

	"github.com/zulandar/switchyard/internal/apperr"
)

// Definition is the validation view of a board's custom field definition.
type Definition struct {
	ID       string
	Name     string
	Config   Config
	Required bool
	Position int
	Version  int
}

// Enforcer validates a task's complete custom field map against a board's
// definitions. It holds no per-call state and is safe for concurrent use.
type Enforcer struct {
	cache *Cache
}

// NewEnforcer returns an Enforcer. cache may be nil.
func NewEnforcer(cache *Cache) *Enforcer {
	return &Enforcer{cache: cache}
}

// Validate checks values against defs. Every definition is checked, and every
// key without a definition is rejected as an unknown field. All problems are
// reported together in a *apperr.ValidationError; on success the normalized
// map is returned with empty optional fields omitted.
func (e *Enforcer) Validate(defs []Definition, values map[string]any) (map[string]any, error) {
	ordered := make([]Definition, len(defs))
	copy(ordered, defs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	known := make(map[string]bool, len(ordered))
	out := make(map[string]any, len(values))
	var errs []apperr.FieldError

	for _, def := range ordered {
		known[def.ID] = true
		v, err := e.validator(def)(values[def.ID])
		if err != nil {
			errs = append(errs, toFieldError(def, err))
			continue
		}
		if v != nil {
			out[def.ID] = v
		}
	}

	var unknown []string
	for id := range values {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		errs = append(errs, apperr.FieldError{
			FieldID: id,
			Code:    CodeUnknownField,
			Message: "unknown field",
		})
	}

	if len(errs) > 0 {
		return nil, &apperr.ValidationError{Fields: errs}
	}
	return out, nil
}

func (e *Enforcer) validator(def Definition) Validator {
	if e == nil || e.cache == nil {
		return BuildValidator(def.Config, def.Required)
	}
	return e.cache.Validator(def)
}

func toFieldError(def Definition, err error) apperr.FieldError {
	fe := apperr.FieldError{
		FieldID:   def.ID,
		FieldName: def.Name,
		Code:      CodeInvalidType,
		Message:   err.Error(),
	}
	var ve *ValueError
	if errors.As(err, &ve) {
		fe.Code = ve.Code
	}
	return fe
}
