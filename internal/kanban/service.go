// Package kanban implements the board use cases: moving and ordering tasks
// under column WIP limits, and managing and enforcing custom field
// definitions. Every use case runs in one store transaction.
package kanban

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/field"
	"github.com/zulandar/switchyard/internal/models"
	"github.com/zulandar/switchyard/internal/store"
	"github.com/zulandar/switchyard/internal/telegraph"
)

// Notifier receives board events after the transaction that produced them
// has committed.
type Notifier interface {
	Announce(ctx context.Context, ev telegraph.Event)
}

// Notifiers announces to each notifier in turn.
type Notifiers []Notifier

func (ns Notifiers) Announce(ctx context.Context, ev telegraph.Event) {
	for _, n := range ns {
		n.Announce(ctx, ev)
	}
}

// Service runs the board use cases.
type Service struct {
	store    store.Store
	enforcer *field.Enforcer
	notifier Notifier
	log      logrus.FieldLogger
	validate *validator.Validate
	newID    func() string
}

// Options holds parameters for creating a Service.
type Options struct {
	Store    store.Store
	Enforcer *field.Enforcer   // defaults to an uncached enforcer
	Notifier Notifier          // optional
	Logger   logrus.FieldLogger // defaults to the standard logrus logger
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("kanban: store is required")
	}
	s := &Service{
		store:    opts.Store,
		enforcer: opts.Enforcer,
		notifier: opts.Notifier,
		log:      opts.Logger,
		validate: newValidate(),
		newID:    uuid.NewString,
	}
	if s.enforcer == nil {
		s.enforcer = field.NewEnforcer(nil)
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s, nil
}

// newValidate reports struct field errors under their json names.
func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check validates a request struct, turning failures into a
// *apperr.ValidationError.
func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("kanban: validate request: %w", err)
	}
	ve := &apperr.ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, apperr.FieldError{
			FieldID: fe.Field(),
			Code:    fe.Tag(),
			Message: fmt.Sprintf("failed %q check", fe.Tag()),
		})
	}
	return ve
}

// authorize fails with ErrForbidden unless actor holds at least role min on
// the board.
func authorize(tx store.Tx, boardID, actor, min string) error {
	if actor == "" {
		return apperr.Forbidden("anonymous caller")
	}
	role, err := tx.MemberRole(boardID, actor)
	if err != nil {
		return err
	}
	if models.RoleRank(role) < models.RoleRank(min) {
		return apperr.Forbidden("%s needs role %s on board %s", actor, min, boardID)
	}
	return nil
}

// announce delivers events once their transaction has committed.
func (s *Service) announce(ctx context.Context, events []telegraph.Event) {
	if s.notifier == nil {
		return
	}
	for _, ev := range events {
		s.notifier.Announce(ctx, ev)
	}
}

// definitions converts stored definitions into their validation view.
func definitions(defs []models.FieldDefinition) ([]field.Definition, error) {
	out := make([]field.Definition, 0, len(defs))
	for _, d := range defs {
		cfg, err := field.ParseConfig(field.Type(d.FieldType), d.Config)
		if err != nil {
			return nil, fmt.Errorf("kanban: stored field definition %s: %w", d.ID, err)
		}
		out = append(out, field.Definition{
			ID:       d.ID,
			Name:     d.Name,
			Config:   cfg,
			Required: d.Required,
			Position: d.Position,
			Version:  d.Version,
		})
	}
	return out, nil
}
