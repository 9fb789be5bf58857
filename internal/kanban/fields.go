package kanban

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/field"
	"github.com/zulandar/switchyard/internal/models"
	"github.com/zulandar/switchyard/internal/ordering"
	"github.com/zulandar/switchyard/internal/store"
	"github.com/zulandar/switchyard/internal/telegraph"
)

// CreateFieldRequest declares a new custom field on a board.
type CreateFieldRequest struct {
	Name      string         `json:"name" validate:"required,max=128"`
	FieldType string         `json:"field_type" validate:"required"`
	Config    map[string]any `json:"config"`
	Required  bool           `json:"required"`
}

// UpdateFieldRequest changes a definition. Nil fields are left alone.
// FieldType may be repeated but not changed.
type UpdateFieldRequest struct {
	FieldID   string         `json:"field_id" validate:"required"`
	Name      *string        `json:"name" validate:"omitempty,min=1,max=128"`
	FieldType string         `json:"field_type"`
	Config    map[string]any `json:"config"`
	Required  *bool          `json:"required"`
}

// CreateField validates the definition's configuration against its type and
// appends it to the board's definition order.
func (s *Service) CreateField(ctx context.Context, actor, boardID string, req CreateFieldRequest) (*models.FieldDefinition, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	cfg, err := parseConfig(field.Type(req.FieldType), req.Config)
	if err != nil {
		return nil, err
	}

	var def *models.FieldDefinition
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		board, err := tx.Board(boardID)
		if err != nil {
			return err
		}
		if err := authorize(tx, board.ID, actor, models.RoleAdmin); err != nil {
			return err
		}
		seq, _, existing, err := loadDefinitions(tx, board.ID)
		if err != nil {
			return err
		}
		if err := uniqueName(existing, "", req.Name); err != nil {
			return err
		}

		id := s.newID()
		pos, err := seq.Insert(id, nil)
		if err != nil {
			return fmt.Errorf("kanban: insert field definition %s: %w", id, err)
		}
		def = &models.FieldDefinition{
			ID:        id,
			BoardID:   board.ID,
			Name:      req.Name,
			FieldType: string(cfg.Type()),
			Config:    cfg.Map(),
			Required:  req.Required,
			Position:  pos,
			Version:   1,
		}
		if err := tx.CreateFieldDefinition(def); err != nil {
			return err
		}
		return tx.CommitBoard(board)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"board_id": def.BoardID, "field_id": def.ID, "field_type": def.FieldType}).Info("kanban: field created")
	return def, nil
}

// UpdateField changes a definition's name, configuration or required flag
// and bumps its version so memoized validators are rebuilt.
func (s *Service) UpdateField(ctx context.Context, actor string, req UpdateFieldRequest) (*models.FieldDefinition, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	var def *models.FieldDefinition
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		def, err = tx.FieldDefinition(req.FieldID)
		if err != nil {
			return err
		}
		board, err := tx.Board(def.BoardID)
		if err != nil {
			return err
		}
		if err := authorize(tx, board.ID, actor, models.RoleAdmin); err != nil {
			return err
		}
		if req.FieldType != "" && req.FieldType != def.FieldType {
			return apperr.Invalid("field_type", "immutable",
				"field type cannot change from %s to %s", def.FieldType, req.FieldType)
		}

		if req.Name != nil {
			_, _, existing, err := loadDefinitions(tx, board.ID)
			if err != nil {
				return err
			}
			if err := uniqueName(existing, def.ID, *req.Name); err != nil {
				return err
			}
			def.Name = *req.Name
		}
		if req.Config != nil {
			cfg, err := parseConfig(field.Type(def.FieldType), req.Config)
			if err != nil {
				return err
			}
			def.Config = cfg.Map()
		}
		if req.Required != nil {
			def.Required = *req.Required
		}
		def.Version++
		if err := tx.UpdateFieldDefinition(def, "name", "config", "required", "version"); err != nil {
			return err
		}
		return tx.CommitBoard(board)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"field_id": def.ID, "version": def.Version}).Info("kanban: field updated")
	return def, nil
}

// DeleteField removes a definition, closes the gap in the board's order and
// strips its values from every task on the board, all in one transaction.
// It returns the number of tasks that carried a value.
func (s *Service) DeleteField(ctx context.Context, actor, fieldID string) (int, error) {
	var (
		def    *models.FieldDefinition
		purged int
	)
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		def, err = tx.FieldDefinition(fieldID)
		if err != nil {
			return err
		}
		board, err := tx.Board(def.BoardID)
		if err != nil {
			return err
		}
		if err := authorize(tx, board.ID, actor, models.RoleAdmin); err != nil {
			return err
		}
		seq, base, _, err := loadDefinitions(tx, board.ID)
		if err != nil {
			return err
		}
		if _, err := seq.Remove(def.ID); err != nil {
			return fmt.Errorf("kanban: remove field definition %s: %w", def.ID, err)
		}
		if err := tx.DeleteFieldDefinition(def.ID); err != nil {
			return err
		}
		if err := tx.PlaceFieldDefinitions(board.ID, seq.Changed(base)); err != nil {
			return err
		}
		purged, err = tx.PurgeFieldValues(board.ID, def.ID)
		if err != nil {
			return err
		}
		return tx.CommitBoard(board)
	})
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"board_id": def.BoardID, "field_id": def.ID, "purged": purged}).Info("kanban: field deleted")
	s.announce(ctx, []telegraph.Event{{
		Type:      telegraph.EventFieldDeleted,
		BoardID:   def.BoardID,
		FieldID:   def.ID,
		FieldName: def.Name,
		Purged:    purged,
		Actor:     actor,
	}})
	return purged, nil
}

// ReorderFields assigns definition positions following ids, which must list
// exactly the board's current definitions. On mismatch nothing changes.
func (s *Service) ReorderFields(ctx context.Context, actor, boardID string, ids []string) ([]models.FieldDefinition, error) {
	var defs []models.FieldDefinition
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		board, err := tx.Board(boardID)
		if err != nil {
			return err
		}
		if err := authorize(tx, board.ID, actor, models.RoleAdmin); err != nil {
			return err
		}
		seq, base, _, err := loadDefinitions(tx, board.ID)
		if err != nil {
			return err
		}
		if err := seq.Reorder(ids); err != nil {
			return mismatch("field_ids", err)
		}
		if err := tx.PlaceFieldDefinitions(board.ID, seq.Changed(base)); err != nil {
			return err
		}
		if err := tx.CommitBoard(board); err != nil {
			return err
		}
		defs, err = tx.FieldDefinitions(board.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// ListFields returns a board's definitions in display order.
func (s *Service) ListFields(ctx context.Context, actor, boardID string) ([]models.FieldDefinition, error) {
	var defs []models.FieldDefinition
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.Board(boardID); err != nil {
			return err
		}
		if err := authorize(tx, boardID, actor, models.RoleViewer); err != nil {
			return err
		}
		var err error
		defs, err = tx.FieldDefinitions(boardID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return defs, nil
}

// ValidateCustomFields checks a value map against the board's definitions
// without writing anything. It returns the normalized values.
func (s *Service) ValidateCustomFields(ctx context.Context, actor, boardID string, values map[string]any) (map[string]any, error) {
	var out map[string]any
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		if _, err := tx.Board(boardID); err != nil {
			return err
		}
		if err := authorize(tx, boardID, actor, models.RoleViewer); err != nil {
			return err
		}
		var err error
		out, err = s.enforce(tx, boardID, values)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseConfig admits a field configuration or reports why it is malformed.
func parseConfig(t field.Type, raw map[string]any) (field.Config, error) {
	cfg, err := field.ParseConfig(t, raw)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, field.ErrUnknownFieldType) {
		return nil, apperr.Invalid("field_type", "unknown_field_type", "unknown field type %q", t)
	}
	var cfgErr *field.ConfigError
	if errors.As(err, &cfgErr) {
		return nil, apperr.Invalid("config", "invalid_config", "%s", cfgErr.Reason)
	}
	return nil, fmt.Errorf("kanban: parse field config: %w", err)
}

// loadDefinitions reads a board's definition order.
func loadDefinitions(tx store.Tx, boardID string) (*ordering.Sequence, map[string]int, []models.FieldDefinition, error) {
	defs, err := tx.FieldDefinitions(boardID)
	if err != nil {
		return nil, nil, nil, err
	}
	entries := make([]ordering.Entry, len(defs))
	for i, d := range defs {
		entries[i] = ordering.Entry{ID: d.ID, Position: d.Position}
	}
	seq, err := ordering.Normalize(entries)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("kanban: load field definitions of %s: %w", boardID, err)
	}
	return seq, ordering.Baseline(entries), defs, nil
}

// uniqueName rejects a name already used by another definition on the board.
func uniqueName(defs []models.FieldDefinition, selfID, name string) error {
	for _, d := range defs {
		if d.ID != selfID && strings.EqualFold(strings.TrimSpace(d.Name), strings.TrimSpace(name)) {
			return apperr.Invalid("name", "duplicate_name", "a field named %q already exists", d.Name)
		}
	}
	return nil
}
