package kanban

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/models"
	"github.com/zulandar/switchyard/internal/ordering"
	"github.com/zulandar/switchyard/internal/store"
	"github.com/zulandar/switchyard/internal/telegraph"
	"github.com/zulandar/switchyard/internal/wip"
)

// CreateTaskRequest describes a new task. A nil Position appends.
type CreateTaskRequest struct {
	ColumnID     string         `json:"column_id" validate:"required"`
	Title        string         `json:"title" validate:"required,max=255"`
	Description  string         `json:"description"`
	Position     *int           `json:"position" validate:"omitempty,gte=0"`
	CustomFields map[string]any `json:"custom_fields"`
}

// UpdateTaskRequest changes a task's content. Nil fields are left alone; a
// non-nil CustomFields replaces the whole value map.
type UpdateTaskRequest struct {
	TaskID       string         `json:"task_id" validate:"required"`
	Title        *string        `json:"title" validate:"omitempty,min=1,max=255"`
	Description  *string        `json:"description"`
	CustomFields map[string]any `json:"custom_fields"`
}

// CreateTask validates the task's custom fields, admits it through the
// column's WIP limit and inserts it into the column's ordering.
func (s *Service) CreateTask(ctx context.Context, actor string, req CreateTaskRequest) (*models.Task, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	var (
		task    *models.Task
		events  []telegraph.Event
		boardID string
	)
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		col, err := tx.Column(req.ColumnID)
		if err != nil {
			return err
		}
		boardID = col.BoardID
		if err := authorize(tx, col.BoardID, actor, models.RoleMember); err != nil {
			return err
		}
		values, err := s.enforce(tx, col.BoardID, req.CustomFields)
		if err != nil {
			return err
		}

		occupancy, err := tx.CountActiveTasks(col.ID)
		if err != nil {
			return err
		}
		if err := wip.Gate(col, occupancy, 1, false); err != nil {
			return err
		}

		seq, base, err := loadColumn(tx, col.ID)
		if err != nil {
			return err
		}
		id := s.newID()
		pos, err := seq.Insert(id, req.Position)
		if err != nil {
			return fmt.Errorf("kanban: insert task %s: %w", id, err)
		}
		shifted := seq.Changed(base)
		delete(shifted, id)
		if err := tx.PlaceTasks(col.ID, shifted); err != nil {
			return err
		}

		task = &models.Task{
			ID:                id,
			BoardID:           col.BoardID,
			ColumnID:          col.ID,
			Title:             req.Title,
			Description:       req.Description,
			Position:          pos,
			CustomFieldValues: values,
		}
		if err := tx.CreateTask(task); err != nil {
			return err
		}
		if wip.Full(col, occupancy+1) {
			events = append(events, columnFull(col, occupancy+1, actor))
		}
		return tx.CommitColumn(col)
	})
	if err != nil {
		s.logRejection(ctx, "create", actor, boardID, req.ColumnID, err)
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"task_id": task.ID, "column_id": task.ColumnID, "position": task.Position}).Info("kanban: task created")
	s.announce(ctx, events)
	return task, nil
}

// UpdateTask changes title, description or custom field values. It never
// touches the task's column or position.
func (s *Service) UpdateTask(ctx context.Context, actor string, req UpdateTaskRequest) (*models.Task, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	var task *models.Task
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		task, err = tx.Task(req.TaskID)
		if err != nil {
			return err
		}
		if err := authorize(tx, task.BoardID, actor, models.RoleMember); err != nil {
			return err
		}

		var columns []string
		if req.Title != nil {
			task.Title = *req.Title
			columns = append(columns, "title")
		}
		if req.Description != nil {
			task.Description = *req.Description
			columns = append(columns, "description")
		}
		if req.CustomFields != nil {
			values, err := s.enforce(tx, task.BoardID, req.CustomFields)
			if err != nil {
				return err
			}
			task.CustomFieldValues = values
			columns = append(columns, "custom_field_values")
		}
		return tx.UpdateTask(task, columns...)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ArchiveTask takes a task out of its column's ordering. It stays attached
// to the column but no longer counts toward occupancy.
func (s *Service) ArchiveTask(ctx context.Context, actor, taskID string) (*models.Task, error) {
	var task *models.Task
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		task, err = tx.Task(taskID)
		if err != nil {
			return err
		}
		col, err := tx.Column(task.ColumnID)
		if err != nil {
			return err
		}
		if err := authorize(tx, col.BoardID, actor, models.RoleMember); err != nil {
			return err
		}
		if task.Archived {
			return apperr.Conflict("task %s is already archived", task.ID)
		}

		seq, base, err := loadColumn(tx, col.ID)
		if err != nil {
			return err
		}
		if _, err := seq.Remove(task.ID); err != nil {
			return fmt.Errorf("kanban: archive task %s: %w", task.ID, err)
		}
		if err := tx.PlaceTasks(col.ID, seq.Changed(base)); err != nil {
			return err
		}
		task.Archived = true
		task.Position = -1
		if err := tx.UpdateTask(task, "archived", "position"); err != nil {
			return err
		}
		return tx.CommitColumn(col)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"task_id": task.ID, "column_id": task.ColumnID}).Info("kanban: task archived")
	return task, nil
}

// RestoreTask returns an archived task to the end of its column, subject to
// the column's WIP limit.
func (s *Service) RestoreTask(ctx context.Context, actor, taskID string) (*models.Task, error) {
	var (
		task    *models.Task
		events  []telegraph.Event
		boardID string
	)
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		task, err = tx.Task(taskID)
		if err != nil {
			return err
		}
		col, err := tx.Column(task.ColumnID)
		if err != nil {
			return err
		}
		boardID = col.BoardID
		if err := authorize(tx, col.BoardID, actor, models.RoleMember); err != nil {
			return err
		}
		if !task.Archived {
			return apperr.Conflict("task %s is not archived", task.ID)
		}

		occupancy, err := tx.CountActiveTasks(col.ID)
		if err != nil {
			return err
		}
		if err := wip.Gate(col, occupancy, 1, false); err != nil {
			return err
		}

		seq, base, err := loadColumn(tx, col.ID)
		if err != nil {
			return err
		}
		pos, err := seq.Insert(task.ID, nil)
		if err != nil {
			return fmt.Errorf("kanban: restore task %s: %w", task.ID, err)
		}
		repaired := seq.Changed(base)
		delete(repaired, task.ID)
		if err := tx.PlaceTasks(col.ID, repaired); err != nil {
			return err
		}
		task.Archived = false
		task.Position = pos
		if err := tx.UpdateTask(task, "archived", "position"); err != nil {
			return err
		}
		if wip.Full(col, occupancy+1) {
			events = append(events, columnFull(col, occupancy+1, actor))
		}
		return tx.CommitColumn(col)
	})
	if err != nil {
		s.logRejection(ctx, "restore", actor, boardID, taskID, err)
		return nil, err
	}
	s.announce(ctx, events)
	return task, nil
}

// ReorderColumn assigns positions 0..n-1 following ids, which must list
// exactly the column's current tasks.
func (s *Service) ReorderColumn(ctx context.Context, actor, columnID string, ids []string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		col, err := tx.Column(columnID)
		if err != nil {
			return err
		}
		if err := authorize(tx, col.BoardID, actor, models.RoleMember); err != nil {
			return err
		}
		seq, base, err := loadColumn(tx, col.ID)
		if err != nil {
			return err
		}
		if err := seq.Reorder(ids); err != nil {
			return mismatch("task_ids", err)
		}
		if err := tx.PlaceTasks(col.ID, seq.Changed(base)); err != nil {
			return err
		}
		if err := tx.CommitColumn(col); err != nil {
			return err
		}
		tasks, err = tx.ColumnTasks(col.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// SetWipLimit changes a column's limit. nil removes it. A limit below the
// column's current occupancy is refused.
func (s *Service) SetWipLimit(ctx context.Context, actor, columnID string, limit *int) (*models.Column, error) {
	if !wip.ValidLimit(limit) {
		return nil, apperr.Invalid("wip_limit", "out_of_range", "wip limit must not be negative")
	}

	var col *models.Column
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		col, err = tx.Column(columnID)
		if err != nil {
			return err
		}
		if err := authorize(tx, col.BoardID, actor, models.RoleAdmin); err != nil {
			return err
		}
		occupancy, err := tx.CountActiveTasks(col.ID)
		if err != nil {
			return err
		}
		if !wip.CanEnter(limit, occupancy, 0) {
			return &apperr.WipLimitError{
				ColumnID:   col.ID,
				ColumnName: col.Name,
				Limit:      *limit,
				Attempted:  occupancy,
			}
		}
		col.WipLimit = limit
		if err := tx.UpdateColumn(col, "wip_limit"); err != nil {
			return err
		}
		return tx.CommitColumn(col)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"column_id": col.ID, "wip_limit": limitString(col.WipLimit)}).Info("kanban: wip limit changed")
	return col, nil
}

// ColumnTasks lists a column's active tasks by position.
func (s *Service) ColumnTasks(ctx context.Context, actor, columnID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		col, err := tx.Column(columnID)
		if err != nil {
			return err
		}
		if err := authorize(tx, col.BoardID, actor, models.RoleViewer); err != nil {
			return err
		}
		tasks, err = tx.ColumnTasks(col.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// enforce validates a task's custom field values against the board's
// current definitions.
func (s *Service) enforce(tx store.Tx, boardID string, values map[string]any) (map[string]any, error) {
	stored, err := tx.FieldDefinitions(boardID)
	if err != nil {
		return nil, err
	}
	defs, err := definitions(stored)
	if err != nil {
		return nil, err
	}
	return s.enforcer.Validate(defs, values)
}

// logRejection records why a task could not enter a column and announces
// WIP rejections.
func (s *Service) logRejection(ctx context.Context, op, actor, boardID, ref string, err error) {
	var wipErr *apperr.WipLimitError
	if !errors.As(err, &wipErr) {
		return
	}
	s.log.WithFields(logrus.Fields{"op": op, "ref": ref, "board_id": boardID, "column_id": wipErr.ColumnID}).
		WithError(err).Info("kanban: blocked by wip limit")
	s.announce(ctx, []telegraph.Event{{
		Type:       telegraph.EventWipRejected,
		BoardID:    boardID,
		ColumnID:   wipErr.ColumnID,
		ColumnName: wipErr.ColumnName,
		Limit:      wipErr.Limit,
		Occupancy:  wipErr.Attempted,
		Actor:      actor,
	}})
}

func columnFull(col *models.Column, occupancy int, actor string) telegraph.Event {
	return telegraph.Event{
		Type:       telegraph.EventColumnFull,
		BoardID:    col.BoardID,
		ColumnID:   col.ID,
		ColumnName: col.Name,
		Limit:      *col.WipLimit,
		Occupancy:  occupancy,
		Actor:      actor,
	}
}

// mismatch reports an ordered id listing that does not match current state.
func mismatch(field string, err error) error {
	if errors.Is(err, ordering.ErrMismatch) || errors.Is(err, ordering.ErrDuplicate) {
		return apperr.Invalid(field, "id_set_mismatch", "%v", err)
	}
	return fmt.Errorf("kanban: reorder: %w", err)
}

func limitString(limit *int) string {
	if limit == nil {
		return "unlimited"
	}
	return fmt.Sprint(*limit)
}
