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

// MoveState is a step of a task move.
type MoveState string

const (
	MoveIdle         MoveState = "idle"
	MoveValidating   MoveState = "validating"
	MoveWipChecked   MoveState = "wip_checked"
	MoveRepositioned MoveState = "repositioned"
	MovePersisted    MoveState = "persisted"
	MoveRejected     MoveState = "rejected"
)

// MoveRequest asks for a task to be placed at TargetPosition in
// TargetColumnID. SourceColumnID is the column the caller believes the task
// is in.
type MoveRequest struct {
	TaskID         string `json:"task_id" validate:"required"`
	SourceColumnID string `json:"source_column_id" validate:"required"`
	TargetColumnID string `json:"target_column_id" validate:"required"`
	TargetPosition int    `json:"target_position" validate:"gte=0"`
}

// MoveTask moves a task within or between columns of one board. Positions
// past the end of the target column are clamped. Entering another column is
// gated by its WIP limit; reordering inside the same column is not. Either
// every position change and the column reassignment commit, or nothing does.
func (s *Service) MoveTask(ctx context.Context, actor string, req MoveRequest) (*models.Task, error) {
	log := s.log.WithFields(logrus.Fields{
		"task_id":       req.TaskID,
		"source_column": req.SourceColumnID,
		"target_column": req.TargetColumnID,
		"actor":         actor,
	})
	state := MoveIdle
	transition := func(next MoveState) {
		log.WithFields(logrus.Fields{"from": state, "state": next}).Debug("kanban: move")
		state = next
	}

	if err := s.check(req); err != nil {
		transition(MoveRejected)
		return nil, err
	}

	var (
		moved   *models.Task
		boardID string
		events  []telegraph.Event
	)
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		transition(MoveValidating)
		source, err := tx.Column(req.SourceColumnID)
		if err != nil {
			return err
		}
		boardID = source.BoardID
		if err := authorize(tx, source.BoardID, actor, models.RoleMember); err != nil {
			return err
		}
		task, err := tx.Task(req.TaskID)
		if err != nil {
			return err
		}
		if task.Archived {
			return apperr.Conflict("task %s is archived", task.ID)
		}
		if task.ColumnID != source.ID {
			return apperr.Conflict("task %s is in column %s, not %s", task.ID, task.ColumnID, source.ID)
		}

		same := req.TargetColumnID == source.ID
		target := source
		if !same {
			target, err = tx.Column(req.TargetColumnID)
			if err != nil {
				return err
			}
			if target.BoardID != source.BoardID {
				return apperr.Invalid("target_column_id", "cross_board",
					"column %s belongs to another board", target.ID)
			}
		}

		occupancy := 0
		if !same {
			occupancy, err = tx.CountActiveTasks(target.ID)
			if err != nil {
				return err
			}
		}
		if err := wip.Gate(target, occupancy, 1, same); err != nil {
			return err
		}
		transition(MoveWipChecked)

		if same {
			err = s.reposition(tx, source, task.ID, req.TargetPosition)
		} else {
			err = s.transfer(tx, source, target, task.ID, req.TargetPosition)
		}
		if err != nil {
			return err
		}
		transition(MoveRepositioned)

		if !same && wip.Full(target, occupancy+1) {
			events = append(events, telegraph.Event{
				Type:       telegraph.EventColumnFull,
				BoardID:    target.BoardID,
				ColumnID:   target.ID,
				ColumnName: target.Name,
				Limit:      *target.WipLimit,
				Occupancy:  occupancy + 1,
				Actor:      actor,
			})
		}

		moved, err = tx.Task(task.ID)
		return err
	})
	if err != nil {
		transition(MoveRejected)
		var wipErr *apperr.WipLimitError
		if errors.As(err, &wipErr) {
			log.WithError(err).Info("kanban: move blocked by wip limit")
			s.announce(ctx, []telegraph.Event{{
				Type:       telegraph.EventWipRejected,
				BoardID:    boardID,
				ColumnID:   wipErr.ColumnID,
				ColumnName: wipErr.ColumnName,
				Limit:      wipErr.Limit,
				Occupancy:  wipErr.Attempted,
				TaskID:     req.TaskID,
				Actor:      actor,
			}})
		}
		return nil, err
	}
	transition(MovePersisted)
	log.WithField("position", moved.Position).Info("kanban: task moved")
	s.announce(ctx, events)
	return moved, nil
}

// reposition moves a task inside its own column.
func (s *Service) reposition(tx store.Tx, col *models.Column, taskID string, to int) error {
	seq, base, err := loadColumn(tx, col.ID)
	if err != nil {
		return err
	}
	if _, _, err := seq.Move(taskID, to); err != nil {
		return fmt.Errorf("kanban: reposition task %s: %w", taskID, err)
	}
	if err := tx.PlaceTasks(col.ID, seq.Changed(base)); err != nil {
		return err
	}
	return tx.CommitColumn(col)
}

// transfer takes a task out of source and inserts it into target.
func (s *Service) transfer(tx store.Tx, source, target *models.Column, taskID string, to int) error {
	srcSeq, srcBase, err := loadColumn(tx, source.ID)
	if err != nil {
		return err
	}
	if _, err := srcSeq.Remove(taskID); err != nil {
		return fmt.Errorf("kanban: remove task %s from %s: %w", taskID, source.ID, err)
	}
	tgtSeq, tgtBase, err := loadColumn(tx, target.ID)
	if err != nil {
		return err
	}
	if _, err := tgtSeq.Insert(taskID, &to); err != nil {
		return fmt.Errorf("kanban: insert task %s into %s: %w", taskID, target.ID, err)
	}

	if err := tx.PlaceTasks(source.ID, srcSeq.Changed(srcBase)); err != nil {
		return err
	}
	if err := tx.PlaceTasks(target.ID, tgtSeq.Changed(tgtBase)); err != nil {
		return err
	}
	if err := tx.CommitColumn(source); err != nil {
		return err
	}
	return tx.CommitColumn(target)
}

// loadColumn reads a column's ordering and the positions currently stored.
// Diffing against stored positions rewrites any row that had drifted.
func loadColumn(tx store.Tx, columnID string) (*ordering.Sequence, map[string]int, error) {
	tasks, err := tx.ColumnTasks(columnID)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]ordering.Entry, len(tasks))
	for i, t := range tasks {
		entries[i] = ordering.Entry{ID: t.ID, Position: t.Position}
	}
	seq, err := ordering.Normalize(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("kanban: load column %s: %w", columnID, err)
	}
	return seq, ordering.Baseline(entries), nil
}
