package kanban

import (
	"context"

	"github.com/zulandar/switchyard/internal/models"
	"github.com/zulandar/switchyard/internal/store"
)

// ColumnView is a column with its active tasks in order.
type ColumnView struct {
	models.Column
	Occupancy int           `json:"occupancy"`
	Tasks     []models.Task `json:"tasks"`
}

// BoardView is a read-only snapshot of a board.
type BoardView struct {
	Board   models.Board             `json:"board"`
	Columns []ColumnView             `json:"columns"`
	Fields  []models.FieldDefinition `json:"fields"`
}

// Board returns a consistent snapshot of a board's columns, tasks and field
// definitions.
func (s *Service) Board(ctx context.Context, actor, boardID string) (*BoardView, error) {
	var view *BoardView
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		board, err := tx.Board(boardID)
		if err != nil {
			return err
		}
		if err := authorize(tx, board.ID, actor, models.RoleViewer); err != nil {
			return err
		}
		cols, err := tx.Columns(board.ID)
		if err != nil {
			return err
		}
		view = &BoardView{Board: *board}
		for _, c := range cols {
			tasks, err := tx.ColumnTasks(c.ID)
			if err != nil {
				return err
			}
			view.Columns = append(view.Columns, ColumnView{Column: c, Occupancy: len(tasks), Tasks: tasks})
		}
		view.Fields, err = tx.FieldDefinitions(board.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
