// Package store defines the persistence contract the kanban use cases consume
// and implements it on gorm.
//
// Every use case runs inside Store.Atomic. Reads of columns and boards taken
// through a Tx are locked for the rest of the transaction where the database
// supports it, and CommitColumn / CommitBoard are conditional on the version
// read at the start, so two concurrent transactions can never both act on the
// same observed state.
package store

import (
	"context"

	"github.com/zulandar/switchyard/internal/models"
)

// Store opens transactions.
type Store interface {
	// Atomic runs fn in a single transaction. If fn or the commit fails, no
	// write made through tx is visible to anyone.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes available inside a transaction.
// Lookups of missing rows return errors wrapping apperr.ErrNotFound; lost
// version races and lock conflicts return errors wrapping apperr.ErrConflict.
type Tx interface {
	Boards() ([]models.Board, error)
	Board(id string) (*models.Board, error)
	Columns(boardID string) ([]models.Column, error)
	Column(id string) (*models.Column, error)
	Task(id string) (*models.Task, error)
	// MemberRole returns the user's role on the board, "" when not a member.
	MemberRole(boardID, userID string) (string, error)

	// CountActiveTasks returns the column's occupancy.
	CountActiveTasks(columnID string) (int, error)
	// ColumnTasks lists the column's non-archived tasks by position.
	ColumnTasks(columnID string) ([]models.Task, error)

	CreateTask(t *models.Task) error
	// UpdateTask writes the named columns of t.
	UpdateTask(t *models.Task, columns ...string) error
	// PlaceTasks assigns each task to columnID at the given position.
	PlaceTasks(columnID string, positions map[string]int) error
	// UpdateColumn writes the named columns of col.
	UpdateColumn(col *models.Column, columns ...string) error
	// CommitColumn bumps col.Version if it still matches the stored version.
	CommitColumn(col *models.Column) error

	FieldDefinitions(boardID string) ([]models.FieldDefinition, error)
	FieldDefinition(id string) (*models.FieldDefinition, error)
	CreateFieldDefinition(def *models.FieldDefinition) error
	UpdateFieldDefinition(def *models.FieldDefinition, columns ...string) error
	DeleteFieldDefinition(id string) error
	PlaceFieldDefinitions(boardID string, positions map[string]int) error
	// PurgeFieldValues removes fieldID from every task on the board and
	// returns how many tasks were changed.
	PurgeFieldValues(boardID, fieldID string) (int, error)
	// CommitBoard bumps board.Version if it still matches the stored version.
	CommitBoard(board *models.Board) error
}
