package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MySQL server error numbers treated as transaction conflicts.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// Gorm implements Store on a gorm connection (MySQL/Dolt or SQLite).
type Gorm struct {
	db   *gorm.DB
	lock bool
}

// NewGorm wraps db. Row locks are requested only on MySQL; SQLite serializes
// writers on its own.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db, lock: db.Dialector.Name() == "mysql"}
}

// Atomic implements Store. On MySQL the transaction runs at READ COMMITTED
// so reads issued after a column lock is granted see rows committed by the
// previous lock holder instead of the transaction's first snapshot.
func (g *Gorm) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	var opts []*sql.TxOptions
	if g.lock {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	}
	err := g.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db, lock: g.lock})
	}, opts...)
	return classify(err)
}

// classify maps driver-level lock conflicts onto apperr.ErrConflict.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if apperr.Code(err) != apperr.CodeInternal {
		return err
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout) {
		return fmt.Errorf("store: %v: %w", err, apperr.ErrConflict)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && (liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("store: %v: %w", err, apperr.ErrConflict)
	}
	return err
}

type gormTx struct {
	db   *gorm.DB
	lock bool
}

func (t *gormTx) locked() *gorm.DB {
	if t.lock {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

func first[T any](db *gorm.DB, entity, id string) (*T, error) {
	var row T
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(entity, id)
		}
		return nil, fmt.Errorf("store: get %s %s: %w", entity, id, err)
	}
	return &row, nil
}

func (t *gormTx) Boards() ([]models.Board, error) {
	var boards []models.Board
	if err := t.db.Order("id ASC").Find(&boards).Error; err != nil {
		return nil, fmt.Errorf("store: list boards: %w", err)
	}
	return boards, nil
}

func (t *gormTx) Board(id string) (*models.Board, error) {
	return first[models.Board](t.locked(), "board", id)
}

func (t *gormTx) Columns(boardID string) ([]models.Column, error) {
	var cols []models.Column
	if err := t.db.Where("board_id = ?", boardID).Order("position ASC, id ASC").Find(&cols).Error; err != nil {
		return nil, fmt.Errorf("store: list columns of %s: %w", boardID, err)
	}
	return cols, nil
}

func (t *gormTx) Column(id string) (*models.Column, error) {
	return first[models.Column](t.locked(), "column", id)
}

func (t *gormTx) Task(id string) (*models.Task, error) {
	return first[models.Task](t.db, "task", id)
}

func (t *gormTx) MemberRole(boardID, userID string) (string, error) {
	var m models.BoardMember
	err := t.db.Where("board_id = ? AND user_id = ?", boardID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: member role %s on %s: %w", userID, boardID, err)
	}
	return m.Role, nil
}

func (t *gormTx) CountActiveTasks(columnID string) (int, error) {
	var n int64
	if err := t.locked().Model(&models.Task{}).Where("column_id = ? AND archived = ?", columnID, false).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count tasks in %s: %w", columnID, err)
	}
	return int(n), nil
}

func (t *gormTx) ColumnTasks(columnID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := t.locked().Where("column_id = ? AND archived = ?", columnID, false).
		Order("position ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("store: list tasks in %s: %w", columnID, err)
	}
	return tasks, nil
}

func (t *gormTx) CreateTask(task *models.Task) error {
	if err := t.db.Create(task).Error; err != nil {
		return fmt.Errorf("store: create task: %w", err)
	}
	return nil
}

func (t *gormTx) UpdateTask(task *models.Task, columns ...string) error {
	return updateSelected(t.db, task, "task", task.ID, columns)
}

func (t *gormTx) PlaceTasks(columnID string, positions map[string]int) error {
	for _, id := range sortedKeys(positions) {
		res := t.db.Model(&models.Task{}).Where("id = ?", id).Updates(map[string]any{
			"column_id": columnID,
			"position":  positions[id],
		})
		if res.Error != nil {
			return fmt.Errorf("store: place task %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("task", id)
		}
	}
	return nil
}

func (t *gormTx) UpdateColumn(col *models.Column, columns ...string) error {
	return updateSelected(t.db, col, "column", col.ID, columns)
}

func (t *gormTx) CommitColumn(col *models.Column) error {
	res := t.db.Model(&models.Column{}).
		Where("id = ? AND version = ?", col.ID, col.Version).
		Update("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return fmt.Errorf("store: commit column %s: %w", col.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("column %s was modified concurrently", col.ID)
	}
	col.Version++
	return nil
}

func (t *gormTx) FieldDefinitions(boardID string) ([]models.FieldDefinition, error) {
	var defs []models.FieldDefinition
	if err := t.db.Where("board_id = ?", boardID).Order("position ASC, id ASC").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("store: list field definitions of %s: %w", boardID, err)
	}
	return defs, nil
}

func (t *gormTx) FieldDefinition(id string) (*models.FieldDefinition, error) {
	return first[models.FieldDefinition](t.db, "field definition", id)
}

func (t *gormTx) CreateFieldDefinition(def *models.FieldDefinition) error {
	if err := t.db.Create(def).Error; err != nil {
		return fmt.Errorf("store: create field definition: %w", err)
	}
	return nil
}

func (t *gormTx) UpdateFieldDefinition(def *models.FieldDefinition, columns ...string) error {
	return updateSelected(t.db, def, "field definition", def.ID, columns)
}

func (t *gormTx) DeleteFieldDefinition(id string) error {
	res := t.db.Where("id = ?", id).Delete(&models.FieldDefinition{})
	if res.Error != nil {
		return fmt.Errorf("store: delete field definition %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("field definition", id)
	}
	return nil
}

func (t *gormTx) PlaceFieldDefinitions(boardID string, positions map[string]int) error {
	for _, id := range sortedKeys(positions) {
		res := t.db.Model(&models.FieldDefinition{}).
			Where("id = ? AND board_id = ?", id, boardID).
			Update("position", positions[id])
		if res.Error != nil {
			return fmt.Errorf("store: place field definition %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("field definition", id)
		}
	}
	return nil
}

func (t *gormTx) PurgeFieldValues(boardID, fieldID string) (int, error) {
	var tasks []models.Task
	if err := t.db.Select("id", "custom_field_values").Where("board_id = ?", boardID).Find(&tasks).Error; err != nil {
		return 0, fmt.Errorf("store: load field values of %s: %w", boardID, err)
	}
	purged := 0
	for i := range tasks {
		task := &tasks[i]
		if _, ok := task.CustomFieldValues[fieldID]; !ok {
			continue
		}
		delete(task.CustomFieldValues, fieldID)
		if err := t.UpdateTask(task, "custom_field_values"); err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

func (t *gormTx) CommitBoard(board *models.Board) error {
	res := t.db.Model(&models.Board{}).
		Where("id = ? AND version = ?", board.ID, board.Version).
		Update("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return fmt.Errorf("store: commit board %s: %w", board.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("board %s was modified concurrently", board.ID)
	}
	board.Version++
	return nil
}

// updateSelected writes only the named columns of row, including zero values.
// The row must already have been read in the same transaction.
func updateSelected(db *gorm.DB, row any, entity, id string, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	if err := db.Model(row).Select(columns).Updates(row).Error; err != nil {
		return fmt.Errorf("store: update %s %s: %w", entity, id, err)
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
