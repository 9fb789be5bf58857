package db

import (
	"fmt"

	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/config"
	"github.com/zulandar/switchyard/internal/field"
	"github.com/zulandar/switchyard/internal/models"
	"github.com/zulandar/switchyard/internal/ordering"
	"github.com/zulandar/switchyard/internal/wip"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Board{},
		&models.BoardMember{},
		&models.Column{},
		&models.Task{},
		&models.FieldDefinition{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedBoards upserts boards, their columns, members and field definitions
// from configuration. Column positions follow their order in the file; new
// fields are appended after the board's existing ones. Existing tasks and
// their ordering are left untouched, and a limit below a column's current
// occupancy is rejected with *apperr.WipLimitError.
func SeedBoards(db *gorm.DB, boards []config.BoardConfig) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, bc := range boards {
			if err := seedBoard(tx, bc); err != nil {
				return err
			}
		}
		return nil
	})
}

func seedBoard(tx *gorm.DB, bc config.BoardConfig) error {
	board := models.Board{ID: bc.ID, ProjectID: bc.Project, Name: bc.Name}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"project_id", "name", "updated_at"}),
	}).Create(&board).Error; err != nil {
		return fmt.Errorf("db: seed board %q: %w", bc.Name, err)
	}

	for i, cc := range bc.Columns {
		if err := checkSeedLimit(tx, cc); err != nil {
			return fmt.Errorf("db: seed column %q of board %q: %w", cc.Name, bc.Name, err)
		}
		col := models.Column{ID: cc.ID, BoardID: bc.ID, Name: cc.Name, Position: i, WipLimit: cc.WipLimit}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "position", "wip_limit", "updated_at"}),
		}).Create(&col).Error; err != nil {
			return fmt.Errorf("db: seed column %q of board %q: %w", cc.Name, bc.Name, err)
		}
	}

	for _, mc := range bc.Members {
		m := models.BoardMember{BoardID: bc.ID, UserID: mc.User, Role: mc.Role}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "board_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).Create(&m).Error; err != nil {
			return fmt.Errorf("db: seed member %q of board %q: %w", mc.User, bc.Name, err)
		}
	}

	return seedFields(tx, bc)
}

// checkSeedLimit refuses a configured limit below the number of active tasks
// already in an existing column.
func checkSeedLimit(tx *gorm.DB, cc config.ColumnConfig) error {
	if cc.WipLimit == nil {
		return nil
	}
	var occupancy int64
	if err := tx.Model(&models.Task{}).
		Where("column_id = ? AND archived = ?", cc.ID, false).
		Count(&occupancy).Error; err != nil {
		return fmt.Errorf("count tasks: %w", err)
	}
	if wip.CanEnter(cc.WipLimit, int(occupancy), 0) {
		return nil
	}
	return &apperr.WipLimitError{
		ColumnID:   cc.ID,
		ColumnName: cc.Name,
		Limit:      *cc.WipLimit,
		Attempted:  int(occupancy),
	}
}

// seedFields upserts the configured field definitions. Definitions already
// stored keep their position; new ones are appended after everything the
// board holds, including fields created at runtime.
func seedFields(tx *gorm.DB, bc config.BoardConfig) error {
	if len(bc.Fields) == 0 {
		return nil
	}
	var stored []models.FieldDefinition
	if err := tx.Where("board_id = ?", bc.ID).Find(&stored).Error; err != nil {
		return fmt.Errorf("db: load fields of board %q: %w", bc.Name, err)
	}
	entries := make([]ordering.Entry, len(stored))
	for i, d := range stored {
		entries[i] = ordering.Entry{ID: d.ID, Position: d.Position}
	}
	seq, err := ordering.Normalize(entries)
	if err != nil {
		return fmt.Errorf("db: order fields of board %q: %w", bc.Name, err)
	}
	base := ordering.Baseline(entries)

	for _, fc := range bc.Fields {
		cfg, err := field.ParseConfig(field.Type(fc.Type), fc.Config)
		if err != nil {
			return fmt.Errorf("db: seed field %q of board %q: %w", fc.Name, bc.Name, err)
		}
		if !seq.Contains(fc.ID) {
			if _, err := seq.Insert(fc.ID, nil); err != nil {
				return fmt.Errorf("db: seed field %q of board %q: %w", fc.Name, bc.Name, err)
			}
		}
		pos, _ := seq.Position(fc.ID)
		def := models.FieldDefinition{
			ID:        fc.ID,
			BoardID:   bc.ID,
			Name:      fc.Name,
			FieldType: string(cfg.Type()),
			Config:    cfg.Map(),
			Required:  fc.Required,
			Position:  pos,
			Version:   1,
		}
		// Reseeding bumps the version so cached validators are rebuilt.
		set := clause.AssignmentColumns([]string{"name", "field_type", "config", "required", "updated_at"})
		set = append(set, clause.Assignment{Column: clause.Column{Name: "version"}, Value: gorm.Expr("version + 1")})
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: set,
		}).Create(&def).Error; err != nil {
			return fmt.Errorf("db: seed field %q of board %q: %w", fc.Name, bc.Name, err)
		}
		if _, ok := base[fc.ID]; !ok {
			base[fc.ID] = pos
		}
	}

	// Stored definitions may have drifted; write back the repaired order.
	for id, pos := range seq.Changed(base) {
		if err := tx.Model(&models.FieldDefinition{}).
			Where("id = ? AND board_id = ?", id, bc.ID).
			Update("position", pos).Error; err != nil {
			return fmt.Errorf("db: place field %s of board %q: %w", id, bc.Name, err)
		}
	}
	if err := tx.Model(&models.Board{}).
		Where("id = ?", bc.ID).
		Update("version", gorm.Expr("version + 1")).Error; err != nil {
		return fmt.Errorf("db: bump board %q: %w", bc.Name, err)
	}
	return nil
}
