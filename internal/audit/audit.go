// Package audit verifies that every column's task ordering and every board's
// field definition ordering is contiguous, and optionally repairs drift.
package audit

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchyard/internal/models"
	"github.com/zulandar/switchyard/internal/ordering"
	"github.com/zulandar/switchyard/internal/store"
	"github.com/zulandar/switchyard/internal/telegraph"
)

// Scopes of a finding.
const (
	ScopeColumn = "column"
	ScopeFields = "fields"
)

// Notifier receives repair announcements.
type Notifier interface {
	Announce(ctx context.Context, ev telegraph.Event)
}

// Finding is one non-contiguous ordering.
type Finding struct {
	BoardID  string       `json:"board_id"`
	Scope    string       `json:"scope"`
	ID       string       `json:"id"` // column id, or board id for field definitions
	Name     string       `json:"name"`
	Gap      ordering.Gap `json:"gap"`
	Repaired bool         `json:"repaired"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %q: %s", f.Scope, f.Name, f.Gap)
}

// Auditor scans orderings.
type Auditor struct {
	store    store.Store
	notifier Notifier
	log      logrus.FieldLogger
	repair   bool
}

// Options holds parameters for creating an Auditor.
type Options struct {
	Store    store.Store
	Notifier Notifier           // optional
	Logger   logrus.FieldLogger // defaults to the standard logrus logger
	Repair   bool               // renumber broken orderings in their current order
}

// New creates an Auditor.
func New(opts Options) (*Auditor, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("audit: store is required")
	}
	a := &Auditor{store: opts.Store, notifier: opts.Notifier, log: opts.Logger, repair: opts.Repair}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	return a, nil
}

// Run audits every board. Each board is checked, and repaired, in its own
// transaction; a failing board is logged and the others still run.
func (a *Auditor) Run(ctx context.Context) ([]Finding, error) {
	var boards []models.Board
	err := a.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		boards, err = tx.Boards()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("audit: list boards: %w", err)
	}

	var (
		all      []Finding
		firstErr error
	)
	for _, b := range boards {
		findings, err := a.RunBoard(ctx, b.ID)
		if err != nil {
			a.log.WithField("board_id", b.ID).WithError(err).Warn("audit: board failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		all = append(all, findings...)
	}
	a.log.WithFields(logrus.Fields{"boards": len(boards), "findings": len(all)}).Info("audit: run complete")
	return all, firstErr
}

// RunBoard audits a single board.
func (a *Auditor) RunBoard(ctx context.Context, boardID string) ([]Finding, error) {
	var findings []Finding
	err := a.store.Atomic(ctx, func(tx store.Tx) error {
		findings = nil
		board, err := tx.Board(boardID)
		if err != nil {
			return err
		}
		cols, err := tx.Columns(board.ID)
		if err != nil {
			return err
		}
		for i := range cols {
			f, err := a.column(tx, &cols[i])
			if err != nil {
				return err
			}
			if f != nil {
				findings = append(findings, *f)
			}
		}
		f, err := a.fields(tx, board)
		if err != nil {
			return err
		}
		if f != nil {
			findings = append(findings, *f)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit: board %s: %w", boardID, err)
	}

	var repaired []string
	for _, f := range findings {
		entry := a.log.WithFields(logrus.Fields{"board_id": f.BoardID, "scope": f.Scope, "id": f.ID, "gap": f.Gap.String()})
		if f.Repaired {
			entry.Warn("audit: ordering repaired")
			repaired = append(repaired, f.String())
		} else {
			entry.Warn("audit: ordering not contiguous")
		}
	}
	if len(repaired) > 0 && a.notifier != nil {
		a.notifier.Announce(ctx, telegraph.Event{
			Type:     telegraph.EventAuditRepair,
			BoardID:  boardID,
			Repaired: repaired,
		})
	}
	return findings, nil
}

func (a *Auditor) column(tx store.Tx, col *models.Column) (*Finding, error) {
	tasks, err := tx.ColumnTasks(col.ID)
	if err != nil {
		return nil, err
	}
	entries := make([]ordering.Entry, len(tasks))
	for i, t := range tasks {
		entries[i] = ordering.Entry{ID: t.ID, Position: t.Position}
	}
	gap := ordering.Check(entries)
	if gap.Empty() {
		return nil, nil
	}
	f := &Finding{BoardID: col.BoardID, Scope: ScopeColumn, ID: col.ID, Name: col.Name, Gap: gap}
	if !a.repair {
		return f, nil
	}
	seq, err := ordering.Normalize(entries)
	if err != nil {
		return nil, fmt.Errorf("normalize column %s: %w", col.ID, err)
	}
	if err := tx.PlaceTasks(col.ID, seq.Changed(ordering.Baseline(entries))); err != nil {
		return nil, err
	}
	if err := tx.CommitColumn(col); err != nil {
		return nil, err
	}
	f.Repaired = true
	return f, nil
}

func (a *Auditor) fields(tx store.Tx, board *models.Board) (*Finding, error) {
	defs, err := tx.FieldDefinitions(board.ID)
	if err != nil {
		return nil, err
	}
	entries := make([]ordering.Entry, len(defs))
	for i, d := range defs {
		entries[i] = ordering.Entry{ID: d.ID, Position: d.Position}
	}
	gap := ordering.Check(entries)
	if gap.Empty() {
		return nil, nil
	}
	f := &Finding{BoardID: board.ID, Scope: ScopeFields, ID: board.ID, Name: board.Name, Gap: gap}
	if !a.repair {
		return f, nil
	}
	seq, err := ordering.Normalize(entries)
	if err != nil {
		return nil, fmt.Errorf("normalize fields of %s: %w", board.ID, err)
	}
	if err := tx.PlaceFieldDefinitions(board.ID, seq.Changed(ordering.Baseline(entries))); err != nil {
		return nil, err
	}
	if err := tx.CommitBoard(board); err != nil {
		return nil, err
	}
	f.Repaired = true
	return f, nil
}
