package kanban

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/models"
	"github.com/zulandar/switchyard/internal/store"
	"github.com/zulandar/switchyard/internal/telegraph"
)

// staleStore hands out column reads whose version is already behind the
// stored row, as if another writer committed the column after the read.
type staleStore struct {
	store.Store
	column string
}

func (s staleStore) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.Atomic(ctx, func(tx store.Tx) error {
		return fn(staleTx{Tx: tx, column: s.column})
	})
}

type staleTx struct {
	store.Tx
	column string
}

func (t staleTx) Column(id string) (*models.Column, error) {
	col, err := t.Tx.Column(id)
	if err == nil && id == t.column {
		col.Version--
	}
	return col, err
}

func TestMoveTask_IntoFullColumnRejected(t *testing.T) {
	f := newFixture(t)
	doing := f.addTasks(t, "doing", 3)
	backlog := f.addTasks(t, "backlog", 2)

	_, err := f.svc.MoveTask(f.ctx, member, MoveRequest{
		TaskID:         backlog[0],
		SourceColumnID: "backlog",
		TargetColumnID: "doing",
		TargetPosition: 0,
	})
	assertCode(t, err, apperr.CodeWipLimitExceeded)

	var wipErr *apperr.WipLimitError
	if !errors.As(err, &wipErr) || wipErr.Limit != 3 || wipErr.Attempted != 4 || wipErr.ColumnName != "Doing" {
		t.Errorf("wip error = %+v", wipErr)
	}
	if got := f.order(t, "doing"); !equalIDs(got, doing) {
		t.Errorf("doing = %v, want %v", got, doing)
	}
	if got := f.order(t, "backlog"); !equalIDs(got, backlog) {
		t.Errorf("backlog = %v, want %v", got, backlog)
	}
	if v := f.column(t, "doing").Version; v != 0 {
		t.Errorf("doing version = %d, want unchanged 0", v)
	}

	rejected := f.events.ofType(telegraph.EventWipRejected)
	if len(rejected) != 1 || rejected[0].TaskID != backlog[0] || rejected[0].BoardID != "b1" {
		t.Errorf("wip events = %+v", rejected)
	}
}

func TestMoveTask_SameColumnShiftsOthers(t *testing.T) {
	f := newFixture(t)
	ids := f.addTasks(t, "doing", 3)
	// A full column still allows reordering.
	moved, err := f.svc.MoveTask(f.ctx, member, MoveRequest{
		TaskID:         ids[2],
		SourceColumnID: "doing",
		TargetColumnID: "doing",
		TargetPosition: 0,
	})
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if moved.Position != 0 || moved.ColumnID != "doing" {
		t.Errorf("moved = %s@%d", moved.ColumnID, moved.Position)
	}
	want := []string{ids[2], ids[0], ids[1]}
	if got := f.order(t, "doing"); !equalIDs(got, want) {
		t.Errorf("doing = %v, want %v", got, want)
	}
	if len(f.events.ofType(telegraph.EventWipRejected)) != 0 {
		t.Error("same-column move must not be wip checked")
	}
}

func TestMoveTask_SameColumnFiveTasks(t *testing.T) {
	f := newFixture(t)
	ids := f.addTasks(t, "backlog", 5)

	if _, err := f.svc.MoveTask(f.ctx, member, MoveRequest{
		TaskID:         ids[2],
		SourceColumnID: "backlog",
		TargetColumnID: "backlog",
		TargetPosition: 0,
	}); err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	want := []string{ids[2], ids[0], ids[1], ids[3], ids[4]}
	if got := f.order(t, "backlog"); !equalIDs(got, want) {
		t.Errorf("backlog = %v, want %v", got, want)
	}
	if v := f.column(t, "backlog").Version; v != 1 {
		t.Errorf("backlog version = %d, want 1", v)
	}
}

func TestMoveTask_AcrossColumns(t *testing.T) {
	f := newFixture(t)
	doing := f.addTasks(t, "doing", 2)
	backlog := f.addTasks(t, "backlog", 3)

	moved, err := f.svc.MoveTask(f.ctx, member, MoveRequest{
		TaskID:         backlog[1],
		SourceColumnID: "backlog",
		TargetColumnID: "doing",
		TargetPosition: 1,
	})
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if moved.ColumnID != "doing" || moved.Position != 1 {
		t.Errorf("moved = %s@%d, want doing@1", moved.ColumnID, moved.Position)
	}
	if got, want := f.order(t, "doing"), []string{doing[0], backlog[1], doing[1]}; !equalIDs(got, want) {
		t.Errorf("doing = %v, want %v", got, want)
	}
	if got, want := f.order(t, "backlog"), []string{backlog[0], backlog[2]}; !equalIDs(got, want) {
		t.Errorf("backlog = %v, want %v", got, want)
	}
	if f.column(t, "backlog").Version != 1 || f.column(t, "doing").Version != 1 {
		t.Error("both columns should be committed once")
	}

	full := f.events.ofType(telegraph.EventColumnFull)
	if len(full) != 1 || full[0].ColumnID != "doing" || full[0].Occupancy != 3 || full[0].Limit != 3 {
		t.Errorf("column full events = %+v", full)
	}
}

func TestMoveTask_ClampsPosition(t *testing.T) {
	f := newFixture(t)
	done := f.addTasks(t, "done", 2)
	backlog := f.addTasks(t, "backlog", 1)

	moved, err := f.svc.MoveTask(f.ctx, member, MoveRequest{
		TaskID:         backlog[0],
		SourceColumnID: "backlog",
		TargetColumnID: "done",
		TargetPosition: 99,
	})
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if moved.Position != 2 {
		t.Errorf("position = %d, want clamped to 2", moved.Position)
	}
	if got := f.order(t, "done"); !equalIDs(got, append(done, backlog[0])) {
		t.Errorf("done = %v", got)
	}
}

func TestMoveTask_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		actor string
		req   func(backlog []string) MoveRequest
		code  string
	}{
		{
			name:  "stale source column",
			actor: member,
			req: func(b []string) MoveRequest {
				return MoveRequest{TaskID: b[0], SourceColumnID: "done", TargetColumnID: "doing"}
			},
			code: apperr.CodeConflict,
		},
		{
			name:  "viewer cannot move",
			actor: viewer,
			req: func(b []string) MoveRequest {
				return MoveRequest{TaskID: b[0], SourceColumnID: "backlog", TargetColumnID: "done"}
			},
			code: apperr.CodeForbidden,
		},
		{
			name:  "non-member cannot move",
			actor: stranger,
			req: func(b []string) MoveRequest {
				return MoveRequest{TaskID: b[0], SourceColumnID: "backlog", TargetColumnID: "done"}
			},
			code: apperr.CodeForbidden,
		},
		{
			name:  "anonymous cannot move",
			actor: "",
			req: func(b []string) MoveRequest {
				return MoveRequest{TaskID: b[0], SourceColumnID: "backlog", TargetColumnID: "done"}
			},
			code: apperr.CodeForbidden,
		},
		{
			name:  "unknown task",
			actor: member,
			req: func(b []string) MoveRequest {
				return MoveRequest{TaskID: "ghost", SourceColumnID: "backlog", TargetColumnID: "done"}
			},
			code: apperr.CodeNotFound,
		},
		{
			name:  "unknown target column",
			actor: member,
			req: func(b []string) MoveRequest {
				return MoveRequest{TaskID: b[0], SourceColumnID: "backlog", TargetColumnID: "ghost"}
			},
			code: apperr.CodeNotFound,
		},
		{
			name:  "target on another board",
			actor: member,
			req: func(b []string) MoveRequest {
				return MoveRequest{TaskID: b[0], SourceColumnID: "backlog", TargetColumnID: "elsewhere"}
			},
			code: apperr.CodeValidation,
		},
		{
			name:  "negative position",
			actor: member,
			req: func(b []string) MoveRequest {
				return MoveRequest{TaskID: b[0], SourceColumnID: "backlog", TargetColumnID: "done", TargetPosition: -1}
			},
			code: apperr.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			backlog := f.addTasks(t, "backlog", 2)

			_, err := f.svc.MoveTask(f.ctx, tt.actor, tt.req(backlog))
			assertCode(t, err, tt.code)
			if got := f.order(t, "backlog"); !equalIDs(got, backlog) {
				t.Errorf("backlog changed to %v", got)
			}
		})
	}
}

func TestMoveTask_CrossBoardReportsField(t *testing.T) {
	f := newFixture(t)
	backlog := f.addTasks(t, "backlog", 1)
	_, err := f.svc.MoveTask(f.ctx, member, MoveRequest{TaskID: backlog[0], SourceColumnID: "backlog", TargetColumnID: "elsewhere"})
	if code := fieldCode(t, err, "target_column_id"); code != "cross_board" {
		t.Errorf("code = %q, want cross_board", code)
	}
}

func TestMoveTask_RequestValidationUsesJSONNames(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.MoveTask(f.ctx, member, MoveRequest{SourceColumnID: "backlog", TargetColumnID: "done"})
	if code := fieldCode(t, err, "task_id"); code != "required" {
		t.Errorf("code = %q, want required", code)
	}
}

func TestMoveTask_ArchivedTaskConflicts(t *testing.T) {
	f := newFixture(t)
	backlog := f.addTasks(t, "backlog", 2)
	if _, err := f.svc.ArchiveTask(f.ctx, member, backlog[0]); err != nil {
		t.Fatalf("ArchiveTask: %v", err)
	}
	_, err := f.svc.MoveTask(f.ctx, member, MoveRequest{TaskID: backlog[0], SourceColumnID: "backlog", TargetColumnID: "done"})
	assertCode(t, err, apperr.CodeConflict)
}

func TestMoveTask_ConcurrentMovesRespectLimit(t *testing.T) {
	f := newFixture(t)
	f.addTasks(t, "doing", 2)
	backlog := f.addTasks(t, "backlog", 6)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[string]int{}
	)
	for _, id := range backlog {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.MoveTask(f.ctx, member, MoveRequest{
				TaskID:         id,
				SourceColumnID: "backlog",
				TargetColumnID: "doing",
			})
			mu.Lock()
			codes[apperr.Code(err)]++
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	if codes[""] != 1 {
		t.Errorf("successful moves = %d, want 1 (codes %v)", codes[""], codes)
	}
	if codes[apperr.CodeInternal] != 0 {
		t.Errorf("unexpected internal errors: %v", codes)
	}
	if got := len(f.order(t, "doing")); got != 3 {
		t.Errorf("doing occupancy = %d, want 3", got)
	}
	if got := len(f.order(t, "backlog")); got != 5 {
		t.Errorf("backlog occupancy = %d, want 5", got)
	}
}

func TestMoveTask_LostVersionRaceRollsBack(t *testing.T) {
	f := newFixture(t)
	doing := f.addTasks(t, "doing", 1)
	backlog := f.addTasks(t, "backlog", 3)
	f.svc.store = staleStore{Store: store.NewGorm(f.db), column: "doing"}

	_, err := f.svc.MoveTask(f.ctx, member, MoveRequest{
		TaskID:         backlog[1],
		SourceColumnID: "backlog",
		TargetColumnID: "doing",
		TargetPosition: 0,
	})
	assertCode(t, err, apperr.CodeConflict)

	if got := f.order(t, "backlog"); !equalIDs(got, backlog) {
		t.Errorf("backlog = %v, want %v", got, backlog)
	}
	if got := f.order(t, "doing"); !equalIDs(got, doing) {
		t.Errorf("doing = %v, want %v", got, doing)
	}
	if col := f.column(t, "doing"); col.Version != 0 {
		t.Errorf("doing version = %d, want 0", col.Version)
	}
}

func TestCreateTask_LostVersionRaceRollsBack(t *testing.T) {
	f := newFixture(t)
	backlog := f.addTasks(t, "backlog", 2)
	f.svc.store = staleStore{Store: store.NewGorm(f.db), column: "backlog"}

	_, err := f.svc.CreateTask(f.ctx, member, CreateTaskRequest{ColumnID: "backlog", Title: "late", Position: intPtr(0)})
	assertCode(t, err, apperr.CodeConflict)
	if got := f.order(t, "backlog"); !equalIDs(got, backlog) {
		t.Errorf("backlog = %v, want %v", got, backlog)
	}
}

func TestMoveTask_AnnouncesThroughTelegraph(t *testing.T) {
	f := newFixture(t)
	sender := telegraph.NewMockSender()
	f.svc.notifier = telegraph.NewAnnouncer(telegraph.AnnouncerOpts{Senders: []telegraph.Sender{sender}})
	f.addTasks(t, "doing", 3)
	backlog := f.addTasks(t, "backlog", 1)

	_, err := f.svc.MoveTask(f.ctx, member, MoveRequest{TaskID: backlog[0], SourceColumnID: "backlog", TargetColumnID: "doing"})
	assertCode(t, err, apperr.CodeWipLimitExceeded)

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].Events[0].Title != "WIP limit blocked a move into Doing" {
		t.Errorf("title = %q", sent[0].Events[0].Title)
	}
}
