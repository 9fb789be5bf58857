package kanban

import (
	"fmt"
	"testing"

	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/field"
	"github.com/zulandar/switchyard/internal/models"
	"github.com/zulandar/switchyard/internal/telegraph"
)

func (f *fixture) createField(t *testing.T, name string, typ field.Type, cfg map[string]any, required bool) *models.FieldDefinition {
	t.Helper()
	def, err := f.svc.CreateField(f.ctx, admin, "b1", CreateFieldRequest{
		Name:      name,
		FieldType: string(typ),
		Config:    cfg,
		Required:  required,
	})
	if err != nil {
		t.Fatalf("CreateField %s: %v", name, err)
	}
	return def
}

func TestCreateField_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		req     CreateFieldRequest
		field   string
		code    string
		errCode string
	}{
		{
			name:  "unknown type",
			actor: admin,
			req:   CreateFieldRequest{Name: "X", FieldType: "rating"},
			field: "field_type",
			code:  "unknown_field_type",
		},
		{
			name:  "empty select options",
			actor: admin,
			req:   CreateFieldRequest{Name: "X", FieldType: "select", Config: map[string]any{"options": []any{}}},
			field: "config",
			code:  "invalid_config",
		},
		{
			name:  "number min above max",
			actor: admin,
			req:   CreateFieldRequest{Name: "X", FieldType: "number", Config: map[string]any{"min": 10, "max": 1}},
			field: "config",
			code:  "invalid_config",
		},
		{
			name:  "unknown config key",
			actor: admin,
			req:   CreateFieldRequest{Name: "X", FieldType: "text", Config: map[string]any{"maxlen": 3}},
			field: "config",
			code:  "invalid_config",
		},
		{
			name:  "missing name",
			actor: admin,
			req:   CreateFieldRequest{FieldType: "text"},
			field: "name",
			code:  "required",
		},
		{
			name:    "member cannot define fields",
			actor:   member,
			req:     CreateFieldRequest{Name: "X", FieldType: "text"},
			errCode: apperr.CodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateField(f.ctx, tt.actor, "b1", tt.req)
			if tt.errCode != "" {
				assertCode(t, err, tt.errCode)
				return
			}
			if code := fieldCode(t, err, tt.field); code != tt.code {
				t.Errorf("code = %q, want %q", code, tt.code)
			}
		})
	}
}

func TestCreateField_DuplicateName(t *testing.T) {
	f := newFixture(t)
	f.createField(t, "Estimate", field.TypeNumber, nil, false)
	_, err := f.svc.CreateField(f.ctx, admin, "b1", CreateFieldRequest{Name: " estimate ", FieldType: "text"})
	if code := fieldCode(t, err, "name"); code != "duplicate_name" {
		t.Errorf("code = %q, want duplicate_name", code)
	}
}

func TestCreateField_AppendsInOrder(t *testing.T) {
	f := newFixture(t)
	a := f.createField(t, "A", field.TypeText, nil, false)
	b := f.createField(t, "B", field.TypeCheckbox, nil, false)
	if a.Position != 0 || b.Position != 1 {
		t.Errorf("positions = %d, %d; want 0, 1", a.Position, b.Position)
	}
	if v := f.column(t, "backlog").Version; v != 0 {
		t.Errorf("field changes must not touch columns, version %d", v)
	}
}

func TestValidateCustomFields_NumberRange(t *testing.T) {
	f := newFixture(t)
	def := f.createField(t, "Estimate", field.TypeNumber, map[string]any{"min": 0, "max": 100}, false)

	_, err := f.svc.ValidateCustomFields(f.ctx, viewer, "b1", map[string]any{def.ID: 101})
	if code := fieldCode(t, err, def.ID); code != field.CodeOutOfRange {
		t.Errorf("code = %q, want out_of_range", code)
	}

	out, err := f.svc.ValidateCustomFields(f.ctx, viewer, "b1", map[string]any{def.ID: 50})
	if err != nil {
		t.Fatalf("ValidateCustomFields: %v", err)
	}
	if out[def.ID] != float64(50) {
		t.Errorf("normalized = %v, want 50", out[def.ID])
	}

	_, err = f.svc.ValidateCustomFields(f.ctx, stranger, "b1", map[string]any{def.ID: 50})
	assertCode(t, err, apperr.CodeForbidden)
}

func TestUpdateField(t *testing.T) {
	f := newFixture(t)
	def := f.createField(t, "Estimate", field.TypeNumber, map[string]any{"max": 100}, false)

	// Warm the validator cache with the old bound.
	if _, err := f.svc.ValidateCustomFields(f.ctx, viewer, "b1", map[string]any{def.ID: 50}); err != nil {
		t.Fatalf("ValidateCustomFields: %v", err)
	}

	updated, err := f.svc.UpdateField(f.ctx, admin, UpdateFieldRequest{
		FieldID: def.ID,
		Config:  map[string]any{"max": 10},
	})
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if updated.Version != def.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, def.Version+1)
	}

	_, err = f.svc.ValidateCustomFields(f.ctx, viewer, "b1", map[string]any{def.ID: 50})
	if code := fieldCode(t, err, def.ID); code != field.CodeOutOfRange {
		t.Errorf("code = %q, want out_of_range after tightening", code)
	}

	_, err = f.svc.UpdateField(f.ctx, admin, UpdateFieldRequest{FieldID: def.ID, FieldType: "text"})
	if code := fieldCode(t, err, "field_type"); code != "immutable" {
		t.Errorf("code = %q, want immutable", code)
	}

	f.createField(t, "Owner", field.TypeText, nil, false)
	_, err = f.svc.UpdateField(f.ctx, admin, UpdateFieldRequest{FieldID: def.ID, Name: strPtr("OWNER")})
	if code := fieldCode(t, err, "name"); code != "duplicate_name" {
		t.Errorf("code = %q, want duplicate_name", code)
	}

	renamed, err := f.svc.UpdateField(f.ctx, admin, UpdateFieldRequest{FieldID: def.ID, Name: strPtr("Estimate")})
	if err != nil {
		t.Fatalf("keeping own name: %v", err)
	}
	if renamed.Name != "Estimate" {
		t.Errorf("name = %q", renamed.Name)
	}
}

func TestDeleteField_PurgesValues(t *testing.T) {
	f := newFixture(t)
	def := f.createField(t, "Owner", field.TypeText, nil, true)
	keep := f.createField(t, "Notes", field.TypeText, nil, false)

	var ids []string
	for i := 0; i < 10; i++ {
		task, err := f.svc.CreateTask(f.ctx, member, CreateTaskRequest{
			ColumnID:     "backlog",
			Title:        fmt.Sprintf("task %d", i),
			CustomFields: map[string]any{def.ID: "mo", keep.ID: "n"},
		})
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		ids = append(ids, task.ID)
	}

	purged, err := f.svc.DeleteField(f.ctx, admin, def.ID)
	if err != nil {
		t.Fatalf("DeleteField: %v", err)
	}
	if purged != 10 {
		t.Errorf("purged = %d, want 10", purged)
	}
	for _, id := range ids {
		values := f.task(t, id).CustomFieldValues
		if _, ok := values[def.ID]; ok {
			t.Fatalf("task %s still carries deleted field", id)
		}
		if values[keep.ID] != "n" {
			t.Fatalf("task %s lost unrelated value: %v", id, values)
		}
	}

	defs, err := f.svc.ListFields(f.ctx, viewer, "b1")
	if err != nil {
		t.Fatalf("ListFields: %v", err)
	}
	if len(defs) != 1 || defs[0].ID != keep.ID || defs[0].Position != 0 {
		t.Errorf("remaining definitions = %+v", defs)
	}

	// A client still sending the old field is told it no longer exists.
	_, err = f.svc.UpdateTask(f.ctx, member, UpdateTaskRequest{
		TaskID:       ids[0],
		CustomFields: map[string]any{def.ID: "mo"},
	})
	if code := fieldCode(t, err, def.ID); code != field.CodeUnknownField {
		t.Errorf("code = %q, want unknown_field", code)
	}

	// The required constraint went with the definition.
	if _, err := f.svc.CreateTask(f.ctx, member, CreateTaskRequest{ColumnID: "backlog", Title: "free"}); err != nil {
		t.Errorf("CreateTask after delete: %v", err)
	}

	deleted := f.events.ofType(telegraph.EventFieldDeleted)
	if len(deleted) != 1 || deleted[0].Purged != 10 || deleted[0].FieldName != "Owner" {
		t.Errorf("field deleted events = %+v", deleted)
	}

	_, err = f.svc.DeleteField(f.ctx, admin, def.ID)
	assertCode(t, err, apperr.CodeNotFound)
}

func TestReorderFields(t *testing.T) {
	f := newFixture(t)
	var ids []string
	for _, name := range []string{"A", "B", "C", "D"} {
		ids = append(ids, f.createField(t, name, field.TypeText, nil, false).ID)
	}

	_, err := f.svc.ReorderFields(f.ctx, admin, "b1", []string{ids[3], ids[2], ids[1]})
	if code := fieldCode(t, err, "field_ids"); code != "id_set_mismatch" {
		t.Errorf("code = %q, want id_set_mismatch", code)
	}
	defs, _ := f.svc.ListFields(f.ctx, viewer, "b1")
	for i, d := range defs {
		if d.ID != ids[i] || d.Position != i {
			t.Fatalf("order changed after rejected reorder: %+v", defs)
		}
	}

	_, err = f.svc.ReorderFields(f.ctx, member, "b1", ids)
	assertCode(t, err, apperr.CodeForbidden)

	want := []string{ids[3], ids[2], ids[1], ids[0]}
	defs, err = f.svc.ReorderFields(f.ctx, admin, "b1", want)
	if err != nil {
		t.Fatalf("ReorderFields: %v", err)
	}
	for i, d := range defs {
		if d.ID != want[i] || d.Position != i {
			t.Errorf("defs[%d] = %s@%d, want %s@%d", i, d.ID, d.Position, want[i], i)
		}
	}
}
