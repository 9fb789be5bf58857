package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/zulandar/switchyard/internal/apperr"
	"github.com/zulandar/switchyard/internal/models"
)

// formatLimit renders a WIP limit; nil is unlimited.
func formatLimit(limit *int) string {
	if limit == nil {
		return "-"
	}
	return strconv.Itoa(*limit)
}

// parseLimit accepts a non-negative integer, or "none" to clear the limit.
func parseLimit(s string) (*int, error) {
	if strings.EqualFold(s, "none") {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("wip limit %q: want a number or \"none\"", s)
	}
	return &n, nil
}

// parseValues decodes a JSON object of custom field values.
func parseValues(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return nil, fmt.Errorf("custom fields: %w", err)
	}
	return values, nil
}

// formatValues renders custom field values as compact JSON.
func formatValues(values map[string]any) string {
	if len(values) == 0 {
		return "-"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "?"
	}
	return string(data)
}

func printTask(out io.Writer, t *models.Task) {
	fmt.Fprintf(out, "Task %s\n", t.ID)
	fmt.Fprintf(out, "  Title:    %s\n", t.Title)
	fmt.Fprintf(out, "  Column:   %s\n", t.ColumnID)
	if t.Archived {
		fmt.Fprintln(out, "  Position: archived")
	} else {
		fmt.Fprintf(out, "  Position: %d\n", t.Position)
	}
	fmt.Fprintf(out, "  Fields:   %s\n", formatValues(t.CustomFieldValues))
}

func printTasks(out io.Writer, tasks []models.Task) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tID\tTITLE\tFIELDS")
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.Position, t.ID, t.Title, formatValues(t.CustomFieldValues))
	}
	w.Flush()
}

func printFields(out io.Writer, defs []models.FieldDefinition) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tID\tNAME\tTYPE\tREQUIRED\tCONFIG")
	for _, d := range defs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", d.Position, d.ID, d.Name, d.FieldType, d.Required, formatValues(d.Config))
	}
	w.Flush()
}

// explain adds field-level detail to validation and WIP errors.
func explain(err error) error {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		var b strings.Builder
		b.WriteString(apperr.CodeValidation)
		for _, f := range ve.Fields {
			fmt.Fprintf(&b, "\n  %s [%s]: %s", f.FieldID, f.Code, f.Message)
		}
		return errors.New(b.String())
	}
	if code := apperr.Code(err); code != apperr.CodeInternal {
		return fmt.Errorf("%s: %w", code, err)
	}
	return err
}
