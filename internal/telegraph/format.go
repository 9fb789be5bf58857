package telegraph

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// EventType identifies a board event.
type EventType string

const (
	EventWipRejected  EventType = "wip_rejected"
	EventColumnFull   EventType = "column_full"
	EventFieldDeleted EventType = "field_deleted"
	EventAuditRepair  EventType = "audit_repair"
)

// Event is a raw board event before formatting.
type Event struct {
	Type      EventType
	Timestamp time.Time
	BoardID   string
	Actor     string

	// Column events
	ColumnID   string
	ColumnName string
	Limit      int
	Occupancy  int
	TaskID     string

	// Field events
	FieldID   string
	FieldName string
	Purged    int

	// Audit events
	Repaired []string
}

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "info":
		return ColorInfo
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

// Format renders a board event for chat.
func Format(ev Event) FormattedEvent {
	var f FormattedEvent
	switch ev.Type {
	case EventWipRejected:
		f = FormattedEvent{
			Title:    fmt.Sprintf("WIP limit blocked a move into %s", columnLabel(ev)),
			Body:     fmt.Sprintf("Column allows %d tasks; the move would make %d.", ev.Limit, ev.Occupancy),
			Severity: "warning",
		}
		if ev.TaskID != "" {
			f.Fields = append(f.Fields, Field{Name: "Task", Value: ev.TaskID, Short: true})
		}
	case EventColumnFull:
		f = FormattedEvent{
			Title:    fmt.Sprintf("Column %s is full", columnLabel(ev)),
			Body:     fmt.Sprintf("%d of %d slots in use.", ev.Occupancy, ev.Limit),
			Severity: "info",
		}
	case EventFieldDeleted:
		name := ev.FieldName
		if name == "" {
			name = ev.FieldID
		}
		f = FormattedEvent{
			Title:    fmt.Sprintf("Custom field %s deleted", name),
			Body:     fmt.Sprintf("Values removed from %d tasks.", ev.Purged),
			Severity: "info",
		}
	case EventAuditRepair:
		f = FormattedEvent{
			Title:    fmt.Sprintf("Ordering repaired on board %s", ev.BoardID),
			Body:     strings.Join(ev.Repaired, "\n"),
			Severity: "warning",
		}
		f.Fields = append(f.Fields, Field{Name: "Repairs", Value: strconv.Itoa(len(ev.Repaired)), Short: true})
	default:
		f = FormattedEvent{Title: string(ev.Type), Severity: "info"}
	}

	if ev.BoardID != "" && ev.Type != EventAuditRepair {
		f.Fields = append(f.Fields, Field{Name: "Board", Value: ev.BoardID, Short: true})
	}
	if ev.Actor != "" {
		f.Fields = append(f.Fields, Field{Name: "By", Value: ev.Actor, Short: true})
	}
	f.Color = severityColor(f.Severity)
	return f
}

func columnLabel(ev Event) string {
	if ev.ColumnName != "" {
		return ev.ColumnName
	}
	return ev.ColumnID
}
