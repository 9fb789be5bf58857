package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchyard/internal/telegraph"
)

// subscriberBuffer is how many events a slow stream may lag before events
// are dropped for it.
const subscriberBuffer = 16

// Hub fans committed board events out to open event streams. It satisfies
// kanban.Notifier.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan telegraph.Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan telegraph.Event]struct{})}
}

// Announce delivers ev to every stream watching its board. It never blocks.
func (h *Hub) Announce(_ context.Context, ev telegraph.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.BoardID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) subscribe(boardID string) (<-chan telegraph.Event, func()) {
	ch := make(chan telegraph.Event, subscriberBuffer)
	h.mu.Lock()
	if h.subs[boardID] == nil {
		h.subs[boardID] = make(map[chan telegraph.Event]struct{})
	}
	h.subs[boardID][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs[boardID], ch)
		if len(h.subs[boardID]) == 0 {
			delete(h.subs, boardID)
		}
		h.mu.Unlock()
	}
}

// streamEvent is the data payload of one SSE event.
type streamEvent struct {
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	BoardID    string    `json:"board_id"`
	Actor      string    `json:"actor,omitempty"`
	ColumnID   string    `json:"column_id,omitempty"`
	ColumnName string    `json:"column_name,omitempty"`
	Limit      int       `json:"wip_limit,omitempty"`
	Occupancy  int       `json:"occupancy,omitempty"`
	TaskID     string    `json:"task_id,omitempty"`
	FieldID    string    `json:"field_id,omitempty"`
	FieldName  string    `json:"field_name,omitempty"`
	Purged     int       `json:"purged,omitempty"`
	Repaired   []string  `json:"repaired,omitempty"`
}

func toStreamEvent(ev telegraph.Event) streamEvent {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return streamEvent{
		Type:       string(ev.Type),
		Timestamp:  ts,
		BoardID:    ev.BoardID,
		Actor:      ev.Actor,
		ColumnID:   ev.ColumnID,
		ColumnName: ev.ColumnName,
		Limit:      ev.Limit,
		Occupancy:  ev.Occupancy,
		TaskID:     ev.TaskID,
		FieldID:    ev.FieldID,
		FieldName:  ev.FieldName,
		Purged:     ev.Purged,
		Repaired:   ev.Repaired,
	}
}

// streamEvents streams a board's events as server-sent events until the
// client goes away. Viewers and above may watch.
func (h *handler) streamEvents(c *gin.Context) {
	ctx := c.Request.Context()
	boardID := c.Param("board")
	if _, err := h.svc.ListFields(ctx, actor(c), boardID); err != nil {
		h.fail(c, err)
		return
	}
	events, cancel := h.hub.subscribe(boardID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeSSE(c.Writer, "connected", map[string]string{"board_id": boardID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case ev := <-events:
			writeSSE(c.Writer, string(ev.Type), toStreamEvent(ev))
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
