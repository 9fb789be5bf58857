package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/switchyard/internal/telegraph"
)

func TestHub_DeliversToBoardSubscribers(t *testing.T) {
	hub := NewHub()
	b1, cancel1 := hub.subscribe("b1")
	b2, cancel2 := hub.subscribe("b2")
	defer cancel2()

	hub.Announce(context.Background(), telegraph.Event{Type: telegraph.EventColumnFull, BoardID: "b1"})

	select {
	case ev := <-b1:
		if ev.Type != telegraph.EventColumnFull {
			t.Errorf("Type = %q", ev.Type)
		}
	default:
		t.Fatal("b1 subscriber got nothing")
	}
	select {
	case ev := <-b2:
		t.Fatalf("b2 subscriber got %v", ev)
	default:
	}

	cancel1()
	hub.Announce(context.Background(), telegraph.Event{BoardID: "b1"})
	if _, ok := hub.subs["b1"]; ok {
		t.Error("cancelled subscription still registered")
	}
}

func TestHub_DropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.subscribe("b1")
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Announce(context.Background(), telegraph.Event{BoardID: "b1"})
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}

// readSSE reads one event block and returns its name and data.
func readSSE(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamEvents_ColumnFull(t *testing.T) {
	srv := httptest.NewServer(testRouter(t))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/boards/b1/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(ActorHeader, "vic")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}

	stream := bufio.NewReader(resp.Body)
	if name, _ := readSSE(t, stream); name != "connected" {
		t.Fatalf("first event = %q, want connected", name)
	}

	move, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tasks/t1/move",
		strings.NewReader(`{"source_column_id":"todo","target_column_id":"doing","target_position":0}`))
	if err != nil {
		t.Fatal(err)
	}
	move.Header.Set(ActorHeader, "ada")
	move.Header.Set("Content-Type", "application/json")
	moveResp, err := http.DefaultClient.Do(move)
	if err != nil {
		t.Fatalf("POST move: %v", err)
	}
	moveResp.Body.Close()
	if moveResp.StatusCode != http.StatusOK {
		t.Fatalf("move status = %d", moveResp.StatusCode)
	}

	name, data := readSSE(t, stream)
	if name != string(telegraph.EventColumnFull) {
		t.Fatalf("event = %q, want %q", name, telegraph.EventColumnFull)
	}
	var got streamEvent
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if got.ColumnID != "doing" || got.Limit != 1 || got.Occupancy != 1 || got.Actor != "ada" {
		t.Errorf("event = %+v", got)
	}
}

func TestStreamEvents_Forbidden(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/api/boards/b1/events", "eve", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	w = do(t, r, http.MethodGet, "/api/boards/nope/events", "vic", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
