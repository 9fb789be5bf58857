package discord

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/switchyard/internal/telegraph"
)

type sentMessage struct {
	channelID string
	data      *discordgo.MessageSend
}

type mockSession struct {
	mu        sync.Mutex
	sent      []sentMessage
	sendErr   error
	rateLimit int
	calls     int
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.rateLimit {
		return nil, &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
	}
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, sentMessage{channelID: channelID, data: data})
	return &discordgo.Message{ID: "M1", ChannelID: channelID}, nil
}

func (m *mockSession) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func newTestAdapter(t *testing.T) (*Adapter, *mockSession) {
	t.Helper()
	sess := &mockSession{}
	a, err := New(AdapterOpts{Session: sess, ChannelID: "CH_DEFAULT"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.baseBackoff = time.Millisecond
	a.maxBackoff = 10 * time.Millisecond
	return a, sess
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Fatal("expected error without bot token or session")
	}
}

func TestSend_SimpleText(t *testing.T) {
	a, sess := newTestAdapter(t)

	err := a.Send(context.Background(), telegraph.OutboundMessage{ChannelID: "CH1", Text: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := sess.last()
	if last.channelID != "CH1" {
		t.Errorf("channel = %q, want CH1", last.channelID)
	}
	if last.data.Content != "hello" {
		t.Errorf("content = %q, want hello", last.data.Content)
	}
}

func TestSend_DefaultChannel(t *testing.T) {
	a, sess := newTestAdapter(t)

	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sess.last().channelID; got != "CH_DEFAULT" {
		t.Errorf("channel = %q, want CH_DEFAULT", got)
	}
}

func TestSend_NoChannel(t *testing.T) {
	a, _ := New(AdapterOpts{Session: &mockSession{}})
	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "x"}); err == nil {
		t.Fatal("expected error for no channel")
	}
}

func TestSend_WithEvents(t *testing.T) {
	a, sess := newTestAdapter(t)

	ev := telegraph.Format(telegraph.Event{
		Type:       telegraph.EventWipRejected,
		BoardID:    "b-1",
		ColumnName: "Doing",
		Limit:      3,
		Occupancy:  4,
		TaskID:     "t-9",
	})
	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: ev.Title, Events: []telegraph.FormattedEvent{ev}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	embeds := sess.last().data.Embeds
	if len(embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(embeds))
	}
	if embeds[0].Color != 0xff9800 {
		t.Errorf("color = %#x, want warning orange", embeds[0].Color)
	}
	if len(embeds[0].Fields) != 2 {
		t.Errorf("fields = %d, want 2 (task, board)", len(embeds[0].Fields))
	}
}

func TestSend_PostError(t *testing.T) {
	a, sess := newTestAdapter(t)
	sess.sendErr = fmt.Errorf("missing access")

	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "x"}); err == nil {
		t.Fatal("expected send error")
	}
}

func TestSend_RetriesOnRateLimit(t *testing.T) {
	a, sess := newTestAdapter(t)
	sess.rateLimit = 2

	if err := a.Send(context.Background(), telegraph.OutboundMessage{Text: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.calls != 3 {
		t.Errorf("calls = %d, want 3", sess.calls)
	}
}

func TestRetryOnRateLimit_ExhaustsRetries(t *testing.T) {
	a, _ := newTestAdapter(t)

	calls := 0
	err := a.retryOnRateLimit(context.Background(), func() error {
		calls++
		return &discordgo.RESTError{Response: &http.Response{StatusCode: 429}}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != maxRetries+1 {
		t.Errorf("expected %d calls, got %d", maxRetries+1, calls)
	}
}

func TestRetryOnRateLimit_OtherStatus(t *testing.T) {
	a, _ := newTestAdapter(t)

	calls := 0
	err := a.retryOnRateLimit(context.Background(), func() error {
		calls++
		return &discordgo.RESTError{Response: &http.Response{StatusCode: 403}}
	})
	if err == nil || calls != 1 {
		t.Errorf("err = %v, calls = %d; want error after a single call", err, calls)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"#36a64f", 0x36a64f},
		{"e53935", 0xe53935},
		{"#FF9800", 0xff9800},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseHexColor(tt.in); got != tt.want {
			t.Errorf("parseHexColor(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}
