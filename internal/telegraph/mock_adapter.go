package telegraph

import (
	"context"
	"sync"
)

// MockSender implements Sender for testing. It records sent messages and can
// be told to fail.
type MockSender struct {
	mu   sync.Mutex
	sent []OutboundMessage
	err  error
}

// NewMockSender creates an empty MockSender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send records the outbound message, or returns the configured error.
func (m *MockSender) Send(ctx context.Context, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// SetError makes every subsequent Send fail with err.
func (m *MockSender) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of all messages sent so far.
func (m *MockSender) Sent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutboundMessage, len(m.sent))
	copy(out, m.sent)
	return out
}
