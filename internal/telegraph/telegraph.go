package telegraph

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSendTimeout bounds a single platform send.
const DefaultSendTimeout = 10 * time.Second

// Announcer posts board events to every configured Sender. Delivery is best
// effort: failures are logged and never returned to the caller.
type Announcer struct {
	senders []Sender
	timeout time.Duration
	log     logrus.FieldLogger
	now     func() time.Time
}

// AnnouncerOpts holds parameters for creating an Announcer.
type AnnouncerOpts struct {
	Senders []Sender
	Timeout time.Duration      // per-send timeout; defaults to DefaultSendTimeout
	Logger  logrus.FieldLogger // defaults to the standard logrus logger
}

// NewAnnouncer creates an Announcer. Nil senders are skipped.
func NewAnnouncer(opts AnnouncerOpts) *Announcer {
	a := &Announcer{
		timeout: opts.Timeout,
		log:     opts.Logger,
		now:     time.Now,
	}
	for _, s := range opts.Senders {
		if s != nil {
			a.senders = append(a.senders, s)
		}
	}
	if a.timeout <= 0 {
		a.timeout = DefaultSendTimeout
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	return a
}

// Enabled reports whether any sender is configured.
func (a *Announcer) Enabled() bool {
	return a != nil && len(a.senders) > 0
}

// Announce formats ev and sends it to every sender. It outlives cancellation
// of ctx so that a finished request still gets its announcement out.
func (a *Announcer) Announce(ctx context.Context, ev Event) {
	if !a.Enabled() {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = a.now()
	}
	formatted := Format(ev)
	msg := OutboundMessage{
		Text:   formatted.Title,
		Events: []FormattedEvent{formatted},
	}

	base := context.WithoutCancel(ctx)
	for _, s := range a.senders {
		sendCtx, cancel := context.WithTimeout(base, a.timeout)
		err := s.Send(sendCtx, msg)
		cancel()
		if err != nil {
			a.log.WithFields(logrus.Fields{
				"event":    ev.Type,
				"board_id": ev.BoardID,
				"sender":   fmt.Sprintf("%T", s),
			}).WithError(err).Warn("telegraph: announce failed")
		}
	}
}
