package audit

import (
	"log/slog"
)

// ChannelPublisher feeds events into a buffered channel drained by the
// worker. Publishing never blocks the request path: when the buffer is
// full the event is dropped and counted, which is preferable to stalling
// gate decisions on a slow audit sink.
type ChannelPublisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewChannelPublisher creates a publisher with the given buffer size.
func NewChannelPublisher(bufferSize int, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{
		inbox:  make(chan Event, bufferSize),
		logger: logger,
	}
}

// Publish enqueues the event, dropping it if the buffer is full.
func (p *ChannelPublisher) Publish(event Event) {
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit event dropped: buffer full",
			"action", event.Action,
			"user_id", event.UserID,
		)
	}
}

// Inbox exposes the receive side for the worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

// NopPublisher discards events. Used in tests and when auditing is
// disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
