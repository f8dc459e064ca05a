package smtp

import (
	"fmt"

	"github.com/sinksmtp/sinksmtp/internal/metrics"
)

// metricsHandle adapts internal/metrics.Collector so every call site in
// this package can call through a possibly-nil pointer without branching.
// A nil *metricsHandle, or one with a nil Collector, turns every call into
// a no-op; NewServer always supplies a Collector.
type metricsHandle struct {
	c *metrics.Collector
}

func (m *metricsHandle) connectionOpened() {
	if m == nil || m.c == nil {
		return
	}
	m.c.ConnectionsTotal.Inc()
	m.c.ConnectionsOpen.Inc()
}

func (m *metricsHandle) connectionClosed() {
	if m == nil || m.c == nil {
		return
	}
	m.c.ConnectionsOpen.Dec()
}

func (m *metricsHandle) commandProcessed(verb string) {
	if m == nil || m.c == nil {
		return
	}
	m.c.CommandsTotal.WithLabelValues(verb).Inc()
}

func (m *metricsHandle) replySent(code StatusCode) {
	if m == nil || m.c == nil {
		return
	}
	class := fmt.Sprintf("%dxx", int(code)/100)
	m.c.RepliesTotal.WithLabelValues(class).Inc()
}

func (m *metricsHandle) messageDelivered() {
	if m == nil || m.c == nil {
		return
	}
	m.c.MessagesDelivered.Inc()
}

func (m *metricsHandle) messageDropped() {
	if m == nil || m.c == nil {
		return
	}
	m.c.MessagesDropped.Inc()
}
