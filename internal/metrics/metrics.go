// Package metrics exposes the Prometheus collectors the acceptor and
// protocol engine update. A Collector works whether or not it is ever
// registered: an unregistered Collector simply accumulates counts nobody
// scrapes, which is what lets embedders pass a nil Registerer to keep the
// metrics unexposed without the calling code needing a nil check at every
// increment.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds every metric the smtp package updates.
type Collector struct {
	ConnectionsTotal  prometheus.Counter
	ConnectionsOpen   prometheus.Gauge
	CommandsTotal     *prometheus.CounterVec
	RepliesTotal      *prometheus.CounterVec
	MessagesDelivered prometheus.Counter
	MessagesDropped   prometheus.Counter
}

// New builds a Collector and, if reg is non-nil, registers every metric
// with it.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sinksmtp",
			Name:      "connections_total",
			Help:      "Total TCP connections accepted.",
		}),
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sinksmtp",
			Name:      "connections_open",
			Help:      "Currently open connections.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sinksmtp",
			Name:      "commands_total",
			Help:      "Commands processed, by verb.",
		}, []string{"verb"}),
		RepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sinksmtp",
			Name:      "replies_total",
			Help:      "Replies sent, by status code class.",
		}, []string{"class"}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sinksmtp",
			Name:      "messages_delivered_total",
			Help:      "Messages successfully handed to the sink.",
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sinksmtp",
			Name:      "messages_dropped_total",
			Help:      "Messages finalized but dropped because the sink consumer was gone or full.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.ConnectionsTotal,
			c.ConnectionsOpen,
			c.CommandsTotal,
			c.RepliesTotal,
			c.MessagesDelivered,
			c.MessagesDropped,
		)
	}

	return c
}
