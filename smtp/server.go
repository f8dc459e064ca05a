package smtp

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sinksmtp/sinksmtp/internal/metrics"
)

// Config is the library surface's sole construction parameter set: the
// hostname to advertise in the greeting and HELO/EHLO replies, plus the
// ambient logging, metrics, and size-cap knobs layered on top.
type Config struct {
	// Hostname is advertised in "220 <hostname> Service ready" and echoed
	// back on HELO/EHLO success.
	Hostname string

	// MaxDataSize caps total DATA payload bytes; 0 uses defaultMaxDataSize,
	// a negative value disables the cap entirely.
	MaxDataSize int64

	// Logger receives session and acceptor events. A nil Logger gets a
	// freshly constructed logrus.Logger at its default settings.
	Logger *logrus.Logger

	// Registerer, if non-nil, has this server's Prometheus metrics
	// registered against it. A nil Registerer still collects metrics,
	// they are simply never exposed to a scraper.
	Registerer prometheus.Registerer
}

// Server binds a listening socket and spawns one protocol engine per
// accepted connection.
type Server struct {
	hostname    string
	maxDataSize int64
	log         *logrus.Logger
	metrics     *metricsHandle

	nextConnID uint64
}

// NewServer constructs a Server from Config. It performs no I/O.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{
		hostname:    cfg.Hostname,
		maxDataSize: cfg.MaxDataSize,
		log:         logger,
		metrics:     &metricsHandle{c: metrics.New(cfg.Registerer)},
	}
}

// ListenAndServe binds addr and serves until ctx is cancelled or an
// unrecoverable accept error occurs.
func (s *Server) ListenAndServe(ctx context.Context, addr string, sink *Sink) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, sink)
}

// Serve accepts connections from ln until ctx is cancelled or Accept
// returns a non-temporary error. Each accepted connection gets its own
// engine on its own goroutine, so sessions never block one another.
func (s *Server) Serve(ctx context.Context, ln net.Listener, sink *Sink) error {
	defer ln.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-stop:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				s.log.WithError(err).Warn("temporary accept error")
				continue
			}
			return err
		}

		go s.serveConn(ctx, conn, sink)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, sink *Sink) {
	id := atomic.AddUint64(&s.nextConnID, 1)
	log := s.log.WithFields(logrus.Fields{
		"conn_id": id,
		"remote":  conn.RemoteAddr(),
	})
	log.Debug("connection accepted")

	s.metrics.connectionOpened()
	defer s.metrics.connectionClosed()

	e := newEngine(s.hostname, s.maxDataSize, conn, sink, log, s.metrics)
	e.run(ctx)

	log.Debug("connection closed")
}
