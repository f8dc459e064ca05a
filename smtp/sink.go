package smtp

// Sink is the delivery channel out of the engine: one completed Message
// per successfully finalized DATA phase. Its zero value is not usable;
// construct one with NewSink.
type Sink struct {
	messages chan Message
	metrics  *metricsHandle
}

// defaultSinkBuffer sizes the channel generously enough that a
// reasonably paced test harness never forces the engine onto the
// drop-on-full path under normal load. Only the non-blocking handoff
// itself is a hard requirement, not any particular buffer depth.
const defaultSinkBuffer = 64

// NewSink creates a delivery sink ready to be shared across every
// connection a Server accepts.
func NewSink() *Sink {
	return &Sink{messages: make(chan Message, defaultSinkBuffer)}
}

// Messages returns the channel the embedder (or the standalone printer)
// receives delivered messages from.
func (s *Sink) Messages() <-chan Message {
	return s.messages
}

// push attempts a non-blocking handoff of msg. If the consumer has gone
// away or fallen behind far enough to fill the buffer, the message is
// dropped without error: the SMTP transaction still succeeds from the
// client's point of view.
func (s *Sink) push(msg Message) (delivered bool) {
	select {
	case s.messages <- msg:
		return true
	default:
		return false
	}
}
