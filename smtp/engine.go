package smtp

import (
	"context"
	"net"
	"strings"

	"github.com/sirupsen/logrus"
)

// state is the protocol engine's current point in the conversation.
// Representing it explicitly, alongside a transaction that is only ever
// populated consistently with that state, keeps the state machine
// explicit despite Go's lack of sum types: every transition method below
// checks state before touching the transaction buffers, so an illegal
// command sequence never mutates them.
type state int

const (
	stateGreet state = iota
	stateIdle
	stateReady
	stateMail
	stateRcpt
	stateData
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateGreet:
		return "greet"
	case stateIdle:
		return "idle"
	case stateReady:
		return "ready"
	case stateMail:
		return "mail"
	case stateRcpt:
		return "rcpt"
	case stateData:
		return "data"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// defaultMaxDataSize bounds total DATA payload size when the configured
// cap is zero. A negative configured cap disables the check.
const defaultMaxDataSize = 10 << 20

// engine drives one SMTP conversation end to end: one per accepted
// connection, entirely sequential, never shared across goroutines.
type engine struct {
	hostname    string
	maxDataSize int64

	conn net.Conn
	lr   *lineReader

	state      state
	heloDomain string
	tx         transaction

	sink    *Sink
	log     *logrus.Entry
	metrics *metricsHandle
}

func newEngine(hostname string, maxDataSize int64, conn net.Conn, sink *Sink, log *logrus.Entry, m *metricsHandle) *engine {
	if maxDataSize == 0 {
		maxDataSize = defaultMaxDataSize
	}
	return &engine{
		hostname:    hostname,
		maxDataSize: maxDataSize,
		conn:        conn,
		lr:          newLineReader(conn),
		state:       stateGreet,
		sink:        sink,
		log:         log,
		metrics:     m,
	}
}

// run drives the conversation until QUIT, an I/O error, or ctx
// cancellation closes the connection. It never returns an error: nothing
// escapes to the embedder from a single session.
func (e *engine) run(ctx context.Context) {
	defer e.conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			e.conn.Close()
		case <-done:
		}
	}()

	e.reply(codeReady, e.hostname+" Service ready")
	e.state = stateIdle

	for e.state != stateClosed {
		if e.state == stateData {
			e.runData()
			continue
		}

		line, err := e.lr.readLine(maxCommandLine)
		if err != nil {
			if err == errLineTooLong {
				e.reply(codeSyntaxError, "Line too long")
				continue
			}
			e.log.WithError(err).Debug("connection closed")
			return
		}

		e.dispatch(line)
	}
}

func (e *engine) dispatch(line string) {
	cmd, code := parseCommand(line)
	if code != 0 {
		e.reply(code, replyText(code))
		return
	}

	switch c := cmd.(type) {
	case heloCommand:
		e.metrics.commandProcessed("HELO")
		e.handleHELO(c)
	case mailCommand:
		e.metrics.commandProcessed("MAIL")
		e.handleMAIL(c)
	case rcptCommand:
		e.metrics.commandProcessed("RCPT")
		e.handleRCPT(c)
	case dataCommand:
		e.metrics.commandProcessed("DATA")
		e.handleDATA()
	case rsetCommand:
		e.metrics.commandProcessed("RSET")
		e.handleRSET()
	case noopCommand:
		e.metrics.commandProcessed("NOOP")
		e.reply(codeOK, "OK")
	case quitCommand:
		e.metrics.commandProcessed("QUIT")
		e.handleQUIT()
	}
}

// handleHELO is reachable from every non-Data, non-Closed state and
// always succeeds: the greeting hostname never changes, only the
// client-declared domain and the freshly cleared transaction do.
func (e *engine) handleHELO(c heloCommand) {
	e.tx.clear()
	e.heloDomain = c.Domain
	e.state = stateReady
	e.log.WithField("domain", e.heloDomain).Debug("helo accepted")
	e.reply(codeOK, e.hostname)
}

func (e *engine) handleMAIL(c mailCommand) {
	if e.state != stateReady {
		e.reply(codeBadSequence, "Bad sequence of commands")
		return
	}
	e.tx.setReversePath(c.ReversePath)
	e.state = stateMail
	if c.ReversePath != "" {
		addr := parseMailAddress(c.ReversePath)
		log := e.log.WithField("from", addr.String())
		if addr.tooLong() {
			log.Debug("reverse-path exceeds per-half RFC 5321 length guidance")
		} else {
			log.Debug("sender accepted")
		}
	}
	e.reply(codeOK, "OK")
}

func (e *engine) handleRCPT(c rcptCommand) {
	if e.state != stateMail && e.state != stateRcpt {
		e.reply(codeBadSequence, "Bad sequence of commands")
		return
	}
	addr := parseMailAddress(c.ForwardPath)
	if c.SourceRouted {
		e.log.WithField("to", addr.String()).Info("relay rejected")
		e.reply(codeMailboxUnavail, "Relay not supported")
		return
	}
	if err := e.tx.addRecipient(c.ForwardPath); err != nil {
		e.reply(codeExceededAlloc, "Too many recipients")
		return
	}
	e.state = stateRcpt
	e.log.WithField("to", addr.String()).Debug("recipient accepted")
	e.reply(codeOK, "OK")
}

func (e *engine) handleDATA() {
	if e.state != stateRcpt {
		e.reply(codeBadSequence, "Bad sequence of commands")
		return
	}
	e.reply(codeStartMailInput, "Start mail input; end with <CRLF>.<CRLF>")
	e.state = stateData
}

func (e *engine) handleRSET() {
	e.tx.clear()
	if e.state != stateIdle {
		e.state = stateReady
	}
	e.reply(codeOK, "OK")
}

func (e *engine) handleQUIT() {
	e.reply(codeClosing, "Service closing transmission channel")
	e.state = stateClosed
}

// runData consumes DATA-phase lines until the lone-"." terminator,
// dot-unstuffing as it goes, then finalizes or aborts the transaction.
func (e *engine) runData() {
	for {
		line, err := e.lr.readLine(maxDataLine)
		if err != nil {
			if err == errLineTooLong {
				// Only the data buffer is discarded; the reverse-path and
				// forward-path survive so the client can retry DATA
				// without resending MAIL/RCPT.
				e.tx.data = nil
				e.state = stateRcpt
				e.reply(codeSyntaxError, "Line too long")
				return
			}
			e.log.WithError(err).Debug("connection closed during DATA")
			e.state = stateClosed
			return
		}

		if line == "." {
			e.finalizeData()
			return
		}

		unstuffed := line
		if strings.HasPrefix(line, ".") {
			unstuffed = line[1:]
		}
		e.tx.appendData([]byte(unstuffed))
		e.tx.appendData(crlf)

		if e.maxDataSize > 0 && int64(len(e.tx.data)) > e.maxDataSize {
			e.tx.clear()
			e.state = stateReady
			e.reply(codeExceededAlloc, "Requested mail action aborted: exceeded storage allocation")
			return
		}
	}
}

var crlf = []byte("\r\n")

func (e *engine) finalizeData() {
	msg := Message{
		From: e.tx.reversePath,
		To:   append([]string(nil), e.tx.forwardPaths...),
		Data: e.tx.data,
	}

	if e.sink.push(msg) {
		e.metrics.messageDelivered()
	} else {
		e.log.Warn("sink full or gone, dropping delivered message")
		e.metrics.messageDropped()
	}

	e.tx.clear()
	e.state = stateReady
	e.reply(codeOK, "OK")
}

func (e *engine) reply(code StatusCode, text string) {
	r := reply{Code: code, Text: text}
	e.log.WithFields(logrus.Fields{"state": e.state.String(), "code": code}).Trace("sending reply")
	if _, err := e.conn.Write(r.Bytes()); err != nil {
		e.log.WithError(err).Warn("write failed, closing session")
		e.state = stateClosed
		return
	}
	e.metrics.replySent(code)
}

func replyText(code StatusCode) string {
	switch code {
	case codeSyntaxError:
		return "Syntax error, command unrecognized"
	case codeSyntaxErrorArg:
		return "Syntax error in parameters or arguments"
	case codeNotImplemented:
		return "Command not implemented"
	default:
		return ""
	}
}
