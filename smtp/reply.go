package smtp

import "fmt"

// StatusCode is a three-digit SMTP reply code.
type StatusCode int

// Reply codes used by the minimum command set. See RFC 5321 §4.2.
const (
	codeReady          StatusCode = 220
	codeClosing        StatusCode = 221
	codeOK             StatusCode = 250
	codeStartMailInput StatusCode = 354
	codeSyntaxError    StatusCode = 500
	codeSyntaxErrorArg StatusCode = 501
	codeNotImplemented StatusCode = 502
	codeBadSequence    StatusCode = 503
	codeMailboxUnavail StatusCode = 550
	codeExceededAlloc  StatusCode = 552
)

// maxReplyLine is the maximum reply line length including CRLF, per RFC
// 5321 §4.5.3.1.4.
const maxReplyLine = 512

// reply is a single-line SMTP reply. The minimum subset never emits
// multi-line replies.
type reply struct {
	Code StatusCode
	Text string
}

// Bytes renders the reply as "NNN text\r\n", truncating Text if needed so
// the whole line never exceeds maxReplyLine bytes.
func (r reply) Bytes() []byte {
	line := fmt.Sprintf("%03d %s\r\n", r.Code, r.Text)
	if len(line) > maxReplyLine {
		overflow := len(line) - maxReplyLine
		r.Text = r.Text[:len(r.Text)-overflow]
		line = fmt.Sprintf("%03d %s\r\n", r.Code, r.Text)
	}
	return []byte(line)
}

func (r reply) String() string {
	return fmt.Sprintf("%03d %s", r.Code, r.Text)
}
