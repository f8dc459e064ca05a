package smtp

import "fmt"

// Message is the artifact delivered to the sink once a DATA phase
// finalizes successfully. Data is exactly the bytes the client sent,
// after dot-unstuffing: no Received or Return-Path headers are inserted.
type Message struct {
	From string
	To   []string
	Data []byte
}

// String renders the message in the human-readable form the standalone
// binary prints to stdout.
func (m Message) String() string {
	return fmt.Sprintf("From: %s\nTo: %v\n%s", m.From, m.To, m.Data)
}
