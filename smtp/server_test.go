package smtp

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestServerAcceptsAndDeliversOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	sink := NewSink()
	srv := NewServer(Config{Hostname: "mx.test"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, ln, sink) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	expect := func(want string) {
		t.Helper()
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.HasPrefix(line, want) {
			t.Fatalf("reply = %q, want prefix %q", line, want)
		}
	}
	send := func(line string) {
		t.Helper()
		if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	expect("220")
	send("HELO client.local")
	expect("250")
	send("MAIL FROM:<a@x>")
	expect("250")
	send("RCPT TO:<b@y>")
	expect("250")
	send("DATA")
	expect("354")
	send("hi")
	send(".")
	expect("250")
	send("QUIT")
	expect("221")

	select {
	case msg := <-sink.Messages():
		if msg.From != "a@x" {
			t.Errorf("From = %q, want a@x", msg.From)
		}
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Errorf("Serve returned %v after cancel, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}
