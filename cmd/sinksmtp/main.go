// Command sinksmtp runs the embedded SMTP receiver standalone: every
// delivered message is printed to standard output in arrival order.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sinksmtp/sinksmtp/smtp"
)

const (
	defaultAddr     = "127.0.0.1:2525"
	defaultHostname = "localhost"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log := logrus.New()

	cmd := &cobra.Command{
		Use:   "sinksmtp [bind-address] [hostname]",
		Short: "Embedded SMTP receiver for test harnesses",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, positional []string) error {
			addr := defaultAddr
			hostname := defaultHostname
			if len(positional) > 0 {
				addr = positional[0]
			}
			if len(positional) > 1 {
				hostname = positional[1]
			}
			return serve(cmd.Context(), log, addr, hostname)
		},
	}
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		log.WithError(err).Error("sinksmtp exited with error")
		return 1
	}
	return 0
}

func serve(ctx context.Context, log *logrus.Logger, addr, hostname string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sink := smtp.NewSink()
	srv := smtp.NewServer(smtp.Config{Hostname: hostname, Logger: log})

	go printDeliveries(sink)

	log.WithFields(logrus.Fields{"addr": addr, "hostname": hostname}).Info("listening")
	if err := srv.ListenAndServe(ctx, addr, sink); err != nil {
		return err
	}
	return nil
}

// printDeliveries formats each delivered message to stdout as it arrives,
// in arrival order (one goroutine, one channel, no reordering).
func printDeliveries(sink *smtp.Sink) {
	for msg := range sink.Messages() {
		fmt.Printf("--- message ---\n%s\n", msg)
	}
}
