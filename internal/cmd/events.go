package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Alia5/CONDUIT/apiclient"
)

type Events struct {
	Addr string `help:"Feed server address" default:"localhost:3250" env:"CONDUIT_ADDR"`
	Key  string `help:"Feed server key (prompted when empty on a terminal)" env:"CONDUIT_KEY"`
}

// Run subscribes to a feed server and prints its event stream as JSON
// lines until interrupted.
func (e *Events) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key := e.Key
	if key == "" {
		if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
			fmt.Fprint(os.Stderr, "Feed server key (empty for an open server): ")
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			key = strings.TrimSpace(string(b))
		}
	}

	client := apiclient.New(e.Addr)
	if key != "" {
		client = apiclient.NewWithPassword(e.Addr, key)
	}

	logger.Info("Subscribing to feed events", "addr", e.Addr)
	stream, err := client.OpenEvents(ctx)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	msgs, errs := stream.Start(ctx, 256)
	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if err == nil || errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := enc.Encode(m); err != nil {
				return err
			}
		}
	}
}
