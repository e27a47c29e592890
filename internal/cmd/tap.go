package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/CONDUIT/internal/log"
	"github.com/Alia5/CONDUIT/internal/server/tap"
)

type Tap struct {
	ListenAddr        string        `help:"Tap listen address" default:":3251" env:"CONDUIT_TAP_ADDR"`
	UpstreamAddr      string        `help:"Upstream feed server address" required:"" env:"CONDUIT_TAP_UPSTREAM"`
	ConnectionTimeout time.Duration `help:"Connection timeout" default:"30s" env:"CONDUIT_TAP_TIMEOUT"`
}

// Run is called by Kong when the tap command is executed.
func (t *Tap) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if t.UpstreamAddr == "" {
		return errors.New("Upstream address is empty")
	}

	logger.Info("Starting CONDUIT feed tap", "listen", t.ListenAddr, "upstream", t.UpstreamAddr)
	tapSrv := tap.New(t.ListenAddr, t.UpstreamAddr, t.ConnectionTimeout, logger, rawLogger)

	tapErrCh := make(chan error, 1)
	go func() {
		tapErrCh <- tapSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down tap server")
		_ = tapSrv.Close()
		_ = <-tapErrCh
		return nil
	case err := <-tapErrCh:
		return err
	}
}
