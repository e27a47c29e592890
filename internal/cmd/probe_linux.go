//go:build linux

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/CONDUIT/hub"
	"github.com/Alia5/CONDUIT/platform/joydev"
	"github.com/Alia5/CONDUIT/source"
)

// Run polls local joystick devices and prints the pipeline's events as
// JSON lines, without any feed server in between.
func (p *Probe) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := joydev.Open(logger)
	if err != nil {
		return fmt.Errorf("open joystick provider: %w", err)
	}
	defer provider.Close()

	if p.List {
		devices := provider.Devices()
		if len(devices) == 0 {
			fmt.Println("no joystick devices found")
			return nil
		}
		for _, d := range devices {
			fmt.Printf("%d\t%s\t%s\t%d axes\t%d buttons\n", d.ID, d.Path, d.Name, d.Axes, d.Buttons)
		}
		return nil
	}

	profiles, err := loadProfiles(p.Profiles, logger)
	if err != nil {
		return err
	}
	h := newPipelineHub(hub.Config{Families: []source.Family{source.FamilyGamepad}}, profiles, logger)
	reg := h.AttachSink(newPrintSink(os.Stdout))
	defer reg.Close()

	if p.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Duration)
		defer cancel()
	}

	frameRate := p.FrameRate
	if frameRate <= 0 {
		frameRate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(frameRate))
	defer ticker.Stop()

	logger.Info("Probing local joystick devices", "rate", frameRate)
	h.Enable(provider.Snapshot(time.Now()))
	defer func() { h.Disable(time.Now()) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			h.Step(provider.Snapshot(now))
		}
	}
}
