//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
)

func (p *Probe) Run(*slog.Logger) error {
	return errors.New("probe reads /dev/input joystick devices and is only supported on linux")
}
