//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
)

func (i *Install) Run(*slog.Logger) error {
	return errors.New("service install is only supported on linux (systemd)")
}

func (u *Uninstall) Run(*slog.Logger) error {
	return errors.New("service uninstall is only supported on linux (systemd)")
}
