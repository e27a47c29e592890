//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	serviceName = "conduit.service"
	servicePath = "/etc/systemd/system/conduit.service"
)

const unitTemplate = `[Unit]
Description=CONDUIT server
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%q server
WorkingDirectory=%s
Restart=on-failure

[Install]
WantedBy=multi-user.target
`

// Run writes the systemd unit for the running binary and enables it.
// Requires root.
func (i *Install) Run(logger *slog.Logger) error {
	exePath, err := currentExecutable()
	if err != nil {
		return err
	}

	unit := fmt.Sprintf(unitTemplate, exePath, filepath.Dir(exePath))
	if err := os.WriteFile(servicePath, []byte(unit), 0o644); err != nil {
		return err
	}

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", serviceName},
		{"restart", serviceName},
	} {
		if err := systemctl(args...); err != nil {
			return err
		}
	}

	logger.Info("CONDUIT systemd service installed", "path", servicePath, "exe", exePath)
	return nil
}

// Run tears the service down. Step failures are collected so a partially
// removed service still cleans up as far as possible.
func (u *Uninstall) Run(logger *slog.Logger) error {
	errs := []error{
		systemctl("stop", serviceName),
		systemctl("disable", serviceName),
	}
	if err := os.Remove(servicePath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	errs = append(errs, systemctl("daemon-reload"))

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("CONDUIT systemd service removed", "path", servicePath)
	return nil
}

func systemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
