//go:build windows

package main

import (
	"log/slog"
	"os"

	"github.com/Alia5/CONDUIT/internal/util"
)

// Double-clicked binaries arrive without arguments; default to the server
// command so a GUI launch still starts the feed.
func init() {
	if !util.IsRunFromGUI() {
		return
	}
	if len(os.Args) >= 2 && os.Args[1] == "server" {
		return
	}
	slog.Info("GUI startup detected, defaulting to the server command")
	slog.Warn("Run from a CLI for more options!")
	os.Args = append([]string{os.Args[0], "server"}, os.Args[1:]...)
}
