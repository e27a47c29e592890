//go:build !windows

package util

// IsRunFromGUI reports whether the process was started by double-click.
// Launcher detection only matters on Windows; unix users start the conduit
// server from a shell or a service manager.
func IsRunFromGUI() bool {
	return false
}

// HideConsoleWindow is a no-op outside Windows.
func HideConsoleWindow() {}
