//go:build windows

package util

import (
	"log/slog"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetConsoleWindow = kernel32.NewProc("GetConsoleWindow")
	procShowWindow       = user32.NewProc("ShowWindow")
	procFreeConsole      = kernel32.NewProc("FreeConsole")
)

// shells whose presence as parent means we were started from a terminal
var shellProcesses = map[string]bool{
	"cmd.exe":             true,
	"powershell.exe":      true,
	"pwsh.exe":            true,
	"wt.exe":              true,
	"conhost.exe":         true,
	"windowsterminal.exe": true,
}

// IsRunFromGUI reports whether conduit was started by double-click rather
// than from a shell, so the launcher can pick a sensible default command.
func IsRunFromGUI() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	hasConsole := hwnd != 0

	parent := parentProcessName()
	fromShell := shellProcesses[strings.ToLower(parent)]

	slog.Debug("startup environment", "parent", parent, "hasConsole", hasConsole, "fromShell", fromShell)

	if !hasConsole {
		return true
	}
	if fromShell {
		return false
	}
	return strings.EqualFold(parent, "explorer.exe")
}

// HideConsoleWindow detaches the console that Windows allocates for console
// subsystem binaries launched from the GUI.
func HideConsoleWindow() {
	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd == 0 {
		slog.Debug("no console window to hide")
		return
	}
	_, _, _ = procShowWindow.Call(hwnd, windows.SW_HIDE)
	_, _, _ = procFreeConsole.Call()
}

// parentProcessName walks the toolhelp snapshot twice: once to find our
// parent pid, once to resolve its executable name.
func parentProcessName() string {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(snapshot)

	self := findEntry(snapshot, func(pe *windows.ProcessEntry32) bool {
		return pe.ProcessID == uint32(os.Getpid())
	})
	if self == nil || self.ParentProcessID == 0 {
		return ""
	}

	want := self.ParentProcessID
	parent := findEntry(snapshot, func(pe *windows.ProcessEntry32) bool {
		return pe.ProcessID == want
	})
	if parent == nil {
		return ""
	}
	return windows.UTF16ToString(parent.ExeFile[:])
}

// findEntry rewinds the snapshot and returns the first process entry
// matching the predicate, nil when none does.
func findEntry(snapshot windows.Handle, match func(*windows.ProcessEntry32) bool) *windows.ProcessEntry32 {
	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))

	if err := windows.Process32First(snapshot, &pe); err != nil {
		return nil
	}
	for {
		if match(&pe) {
			out := pe
			return &out
		}
		if err := windows.Process32Next(snapshot, &pe); err != nil {
			return nil
		}
	}
}
