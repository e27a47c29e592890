// Package gesture holds the recognizer facade: a single object owning the
// capture mode that adapters consult when promoting a held contact into a
// gesture. Plain gesture capture and navigation capture are mutually
// exclusive modes of the one recognizer; there is no package-level state.
package gesture

import (
	"fmt"
	"log/slog"
)

// Mode selects what the recognizer captures.
type Mode uint8

const (
	// ModeGestures captures hold and manipulation.
	ModeGestures Mode = iota
	// ModeNavigation captures navigation instead; manipulation promotions
	// become navigation gestures.
	ModeNavigation
)

func (m Mode) String() string {
	switch m {
	case ModeGestures:
		return "gestures"
	case ModeNavigation:
		return "navigation"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Recognizer is the capture-mode facade. Like the hub it is driven from a
// single goroutine; methods are not safe for concurrent use.
type Recognizer struct {
	log       *slog.Logger
	mode      Mode
	capturing bool
	useRails  bool
	restarts  int
}

// NewRecognizer returns a stopped recognizer in plain-gesture mode.
func NewRecognizer(logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recognizer{log: logger}
}

// Capturing reports whether capture is active.
func (r *Recognizer) Capturing() bool {
	return r.capturing
}

// Mode returns the configured capture mode.
func (r *Recognizer) Mode() Mode {
	return r.mode
}

// UseRails reports whether navigation deltas are locked to their dominant
// axis.
func (r *Recognizer) UseRails() bool {
	return r.useRails
}

// Restarts returns how many stop/reconfigure/restart cycles settings
// changes have forced so far.
func (r *Recognizer) Restarts() int {
	return r.restarts
}

// Start begins capturing in the given mode. Selecting a different mode
// while capture is active stops the recognizer, applies the new mode and
// starts it again; settings are never swapped under a live capture.
func (r *Recognizer) Start(mode Mode) {
	if r.capturing {
		if r.mode == mode {
			return
		}
		r.log.Debug("Recognizer mode change while capturing, restarting", "from", r.mode, "to", mode)
		r.stop()
		r.mode = mode
		r.start()
		r.restarts++
		return
	}
	r.mode = mode
	r.start()
}

// Stop ends capture. Safe to call when already stopped.
func (r *Recognizer) Stop() {
	if !r.capturing {
		return
	}
	r.stop()
}

// SetUseRails switches rails-locked navigation. Changing it under a live
// navigation capture forces the same stop/reconfigure/restart cycle as a
// mode change.
func (r *Recognizer) SetUseRails(v bool) {
	if r.useRails == v {
		return
	}
	if r.capturing && r.mode == ModeNavigation {
		r.log.Debug("Recognizer rails change while capturing, restarting", "useRails", v)
		r.stop()
		r.useRails = v
		r.start()
		r.restarts++
		return
	}
	r.useRails = v
}

func (r *Recognizer) start() {
	r.capturing = true
	r.log.Debug("Recognizer capturing", "mode", r.mode, "useRails", r.useRails)
}

func (r *Recognizer) stop() {
	r.capturing = false
	r.log.Debug("Recognizer stopped", "mode", r.mode)
}
