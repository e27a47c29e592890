// Package source models the platform side of the input boundary: which
// physical input instances exist this frame (a mouse, a finger contact, a
// motion controller in one hand) and the raw sample each one reported.
// Snapshots are read-only from the adapters' point of view; the layer that
// produced them owns the data.
package source

import (
	"fmt"
	"strings"
	"time"
)

// ID identifies one live platform source instance. IDs are allocated by
// whatever produces snapshots (the feed server, a local provider, a test)
// and stay stable for the lifetime of the source.
type ID uint32

// Family tags the device family a source belongs to. Families are the
// registry keys under which adapter implementations register themselves;
// matching is case-insensitive.
type Family string

const (
	FamilyMouse   Family = "mouse"
	FamilyTouch   Family = "touch"
	FamilyGamepad Family = "gamepad"
	FamilyMotion  Family = "motion"
)

// Norm returns the family tag in its canonical lower-case form.
func (f Family) Norm() Family {
	return Family(strings.ToLower(string(f)))
}

// Handedness classifies which hand a source is associated with. HandAny is
// the wildcard used by profiles that apply regardless of hand.
type Handedness uint8

const (
	HandNone Handedness = iota
	HandLeft
	HandRight
	HandAny
)

func (h Handedness) String() string {
	switch h {
	case HandNone:
		return "none"
	case HandLeft:
		return "left"
	case HandRight:
		return "right"
	case HandAny:
		return "any"
	default:
		return fmt.Sprintf("handedness(%d)", uint8(h))
	}
}

// ParseHandedness parses the textual form used in profiles and on the API.
func ParseHandedness(s string) (Handedness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return HandNone, nil
	case "left":
		return HandLeft, nil
	case "right":
		return HandRight, nil
	case "any", "both":
		return HandAny, nil
	default:
		return HandNone, fmt.Errorf("unknown handedness %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h Handedness) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handedness) UnmarshalText(text []byte) error {
	parsed, err := ParseHandedness(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Phase is the platform lifecycle phase of a source within a snapshot.
// A terminal phase (Ended, Cancelled) is delivered exactly once; the source
// does not appear in later snapshots.
type Phase uint8

const (
	PhaseActive Phase = iota
	PhaseEnded
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	case PhaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// ParsePhase parses the textual form of a phase.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(s) {
	case "", "active":
		return PhaseActive, nil
	case "ended":
		return PhaseEnded, nil
	case "cancelled", "canceled":
		return PhaseCancelled, nil
	default:
		return PhaseActive, fmt.Errorf("unknown phase %q", s)
	}
}

// Terminal reports whether the phase ends the source this frame.
func (p Phase) Terminal() bool {
	return p == PhaseEnded || p == PhaseCancelled
}

// State is one source's reading within a snapshot. Exactly one of the sample
// pointers is non-nil, matching Family.
type State struct {
	ID     ID
	Family Family
	Hand   Handedness
	Phase  Phase

	Mouse   *MouseSample
	Touch   *TouchSample
	Gamepad *GamepadSample
	Motion  *MotionSample
}

// Snapshot is one frame's complete platform reading.
type Snapshot struct {
	Time    time.Time
	Sources []State
}
