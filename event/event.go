// Package event defines the dispatch boundary: the typed notifications
// raised when a channel's value changes, and the sink interface they are
// delivered to. Everything downstream of a sink (event buses, recordings,
// network subscribers) is a consumer concern.
package event

import (
	"fmt"
	"time"

	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/geom"
	"github.com/Alia5/CONDUIT/source"
)

// Kind is the notification type.
type Kind uint8

const (
	KindNone Kind = iota
	SourceDetected
	SourceLost
	Down
	Up
	Held
	ValueChanged
	PositionChanged
	RotationChanged
	PoseChanged
	GestureStarted
	GestureUpdated
	GestureCompleted
	GestureCancelled
	PointerDown
	PointerUp
	PointerClick
)

var kindNames = map[Kind]string{
	KindNone:         "none",
	SourceDetected:   "source-detected",
	SourceLost:       "source-lost",
	Down:             "down",
	Up:               "up",
	Held:             "held",
	ValueChanged:     "value-changed",
	PositionChanged:  "position-changed",
	RotationChanged:  "rotation-changed",
	PoseChanged:      "pose-changed",
	GestureStarted:   "gesture-started",
	GestureUpdated:   "gesture-updated",
	GestureCompleted: "gesture-completed",
	GestureCancelled: "gesture-cancelled",
	PointerDown:      "pointer-down",
	PointerUp:        "pointer-up",
	PointerClick:     "pointer-click",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Gesture identifies which multi-frame interaction pattern a gesture
// notification belongs to.
type Gesture uint8

const (
	GestureNone Gesture = iota
	GestureHold
	GestureManipulation
	GestureNavigation
)

func (g Gesture) String() string {
	switch g {
	case GestureNone:
		return "none"
	case GestureHold:
		return "hold"
	case GestureManipulation:
		return "manipulation"
	case GestureNavigation:
		return "navigation"
	default:
		return fmt.Sprintf("gesture(%d)", uint8(g))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Event is one notification. Which fields are meaningful depends on Kind:
// channel events carry Channel/Input/Action/Value, gesture events carry
// Gesture and (for updates) Delta, pointer clicks carry TapCount.
type Event struct {
	Time   time.Time
	Kind   Kind
	Source source.ID
	Family source.Family
	Hand   source.Handedness

	Channel string
	Input   channel.Kind
	Action  channel.Binding
	Value   channel.Value

	Gesture  Gesture
	Delta    geom.Vec2
	TapCount int
}

// Sink receives notifications. Dispatch is called from the frame loop;
// implementations that leave the goroutine (network writers, buses) must
// hand off quickly and never block.
type Sink interface {
	Dispatch(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event)

// Dispatch implements Sink.
func (f SinkFunc) Dispatch(ev Event) {
	f(ev)
}

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})
