package apitypes

import (
	"fmt"
	"time"

	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/event"
	"github.com/Alia5/CONDUIT/geom"
	"github.com/Alia5/CONDUIT/source"
)

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

type FamiliesListResponse struct {
	Families []string `json:"families"`
}

type Source struct {
	SourceID  uint32 `json:"sourceId"`
	Family    string `json:"family"`
	Hand      string `json:"hand,omitempty"`
	Streaming bool   `json:"streaming"`
}

type SourcesListResponse struct {
	Sources []Source `json:"sources"`
}

type SourceAddRequest struct {
	Family *string `json:"family"`
	Hand   *string `json:"hand,omitempty"`
}

type SourceAddResponse struct {
	SourceID uint32 `json:"sourceId"`
	Family   string `json:"family"`
	Hand     string `json:"hand,omitempty"`
}

type SourceRemoveResponse struct {
	SourceID uint32 `json:"sourceId"`
}

// EventMessage is the wire form of one input event. Value slots are
// pointers so only the slot matching the channel's axis is emitted.
type EventMessage struct {
	Time     time.Time  `json:"time"`
	Kind     string     `json:"kind"`
	SourceID uint32     `json:"sourceId"`
	Family   string     `json:"family,omitempty"`
	Hand     string     `json:"hand,omitempty"`
	Channel  string     `json:"channel,omitempty"`
	Input    string     `json:"input,omitempty"`
	Action   string     `json:"action,omitempty"`
	Gesture  string     `json:"gesture,omitempty"`
	Bool     *bool      `json:"bool,omitempty"`
	Scalar   *float32   `json:"scalar,omitempty"`
	Vec      *geom.Vec2 `json:"vec,omitempty"`
	Pose     *geom.Pose `json:"pose,omitempty"`
	Delta    *geom.Vec2 `json:"delta,omitempty"`
	TapCount int        `json:"tapCount,omitempty"`
}

// NewEventMessage converts an internal event into its wire form.
func NewEventMessage(ev event.Event) EventMessage {
	m := EventMessage{
		Time:     ev.Time,
		Kind:     ev.Kind.String(),
		SourceID: uint32(ev.Source),
		Family:   string(ev.Family),
		Channel:  ev.Channel,
		Action:   string(ev.Action),
		TapCount: ev.TapCount,
	}
	if ev.Hand != source.HandNone {
		m.Hand = ev.Hand.String()
	}
	if ev.Input != channel.KindNone {
		m.Input = ev.Input.String()
	}
	if ev.Gesture != event.GestureNone {
		m.Gesture = ev.Gesture.String()
	}
	switch ev.Kind {
	case event.Down, event.Up, event.Held, event.ValueChanged,
		event.PositionChanged, event.RotationChanged, event.PoseChanged,
		event.PointerDown, event.PointerUp:
		switch ev.Value.Axis {
		case channel.AxisBool:
			b := ev.Value.Bool
			m.Bool = &b
		case channel.AxisScalar:
			s := ev.Value.Scalar
			m.Scalar = &s
		case channel.AxisVec2:
			v := ev.Value.Vec
			m.Vec = &v
		case channel.AxisPose:
			p := ev.Value.Pose
			m.Pose = &p
		}
	case event.GestureUpdated, event.GestureCompleted:
		d := ev.Delta
		m.Delta = &d
	}
	return m
}
