package channel

import (
	"fmt"
)

// Definition describes one channel to be built into a table: the compiled
// form of a profile mapping or of an adapter's hardcoded defaults.
type Definition struct {
	Label  string
	Axis   Axis
	Kind   Kind
	Action Binding
}

// Table is an adapter's ordered channel collection, partitioned at build
// time into the pose-phase and interaction-phase subsets. Ordinal indices
// follow definition order.
type Table struct {
	channels    []*Channel
	pose        []*Channel
	interaction []*Channel
	byLabel     map[string]*Channel
}

// NewTable builds a table from definitions. It rejects empty or duplicate
// labels and definitions whose axis contradicts their kind's canonical
// axis, so misconfigured mappings fail at build time instead of surfacing
// as per-frame write errors.
func NewTable(defs []Definition) (*Table, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("no channel definitions")
	}
	t := &Table{
		channels: make([]*Channel, 0, len(defs)),
		byLabel:  make(map[string]*Channel, len(defs)),
	}
	for i, d := range defs {
		if d.Label == "" {
			return nil, fmt.Errorf("channel %d: empty label", i)
		}
		if _, dup := t.byLabel[d.Label]; dup {
			return nil, fmt.Errorf("channel %d: duplicate label %q", i, d.Label)
		}
		if d.Kind != KindNone && d.Axis != d.Kind.Axis() {
			return nil, fmt.Errorf("channel %q: axis %s does not fit kind %s (expected %s)",
				d.Label, d.Axis, d.Kind, d.Kind.Axis())
		}
		ch := &Channel{
			Index:    i,
			Label:    d.Label,
			Axis:     d.Axis,
			Kind:     d.Kind,
			Action:   d.Action,
			current:  Zero(d.Axis),
			previous: Zero(d.Axis),
		}
		t.channels = append(t.channels, ch)
		t.byLabel[d.Label] = ch
		if d.Kind.Phase() == PhasePose {
			t.pose = append(t.pose, ch)
		} else {
			t.interaction = append(t.interaction, ch)
		}
	}
	return t, nil
}

// Len returns the number of channels.
func (t *Table) Len() int {
	return len(t.channels)
}

// At returns the channel with ordinal index i.
func (t *Table) At(i int) *Channel {
	return t.channels[i]
}

// All returns the channels in ordinal order. The slice is shared; callers
// must not modify it.
func (t *Table) All() []*Channel {
	return t.channels
}

// Pose returns the pose-phase subset in ordinal order.
func (t *Table) Pose() []*Channel {
	return t.pose
}

// Interaction returns the interaction-phase subset in ordinal order.
func (t *Table) Interaction() []*Channel {
	return t.interaction
}

// ByLabel returns the channel with the given label, or nil.
func (t *Table) ByLabel(label string) *Channel {
	return t.byLabel[label]
}

// ByKind returns the first channel of the given kind, or nil.
func (t *Table) ByKind(k Kind) *Channel {
	for _, ch := range t.channels {
		if ch.Kind == k {
			return ch
		}
	}
	return nil
}

// ResetSpatial zeroes every vector- and pose-axis channel, current and
// previous values both.
func (t *Table) ResetSpatial() {
	for _, ch := range t.channels {
		if ch.Axis == AxisVec2 || ch.Axis == AxisPose {
			ch.Reset()
		}
	}
}
