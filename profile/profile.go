// Package profile implements the external mapping-profile boundary: per
// device family and handedness, an ordered list of channel definitions plus
// gesture-recognition settings. Profiles are loaded from JSON, YAML or TOML
// files; an adapter that finds no matching profile falls back to its
// hardcoded defaults.
package profile

import (
	"fmt"

	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/source"
)

// Mapping is one channel definition as written in a profile file. Axis and
// Kind use their textual forms; Validate compiles them.
type Mapping struct {
	Label  string `json:"label" yaml:"label" toml:"label"`
	Axis   string `json:"axis" yaml:"axis" toml:"axis"`
	Kind   string `json:"kind" yaml:"kind" toml:"kind"`
	Action string `json:"action,omitempty" yaml:"action,omitempty" toml:"action,omitempty"`
}

func (m Mapping) compile() (channel.Definition, error) {
	axis, err := channel.ParseAxis(m.Axis)
	if err != nil {
		return channel.Definition{}, fmt.Errorf("mapping %q: %w", m.Label, err)
	}
	kind, err := channel.ParseKind(m.Kind)
	if err != nil {
		return channel.Definition{}, fmt.Errorf("mapping %q: %w", m.Label, err)
	}
	if kind != channel.KindNone && axis != kind.Axis() {
		return channel.Definition{}, fmt.Errorf("mapping %q: axis %s does not fit kind %s (expected %s)",
			m.Label, axis, kind, kind.Axis())
	}
	return channel.Definition{
		Label:  m.Label,
		Axis:   axis,
		Kind:   kind,
		Action: channel.Binding(m.Action),
	}, nil
}

// Visual describes the optional controller visualization requested for a
// profile. Purely cosmetic: a missing asset is reported but never affects
// input handling.
type Visual struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Asset   string `json:"asset,omitempty" yaml:"asset,omitempty" toml:"asset,omitempty"`
}

// GestureSettings configures gesture recognition for the whole set.
type GestureSettings struct {
	// AutoStart begins capturing as soon as the hub is enabled
	AutoStart bool `json:"autostart" yaml:"autostart" toml:"autostart"`
	// Navigation selects navigation capture instead of plain gestures
	Navigation bool `json:"navigation" yaml:"navigation" toml:"navigation"`
	// UseRails locks navigation deltas to their dominant axis
	UseRails bool `json:"use_rails" yaml:"use_rails" toml:"use_rails"`
}

// Profile is one device family's channel mapping.
type Profile struct {
	Family   string    `json:"family" yaml:"family" toml:"family"`
	Hand     string    `json:"hand,omitempty" yaml:"hand,omitempty" toml:"hand,omitempty"`
	Visual   Visual    `json:"visual,omitempty" yaml:"visual,omitempty" toml:"visual,omitempty"`
	Mappings []Mapping `json:"mappings" yaml:"mappings" toml:"mappings"`

	family source.Family
	hand   source.Handedness
	defs   []channel.Definition
}

// Handedness returns the compiled handedness. Valid after Validate.
func (p *Profile) Handedness() source.Handedness {
	return p.hand
}

// Definitions returns the compiled channel definitions. Valid after
// Validate.
func (p *Profile) Definitions() []channel.Definition {
	return p.defs
}

// Set is a full profile document: gesture settings plus any number of
// per-family profiles.
type Set struct {
	Gestures GestureSettings `json:"gestures,omitempty" yaml:"gestures,omitempty" toml:"gestures,omitempty"`
	Profiles []Profile       `json:"profiles,omitempty" yaml:"profiles,omitempty" toml:"profiles,omitempty"`
}

// Default returns an empty set: no profiles (every adapter uses its
// hardcoded defaults), gestures not auto-started.
func Default() *Set {
	return &Set{}
}

// Validate parses enum fields and compiles every mapping. It must run once
// after constructing or decoding a set; Match and Definitions rely on the
// compiled forms.
func (s *Set) Validate() error {
	for i := range s.Profiles {
		p := &s.Profiles[i]
		if p.Family == "" {
			return fmt.Errorf("profile %d: empty family", i)
		}
		hand := p.Hand
		if hand == "" {
			hand = "any"
		}
		h, err := source.ParseHandedness(hand)
		if err != nil {
			return fmt.Errorf("profile %d (%s): %w", i, p.Family, err)
		}
		p.family = source.Family(p.Family).Norm()
		p.hand = h
		p.defs = p.defs[:0]
		for _, m := range p.Mappings {
			d, err := m.compile()
			if err != nil {
				return fmt.Errorf("profile %d (%s): %w", i, p.Family, err)
			}
			p.defs = append(p.defs, d)
		}
	}
	return nil
}

// Match resolves the profile for a family and handedness: an exact
// handedness match wins, a hand-any profile for the family is the fallback,
// nil means no profile (caller falls back to defaults).
func (s *Set) Match(f source.Family, h source.Handedness) *Profile {
	f = f.Norm()
	var wildcard *Profile
	for i := range s.Profiles {
		p := &s.Profiles[i]
		if p.family != f {
			continue
		}
		if p.hand == h {
			return p
		}
		if p.hand == source.HandAny && wildcard == nil {
			wildcard = p
		}
	}
	return wildcard
}
