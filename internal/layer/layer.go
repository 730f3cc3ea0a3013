// Package layer defines the declarative soundscape configuration: layers,
// session modes, time-of-day buckets and the settings the engine adapts to.
package layer

import (
	"errors"
	"fmt"
	"strings"
)

// Type identifies which synthesizer builds a layer.
type Type string

const (
	TypeNoise    Type = "noise"
	TypePad      Type = "pad"
	TypePulse    Type = "pulse"
	TypeBinaural Type = "binaural"
)

// Types lists every layer type in display order.
var Types = []Type{TypeNoise, TypePad, TypePulse, TypeBinaural}

// Pitched reports whether layers of this type require a frequency.
func (t Type) Pitched() bool {
	return t == TypePad || t == TypePulse || t == TypeBinaural
}

var (
	ErrInvalidType  = errors.New("invalid layer type")
	ErrDuplicateID  = errors.New("duplicate layer id")
	ErrVolumeRange  = errors.New("layer volume out of range")
	ErrEmptyID      = errors.New("layer id is empty")
	ErrInvalidMode  = errors.New("invalid mode")
	ErrInvalidTime  = errors.New("invalid time of day")
	ErrUnknownLayer = errors.New("unknown layer")
)

// SoundLayer is one configured voice of a soundscape. Optional fields are
// pointers so that an absent value can be told apart from zero.
type SoundLayer struct {
	ID         string   `yaml:"id" json:"id"`
	Type       Type     `yaml:"type" json:"type"`
	Volume     float64  `yaml:"volume" json:"volume"`
	Frequency  *float64 `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	FilterFreq *float64 `yaml:"filterFreq,omitempty" json:"filterFreq,omitempty"`
	Resonance  *float64 `yaml:"resonance,omitempty" json:"resonance,omitempty"`
	LFORate    *float64 `yaml:"lfoRate,omitempty" json:"lfoRate,omitempty"`
	LFODepth   *float64 `yaml:"lfoDepth,omitempty" json:"lfoDepth,omitempty"`
}

// Float returns a pointer to v, for building layers in code.
func Float(v float64) *float64 {
	return &v
}

// Or returns *p, or def when p is nil.
func Or(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Validate checks a single layer.
func (l SoundLayer) Validate() error {
	if l.ID == "" {
		return ErrEmptyID
	}
	switch l.Type {
	case TypeNoise, TypePad, TypePulse, TypeBinaural:
	default:
		return fmt.Errorf("%w: %q (layer %s)", ErrInvalidType, l.Type, l.ID)
	}
	if l.Volume < 0 || l.Volume > 1 {
		return fmt.Errorf("%w: %.2f (layer %s)", ErrVolumeRange, l.Volume, l.ID)
	}
	return nil
}

// Clone returns a deep copy of the layer.
func (l SoundLayer) Clone() SoundLayer {
	c := l
	c.Frequency = clonePtr(l.Frequency)
	c.FilterFreq = clonePtr(l.FilterFreq)
	c.Resonance = clonePtr(l.Resonance)
	c.LFORate = clonePtr(l.LFORate)
	c.LFODepth = clonePtr(l.LFODepth)
	return c
}

// Equal compares two layers field by field, dereferencing optional values.
func (l SoundLayer) Equal(o SoundLayer) bool {
	return l.ID == o.ID &&
		l.Type == o.Type &&
		l.Volume == o.Volume &&
		l.Enabled == o.Enabled &&
		ptrEqual(l.Frequency, o.Frequency) &&
		ptrEqual(l.FilterFreq, o.FilterFreq) &&
		ptrEqual(l.Resonance, o.Resonance) &&
		ptrEqual(l.LFORate, o.LFORate) &&
		ptrEqual(l.LFODepth, o.LFODepth)
}

// String renders a compact one-line summary used in logs.
func (l SoundLayer) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(%s vol=%.2f", l.ID, l.Type, l.Volume)
	if l.Frequency != nil {
		fmt.Fprintf(&sb, " freq=%.1f", *l.Frequency)
	}
	if !l.Enabled {
		sb.WriteString(" off")
	}
	sb.WriteString(")")
	return sb.String()
}

// CloneLayers deep-copies a layer set. A nil input yields an empty, non-nil
// slice.
func CloneLayers(layers []SoundLayer) []SoundLayer {
	out := make([]SoundLayer, len(layers))
	for i, l := range layers {
		out[i] = l.Clone()
	}
	return out
}

// EqualLayers reports whether two sets hold equal layers in the same order.
func EqualLayers(a, b []SoundLayer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// ValidateSet validates every layer and rejects duplicate IDs.
func ValidateSet(layers []SoundLayer) error {
	seen := make(map[string]bool, len(layers))
	var errs []error
	for _, l := range layers {
		if err := l.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[l.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateID, l.ID))
		}
		seen[l.ID] = true
	}
	return errors.Join(errs...)
}

// Enabled returns the IDs of enabled layers, in set order.
func Enabled(layers []SoundLayer) []string {
	var ids []string
	for _, l := range layers {
		if l.Enabled {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// Find returns the index of the layer with the given ID, or -1.
func Find(layers []SoundLayer, id string) int {
	for i, l := range layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
