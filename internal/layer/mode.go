package layer

import (
	"fmt"
	"strings"
)

// Mode is the listening goal of a session.
type Mode string

const (
	ModeFocus  Mode = "focus"
	ModeRelax  Mode = "relax"
	ModeSleep  Mode = "sleep"
	ModeEnergy Mode = "energy"
	ModeNature Mode = "nature"
	ModeFlow   Mode = "flow"
)

// Modes lists every mode in menu order.
var Modes = []Mode{ModeFocus, ModeRelax, ModeSleep, ModeEnergy, ModeNature, ModeFlow}

var modeInfo = map[Mode]struct {
	title, description string
}{
	ModeFocus:  {"Focus", "Enhance concentration and productivity"},
	ModeRelax:  {"Relax", "Unwind and reduce stress"},
	ModeSleep:  {"Sleep", "Drift into peaceful slumber"},
	ModeEnergy: {"Energy", "Boost motivation and vitality"},
	ModeNature: {"Nature", "Connect with natural sounds"},
	ModeFlow:   {"Flow", "Enter a state of creative flow"},
}

// Title returns the display name of the mode.
func (m Mode) Title() string {
	if info, ok := modeInfo[m]; ok {
		return info.title
	}
	return string(m)
}

// Description returns a one-line description of the mode.
func (m Mode) Description() string {
	return modeInfo[m].description
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := modeInfo[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Next cycles to the following mode.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return Modes[0]
}

// TimeOfDay is a coarse bucket of the local clock.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// ParseTimeOfDay parses a time-of-day bucket name.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	switch t := TimeOfDay(strings.ToLower(strings.TrimSpace(s))); t {
	case Morning, Afternoon, Evening, Night:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTime, s)
}

// AdaptiveSettings carries the session context the engine adapts to.
type AdaptiveSettings struct {
	TimeOfDay     TimeOfDay    `yaml:"time_of_day" json:"timeOfDay"`
	SessionLength int          `yaml:"session_length" json:"sessionLength"`
	AdaptToTime   bool         `yaml:"adapt_to_time" json:"adaptToTime"`
	Mode          Mode         `yaml:"mode" json:"mode"`
	Layers        []SoundLayer `yaml:"layers,omitempty" json:"layers,omitempty"`
}
