package logging

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/linuxmatters/lullwave/internal/layer"
)

// SessionTip is one piece of listening advice derived from the session
// configuration.
type SessionTip struct {
	Priority int    // Higher = more important (1-10)
	Message  string // Human-readable advice (1-2 sentences)
	RuleID   string // Identifier for testing/logging (e.g., "binaural_headphones")
}

// MaxSessionTips is the maximum number of tips to return.
const MaxSessionTips = 4

// TipInput is the session state the tip rules inspect.
type TipInput struct {
	Layers         []layer.SoundLayer // effective layer set
	Mode           layer.Mode
	TimeOfDay      layer.TimeOfDay
	Volume         float64
	Intensity      float64
	NoiseColor     string
	MainsHz        int
	SessionMinutes int
}

// GenerateSessionTips evaluates every rule and returns the fired tips,
// most important first.
func GenerateSessionTips(in TipInput) []SessionTip {
	rules := []func(TipInput) *SessionTip{
		tipSilentMix,
		tipVolumeHigh,
		tipBinauralHeadphones,
		tipStimulatingAtNight,
		tipMainsHum,
		tipBrownNoiseLoud,
		tipReverbHeavy,
		tipShortSleepSession,
		tipFocusBeat,
	}

	var tips []SessionTip
	fired := make(map[string]bool)
	for _, rule := range rules {
		if tip := rule(in); tip != nil {
			tips = append(tips, *tip)
			fired[tip.RuleID] = true
		}
	}

	tips = applyExclusions(tips, fired)

	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})
	if len(tips) > MaxSessionTips {
		tips = tips[:MaxSessionTips]
	}
	return tips
}

// applyExclusions drops tips made redundant by a more specific one.
func applyExclusions(tips []SessionTip, fired map[string]bool) []SessionTip {
	var result []SessionTip
	for _, tip := range tips {
		if fired["silent_mix"] && tip.RuleID != "silent_mix" {
			continue
		}
		if tip.RuleID == "focus_beat" && fired["stimulating_at_night"] {
			continue
		}
		result = append(result, tip)
	}
	return result
}

// wrapText wraps text at word boundaries to fit within maxWidth columns.
// Continuation lines are prefixed with indent.
func wrapText(text string, maxWidth int, indent string) string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= maxWidth:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return strings.Join(lines, "\n"+indent)
}

func enabledOfType(layers []layer.SoundLayer, typ layer.Type) []layer.SoundLayer {
	var out []layer.SoundLayer
	for _, l := range layers {
		if l.Enabled && l.Type == typ {
			out = append(out, l)
		}
	}
	return out
}

func tipSilentMix(in TipInput) *SessionTip {
	if in.Volume > 0 && len(layer.Enabled(in.Layers)) > 0 {
		return nil
	}
	return &SessionTip{
		Priority: 10,
		Message:  "Nothing will be heard: raise the volume or enable at least one layer.",
		RuleID:   "silent_mix",
	}
}

func tipVolumeHigh(in TipInput) *SessionTip {
	if in.Volume <= 0.85 {
		return nil
	}
	return &SessionTip{
		Priority: 9,
		Message: fmt.Sprintf("Master volume is at %.0f%%. Ambient sound works best just above the threshold of attention; try around 50%%.",
			in.Volume*100),
		RuleID: "volume_high",
	}
}

func tipBinauralHeadphones(in TipInput) *SessionTip {
	if len(enabledOfType(in.Layers, layer.TypeBinaural)) == 0 {
		return nil
	}
	return &SessionTip{
		Priority: 8,
		Message:  "Binaural beats need headphones: each ear must hear only its own tone.",
		RuleID:   "binaural_headphones",
	}
}

func tipStimulatingAtNight(in TipInput) *SessionTip {
	if in.TimeOfDay != layer.Night {
		return nil
	}
	for _, l := range enabledOfType(in.Layers, layer.TypeBinaural) {
		if hz := layer.Or(l.Frequency, 0); hz >= 13 {
			return &SessionTip{
				Priority: 7,
				Message: fmt.Sprintf("A %.0f Hz beat targets the %s band, which can keep you awake at night.",
					hz, interpretBeat(hz)),
				RuleID: "stimulating_at_night",
			}
		}
	}
	if len(enabledOfType(in.Layers, layer.TypePulse)) > 0 {
		return &SessionTip{
			Priority: 7,
			Message:  "The rhythmic pulse layer is stimulating; consider disabling it at night.",
			RuleID:   "stimulating_at_night",
		}
	}
	return nil
}

// tipMainsHum fires when a pitched layer sits within 2 Hz of the local mains
// frequency or its second harmonic, where it blends into appliance hum.
func tipMainsHum(in TipInput) *SessionTip {
	if in.MainsHz <= 0 {
		return nil
	}
	for _, l := range in.Layers {
		if !l.Enabled || (l.Type != layer.TypePad && l.Type != layer.TypePulse) || l.Frequency == nil {
			continue
		}
		for _, harmonic := range []int{1, 2} {
			hum := float64(in.MainsHz * harmonic)
			if math.Abs(*l.Frequency-hum) <= 2 {
				return &SessionTip{
					Priority: 6,
					Message: fmt.Sprintf("The %s layer at %.0f Hz sits on your local %d Hz mains hum; nudge it a few hertz to keep it distinct.",
						l.ID, *l.Frequency, in.MainsHz),
					RuleID: "mains_hum",
				}
			}
		}
	}
	return nil
}

func tipBrownNoiseLoud(in TipInput) *SessionTip {
	if in.NoiseColor != "brown" {
		return nil
	}
	for _, l := range enabledOfType(in.Layers, layer.TypeNoise) {
		if l.Volume >= 0.5 {
			return &SessionTip{
				Priority: 4,
				Message:  "Brown noise carries most of its energy in the bass; small speakers may rattle at this level.",
				RuleID:   "brown_noise_loud",
			}
		}
	}
	return nil
}

func tipReverbHeavy(in TipInput) *SessionTip {
	if in.Intensity <= 0.8 {
		return nil
	}
	return &SessionTip{
		Priority: 3,
		Message:  "High intensity brightens the noise and adds plenty of reverb; lower it for a drier, darker sound.",
		RuleID:   "reverb_heavy",
	}
}

func tipShortSleepSession(in TipInput) *SessionTip {
	if in.Mode != layer.ModeSleep || in.SessionMinutes <= 0 || in.SessionMinutes >= 20 {
		return nil
	}
	return &SessionTip{
		Priority: 3,
		Message:  fmt.Sprintf("A %d minute session may end before you fall asleep; 30 minutes or more is gentler.", in.SessionMinutes),
		RuleID:   "short_sleep_session",
	}
}

func tipFocusBeat(in TipInput) *SessionTip {
	if in.Mode != layer.ModeFocus || len(enabledOfType(in.Layers, layer.TypeBinaural)) > 0 {
		return nil
	}
	available := false
	for _, l := range in.Layers {
		available = available || l.Type == layer.TypeBinaural
	}
	if !available {
		return nil
	}
	return &SessionTip{
		Priority: 2,
		Message:  "Focus sessions can use the binaural layer for a beta or gamma beat.",
		RuleID:   "focus_beat",
	}
}
