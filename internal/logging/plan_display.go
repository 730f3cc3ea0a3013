package logging

// This file provides the console display for --inspect.

import (
	"fmt"
	"io"
	"strings"

	"github.com/linuxmatters/lullwave/internal/layer"
)

// PlanVoice is one oscillator or noise source as it would be built.
type PlanVoice struct {
	Key       string
	Waveform  string
	Frequency float64 // Hz, 0 for noise
	Cutoff    float64 // Hz, 0 when unfiltered
	Q         float64
	Gain      float64
	LFORate   float64
	LFODepth  float64
	LFOTarget string
	Send      float64 // reverb send level, 0 when dry
}

// PlanLayer groups the voices of one enabled layer.
type PlanLayer struct {
	ID     string
	Type   layer.Type
	Voices []PlanVoice
	Err    error // set when the layer would be skipped
}

// PlanInfo is the input to DisplayVoicePlan.
type PlanInfo struct {
	Mode        layer.Mode
	TimeOfDay   layer.TimeOfDay
	AdaptToTime bool
	Volume      float64
	Intensity   float64
	NoiseColor  string
	Zone        string
	MainsHz     int
	Layers      []layer.SoundLayer // effective set
	Plan        []PlanLayer
}

// DisplayVoicePlan prints the effective layers and the voice graph the engine
// would build for them, without opening an audio device.
func DisplayVoicePlan(w io.Writer, info PlanInfo) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "INSPECT: %s mode (%s)\n", info.Mode.Title(), info.Mode.Description())
	fmt.Fprintln(w, strings.Repeat("=", 70))

	fmt.Fprintf(w, "Volume:      %s (%s dB)\n", formatPercent(info.Volume), formatGainDB(info.Volume, 1))
	fmt.Fprintf(w, "Intensity:   %s (%s)\n", formatPercent(info.Intensity), interpretIntensity(info.Intensity))
	fmt.Fprintf(w, "Noise:       %s\n", info.NoiseColor)
	adapt := "disabled"
	if info.AdaptToTime {
		adapt = fmt.Sprintf("%s (%s)", info.TimeOfDay, zoneLabel(info.Zone, info.MainsHz))
	}
	fmt.Fprintf(w, "Time of day: %s\n", adapt)
	fmt.Fprintln(w)

	writeInspectSection(w, "EFFECTIVE LAYERS")
	if len(info.Layers) == 0 {
		fmt.Fprintln(w, "  No layers configured")
	} else {
		fmt.Fprint(w, LayerTable(info.Layers).String())
	}
	fmt.Fprintln(w)

	writeInspectSection(w, "VOICES")
	if len(info.Plan) == 0 {
		fmt.Fprintln(w, "  Nothing enabled, output is silent")
		return
	}
	for _, pl := range info.Plan {
		if pl.Err != nil {
			fmt.Fprintf(w, "  %s (%s): skipped, %v\n", pl.ID, pl.Type, pl.Err)
			continue
		}
		fmt.Fprintf(w, "  %s (%s)\n", pl.ID, pl.Type)
		fmt.Fprint(w, indent(VoiceTable(pl.Voices).String(), "    "))
	}
}

// VoiceTable lists voices with their source, filter, gain and modulation.
func VoiceTable(voices []PlanVoice) *Table {
	t := &Table{Headers: []string{"Wave", "Freq Hz", "Cutoff Hz", "Q", "Gain dB", "LFO Hz", "Send"}}
	for _, v := range voices {
		freq, cutoff, q := MissingValue, MissingValue, MissingValue
		if v.Frequency > 0 {
			freq = formatMetric(v.Frequency, 2)
		}
		if v.Cutoff > 0 {
			cutoff = formatMetric(v.Cutoff, 0)
			q = formatMetric(v.Q, 1)
		}
		lfo, note := MissingValue, ""
		if v.LFOTarget != "" {
			lfo = formatMetric(v.LFORate, 2)
			note = fmt.Sprintf("LFO ±%s on %s", formatMetric(v.LFODepth, 3), v.LFOTarget)
		}
		send := MissingValue
		if v.Send > 0 {
			send = formatPercent(v.Send)
		}
		t.AddRow(v.Key, []string{v.Waveform, freq, cutoff, q, formatGainDB(v.Gain, 1), lfo, send}, note)
	}
	return t
}

func writeInspectSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
}

func zoneLabel(zone string, mainsHz int) string {
	if zone == "" {
		zone = "unknown zone"
	}
	if mainsHz > 0 {
		return fmt.Sprintf("%s, %d Hz mains", zone, mainsHz)
	}
	return zone
}

// indent prefixes every non-empty line of s.
func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var sb strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			sb.WriteString(prefix)
		}
		sb.WriteString(line)
	}
	return sb.String()
}
