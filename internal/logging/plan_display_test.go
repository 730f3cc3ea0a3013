package logging

import (
	"errors"
	"strings"
	"testing"

	"github.com/linuxmatters/lullwave/internal/layer"
)

func TestDisplayVoicePlan(t *testing.T) {
	info := PlanInfo{
		Mode:        layer.ModeSleep,
		TimeOfDay:   layer.Night,
		AdaptToTime: true,
		Volume:      0.5,
		Intensity:   0.5,
		NoiseColor:  "pink",
		Zone:        "America/New_York",
		MainsHz:     60,
		Layers:      layer.DefaultLayers(),
		Plan: []PlanLayer{
			{ID: "noise", Type: layer.TypeNoise, Voices: []PlanVoice{
				{Key: "noise", Waveform: "noise", Cutoff: 2000, Q: 2.5, Gain: 0.1125, LFORate: 0.1, LFODepth: 200, LFOTarget: "cutoff", Send: 0.1},
			}},
			{ID: "binaural", Type: layer.TypeBinaural, Err: errors.New("missing frequency")},
		},
	}

	var sb strings.Builder
	DisplayVoicePlan(&sb, info)
	out := sb.String()
	for _, want := range []string{
		"INSPECT: Sleep mode",
		"night (America/New_York, 60 Hz mains)",
		"EFFECTIVE LAYERS",
		"VOICES",
		"  noise (noise)",
		"LFO ±200.000 on cutoff",
		"10%",
		"binaural (binaural): skipped, missing frequency",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("display missing %q:\n%s", want, out)
		}
	}
}

func TestDisplayVoicePlanSilent(t *testing.T) {
	var sb strings.Builder
	DisplayVoicePlan(&sb, PlanInfo{Mode: layer.ModeFocus})
	out := sb.String()
	for _, want := range []string{"Time of day: disabled", "No layers configured", "output is silent"} {
		if !strings.Contains(out, want) {
			t.Errorf("display missing %q:\n%s", want, out)
		}
	}
}

func TestVoiceTableUnfiltered(t *testing.T) {
	out := VoiceTable([]PlanVoice{{Key: "binaural_left", Waveform: "sine", Frequency: 200, Gain: 0.05}}).String()
	if !strings.Contains(out, "200.00") || !strings.Contains(out, "-26.0") {
		t.Errorf("VoiceTable() =\n%s", out)
	}
	if strings.Contains(out, "LFO ±") {
		t.Errorf("unmodulated voice shows an LFO note:\n%s", out)
	}
}

func TestIndent(t *testing.T) {
	if got := indent("a\n\nb\n", "  "); got != "  a\n\n  b\n" {
		t.Errorf("indent() = %q", got)
	}
}
