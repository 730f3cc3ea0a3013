package logging

import (
	"strings"
	"testing"

	"github.com/linuxmatters/lullwave/internal/layer"
)

func baseTipInput() TipInput {
	return TipInput{
		Layers:         layer.DefaultLayers(),
		Mode:           layer.ModeRelax,
		TimeOfDay:      layer.Afternoon,
		Volume:         0.5,
		Intensity:      0.5,
		NoiseColor:     "pink",
		MainsHz:        50,
		SessionMinutes: 30,
	}
}

func enable(layers []layer.SoundLayer, id string) []layer.SoundLayer {
	out, err := layer.PatchSet(layers, id, layer.Patch{Enabled: layer.Bool(true)})
	if err != nil {
		panic(err)
	}
	return out
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		indent   string
		want     string
	}{
		{"short_text_no_wrap", "Hello world", 20, "  ", "Hello world"},
		{"long_text_wraps", "Binaural beats need headphones to work at all", 25, "  ", "Binaural beats need\n  headphones to work at all"},
		{"single_long_word", "supercalifragilisticexpialidocious", 10, "  ", "supercalifragilisticexpialidocious"},
		{"empty_input", "", 20, "  ", ""},
		{"exact_fit", "exactly twenty chars", 20, "  ", "exactly twenty chars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.text, tt.maxWidth, tt.indent); got != tt.want {
				t.Errorf("wrapText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateSessionTips(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*TipInput)
		want    []string
		notWant []string
	}{
		{
			name:    "defaults are quiet",
			modify:  func(*TipInput) {},
			notWant: []string{"silent_mix", "volume_high", "binaural_headphones", "mains_hum"},
		},
		{
			name:   "binaural needs headphones",
			modify: func(in *TipInput) { in.Layers = enable(in.Layers, "binaural") },
			want:   []string{"binaural_headphones"},
		},
		{
			name: "night with beta beat",
			modify: func(in *TipInput) {
				in.TimeOfDay = layer.Night
				in.Layers = enable(in.Layers, "binaural")
			},
			want: []string{"stimulating_at_night", "binaural_headphones"},
		},
		{
			name: "night pulse",
			modify: func(in *TipInput) {
				in.TimeOfDay = layer.Night
				in.Layers = enable(in.Layers, "pulse")
			},
			want: []string{"stimulating_at_night"},
		},
		{
			name: "pulse on 60 Hz mains",
			modify: func(in *TipInput) {
				in.MainsHz = 60
				in.Layers = enable(in.Layers, "pulse")
			},
			want: []string{"mains_hum"},
		},
		{
			name: "pad on 50 Hz second harmonic",
			modify: func(in *TipInput) {
				in.Layers, _ = layer.PatchSet(in.Layers, "pad", layer.Patch{Frequency: layer.Float(101)})
			},
			want: []string{"mains_hum"},
		},
		{
			name:    "silence suppresses everything else",
			modify:  func(in *TipInput) { in.Volume = 0; in.Intensity = 1 },
			want:    []string{"silent_mix"},
			notWant: []string{"reverb_heavy"},
		},
		{
			name:   "loud brown noise",
			modify: func(in *TipInput) { in.NoiseColor = "brown"; in.Layers[0].Volume = 0.8 },
			want:   []string{"brown_noise_loud"},
		},
		{
			name:   "short sleep session",
			modify: func(in *TipInput) { in.Mode = layer.ModeSleep; in.SessionMinutes = 10 },
			want:   []string{"short_sleep_session"},
		},
		{
			name:   "focus suggests a beat",
			modify: func(in *TipInput) { in.Mode = layer.ModeFocus },
			want:   []string{"focus_beat"},
		},
		{
			name: "focus beat dropped when night warning fires",
			modify: func(in *TipInput) {
				in.Mode = layer.ModeFocus
				in.TimeOfDay = layer.Night
				in.Layers = enable(in.Layers, "pulse")
			},
			want:    []string{"stimulating_at_night"},
			notWant: []string{"focus_beat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseTipInput()
			tt.modify(&in)
			tips := GenerateSessionTips(in)
			fired := map[string]bool{}
			for _, tip := range tips {
				fired[tip.RuleID] = true
			}
			for _, id := range tt.want {
				if !fired[id] {
					t.Errorf("rule %q did not fire; got %v", id, tips)
				}
			}
			for _, id := range tt.notWant {
				if fired[id] {
					t.Errorf("rule %q fired unexpectedly", id)
				}
			}
		})
	}
}

func TestGenerateSessionTipsOrderingAndCap(t *testing.T) {
	in := baseTipInput()
	in.Volume = 0.95
	in.Intensity = 0.9
	in.TimeOfDay = layer.Night
	in.NoiseColor = "brown"
	in.Layers[0].Volume = 0.9
	in.Layers = enable(enable(in.Layers, "binaural"), "pulse")
	in.MainsHz = 60

	tips := GenerateSessionTips(in)
	if len(tips) != MaxSessionTips {
		t.Fatalf("got %d tips, want cap of %d", len(tips), MaxSessionTips)
	}
	for i := 1; i < len(tips); i++ {
		if tips[i].Priority > tips[i-1].Priority {
			t.Errorf("tips not sorted: %d before %d", tips[i-1].Priority, tips[i].Priority)
		}
	}
	if tips[0].RuleID != "volume_high" {
		t.Errorf("top tip = %q, want volume_high", tips[0].RuleID)
	}
	if !strings.Contains(tips[0].Message, "95%") {
		t.Errorf("volume tip message = %q", tips[0].Message)
	}
}
