package engine

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/linuxmatters/lullwave/internal/audio"
	"github.com/linuxmatters/lullwave/internal/backend"
	"github.com/linuxmatters/lullwave/internal/graph"
	"github.com/linuxmatters/lullwave/internal/layer"
)

func newTestSynth(t *testing.T, opts Options) (*Synth, *backend.Null) {
	t.Helper()
	out := &backend.Null{}
	opts.Rand = rand.New(rand.NewSource(1))
	s := New(out, opts)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(s.Cleanup)
	return s, out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func onlyEnabled(ids ...string) []layer.SoundLayer {
	layers := layer.DefaultLayers()
	for i := range layers {
		layers[i].Enabled = false
		for _, id := range ids {
			if layers[i].ID == id {
				layers[i].Enabled = true
			}
		}
	}
	return layers
}

func TestStartStopEmptiesRegistry(t *testing.T) {
	s, _ := newTestSynth(t, Options{})
	s.UpdateLayers(layer.DefaultLayers())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"noise", "pad_0", "pad_1", "pad_2"}
	if got := s.NodeIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("NodeIDs() = %v, want %v", got, want)
	}
	if got := s.ActiveLayers(); !reflect.DeepEqual(got, []string{"noise", "pad"}) {
		t.Errorf("ActiveLayers() = %v", got)
	}
	// noise source + LFO, three pad oscillators + three LFOs
	if got := s.ctx.PlayingSources(); got != 8 {
		t.Errorf("PlayingSources() = %d, want 8", got)
	}

	s.Stop()
	if got := s.NodeIDs(); len(got) != 0 {
		t.Errorf("NodeIDs() after Stop = %v", got)
	}
	if got := s.ctx.PlayingSources(); got != 0 {
		t.Errorf("PlayingSources() after Stop = %d", got)
	}
	if s.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", s.State())
	}
}

func TestCollidingVoiceKeysSkipLayer(t *testing.T) {
	s, _ := newTestSynth(t, Options{})
	pad := onlyEnabled("pad")
	pad = append(pad, layer.SoundLayer{
		ID:        "pad_0",
		Type:      layer.TypePulse,
		Volume:    0.2,
		Frequency: layer.Float(60),
		Enabled:   true,
	})
	s.UpdateLayers(pad)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"pad_0", "pad_1", "pad_2"}
	if got := s.NodeIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("NodeIDs() = %v, want %v", got, want)
	}
	if got := s.ActiveLayers(); !reflect.DeepEqual(got, []string{"pad"}) {
		t.Errorf("ActiveLayers() = %v, want [pad]", got)
	}

	s.Stop()
	if got := s.ctx.PlayingSources(); got != 0 {
		t.Errorf("PlayingSources() after Stop = %d, want 0", got)
	}
}

func TestStopIsSafe(t *testing.T) {
	s := New(&backend.Null{}, Options{})
	s.Stop()
	if s.State() != StateUninitialized {
		t.Errorf("Stop before Initialize changed state to %s", s.State())
	}

	s, _ = newTestSynth(t, Options{})
	s.Stop()
	if s.State() != StateInitialized {
		t.Errorf("Stop before Start changed state to %s", s.State())
	}
	s.UpdateLayers(layer.DefaultLayers())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop()
	if s.State() != StateStopped || len(s.NodeIDs()) != 0 {
		t.Errorf("double Stop left state %s, nodes %v", s.State(), s.NodeIDs())
	}

	// restart after stop
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if len(s.NodeIDs()) != 4 {
		t.Errorf("restart built %v", s.NodeIDs())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	s, _ := newTestSynth(t, Options{})
	s.UpdateLayers(layer.DefaultLayers())
	for i := 0; i < 2; i++ {
		if err := s.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.ctx.PlayingSources(); got != 8 {
		t.Errorf("second Start duplicated sources: %d playing", got)
	}
}

func TestRebuildLeavesOnlyNewSet(t *testing.T) {
	s, _ := newTestSynth(t, Options{})
	s.UpdateLayers(layer.DefaultLayers())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.UpdateLayers(onlyEnabled("pulse"))
	if got := s.NodeIDs(); !reflect.DeepEqual(got, []string{"pulse"}) {
		t.Errorf("NodeIDs() = %v, want [pulse]", got)
	}
	// triangle + gain LFO
	if got := s.ctx.PlayingSources(); got != 2 {
		t.Errorf("PlayingSources() = %d, want 2", got)
	}
}

func TestEmptyStart(t *testing.T) {
	s, out := newTestSynth(t, Options{})
	s.UpdateLayers(nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(s.NodeIDs()) != 0 {
		t.Errorf("NodeIDs() = %v", s.NodeIDs())
	}
	for _, v := range out.Pull(1024) {
		if v != 0 {
			t.Fatalf("empty graph rendered %v", v)
		}
	}
	s.Stop()
	s.Stop()
}

func TestBinauralPair(t *testing.T) {
	s, _ := newTestSynth(t, Options{Volume: 0.5})
	s.UpdateLayers([]layer.SoundLayer{{
		ID: "beat", Type: layer.TypeBinaural, Volume: 0.1, Frequency: layer.Float(6), Enabled: true,
	}})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	left, right := s.voices["beat_left"], s.voices["beat_right"]
	if left == nil || right == nil {
		t.Fatalf("NodeIDs() = %v", s.NodeIDs())
	}
	tests := []struct {
		name string
		v    *voice
		freq float64
	}{
		{"left", left, 200},
		{"right", right, 206},
	}
	for _, tt := range tests {
		osc := tt.v.src.(*graph.Oscillator)
		if got := osc.Frequency.Target(); !approx(got, tt.freq) {
			t.Errorf("%s frequency = %v, want %v", tt.name, got, tt.freq)
		}
		if got := tt.v.gain.Gain.Target(); !approx(got, 0.05) {
			t.Errorf("%s gain = %v, want 0.05", tt.name, got)
		}
		if tt.v.filter != nil {
			t.Errorf("%s has a filter", tt.name)
		}
	}
	if right.out != nil || left.out == nil {
		t.Error("merged pair must route through the left voice only")
	}
}

func TestBinauralStereoSeparation(t *testing.T) {
	s, out := newTestSynth(t, Options{Volume: 1, Intensity: 0.1})
	s.UpdateLayers([]layer.SoundLayer{{
		ID: "beat", Type: layer.TypeBinaural, Volume: 0.5, Frequency: layer.Float(10), Enabled: true,
	}})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	buf := out.Pull(8192)
	var diff float64
	for i := 0; i < len(buf); i += 2 {
		diff = math.Max(diff, math.Abs(float64(buf[i]-buf[i+1])))
	}
	if diff < 0.01 {
		t.Errorf("left and right are identical (max diff %v)", diff)
	}
}

func TestIntensityRetargetsNoise(t *testing.T) {
	s, _ := newTestSynth(t, Options{Volume: 1, Intensity: 0.2})
	s.UpdateLayers(onlyEnabled("noise"))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	v := s.voices["noise"]
	if v.send != nil {
		t.Fatal("send created below the gate")
	}

	s.UpdateIntensity(1)
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"cutoff", v.filter.Frequency.Target(), 3000},
		{"Q", v.filter.Q.Target(), 4},
		{"gain", v.gain.Gain.Target(), 0.3},
		{"lfo depth", v.mod.depth.Gain.Target(), 300},
	}
	for _, tt := range tests {
		if !approx(tt.got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if v.send == nil || !approx(v.send.Gain.Target(), 0.15) {
		t.Error("intensity 1 did not create a 0.15 noise send")
	}

	s.UpdateIntensity(0)
	if !approx(v.send.Gain.Target(), 0) {
		t.Errorf("send = %v after gate closed, want 0", v.send.Gain.Target())
	}
	if got := s.Intensity(); got != 0 {
		t.Errorf("Intensity() = %v", got)
	}
}

func TestUpdateVolumeRetargets(t *testing.T) {
	s, _ := newTestSynth(t, Options{Volume: 1, Intensity: 0.5})
	s.UpdateLayers(onlyEnabled("pad", "pulse"))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.UpdateVolume(2)
	if s.Volume() != 1 {
		t.Errorf("Volume() = %v, want clamp to 1", s.Volume())
	}
	s.UpdateVolume(0.5)

	if got := s.bus.master.Gain.Target(); !approx(got, 0.5) {
		t.Errorf("master = %v, want 0.5", got)
	}
	if got := s.voices["pad_0"].gain.Gain.Target(); !approx(got, 0.5*0.5*0.4) {
		t.Errorf("pad_0 gain = %v", got)
	}
	pulse := s.voices["pulse"]
	base := 0.2 * 0.5 * (0.3 + 0.4*0.5)
	if got := pulse.gain.Gain.Target(); !approx(got, base) {
		t.Errorf("pulse gain = %v, want %v", got, base)
	}
	if got := pulse.mod.depth.Gain.Target(); !approx(got, base*0.3) {
		t.Errorf("pulse lfo depth = %v, want %v", got, base*0.3)
	}
	if len(s.NodeIDs()) != 4 {
		t.Errorf("volume change rebuilt the graph: %v", s.NodeIDs())
	}
}

func TestMissingFrequencySkipsLayer(t *testing.T) {
	s, _ := newTestSynth(t, Options{})
	layers := onlyEnabled("noise", "pad", "pulse")
	layers[1].Frequency = nil
	layers[2].Frequency = layer.Float(0)
	s.UpdateLayers(layers)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := s.NodeIDs(); !reflect.DeepEqual(got, []string{"noise"}) {
		t.Errorf("NodeIDs() = %v, want [noise]", got)
	}
}

func TestUpdateSettingsAppliesPolicy(t *testing.T) {
	s, _ := newTestSynth(t, Options{})
	s.UpdateLayers(layer.DefaultLayers())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.UpdateSettings(layer.AdaptiveSettings{
		TimeOfDay:   layer.Night,
		Mode:        layer.ModeSleep,
		AdaptToTime: true,
	})
	want := []string{"binaural_left", "binaural_right", "noise", "pad_0", "pad_1", "pad_2"}
	if got := s.NodeIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("NodeIDs() = %v, want %v", got, want)
	}
	right := s.voices["binaural_right"].src.(*graph.Oscillator)
	if got := right.Frequency.Target(); !approx(got, 206) {
		t.Errorf("night binaural right = %v, want 206", got)
	}

	effective := s.Layers()
	if i := layer.Find(effective, "noise"); effective[i].Volume != 0.5 {
		t.Errorf("effective noise volume = %v, want 0.5", effective[i].Volume)
	}

	s.UpdateSettings(layer.AdaptiveSettings{TimeOfDay: layer.Night, Mode: layer.ModeSleep, AdaptToTime: false})
	if got := s.NodeIDs(); len(got) != 4 {
		t.Errorf("disabling adaptation left %v", got)
	}
}

func TestUpdateSettingsAdoptsLayers(t *testing.T) {
	s, _ := newTestSynth(t, Options{})
	s.UpdateSettings(layer.AdaptiveSettings{Layers: onlyEnabled("pulse")})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.NodeIDs(); !reflect.DeepEqual(got, []string{"pulse"}) {
		t.Errorf("NodeIDs() = %v", got)
	}
}

func TestUpdateNoiseColorRebuilds(t *testing.T) {
	s, _ := newTestSynth(t, Options{NoiseColor: audio.White})
	s.UpdateLayers(onlyEnabled("noise"))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := s.voices["noise"].src.(*graph.BufferSource).Buffer()

	if err := s.UpdateNoiseColor(audio.Brown); err != nil {
		t.Fatalf("UpdateNoiseColor() error = %v", err)
	}
	after := s.voices["noise"].src.(*graph.BufferSource).Buffer()
	if before == after {
		t.Error("noise layer still plays the old buffer")
	}
	if s.NoiseColor() != audio.Brown {
		t.Errorf("NoiseColor() = %s", s.NoiseColor())
	}
}

func TestOutputStaysInRange(t *testing.T) {
	s, out := newTestSynth(t, Options{NoiseColor: audio.Brown, Volume: 1, Intensity: 1})
	layers := layer.DefaultLayers()
	for i := range layers {
		layers[i].Enabled = true
		layers[i].Volume = 1
	}
	s.UpdateLayers(layers)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	var peak float64
	for i := 0; i < 20; i++ {
		for _, v := range out.Pull(4410) {
			if v > 1 || v < -1 || math.IsNaN(float64(v)) {
				t.Fatalf("sample %v out of range", v)
			}
			peak = math.Max(peak, math.Abs(float64(v)))
		}
	}
	if peak < 0.01 {
		t.Errorf("full mix is near silent (peak %v)", peak)
	}
	if s.Reduction() >= 0 {
		t.Errorf("limiter idle on a full mix: %v dB", s.Reduction())
	}
}

func TestCleanupIsTerminal(t *testing.T) {
	out := &backend.Null{}
	s := New(out, Options{Rand: rand.New(rand.NewSource(1))})
	s.UpdateLayers(layer.DefaultLayers())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Cleanup()
	s.Cleanup()

	if s.State() != StateClosed {
		t.Errorf("State() = %s", s.State())
	}
	if len(s.NodeIDs()) != 0 {
		t.Errorf("NodeIDs() = %v after Cleanup", s.NodeIDs())
	}
	if err := s.Initialize(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Initialize() after Cleanup = %v, want ErrClosed", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Cleanup = %v, want ErrClosed", err)
	}
	if out.Pull(128) != nil {
		t.Error("backend still open after Cleanup")
	}
}

type brokenBackend struct{ backend.Null }

func (b *brokenBackend) Name() string { return "broken" }

func (b *brokenBackend) Open(int, int, backend.Renderer) error {
	return errors.New("no device")
}

func TestInitializeBackendFailure(t *testing.T) {
	s := New(&brokenBackend{}, Options{})
	err := s.Initialize(context.Background())
	if !errors.Is(err, ErrPlatformUnsupported) {
		t.Fatalf("Initialize() error = %v, want ErrPlatformUnsupported", err)
	}
	if s.State() != StateUninitialized {
		t.Errorf("State() = %s after failure", s.State())
	}
}

func TestInitializeHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(&backend.Null{}, Options{})
	if err := s.Initialize(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Initialize() error = %v, want context.Canceled", err)
	}
}
