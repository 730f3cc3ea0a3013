package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/linuxmatters/lullwave/internal/audio"
)

// render pulls frames of interleaved stereo and returns the left and right
// channels.
func render(t *testing.T, c *Context, frames int) (left, right []float64) {
	t.Helper()
	buf := make([]float32, 2*frames)
	c.Render(buf)
	left = make([]float64, frames)
	right = make([]float64, frames)
	for i := 0; i < frames; i++ {
		left[i] = float64(buf[2*i])
		right[i] = float64(buf[2*i+1])
	}
	return left, right
}

// constant returns a started, looping source of a fixed value.
func constant(t *testing.T, c *Context, v float32) *BufferSource {
	t.Helper()
	data := make([]float32, 64)
	for i := range data {
		data[i] = v
	}
	buf, err := audio.NewBufferFrom(int(c.SampleRate()), data)
	if err != nil {
		t.Fatalf("NewBufferFrom() error = %v", err)
	}
	src, err := c.NewBufferSource(buf, true)
	if err != nil {
		t.Fatalf("NewBufferSource() error = %v", err)
	}
	if err := src.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return src
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestOscillatorFrequency(t *testing.T) {
	tests := []struct {
		typ  OscillatorType
		freq float64
	}{
		{Sine, 100},
		{Triangle, 60},
		{Sine, 440},
		{Square, 50},
		{Sawtooth, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			c := NewContext(8000)
			osc := c.NewOscillator(tt.typ)
			osc.Frequency.SetValue(tt.freq)
			osc.Connect(c.Destination())
			if err := osc.Start(0); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			left, _ := render(t, c, 8000)
			crossings := 0
			for i := 1; i < len(left); i++ {
				if left[i-1] < 0 && left[i] >= 0 {
					crossings++
				}
			}
			if math.Abs(float64(crossings)-tt.freq) > 1 {
				t.Errorf("rising zero crossings in 1s = %d, want %.0f", crossings, tt.freq)
			}
		})
	}
}

func TestOscillatorDetune(t *testing.T) {
	c := NewContext(8000)
	osc := c.NewOscillator(Sine)
	osc.Frequency.SetValue(100)
	osc.Detune.SetValue(1200)
	osc.Connect(c.Destination())
	osc.Start(0)

	left, _ := render(t, c, 8000)
	crossings := 0
	for i := 1; i < len(left); i++ {
		if left[i-1] < 0 && left[i] >= 0 {
			crossings++
		}
	}
	if math.Abs(float64(crossings)-200) > 1 {
		t.Errorf("one octave up: crossings = %d, want 200", crossings)
	}
}

func TestSetTargetAtTime(t *testing.T) {
	c := NewContext(8000)
	src := constant(t, c, 1)
	g := c.NewGain()
	src.Connect(g)
	g.Connect(c.Destination())

	g.Gain.SetValueAtTime(0, 0)
	g.Gain.SetTargetAtTime(1, 0, 0.1)
	if got := g.Gain.Target(); got != 1 {
		t.Errorf("Target() = %v, want 1", got)
	}

	left, _ := render(t, c, 8000)
	// After one time constant the ramp covers 1 - 1/e of the distance.
	if got := left[799]; math.Abs(got-(1-math.Exp(-1))) > 0.01 {
		t.Errorf("value after tau = %.4f, want %.4f", got, 1-math.Exp(-1))
	}
	if got := left[7999]; math.Abs(got-1) > 1e-3 {
		t.Errorf("value after 10 tau = %.4f, want 1", got)
	}
	if left[0] > 0.01 {
		t.Errorf("ramp starts at %.4f, want ~0", left[0])
	}
}

func TestSetValueAtFutureTime(t *testing.T) {
	c := NewContext(8000)
	src := constant(t, c, 1)
	g := c.NewGain()
	src.Connect(g)
	g.Connect(c.Destination())
	g.Gain.SetValueAtTime(0.25, 0)
	g.Gain.SetValueAtTime(0.75, 0.05)

	left, _ := render(t, c, 800)
	if left[399] != 0.25 || left[400] != 0.75 {
		t.Errorf("step at frame 400: got %.2f then %.2f", left[399], left[400])
	}
}

func TestParamModulationIsAdditive(t *testing.T) {
	c := NewContext(8000)
	src := constant(t, c, 1)
	g := c.NewGain()
	g.Gain.SetValue(0.2)
	src.Connect(g)
	g.Connect(c.Destination())

	mod := constant(t, c, 0.3)
	if err := mod.ConnectParam(g.Gain); err != nil {
		t.Fatalf("ConnectParam() error = %v", err)
	}

	left, _ := render(t, c, 256)
	if math.Abs(left[200]-0.5) > 1e-6 {
		t.Errorf("modulated gain output = %v, want 0.5", left[200])
	}
	if g.Gain.Target() != 0.2 {
		t.Errorf("Target() includes modulation: %v", g.Gain.Target())
	}
}

func TestBiquadResponse(t *testing.T) {
	tests := []struct {
		name    string
		typ     FilterType
		cutoff  float64
		freq    float64
		wantMin float64
		wantMax float64
	}{
		{"lowpass passband", Lowpass, 300, 50, 0.9, 1.1},
		{"lowpass stopband", Lowpass, 300, 5000, 0, 0.05},
		{"highpass passband", Highpass, 1000, 5000, 0.9, 1.1},
		{"highpass stopband", Highpass, 1000, 50, 0, 0.05},
		{"bandpass centre", Bandpass, 1000, 1000, 0.9, 1.1},
		{"bandpass skirt", Bandpass, 1000, 50, 0, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContext(44100)
			osc := c.NewOscillator(Sine)
			osc.Frequency.SetValue(tt.freq)
			f := c.NewBiquadFilter(tt.typ)
			if f.Type() != tt.typ {
				t.Fatalf("Type() = %s, want %s", f.Type(), tt.typ)
			}
			f.Frequency.SetValue(tt.cutoff)
			f.Q.SetValue(0.707)
			osc.Connect(f)
			f.Connect(c.Destination())
			osc.Start(0)

			left, _ := render(t, c, 44100)
			ratio := rms(left[22050:]) / (1 / math.Sqrt2)
			if ratio < tt.wantMin || ratio > tt.wantMax {
				t.Errorf("gain at %.0f Hz = %.3f, want [%.2f, %.2f]", tt.freq, ratio, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestNodeCountAndKind(t *testing.T) {
	c := NewContext(8000)
	before := c.Nodes()
	nodes := []struct {
		kind string
		got  string
	}{
		{"oscillator", c.NewOscillator(Square).Kind()},
		{"gain", c.NewGain().Kind()},
		{"biquad", c.NewBiquadFilter(Highpass).Kind()},
		{"merger", c.NewChannelMerger().Kind()},
	}
	for _, n := range nodes {
		if n.got != n.kind {
			t.Errorf("Kind() = %q, want %q", n.got, n.kind)
		}
	}
	if got := c.Nodes() - before; got != len(nodes) {
		t.Errorf("Nodes() grew by %d, want %d", got, len(nodes))
	}
}

func TestChannelMerger(t *testing.T) {
	c := NewContext(8000)
	m := c.NewChannelMerger()
	if err := constant(t, c, 0.25).ConnectInput(m, 0); err != nil {
		t.Fatalf("ConnectInput(0) error = %v", err)
	}
	if err := constant(t, c, 0.5).ConnectInput(m, 1); err != nil {
		t.Fatalf("ConnectInput(1) error = %v", err)
	}
	if err := constant(t, c, 1).ConnectInput(m, 2); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ConnectInput(2) error = %v, want ErrInvalidInput", err)
	}
	m.Connect(c.Destination())

	left, right := render(t, c, 128)
	if left[64] != 0.25 || right[64] != 0.5 {
		t.Errorf("merged = (%.2f, %.2f), want (0.25, 0.50)", left[64], right[64])
	}
}

func TestDisconnectSilences(t *testing.T) {
	c := NewContext(8000)
	osc := c.NewOscillator(Sine)
	osc.Connect(c.Destination())
	osc.Start(0)

	left, _ := render(t, c, 256)
	if rms(left) == 0 {
		t.Fatal("connected oscillator is silent")
	}
	osc.Disconnect()
	left, right := render(t, c, 256)
	if rms(left) != 0 || rms(right) != 0 {
		t.Error("disconnected oscillator still audible")
	}
}

func TestSourceLifecycle(t *testing.T) {
	c := NewContext(8000)
	osc := c.NewOscillator(Sine)

	if err := osc.Stop(0); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Stop before Start = %v, want ErrNotStarted", err)
	}
	if err := osc.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := osc.Start(0); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	if c.PlayingSources() != 1 || !osc.Playing() {
		t.Errorf("PlayingSources() = %d, want 1", c.PlayingSources())
	}
	if err := osc.Stop(0); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := osc.Stop(0); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("second Stop = %v, want ErrAlreadyStopped", err)
	}
	if c.PlayingSources() != 0 {
		t.Errorf("PlayingSources() after stop = %d, want 0", c.PlayingSources())
	}
}

func TestStopSilencesSource(t *testing.T) {
	c := NewContext(8000)
	src := constant(t, c, 0.5)
	src.Connect(c.Destination())
	render(t, c, 128)
	src.Stop(c.CurrentTime())
	left, _ := render(t, c, 128)
	if rms(left) != 0 {
		t.Error("stopped source still produces output")
	}
}

func TestDestinationClamps(t *testing.T) {
	c := NewContext(8000)
	src := constant(t, c, 1)
	g := c.NewGain()
	g.Gain.SetValue(5)
	src.Connect(g)
	g.Connect(c.Destination())

	left, right := render(t, c, 256)
	for i := range left {
		if left[i] > 1 || left[i] < -1 || right[i] > 1 || right[i] < -1 {
			t.Fatalf("frame %d = (%v, %v) outside [-1, 1]", i, left[i], right[i])
		}
	}
	if left[100] != 1 {
		t.Errorf("clamped output = %v, want 1", left[100])
	}
}

func TestRenderChunkingIsSeamless(t *testing.T) {
	build := func() *Context {
		c := NewContext(8000)
		osc := c.NewOscillator(Triangle)
		osc.Frequency.SetValue(330)
		osc.Connect(c.Destination())
		osc.Start(0)
		return c
	}

	whole := make([]float32, 2000)
	build().Render(whole)

	c := build()
	chunked := make([]float32, 0, 2000)
	for _, n := range []int{100, 6, 512, 2, 1380} {
		buf := make([]float32, n)
		c.Render(buf)
		chunked = append(chunked, buf...)
	}
	for i := range whole {
		if whole[i] != chunked[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, whole[i], chunked[i])
		}
	}
	if got := c.CurrentTime(); got != float64(8*Quantum)/8000 {
		t.Errorf("CurrentTime() = %v after 8 quanta", got)
	}
}

func TestCommandsApplyAtNextQuantum(t *testing.T) {
	c := NewContext(8000)
	osc := c.NewOscillator(Sine)
	osc.Connect(c.Destination())
	osc.Start(0)
	if c.PendingCommands() == 0 {
		t.Fatal("no commands queued")
	}
	render(t, c, 1)
	if c.PendingCommands() != 0 {
		t.Errorf("PendingCommands() = %d after render", c.PendingCommands())
	}
}
