package graph

import "math"

// FilterType selects a biquad response.
type FilterType string

const (
	Lowpass  FilterType = "lowpass"
	Highpass FilterType = "highpass"
	Bandpass FilterType = "bandpass"
)

// BiquadFilter is a second-order RBJ filter with cutoff (Hz) and linear Q
// parameters. Coefficients are recomputed only when the parameters move.
type BiquadFilter struct {
	*core
	Frequency *Param
	Q         *Param

	typ          FilterType
	lastF, lastQ float64
	b0, b1, b2   float64
	a1, a2       float64
	state        [2]biquadState
}

type biquadState struct {
	x1, x2, y1, y2 float64
}

// NewBiquadFilter creates a filter with a 350 Hz cutoff and Q of 1.
func (c *Context) NewBiquadFilter(typ FilterType) *BiquadFilter {
	f := &BiquadFilter{
		Frequency: newParam(c, "frequency", 350),
		Q:         newParam(c, "Q", 1),
		typ:       typ,
		lastF:     -1,
	}
	f.core = newCore(c, "biquad", 1, f)
	return f
}

// Type of the response.
func (f *BiquadFilter) Type() FilterType { return f.typ }

func (f *BiquadFilter) process(p pass, in []block, out *block) {
	src := &in[0]
	out.channels = src.channels
	freq := f.Frequency.compute(p)
	q := f.Q.compute(p)
	for i := 0; i < Quantum; i++ {
		if freq[i] != f.lastF || q[i] != f.lastQ {
			f.coefficients(freq[i], q[i])
		}
		for ch := 0; ch < src.channels; ch++ {
			s := &f.state[ch]
			x := src.data[ch][i]
			y := f.b0*x + f.b1*s.x1 + f.b2*s.x2 - f.a1*s.y1 - f.a2*s.y2
			s.x2, s.x1 = s.x1, x
			s.y2, s.y1 = s.y1, y
			out.data[ch][i] = y
		}
	}
}

func (f *BiquadFilter) coefficients(freq, q float64) {
	f.lastF, f.lastQ = freq, q
	nyquist := f.ctx.sampleRate / 2
	freq = math.Max(10, math.Min(freq, nyquist*0.999))
	q = math.Max(q, 1e-4)

	w0 := 2 * math.Pi * freq / f.ctx.sampleRate
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	var b0, b1, b2 float64
	switch f.typ {
	case Highpass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = b0
	case Bandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	default:
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = b0
	}
	a0 := 1 + alpha
	f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
	f.a1, f.a2 = -2*cosw/a0, (1-alpha)/a0
}

// Gain scales its input by an automatable factor.
type Gain struct {
	*core
	Gain *Param
}

// NewGain creates a unity gain node.
func (c *Context) NewGain() *Gain {
	g := &Gain{Gain: newParam(c, "gain", 1)}
	g.core = newCore(c, "gain", 1, g)
	return g
}

func (g *Gain) process(p pass, in []block, out *block) {
	src := &in[0]
	out.channels = src.channels
	gain := g.Gain.compute(p)
	for ch := 0; ch < src.channels; ch++ {
		for i := range gain {
			out.data[ch][i] = src.data[ch][i] * gain[i]
		}
	}
}

// ChannelMerger places input 0 on the left channel and input 1 on the right.
// Stereo inputs are down-mixed first.
type ChannelMerger struct {
	*core
}

// NewChannelMerger creates a two-input stereo merger.
func (c *Context) NewChannelMerger() *ChannelMerger {
	m := &ChannelMerger{}
	m.core = newCore(c, "merger", 2, m)
	return m
}

func (m *ChannelMerger) process(_ pass, in []block, out *block) {
	out.channels = 2
	for ch := 0; ch < 2; ch++ {
		for i := 0; i < Quantum; i++ {
			out.data[ch][i] = in[ch].mono(i)
		}
	}
}
