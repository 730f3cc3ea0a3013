package graph

import (
	"math"
	"sync/atomic"
)

// CompressorSettings shapes a DynamicsCompressor. Times are in seconds,
// levels in dB.
type CompressorSettings struct {
	Threshold float64
	Knee      float64
	Ratio     float64
	Attack    float64
	Release   float64
}

// LimiterSettings is the brick-wall style setting used on the master bus.
var LimiterSettings = CompressorSettings{
	Threshold: -6,
	Knee:      5,
	Ratio:     12,
	Attack:    0.003,
	Release:   0.25,
}

const levelFloorDB = -120

// DynamicsCompressor is a stereo-linked feed-forward compressor with a soft
// knee and no makeup gain.
type DynamicsCompressor struct {
	*core
	settings CompressorSettings

	attackCoef  float64
	releaseCoef float64
	envDB       float64
	reduction   atomic.Uint64
}

// NewDynamicsCompressor creates a compressor with fixed settings.
func (c *Context) NewDynamicsCompressor(s CompressorSettings) *DynamicsCompressor {
	d := &DynamicsCompressor{
		settings:    s,
		attackCoef:  timeCoef(s.Attack, c.sampleRate),
		releaseCoef: timeCoef(s.Release, c.sampleRate),
	}
	d.core = newCore(c, "compressor", 1, d)
	return d
}

// Settings the compressor was built with.
func (d *DynamicsCompressor) Settings() CompressorSettings { return d.settings }

// Reduction is the gain reduction applied at the end of the last quantum, in
// dB (zero or negative).
func (d *DynamicsCompressor) Reduction() float64 {
	return math.Float64frombits(d.reduction.Load())
}

func timeCoef(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * sampleRate))
}

// curve is the static gain computer: output level for input level x.
func (d *DynamicsCompressor) curve(x float64) float64 {
	t, w, r := d.settings.Threshold, d.settings.Knee, d.settings.Ratio
	over := x - t
	switch {
	case 2*over < -w:
		return x
	case w > 0 && 2*math.Abs(over) <= w:
		k := over + w/2
		return x + (1/r-1)*k*k/(2*w)
	default:
		return t + over/r
	}
}

func (d *DynamicsCompressor) process(_ pass, in []block, out *block) {
	src := &in[0]
	out.channels = src.channels
	for i := 0; i < Quantum; i++ {
		peak := 0.0
		for ch := 0; ch < src.channels; ch++ {
			peak = math.Max(peak, math.Abs(src.data[ch][i]))
		}
		level := float64(levelFloorDB)
		if peak > 0 {
			level = math.Max(20*math.Log10(peak), levelFloorDB)
		}
		want := d.curve(level) - level

		coef := d.releaseCoef
		if want < d.envDB {
			coef = d.attackCoef
		}
		d.envDB = coef*d.envDB + (1-coef)*want

		g := math.Pow(10, d.envDB/20)
		for ch := 0; ch < src.channels; ch++ {
			out.data[ch][i] = src.data[ch][i] * g
		}
	}
	d.reduction.Store(math.Float64bits(d.envDB))
}
