package engine

import "github.com/linuxmatters/lullwave/internal/graph"

// modulator is a sine LFO scaled by a depth gain and summed onto a
// parameter.
type modulator struct {
	osc   *graph.Oscillator
	depth *graph.Gain
}

// attach starts a modulator of the given rate and depth on p.
func attach(ctx *graph.Context, rate, depth float64, p *graph.Param) (*modulator, error) {
	m := &modulator{osc: ctx.NewOscillator(graph.Sine), depth: ctx.NewGain()}
	m.osc.Frequency.SetValue(rate)
	m.depth.Gain.SetValue(depth)
	if err := m.osc.Connect(m.depth); err != nil {
		return nil, err
	}
	if err := m.depth.ConnectParam(p); err != nil {
		return nil, err
	}
	if err := m.osc.Start(ctx.CurrentTime()); err != nil {
		return nil, err
	}
	return m, nil
}
