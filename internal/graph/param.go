package graph

import (
	"math"
	"sync"
)

type eventKind int

const (
	setValue eventKind = iota
	setTarget
)

type event struct {
	kind  eventKind
	frame int64
	value float64
	coef  float64
}

// Param is an automatable node parameter. Its rendered value is the
// automation curve plus the sum of every node connected to it.
type Param struct {
	ctx  *Context
	name string

	mu     sync.Mutex
	target float64

	// Render goroutine only.
	value    float64
	events   []event
	approach bool
	goal     float64
	coef     float64
	mods     []*core
	rendered uint64
	values   [Quantum]float64
}

func newParam(c *Context, name string, def float64) *Param {
	return &Param{ctx: c, name: name, target: def, value: def}
}

// Name of the parameter, for logs.
func (p *Param) Name() string { return p.name }

// Target is the value the parameter was last scheduled to reach. It does not
// include modulation.
func (p *Param) Target() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.target
}

// SetValue jumps to v at the current context time.
func (p *Param) SetValue(v float64) {
	p.SetValueAtTime(v, p.ctx.CurrentTime())
}

// SetValueAtTime jumps to v at time t (seconds on the context clock).
func (p *Param) SetValueAtTime(v, t float64) {
	p.schedule(event{kind: setValue, frame: p.ctx.toFrame(t), value: v})
}

// SetTargetAtTime starts an exponential approach to v at time t, reaching
// about 63% of the distance after tau seconds.
func (p *Param) SetTargetAtTime(v, t, tau float64) {
	if tau <= 0 {
		p.SetValueAtTime(v, t)
		return
	}
	coef := 1 - math.Exp(-1/(tau*p.ctx.sampleRate))
	p.schedule(event{kind: setTarget, frame: p.ctx.toFrame(t), value: v, coef: coef})
}

func (p *Param) schedule(e event) {
	p.mu.Lock()
	p.target = e.value
	p.mu.Unlock()
	p.ctx.post(func() { p.insert(e) })
}

// insert keeps events ordered by frame; equal frames keep posting order.
func (p *Param) insert(e event) {
	i := len(p.events)
	for i > 0 && p.events[i-1].frame > e.frame {
		i--
	}
	p.events = append(p.events, event{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

// compute renders the per-sample values for pass ps.
func (p *Param) compute(ps pass) *[Quantum]float64 {
	if p.rendered == ps.id {
		return &p.values
	}
	p.rendered = ps.id

	consumed := 0
	for i := 0; i < Quantum; i++ {
		f := ps.frame + int64(i)
		for consumed < len(p.events) && p.events[consumed].frame <= f {
			e := p.events[consumed]
			consumed++
			switch e.kind {
			case setValue:
				p.value = e.value
				p.approach = false
			case setTarget:
				p.approach = true
				p.goal = e.value
				p.coef = e.coef
			}
		}
		if p.approach {
			p.value += (p.goal - p.value) * p.coef
			if math.Abs(p.goal-p.value) < 1e-9 {
				p.value = p.goal
				p.approach = false
			}
		}
		p.values[i] = p.value
	}
	if consumed > 0 {
		p.events = append(p.events[:0], p.events[consumed:]...)
	}

	for _, m := range p.mods {
		b := m.pull(ps)
		for i := range p.values {
			p.values[i] += b.mono(i)
		}
	}
	return &p.values
}
