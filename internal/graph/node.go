package graph

import "fmt"

// block is one quantum of audio, mono or stereo.
type block struct {
	channels int
	data     [2][Quantum]float64
}

// mix adds src into b, up-mixing mono to stereo where needed.
func (b *block) mix(src *block) {
	if b.channels == 0 {
		b.channels = src.channels
		b.data[0] = src.data[0]
		if src.channels == 2 {
			b.data[1] = src.data[1]
		}
		return
	}
	if src.channels == 2 && b.channels == 1 {
		b.data[1] = b.data[0]
		b.channels = 2
	}
	for ch := 0; ch < b.channels; ch++ {
		s := &src.data[min(ch, src.channels-1)]
		d := &b.data[ch]
		for i := range d {
			d[i] += s[i]
		}
	}
}

// mono returns the channel average.
func (b *block) mono(i int) float64 {
	if b.channels == 2 {
		return (b.data[0][i] + b.data[1][i]) * 0.5
	}
	return b.data[0][i]
}

func (b *block) silence(channels int) {
	b.channels = channels
	for ch := 0; ch < channels; ch++ {
		b.data[ch] = [Quantum]float64{}
	}
}

type processor interface {
	process(p pass, in []block, out *block)
}

// Node is any vertex of the graph.
type Node interface {
	node() *core
}

type edge struct {
	dst   *core
	param *Param
	input int
}

// core carries the wiring shared by every node type.
type core struct {
	ctx  *Context
	id   int
	kind string

	// Render goroutine only.
	inputs   [][]*core
	outs     []edge
	in       []block
	out      block
	rendered uint64
	proc     processor
}

func newCore(c *Context, kind string, inputs int, proc processor) *core {
	return &core{
		ctx:    c,
		id:     c.register(),
		kind:   kind,
		inputs: make([][]*core, inputs),
		in:     make([]block, inputs),
		proc:   proc,
	}
}

func (n *core) node() *core { return n }

// ID is unique within the context.
func (n *core) ID() int { return n.id }

// Kind names the node type, for logs.
func (n *core) Kind() string { return n.kind }

func (n *core) String() string { return fmt.Sprintf("%s#%d", n.kind, n.id) }

// Connect routes this node's output into input 0 of dst.
func (n *core) Connect(dst Node) error {
	return n.ConnectInput(dst, 0)
}

// ConnectInput routes this node's output into the given input of dst.
// Connecting the same pair twice has no further effect.
func (n *core) ConnectInput(dst Node, input int) error {
	d := dst.node()
	if d.ctx != n.ctx {
		return ErrContextMismatch
	}
	if input < 0 || input >= len(d.inputs) {
		return fmt.Errorf("%w: %s has %d inputs, got %d", ErrInvalidInput, d, len(d.inputs), input)
	}
	n.ctx.post(func() {
		for _, src := range d.inputs[input] {
			if src == n {
				return
			}
		}
		d.inputs[input] = append(d.inputs[input], n)
		n.outs = append(n.outs, edge{dst: d, input: input})
	})
	return nil
}

// ConnectParam adds this node's output to p's automated value.
func (n *core) ConnectParam(p *Param) error {
	if p.ctx != n.ctx {
		return ErrContextMismatch
	}
	n.ctx.post(func() {
		for _, m := range p.mods {
			if m == n {
				return
			}
		}
		p.mods = append(p.mods, n)
		n.outs = append(n.outs, edge{param: p})
	})
	return nil
}

// Disconnect removes every outgoing connection of this node.
func (n *core) Disconnect() {
	n.ctx.post(func() {
		for _, e := range n.outs {
			if e.param != nil {
				e.param.mods = without(e.param.mods, n)
				continue
			}
			e.dst.inputs[e.input] = without(e.dst.inputs[e.input], n)
		}
		n.outs = nil
	})
}

func without(list []*core, n *core) []*core {
	out := list[:0]
	for _, c := range list {
		if c != n {
			out = append(out, c)
		}
	}
	for i := len(out); i < len(list); i++ {
		list[i] = nil
	}
	return out
}

// pull renders this node for pass p, at most once per pass.
func (n *core) pull(p pass) *block {
	if n.rendered == p.id {
		return &n.out
	}
	n.rendered = p.id
	for i := range n.in {
		b := &n.in[i]
		b.channels = 0
		for _, src := range n.inputs[i] {
			b.mix(src.pull(p))
		}
		if b.channels == 0 {
			b.silence(1)
		}
	}
	n.proc.process(p, n.in, &n.out)
	return &n.out
}

// Destination clamps the mixed graph output to [-1, 1] stereo.
type Destination struct {
	*core
}

func newDestination(c *Context) *Destination {
	d := &Destination{}
	d.core = &core{ctx: c, kind: "destination", inputs: make([][]*core, 1), in: make([]block, 1), proc: d}
	return d
}

func (d *Destination) process(_ pass, in []block, out *block) {
	src := &in[0]
	out.channels = 2
	for ch := 0; ch < 2; ch++ {
		s := &src.data[min(ch, src.channels-1)]
		for i := range s {
			v := s[i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			out.data[ch][i] = v
		}
	}
}
