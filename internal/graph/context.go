// Package graph is a pull-based audio node graph: oscillators, looping
// buffer sources, filters and gains wired into a destination and rendered in
// fixed quanta with sample-accurate parameter automation.
//
// The controller goroutine and the render goroutine never share node state.
// Every mutation (connect, disconnect, start, stop, parameter events) is
// queued as a command and applied by the render goroutine at the start of
// the next quantum, so controller calls never wait on rendering.
package graph

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Quantum is the number of frames processed per render pass.
const Quantum = 128

var (
	ErrAlreadyStarted  = errors.New("source already started")
	ErrNotStarted      = errors.New("source not started")
	ErrAlreadyStopped  = errors.New("source already stopped")
	ErrInvalidInput    = errors.New("input index out of range")
	ErrContextMismatch = errors.New("nodes belong to different contexts")
	ErrInvalidBuffer   = errors.New("invalid buffer")
)

// Context owns a graph and its clock.
type Context struct {
	sampleRate float64
	frame      atomic.Int64

	mu      sync.Mutex
	pending []func()
	nextID  int
	nodes   int
	playing int

	// Render goroutine only.
	spare  []func()
	pass   pass
	dest   *Destination
	out    [2 * Quantum]float32
	outPos int
}

// pass identifies one render quantum.
type pass struct {
	id    uint64
	frame int64
}

// NewContext creates an empty graph rendering at sampleRate.
func NewContext(sampleRate int) *Context {
	c := &Context{
		sampleRate: float64(sampleRate),
		outPos:     2 * Quantum,
	}
	c.dest = newDestination(c)
	return c
}

// SampleRate in Hz.
func (c *Context) SampleRate() float64 { return c.sampleRate }

// CurrentTime is the context clock in seconds: the start of the next quantum
// to be rendered.
func (c *Context) CurrentTime() float64 {
	return float64(c.frame.Load()) / c.sampleRate
}

// Destination is the final node of the graph.
func (c *Context) Destination() *Destination { return c.dest }

// PlayingSources counts sources that were started and not yet stopped.
func (c *Context) PlayingSources() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Nodes counts the nodes created on this context, destination excluded.
func (c *Context) Nodes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodes
}

// PendingCommands is the number of queued graph mutations not yet applied.
func (c *Context) PendingCommands() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Context) post(fn func()) {
	c.mu.Lock()
	c.pending = append(c.pending, fn)
	c.mu.Unlock()
}

func (c *Context) register() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.nodes++
	return c.nextID
}

func (c *Context) toFrame(t float64) int64 {
	if t <= 0 {
		return 0
	}
	return int64(t*c.sampleRate + 0.5)
}

// Render fills out with interleaved stereo samples in [-1, 1]. It may be
// called with any length; partial quanta carry over to the next call.
// Render must only be called from one goroutine at a time.
func (c *Context) Render(out []float32) {
	for len(out) > 0 {
		if c.outPos == len(c.out) {
			c.renderQuantum()
			c.outPos = 0
		}
		n := copy(out, c.out[c.outPos:])
		c.outPos += n
		out = out[n:]
	}
}

func (c *Context) renderQuantum() {
	c.mu.Lock()
	cmds := c.pending
	c.pending = c.spare[:0]
	c.mu.Unlock()

	for i, fn := range cmds {
		fn()
		cmds[i] = nil
	}
	c.spare = cmds

	c.pass.id++
	c.pass.frame = c.frame.Load()
	b := c.dest.pull(c.pass)
	for i := 0; i < Quantum; i++ {
		c.out[2*i] = float32(b.data[0][i])
		c.out[2*i+1] = float32(b.data[1][i])
	}
	c.frame.Add(Quantum)
}
