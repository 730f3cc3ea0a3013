package backend

import (
	"sync"
	"time"
)

// Null renders without a device. Pull drives it by hand; with Realtime set,
// Start spawns a ticker that pulls one buffer per buffer period, for
// headless runs.
type Null struct {
	Realtime bool

	mu         sync.Mutex
	r          Renderer
	sampleRate int
	frames     int
	running    bool
	pulled     int64
	stop       chan struct{}
	done       chan struct{}
}

func (n *Null) Name() string { return "null" }

func (n *Null) Open(sampleRate, framesPerBuffer int, r Renderer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.r, n.sampleRate, n.frames = r, sampleRate, framesPerBuffer
	return nil
}

func (n *Null) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.r == nil {
		return ErrNotOpen
	}
	if n.running {
		return nil
	}
	n.running = true
	if n.Realtime {
		n.stop = make(chan struct{})
		n.done = make(chan struct{})
		go n.loop(n.stop, n.done)
	}
	return nil
}

func (n *Null) loop(stop, done chan struct{}) {
	defer close(done)
	period := time.Duration(float64(n.frames) / float64(n.sampleRate) * float64(time.Second))
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	buf := make([]float32, n.frames*Channels)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.r.Render(buf)
		}
	}
}

func (n *Null) Stop() error {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.running = false
	n.stop, n.done = nil, nil
	n.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (n *Null) Close() error {
	err := n.Stop()
	n.mu.Lock()
	n.r = nil
	n.mu.Unlock()
	return err
}

// Running reports whether Start was called without a later Stop.
func (n *Null) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

// Pull renders frames of interleaved stereo synchronously. It returns nil
// if the backend is not open.
func (n *Null) Pull(frames int) []float32 {
	n.mu.Lock()
	r := n.r
	n.mu.Unlock()
	if r == nil {
		return nil
	}
	buf := make([]float32, frames*Channels)
	r.Render(buf)
	n.mu.Lock()
	n.pulled += int64(frames)
	n.mu.Unlock()
	return buf
}

// Pulled is the total number of frames rendered through Pull.
func (n *Null) Pulled() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pulled
}
