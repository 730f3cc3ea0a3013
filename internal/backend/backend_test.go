package backend

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRenderer struct {
	calls  atomic.Int64
	frames atomic.Int64
}

func (c *countingRenderer) Render(out []float32) {
	c.calls.Add(1)
	c.frames.Add(int64(len(out) / Channels))
	for i := range out {
		out[i] = 0.5
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		wantErr  bool
	}{
		{"portaudio", "portaudio", false},
		{"OTO", "oto", false},
		{"null", "null", false},
		{"", "portaudio", false},
		{"jack", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupported) {
					t.Errorf("New(%q) error = %v, want ErrUnsupported", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.name, err)
			}
			if b.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", b.Name(), tt.wantName)
			}
		})
	}
}

func TestNullPull(t *testing.T) {
	n := &Null{}
	if got := n.Pull(64); got != nil {
		t.Errorf("Pull() before Open = %v, want nil", got)
	}
	if err := n.Start(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Start() before Open = %v, want ErrNotOpen", err)
	}

	r := &countingRenderer{}
	if err := n.Open(44100, 256, r); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	out := n.Pull(100)
	if len(out) != 200 || out[199] != 0.5 {
		t.Errorf("Pull(100) len = %d, last = %v", len(out), out[len(out)-1])
	}
	if n.Pulled() != 100 {
		t.Errorf("Pulled() = %d, want 100", n.Pulled())
	}
}

func TestNullRealtime(t *testing.T) {
	n := &Null{Realtime: true}
	r := &countingRenderer{}
	if err := n.Open(8000, 80, r); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := n.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !n.Running() {
		t.Error("Running() = false after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.calls.Load() < 3 {
		t.Fatalf("renderer called %d times in 2s, want >= 3", r.calls.Load())
	}

	if err := n.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	calls := r.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if r.calls.Load() != calls {
		t.Error("renderer still called after Close")
	}
	if r.frames.Load()%80 != 0 {
		t.Errorf("rendered %d frames, want whole buffers of 80", r.frames.Load())
	}
}
