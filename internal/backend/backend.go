// Package backend connects a rendered stereo stream to an output device.
package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Channels is fixed: every backend plays interleaved stereo float32.
const Channels = 2

var (
	ErrUnsupported = errors.New("unsupported audio backend")
	ErrNotOpen     = errors.New("backend not open")
)

// Renderer fills interleaved stereo frames. graph.Context satisfies it.
type Renderer interface {
	Render(out []float32)
}

// Backend pulls audio from a Renderer on its own goroutine.
type Backend interface {
	Name() string
	Open(sampleRate, framesPerBuffer int, r Renderer) error
	Start() error
	Stop() error
	Close() error
}

// Names lists the selectable backends.
var Names = []string{"portaudio", "oto", "null"}

// New returns the backend registered under name. The null backend runs in
// realtime so headless sessions keep their clock.
func New(name string) (Backend, error) {
	switch strings.ToLower(name) {
	case "portaudio", "":
		return &PortAudio{}, nil
	case "oto":
		return &Oto{}, nil
	case "null":
		return &Null{Realtime: true}, nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnsupported, name, strings.Join(Names, ", "))
}
