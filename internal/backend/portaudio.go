package backend

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio plays through the default output device with a callback stream.
type PortAudio struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	running bool
}

func (p *PortAudio) Name() string { return "portaudio" }

// Open initialises PortAudio and opens the default output stream.
func (p *PortAudio) Open(sampleRate, framesPerBuffer int, r Renderer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	callback := func(out []float32) {
		r.Render(out)
	}
	stream, err := portaudio.OpenDefaultStream(0, Channels, float64(sampleRate), framesPerBuffer, callback)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	p.stream = stream
	return nil
}

func (p *PortAudio) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return ErrNotOpen
	}
	if p.running {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	p.running = true
	return nil
}

func (p *PortAudio) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil || !p.running {
		return nil
	}
	p.running = false
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio stream: %w", err)
	}
	return nil
}

// Close stops and closes the stream and releases PortAudio.
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return nil
	}
	if p.running {
		p.stream.Stop()
		p.running = false
	}
	err := p.stream.Close()
	p.stream = nil
	if terr := portaudio.Terminate(); err == nil && terr != nil {
		err = terr
	}
	if err != nil {
		return fmt.Errorf("failed to close audio stream: %w", err)
	}
	return nil
}
