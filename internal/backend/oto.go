package backend

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

const bytesPerSample = 4

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func otoContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx, otoRate = ctx, sampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("oto context already running at %d Hz, cannot reopen at %d Hz", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// Oto plays through ebitengine/oto, which pulls from an io.Reader.
type Oto struct {
	mu     sync.Mutex
	player *oto.Player
}

func (o *Oto) Name() string { return "oto" }

func (o *Oto) Open(sampleRate, framesPerBuffer int, r Renderer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		return nil
	}
	ctx, err := otoContext(sampleRate)
	if err != nil {
		return err
	}
	o.player = ctx.NewPlayer(&pcmReader{r: r})
	o.player.SetBufferSize(framesPerBuffer * Channels * bytesPerSample)
	return nil
}

func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return ErrNotOpen
	}
	o.player.Play()
	return nil
}

func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Pause()
	}
	return nil
}

// Close releases the player. The process-wide oto context stays alive.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	return err
}

// pcmReader encodes rendered frames as little-endian float32 bytes.
type pcmReader struct {
	r       Renderer
	samples []float32
}

func (p *pcmReader) Read(buf []byte) (int, error) {
	n := len(buf) / bytesPerSample
	if cap(p.samples) < n {
		p.samples = make([]float32, n)
	}
	samples := p.samples[:n]
	p.r.Render(samples)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*bytesPerSample:], math.Float32bits(s))
	}
	return n * bytesPerSample, nil
}
