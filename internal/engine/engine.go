// Package engine turns a declarative layer set into a live synthesis graph
// and keeps it in step with volume, intensity and layer edits.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/linuxmatters/lullwave/internal/adaptive"
	"github.com/linuxmatters/lullwave/internal/audio"
	"github.com/linuxmatters/lullwave/internal/backend"
	"github.com/linuxmatters/lullwave/internal/graph"
	"github.com/linuxmatters/lullwave/internal/layer"
)

var (
	ErrPlatformUnsupported = errors.New("audio platform unavailable")
	ErrClosed              = errors.New("engine closed")
	ErrMissingFrequency    = errors.New("layer has no frequency")
	ErrNoNoiseBuffer       = errors.New("noise buffer not generated")
	ErrUnknownLayerType    = errors.New("unknown layer type")
	ErrDuplicateVoice      = errors.New("voice key already in use")
)

// Engine is the control surface the session drives.
type Engine interface {
	Initialize(ctx context.Context) error
	UpdateLayers(layers []layer.SoundLayer)
	UpdateSettings(settings layer.AdaptiveSettings)
	UpdateVolume(volume float64)
	UpdateIntensity(intensity float64)
	Start(ctx context.Context) error
	Stop()
	Cleanup()
}

// Logger is the subset of logging.Logger the engine writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// State of the engine lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateStarted
	StateStopped
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configure a Synth. Zero values pick the defaults.
type Options struct {
	SampleRate      int
	FramesPerBuffer int
	NoiseColor      audio.NoiseColor
	Volume          float64
	Intensity       float64
	Rand            audio.Rand
	Logger          Logger
}

// Engine defaults.
const (
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 512
)

// Synth is the Engine implementation. Its methods are safe to call from any
// goroutine, though the session calls them from one.
type Synth struct {
	out  backend.Backend
	log  Logger
	rng  audio.Rand
	rate int
	fpb  int

	mu          sync.Mutex
	state       State
	ctx         *graph.Context
	bus         *bus
	noise       *audio.Buffer
	noiseColor  audio.NoiseColor
	base        []layer.SoundLayer
	settings    layer.AdaptiveSettings
	hasSettings bool
	effective   []layer.SoundLayer
	volume      float64
	intensity   float64
	voices      map[string]*voice
	order       []string
}

var _ Engine = (*Synth)(nil)

// New creates an uninitialized engine that will play through out.
func New(out backend.Backend, opts Options) *Synth {
	s := &Synth{
		out:        out,
		log:        opts.Logger,
		rng:        opts.Rand,
		rate:       opts.SampleRate,
		fpb:        opts.FramesPerBuffer,
		noiseColor: opts.NoiseColor,
		volume:     layer.DefaultVolume,
		intensity:  layer.DefaultIntensity,
		voices:     make(map[string]*voice),
	}
	if s.log == nil {
		s.log = nopLogger{}
	}
	if s.rng == nil {
		s.rng = audio.NewRand()
	}
	if s.rate <= 0 {
		s.rate = DefaultSampleRate
	}
	if s.fpb <= 0 {
		s.fpb = DefaultFramesPerBuffer
	}
	if s.noiseColor == "" {
		s.noiseColor = audio.DefaultNoiseColor
	}
	if opts.Volume != 0 {
		s.volume = clamp01(opts.Volume)
	}
	if opts.Intensity != 0 {
		s.intensity = clamp01(opts.Intensity)
	}
	return s
}

// Initialize opens the backend and builds the output bus and the shared
// buffers. It is idempotent; after Cleanup it returns ErrClosed.
func (s *Synth) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked()
}

func (s *Synth) initializeLocked() error {
	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateUninitialized:
	default:
		return nil
	}

	gctx := graph.NewContext(s.rate)
	noise, err := audio.GenerateNoise(s.rng, s.noiseColor, s.rate, audio.DefaultNoiseSeconds)
	if err != nil {
		return fmt.Errorf("failed to generate noise: %w", err)
	}
	impulse, err := audio.GenerateImpulse(s.rng, audio.DefaultImpulseChannels, s.rate, audio.DefaultImpulseSeconds, audio.DefaultImpulseDecay)
	if err != nil {
		return fmt.Errorf("failed to generate impulse: %w", err)
	}
	b, err := newBus(gctx, impulse, s.volume)
	if err != nil {
		return fmt.Errorf("failed to build output bus: %w", err)
	}
	if err := s.out.Open(s.rate, s.fpb, gctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPlatformUnsupported, s.out.Name(), err)
	}

	s.ctx, s.bus, s.noise = gctx, b, noise
	s.state = StateInitialized
	s.log.Infof("Engine initialized: %s @ %d Hz, %s noise", s.out.Name(), s.rate, s.noiseColor)
	return nil
}

// UpdateLayers replaces the base layer set. A started engine rebuilds.
func (s *Synth) UpdateLayers(layers []layer.SoundLayer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = layer.CloneLayers(layers)
	s.effective = s.deriveLocked()
	if s.state == StateStarted {
		s.rebuildLocked()
	}
}

// UpdateSettings stores the adaptive settings, adopting their layers as the
// base set when present. A started engine re-derives the effective layers
// and rebuilds when they changed.
func (s *Synth) UpdateSettings(settings layer.AdaptiveSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.settings.Layers = nil
	s.hasSettings = true
	if len(settings.Layers) > 0 {
		s.base = layer.CloneLayers(settings.Layers)
	}
	next := s.deriveLocked()
	changed := !layer.EqualLayers(next, s.effective)
	s.effective = next
	s.log.Debugf("Settings: %s, mode %s, adapt=%v, changed=%v", settings.TimeOfDay, settings.Mode, settings.AdaptToTime, changed)
	if changed && s.state == StateStarted {
		s.rebuildLocked()
	}
}

func (s *Synth) deriveLocked() []layer.SoundLayer {
	if !s.hasSettings {
		return layer.CloneLayers(s.base)
	}
	return adaptive.Adapt(s.base, s.settings.TimeOfDay, s.settings.Mode, s.settings.AdaptToTime)
}

// UpdateVolume ramps the master gain and every voice gain to the new volume.
func (s *Synth) UpdateVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clamp01(volume)
	if s.bus == nil {
		return
	}
	now := s.ctx.CurrentTime()
	s.bus.master.Gain.SetTargetAtTime(s.volume, now, rampTau)
	s.retargetLocked(now)
}

// UpdateIntensity ramps filters, gains, modulation depths and reverb sends
// to the new intensity.
func (s *Synth) UpdateIntensity(intensity float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intensity = clamp01(intensity)
	if s.state != StateStarted {
		return
	}
	s.retargetLocked(s.ctx.CurrentTime())
}

func (s *Synth) retargetLocked(now float64) {
	m := s.mix()
	for _, key := range s.order {
		if err := s.voices[key].retarget(s.bus, m, now); err != nil {
			s.log.Warnf("Retarget: %v", err)
		}
	}
}

// UpdateNoiseColor regenerates the shared noise loop. A started engine
// rebuilds so noise layers pick it up.
func (s *Synth) UpdateNoiseColor(color audio.NoiseColor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrClosed
	}
	if color == s.noiseColor && s.noise != nil {
		return nil
	}
	if s.state != StateUninitialized {
		buf, err := audio.GenerateNoise(s.rng, color, s.rate, audio.DefaultNoiseSeconds)
		if err != nil {
			return fmt.Errorf("failed to generate noise: %w", err)
		}
		s.noise = buf
	}
	s.noiseColor = color
	if s.state == StateStarted {
		s.rebuildLocked()
	}
	return nil
}

// Start builds every enabled effective layer and starts the backend. It
// initializes first if needed and is a no-op when already started.
func (s *Synth) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.initializeLocked(); err != nil {
		return err
	}
	if s.state == StateStarted {
		return nil
	}
	s.buildAllLocked()
	if err := s.out.Start(); err != nil {
		s.teardownLocked()
		return fmt.Errorf("%w: %s: %w", ErrPlatformUnsupported, s.out.Name(), err)
	}
	s.state = StateStarted
	s.log.Infof("Engine started with %d voices", len(s.voices))
	return nil
}

// Stop silences and releases every voice. It is safe in any state.
func (s *Synth) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Synth) stopLocked() {
	if s.state != StateStarted {
		return
	}
	s.teardownLocked()
	if err := s.out.Stop(); err != nil {
		s.log.Warnf("Backend stop: %v", err)
	}
	s.state = StateStopped
	s.log.Infof("Engine stopped")
}

// Cleanup stops the engine and releases the bus and backend. The engine
// cannot be used afterwards.
func (s *Synth) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.stopLocked()
	if s.bus != nil {
		s.bus.release()
		if err := s.out.Close(); err != nil {
			s.log.Warnf("Backend close: %v", err)
		}
	}
	s.bus, s.noise = nil, nil
	s.state = StateClosed
	s.log.Infof("Engine cleaned up")
}

// State of the lifecycle.
func (s *Synth) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NodeIDs lists the registry keys of the live voices, sorted.
func (s *Synth) NodeIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]string(nil), s.order...)
	sort.Strings(ids)
	return ids
}

// ActiveLayers lists the IDs of layers with at least one live voice, in
// build order.
func (s *Synth) ActiveLayers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	seen := make(map[string]bool)
	for _, key := range s.order {
		id := s.voices[key].layer.ID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Layers returns the effective layer set.
func (s *Synth) Layers() []layer.SoundLayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layer.CloneLayers(s.effective)
}

// Volume is the current master volume.
func (s *Synth) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Intensity is the current intensity.
func (s *Synth) Intensity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intensity
}

// NoiseColor of the shared noise loop.
func (s *Synth) NoiseColor() audio.NoiseColor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noiseColor
}

// Reduction is the limiter's current gain reduction in dB.
func (s *Synth) Reduction() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bus == nil {
		return 0
	}
	return s.bus.limiter.Reduction()
}

func (s *Synth) mix() mix {
	return mix{volume: s.volume, intensity: s.intensity}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
