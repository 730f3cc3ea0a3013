// Package session drives the engine for one listening session: the play
// state, the countdown, time-of-day polling and every user adjustment. All
// engine calls happen on the session goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linuxmatters/lullwave/internal/adaptive"
	"github.com/linuxmatters/lullwave/internal/audio"
	"github.com/linuxmatters/lullwave/internal/engine"
	"github.com/linuxmatters/lullwave/internal/layer"
	"github.com/linuxmatters/lullwave/internal/logging"
	"github.com/linuxmatters/lullwave/internal/preset"
)

// ErrNotRunning is returned when a command is sent to a session whose loop
// has exited.
var ErrNotRunning = errors.New("session not running")

// Player is the engine surface a session needs.
type Player interface {
	engine.Engine
	UpdateNoiseColor(color audio.NoiseColor) error
	Layers() []layer.SoundLayer
	NodeIDs() []string
	Reduction() float64
}

// Logger is the subset of logging.Logger the session writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// DefaultTick is the countdown resolution.
const DefaultTick = time.Second

// Options seed a session.
type Options struct {
	Mode        layer.Mode
	Length      time.Duration
	AdaptToTime bool
	Volume      float64
	Intensity   float64
	NoiseColor  audio.NoiseColor
	Layers      []layer.SoundLayer
	Clock       *adaptive.Watcher
	Tick        time.Duration
	Logger      Logger
}

// Snapshot is the published state of a session.
type Snapshot struct {
	Playing      bool
	Mode         layer.Mode
	Elapsed      time.Duration // position in the current countdown
	Length       time.Duration
	Played       time.Duration // total time played this run
	Completed    bool          // the countdown has reached zero at least once
	Volume       float64
	Intensity    float64
	NoiseColor   audio.NoiseColor
	BinauralFreq float64
	AdaptToTime  bool
	TimeOfDay    layer.TimeOfDay
	Base         []layer.SoundLayer
	Layers       []layer.SoundLayer // effective, after adaptation
	Voices       []string
	Reduction    float64 // current limiter reduction, dB
	Peak         float64 // deepest limiter reduction seen, dB
	Transitions  []logging.Transition
	Err          error // last command error, cleared by the next command
}

// Remaining time on the countdown.
func (s Snapshot) Remaining() time.Duration {
	if s.Elapsed >= s.Length {
		return 0
	}
	return s.Length - s.Elapsed
}

// Progress of the countdown in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Length <= 0 {
		return 0
	}
	return min(float64(s.Elapsed)/float64(s.Length), 1)
}

// Session owns the canonical state and the engine.
type Session struct {
	player Player
	clock  *adaptive.Watcher
	tick   time.Duration
	log    Logger

	cmds      chan command
	snapshots chan Snapshot
	done      chan struct{}

	// Loop goroutine only.
	state Snapshot
}

type command struct {
	apply func(ctx context.Context) error
	reply chan error
}

// New creates a session around player. Run must be called to start it.
func New(player Player, opts Options) *Session {
	s := &Session{
		player:    player,
		clock:     opts.Clock,
		tick:      opts.Tick,
		log:       opts.Logger,
		cmds:      make(chan command),
		snapshots: make(chan Snapshot, 1),
		done:      make(chan struct{}),
	}
	if s.clock == nil {
		s.clock = adaptive.NewWatcher(nil, nil, 0)
	}
	if s.tick <= 0 {
		s.tick = DefaultTick
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if opts.Mode == "" {
		opts.Mode = layer.DefaultMode
	}
	if opts.Length <= 0 {
		opts.Length = time.Duration(layer.DefaultSessionLength) * time.Minute
	}
	if opts.NoiseColor == "" {
		opts.NoiseColor = audio.DefaultNoiseColor
	}
	base := opts.Layers
	if base == nil {
		base = layer.DefaultLayers()
	}
	s.state = Snapshot{
		Mode:         opts.Mode,
		Length:       opts.Length,
		Volume:       clamp01(opts.Volume),
		Intensity:    clamp01(opts.Intensity),
		NoiseColor:   opts.NoiseColor,
		BinauralFreq: binauralFreq(base),
		AdaptToTime:  opts.AdaptToTime,
		TimeOfDay:    s.clock.Current(),
		Base:         layer.CloneLayers(base),
	}
	return s
}

// Snapshots delivers the latest state after every change. Only the newest
// snapshot is kept when the reader falls behind.
func (s *Session) Snapshots() <-chan Snapshot { return s.snapshots }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run initializes the engine, pushes the starting state and serves commands
// until ctx is cancelled. The engine is cleaned up on return.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.player.Cleanup()

	if err := s.player.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	s.player.UpdateVolume(s.state.Volume)
	s.player.UpdateIntensity(s.state.Intensity)
	if err := s.player.UpdateNoiseColor(s.state.NoiseColor); err != nil {
		return err
	}
	s.player.UpdateLayers(s.state.Base)
	s.player.UpdateSettings(s.settings())
	s.publish()

	countdown := time.NewTicker(s.tick)
	defer countdown.Stop()
	poll := time.NewTicker(s.clock.Interval())
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			s.player.Stop()
			s.state.Playing = false
			s.publish()
			return nil
		case cmd := <-s.cmds:
			err := cmd.apply(ctx)
			s.state.Err = err
			s.publish()
			cmd.reply <- err
		case <-countdown.C:
			if s.advance(s.tick) {
				s.publish()
			}
		case <-poll.C:
			if s.pollTimeOfDay() {
				s.publish()
			}
		}
	}
}

// Final returns the last published state once Run has returned.
func (s *Session) Final() Snapshot {
	<-s.done
	return s.state
}

// advance moves the countdown on while playing. At the end of the session
// playback stops and the countdown resets.
func (s *Session) advance(d time.Duration) bool {
	if !s.state.Playing {
		return false
	}
	s.state.Elapsed += d
	s.state.Played += d
	if r := s.player.Reduction(); r < s.state.Peak {
		s.state.Peak = r
	}
	if s.state.Elapsed >= s.state.Length {
		s.log.Infof("Session complete after %s", s.state.Length)
		s.player.Stop()
		s.state.Playing = false
		s.state.Completed = true
		s.state.Elapsed = 0
	}
	return true
}

// pollTimeOfDay re-reads the clock and re-applies the adaptation policy on a
// bucket change.
func (s *Session) pollTimeOfDay() bool {
	tod, changed := s.clock.Check()
	if !changed {
		return false
	}
	s.log.Infof("Time of day: %s → %s", s.state.TimeOfDay, tod)
	s.state.Transitions = append(s.state.Transitions, logging.Transition{
		At:   s.clock.Now(),
		From: s.state.TimeOfDay,
		To:   tod,
	})
	s.state.TimeOfDay = tod
	if s.state.AdaptToTime {
		s.player.UpdateSettings(s.settings())
	}
	return true
}

func (s *Session) settings() layer.AdaptiveSettings {
	return layer.AdaptiveSettings{
		TimeOfDay:     s.state.TimeOfDay,
		SessionLength: int(s.state.Length / time.Minute),
		AdaptToTime:   s.state.AdaptToTime,
		Mode:          s.state.Mode,
		Layers:        layer.CloneLayers(s.state.Base),
	}
}

func (s *Session) publish() {
	s.state.Layers = s.player.Layers()
	s.state.Voices = s.player.NodeIDs()
	s.state.Reduction = s.player.Reduction()
	snap := s.state
	snap.Base = layer.CloneLayers(s.state.Base)
	snap.Transitions = append([]logging.Transition(nil), s.state.Transitions...)
	select {
	case <-s.snapshots:
	default:
	}
	s.snapshots <- snap
}

// do runs fn on the session goroutine and waits for its result.
func (s *Session) do(fn func(ctx context.Context) error) error {
	cmd := command{apply: fn, reply: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrNotRunning
	}
	return <-cmd.reply
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

// binauralFreq reports the beat frequency of the first binaural layer.
func binauralFreq(layers []layer.SoundLayer) float64 {
	for _, l := range layers {
		if l.Type == layer.TypeBinaural && l.Frequency != nil {
			return *l.Frequency
		}
	}
	return layer.DefaultBinauralFreq
}

// Apply a preset's mode, layers, volume, noise colour and beat frequency.
func (s *Session) ApplyPreset(p preset.Preset) error {
	return s.do(func(context.Context) error {
		if p.NoiseType != "" {
			if err := s.setNoiseColor(p.NoiseType); err != nil {
				return err
			}
		}
		if len(p.Layers) > 0 {
			s.state.Base = layer.CloneLayers(p.Layers)
		}
		if p.BinauralFreq > 0 {
			s.state.Base = withBinauralFreq(s.state.Base, p.BinauralFreq)
			s.state.BinauralFreq = p.BinauralFreq
		} else {
			s.state.BinauralFreq = binauralFreq(s.state.Base)
		}
		if p.Mode != "" {
			s.state.Mode = p.Mode
		}
		s.state.Volume = clamp01(p.Volume)
		s.player.UpdateVolume(s.state.Volume)
		s.player.UpdateLayers(s.state.Base)
		s.player.UpdateSettings(s.settings())
		s.log.Infof("Applied preset %q", p.Name)
		return nil
	})
}

// Preset captures the current state under name.
func (s *Session) Preset(name string) (preset.Preset, error) {
	var p preset.Preset
	err := s.do(func(context.Context) error {
		p = preset.Preset{
			Name:         name,
			Mode:         s.state.Mode,
			Layers:       layer.CloneLayers(s.state.Base),
			Volume:       s.state.Volume,
			NoiseType:    s.state.NoiseColor,
			BinauralFreq: s.state.BinauralFreq,
		}
		return nil
	})
	return p, err
}

func withBinauralFreq(layers []layer.SoundLayer, hz float64) []layer.SoundLayer {
	out := layer.CloneLayers(layers)
	for i := range out {
		if out[i].Type == layer.TypeBinaural {
			out[i].Frequency = layer.Float(hz)
		}
	}
	return out
}
