package graph

import (
	"math"

	"github.com/linuxmatters/lullwave/internal/audio"
)

type sourceState int

const (
	sourceIdle sourceState = iota
	sourceStarted
	sourceStopped
)

// schedule is the start/stop lifecycle shared by source nodes.
type schedule struct {
	owner *Context
	state sourceState // guarded by owner.mu

	// Render goroutine only.
	startFrame int64
	stopFrame  int64
}

func newSchedule(c *Context) schedule {
	return schedule{owner: c, startFrame: math.MaxInt64, stopFrame: math.MaxInt64}
}

// Start begins playback at time t. A source can only be started once.
func (s *schedule) Start(t float64) error {
	s.owner.mu.Lock()
	if s.state != sourceIdle {
		s.owner.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = sourceStarted
	s.owner.playing++
	s.owner.mu.Unlock()

	f := s.owner.toFrame(t)
	s.owner.post(func() { s.startFrame = f })
	return nil
}

// Stop ends playback at time t.
func (s *schedule) Stop(t float64) error {
	s.owner.mu.Lock()
	switch s.state {
	case sourceIdle:
		s.owner.mu.Unlock()
		return ErrNotStarted
	case sourceStopped:
		s.owner.mu.Unlock()
		return ErrAlreadyStopped
	}
	s.state = sourceStopped
	s.owner.playing--
	s.owner.mu.Unlock()

	f := s.owner.toFrame(t)
	s.owner.post(func() { s.stopFrame = f })
	return nil
}

// Playing reports whether Start was called and Stop was not.
func (s *schedule) Playing() bool {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	return s.state == sourceStarted
}

func (s *schedule) active(f int64) bool {
	return f >= s.startFrame && f < s.stopFrame
}

// OscillatorType selects a periodic waveform.
type OscillatorType string

const (
	Sine     OscillatorType = "sine"
	Triangle OscillatorType = "triangle"
	Square   OscillatorType = "square"
	Sawtooth OscillatorType = "sawtooth"
)

// Oscillator is a band-unlimited periodic source with frequency (Hz) and
// detune (cents) parameters.
type Oscillator struct {
	*core
	schedule
	Frequency *Param
	Detune    *Param

	typ   OscillatorType
	phase float64
}

// NewOscillator creates a stopped oscillator at 440 Hz.
func (c *Context) NewOscillator(typ OscillatorType) *Oscillator {
	o := &Oscillator{
		schedule:  newSchedule(c),
		Frequency: newParam(c, "frequency", 440),
		Detune:    newParam(c, "detune", 0),
		typ:       typ,
	}
	o.core = newCore(c, "oscillator", 0, o)
	return o
}

// Type of the waveform.
func (o *Oscillator) Type() OscillatorType { return o.typ }

func (o *Oscillator) process(p pass, _ []block, out *block) {
	out.channels = 1
	freq := o.Frequency.compute(p)
	detune := o.Detune.compute(p)
	dst := &out.data[0]
	sr := o.ctx.sampleRate

	lastCents, ratio := 0.0, 1.0
	for i := range dst {
		if !o.active(p.frame + int64(i)) {
			dst[i] = 0
			continue
		}
		if detune[i] != lastCents {
			lastCents = detune[i]
			ratio = math.Exp2(lastCents / 1200)
		}
		dst[i] = waveform(o.typ, o.phase)
		o.phase += freq[i] * ratio / sr
		o.phase -= math.Floor(o.phase)
	}
}

// waveform evaluates one period at phase in [0, 1). Every shape starts at
// zero and rises.
func waveform(typ OscillatorType, phase float64) float64 {
	switch typ {
	case Triangle:
		switch {
		case phase < 0.25:
			return 4 * phase
		case phase < 0.75:
			return 2 - 4*phase
		default:
			return 4*phase - 4
		}
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		if phase < 0.5 {
			return 2 * phase
		}
		return 2*phase - 2
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// BufferSource plays an audio.Buffer, optionally looping it.
type BufferSource struct {
	*core
	schedule

	buffer *audio.Buffer
	loop   bool
	pos    int
}

// NewBufferSource creates a stopped source for buf. Buffers with more than
// two channels are rejected.
func (c *Context) NewBufferSource(buf *audio.Buffer, loop bool) (*BufferSource, error) {
	if buf == nil || buf.Len() == 0 || buf.Channels() > 2 {
		return nil, ErrInvalidBuffer
	}
	s := &BufferSource{schedule: newSchedule(c), buffer: buf, loop: loop}
	s.core = newCore(c, "buffer-source", 0, s)
	return s, nil
}

// Buffer being played.
func (s *BufferSource) Buffer() *audio.Buffer { return s.buffer }

func (s *BufferSource) process(p pass, _ []block, out *block) {
	channels := s.buffer.Channels()
	out.channels = channels
	n := s.buffer.Len()
	for i := 0; i < Quantum; i++ {
		if !s.active(p.frame+int64(i)) || s.pos >= n {
			for ch := 0; ch < channels; ch++ {
				out.data[ch][i] = 0
			}
			continue
		}
		for ch := 0; ch < channels; ch++ {
			out.data[ch][i] = float64(s.buffer.Channel(ch)[s.pos])
		}
		s.pos++
		if s.pos == n && s.loop {
			s.pos = 0
		}
	}
}
