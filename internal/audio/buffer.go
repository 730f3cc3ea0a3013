// Package audio generates the sample buffers the synthesis graph plays:
// coloured noise loops and decaying reverb impulses.
package audio

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var ErrInvalidBuffer = errors.New("invalid buffer parameters")

// Buffer is an immutable block of planar float32 PCM. Once generated it is
// shared read-only between every node that plays it.
type Buffer struct {
	sampleRate int
	data       [][]float32
}

// NewBuffer allocates a silent buffer of the given shape.
func NewBuffer(channels, frames, sampleRate int) (*Buffer, error) {
	if channels < 1 || frames < 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: channels=%d frames=%d rate=%d", ErrInvalidBuffer, channels, frames, sampleRate)
	}
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	return &Buffer{sampleRate: sampleRate, data: data}, nil
}

// NewBufferFrom wraps existing planar samples. All channels must have the same
// length. The slices are owned by the buffer afterwards.
func NewBufferFrom(sampleRate int, channels ...[]float32) (*Buffer, error) {
	if len(channels) == 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: channels=%d rate=%d", ErrInvalidBuffer, len(channels), sampleRate)
	}
	for _, ch := range channels[1:] {
		if len(ch) != len(channels[0]) {
			return nil, fmt.Errorf("%w: ragged channels", ErrInvalidBuffer)
		}
	}
	return &Buffer{sampleRate: sampleRate, data: channels}, nil
}

// SampleRate in Hz.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Channels is the number of planar channels.
func (b *Buffer) Channels() int { return len(b.data) }

// Len is the number of frames per channel.
func (b *Buffer) Len() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data[0])
}

// Duration of the buffer at its sample rate.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(float64(b.Len()) / float64(b.sampleRate) * float64(time.Second))
}

// Channel returns the samples of channel ch. Callers must not modify them.
func (b *Buffer) Channel(ch int) []float32 {
	return b.data[ch]
}

// Peak returns the largest absolute sample value across all channels.
func (b *Buffer) Peak() float32 {
	var peak float32
	for _, ch := range b.data {
		for _, s := range ch {
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
	}
	return peak
}

// Rand is the uniform source the generators draw from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a time-seeded source. Each session gets different noise.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func frameCount(sampleRate int, seconds float64) (int, error) {
	if sampleRate <= 0 || seconds <= 0 {
		return 0, fmt.Errorf("%w: rate=%d seconds=%.3f", ErrInvalidBuffer, sampleRate, seconds)
	}
	return int(float64(sampleRate)*seconds + 0.5), nil
}
