package audio

import (
	"fmt"
	"strings"
)

// NoiseColor selects the spectral tilt of generated noise.
type NoiseColor string

const (
	White NoiseColor = "white"
	Pink  NoiseColor = "pink"
	Brown NoiseColor = "brown"
)

// NoiseColors lists the supported colours in cycling order.
var NoiseColors = []NoiseColor{White, Pink, Brown}

// Noise defaults.
const (
	DefaultNoiseColor   = Pink
	DefaultNoiseSeconds = 2.0
)

// Output scaling per colour, chosen so each colour sits at a similar loudness.
const (
	whiteGain = 0.3
	pinkGain  = 0.11
	brownGain = 3.5
)

// ParseNoiseColor parses a colour name. Unknown names are an error.
func ParseNoiseColor(s string) (NoiseColor, error) {
	switch c := NoiseColor(strings.ToLower(strings.TrimSpace(s))); c {
	case White, Pink, Brown:
		return c, nil
	}
	return "", fmt.Errorf("unknown noise color %q (want white, pink or brown)", s)
}

// Next cycles to the following colour.
func (c NoiseColor) Next() NoiseColor {
	for i, nc := range NoiseColors {
		if nc == c {
			return NoiseColors[(i+1)%len(NoiseColors)]
		}
	}
	return DefaultNoiseColor
}

// GenerateNoise renders a mono noise loop of exactly round(sampleRate*seconds)
// frames. Unrecognised colours render pink.
func GenerateNoise(rng Rand, color NoiseColor, sampleRate int, seconds float64) (*Buffer, error) {
	n, err := frameCount(sampleRate, seconds)
	if err != nil {
		return nil, err
	}
	buf, err := NewBuffer(1, n, sampleRate)
	if err != nil {
		return nil, err
	}
	out := buf.data[0]

	switch color {
	case White:
		for i := range out {
			out[i] = float32(uniform(rng) * whiteGain)
		}
	case Brown:
		var last float64
		for i := range out {
			white := uniform(rng)
			last = (last + 0.02*white) / 1.02
			out[i] = float32(last * brownGain)
		}
	default:
		var p pinkFilter
		for i := range out {
			out[i] = float32(p.next(uniform(rng)) * pinkGain)
		}
	}
	return buf, nil
}

// pinkFilter is Paul Kellet's refined -3 dB/octave filter bank.
type pinkFilter struct {
	b0, b1, b2, b3, b4, b5, b6 float64
}

func (p *pinkFilter) next(white float64) float64 {
	p.b0 = 0.99886*p.b0 + white*0.0555179
	p.b1 = 0.99332*p.b1 + white*0.0750759
	p.b2 = 0.96900*p.b2 + white*0.1538520
	p.b3 = 0.86650*p.b3 + white*0.3104856
	p.b4 = 0.55000*p.b4 + white*0.5329522
	p.b5 = -0.7616*p.b5 - white*0.0168980
	out := p.b0 + p.b1 + p.b2 + p.b3 + p.b4 + p.b5 + p.b6 + white*0.5362
	p.b6 = white * 0.115926
	return out
}

// uniform draws from [-1, 1).
func uniform(rng Rand) float64 {
	return rng.Float64()*2 - 1
}
