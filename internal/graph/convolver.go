package graph

import (
	"fmt"
	"math"

	"github.com/ktye/fft"

	"github.com/linuxmatters/lullwave/internal/audio"
)

// Partition size of the convolution engine. Output lags input by one
// partition.
const ConvolverPartition = 512

const (
	convFFTSize       = 2 * ConvolverPartition
	irGainCalibration = 0.00125
	irMinPower        = 0.000125
	irReferenceRate   = 44100.0
)

// Convolver applies a stereo impulse response with uniformly partitioned
// overlap-add FFT convolution. Mono input feeds both impulse channels.
type Convolver struct {
	*core

	fft   fft.FFT
	scale float64
	parts int

	ir   [2][][]complex128 // per channel, per partition spectra
	fdl  [2][][]complex128 // frequency-domain delay line
	head int

	inBuf   [2][]float64
	ready   [2][]float64
	tail    [2][]float64
	pos     int
	scratch []complex128
	acc     []complex128
}

// NewConvolver prepares a convolver for ir. With normalize set, the response
// is scaled to a consistent loudness regardless of its length or level.
func (c *Context) NewConvolver(ir *audio.Buffer, normalize bool) (*Convolver, error) {
	if ir == nil || ir.Len() == 0 || ir.Channels() > 2 {
		return nil, ErrInvalidBuffer
	}
	tr, err := fft.New(convFFTSize)
	if err != nil {
		return nil, fmt.Errorf("convolver fft: %w", err)
	}

	v := &Convolver{
		fft:     tr,
		parts:   (ir.Len() + ConvolverPartition - 1) / ConvolverPartition,
		scratch: make([]complex128, convFFTSize),
		acc:     make([]complex128, convFFTSize),
	}
	v.scale = v.inverseScale()

	gain := 1.0
	if normalize {
		gain = irNormalization(ir, c.sampleRate)
	}

	for ch := 0; ch < 2; ch++ {
		data := ir.Channel(min(ch, ir.Channels()-1))
		v.ir[ch] = make([][]complex128, v.parts)
		v.fdl[ch] = make([][]complex128, v.parts)
		for k := 0; k < v.parts; k++ {
			clear(v.scratch)
			for i := 0; i < ConvolverPartition; i++ {
				j := k*ConvolverPartition + i
				if j >= len(data) {
					break
				}
				v.scratch[i] = complex(float64(data[j])*gain, 0)
			}
			v.ir[ch][k] = append([]complex128(nil), v.fft.Transform(v.scratch)...)
			v.fdl[ch][k] = make([]complex128, convFFTSize)
		}
		v.inBuf[ch] = make([]float64, ConvolverPartition)
		v.ready[ch] = make([]float64, ConvolverPartition)
		v.tail[ch] = make([]float64, ConvolverPartition)
	}

	v.core = newCore(c, "convolver", 1, v)
	return v, nil
}

// inverseScale measures the round-trip gain of the transform pair so the
// result is correct whichever normalisation convention the FFT uses.
func (v *Convolver) inverseScale() float64 {
	clear(v.scratch)
	v.scratch[0] = 1
	x := v.fft.Transform(v.scratch)
	copy(v.acc, x)
	y := v.fft.Inverse(v.acc)
	if r := real(y[0]); r != 0 {
		return 1 / r
	}
	return 1
}

// irNormalization matches the loudness calibration browsers apply to
// convolver responses.
func irNormalization(ir *audio.Buffer, sampleRate float64) float64 {
	var sum float64
	for ch := 0; ch < ir.Channels(); ch++ {
		for _, s := range ir.Channel(ch) {
			sum += float64(s) * float64(s)
		}
	}
	power := math.Sqrt(sum / float64(ir.Channels()*ir.Len()))
	if power < irMinPower || math.IsNaN(power) {
		power = irMinPower
	}
	return irGainCalibration / power * irReferenceRate / sampleRate
}

func (v *Convolver) process(_ pass, in []block, out *block) {
	src := &in[0]
	out.channels = 2
	for i := 0; i < Quantum; i++ {
		for ch := 0; ch < 2; ch++ {
			out.data[ch][i] = v.ready[ch][v.pos]
			v.inBuf[ch][v.pos] = src.data[min(ch, src.channels-1)][i]
		}
		v.pos++
		if v.pos == ConvolverPartition {
			v.pos = 0
			v.head = (v.head + 1) % v.parts
			for ch := 0; ch < 2; ch++ {
				v.convolveBlock(ch)
			}
		}
	}
}

// convolveBlock pushes the latest input partition into the delay line and
// sums every partition product into the next ready block.
func (v *Convolver) convolveBlock(ch int) {
	clear(v.scratch)
	for i, s := range v.inBuf[ch] {
		v.scratch[i] = complex(s, 0)
	}
	copy(v.fdl[ch][v.head], v.fft.Transform(v.scratch))

	clear(v.acc)
	for k := 0; k < v.parts; k++ {
		x := v.fdl[ch][(v.head-k+v.parts)%v.parts]
		h := v.ir[ch][k]
		for i := range v.acc {
			v.acc[i] += x[i] * h[i]
		}
	}
	y := v.fft.Inverse(v.acc)

	ready, tail := v.ready[ch], v.tail[ch]
	for i := 0; i < ConvolverPartition; i++ {
		ready[i] = real(y[i])*v.scale + tail[i]
		tail[i] = real(y[i+ConvolverPartition]) * v.scale
	}
}
