package audio

import "math"

// Impulse defaults for the shared reverb.
const (
	DefaultImpulseChannels = 2
	DefaultImpulseSeconds  = 2.0
	DefaultImpulseDecay    = 2.0
)

// GenerateImpulse renders a synthetic room response: independent white noise
// per channel under a ((L-i)/L)^decay envelope, so it starts at full scale
// and reaches zero at the end.
func GenerateImpulse(rng Rand, channels, sampleRate int, seconds, decay float64) (*Buffer, error) {
	n, err := frameCount(sampleRate, seconds)
	if err != nil {
		return nil, err
	}
	buf, err := NewBuffer(channels, n, sampleRate)
	if err != nil {
		return nil, err
	}
	length := float64(n)
	for _, ch := range buf.data {
		for i := range ch {
			env := math.Pow((length-float64(i))/length, decay)
			ch[i] = float32(uniform(rng) * env)
		}
	}
	return buf, nil
}
