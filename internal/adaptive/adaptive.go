// Package adaptive derives the effective layer set from the base layers, the
// time of day and the session mode.
package adaptive

import (
	"time"

	"github.com/linuxmatters/lullwave/internal/layer"
)

// Time-of-day tuning constants.
const (
	// Morning wakes the listener up with a gentle pulse
	morningPulseVolume   = 0.3
	morningPulseFreq     = 80.0 // Hz
	morningBinauralFreq  = 40.0 // Hz - gamma, focus only
	morningNoiseVolume   = 0.2
	afternoonBinauralHz  = 30.0 // Hz - beta edge, focus only
	afternoonPadVolume   = 0.6
	eveningBinauralFreq  = 10.0 // Hz - alpha, relax only
	eveningNoiseVolume   = 0.4
	nightBinauralFreq    = 6.0 // Hz - theta, sleep only
	nightPadVolume       = 0.3
	nightNoiseVolume     = 0.5
	morningStartHour     = 5
	afternoonStartHour   = 12
	eveningStartHour     = 17
	nightStartHour       = 22
	DefaultPollInterval  = time.Minute
)

// Adapt returns the effective layers for the given context. The input is
// never modified. With enabled false the result is an unchanged copy.
func Adapt(layers []layer.SoundLayer, tod layer.TimeOfDay, mode layer.Mode, enabled bool) []layer.SoundLayer {
	out := layer.CloneLayers(layers)
	if !enabled {
		return out
	}
	for i := range out {
		switch out[i].Type {
		case layer.TypePulse:
			tunePulse(&out[i], tod)
		case layer.TypeBinaural:
			tuneBinaural(&out[i], tod, mode)
		case layer.TypePad:
			tunePad(&out[i], tod)
		case layer.TypeNoise:
			tuneNoise(&out[i], tod)
		}
	}
	return out
}

// tunePulse enables the pulse in the morning only. Unknown buckets leave it
// as is.
func tunePulse(l *layer.SoundLayer, tod layer.TimeOfDay) {
	switch tod {
	case layer.Morning:
		l.Enabled = true
		l.Volume = morningPulseVolume
		l.Frequency = layer.Float(morningPulseFreq)
	case layer.Afternoon, layer.Evening, layer.Night:
		l.Enabled = false
	}
}

// tuneBinaural pairs each time of day with the one mode whose brainwave
// target it serves; in every other mode the binaural layer is off.
func tuneBinaural(l *layer.SoundLayer, tod layer.TimeOfDay, mode layer.Mode) {
	var want layer.Mode
	var freq float64
	switch tod {
	case layer.Morning:
		want, freq = layer.ModeFocus, morningBinauralFreq
	case layer.Afternoon:
		want, freq = layer.ModeFocus, afternoonBinauralHz
	case layer.Evening:
		want, freq = layer.ModeRelax, eveningBinauralFreq
	case layer.Night:
		want, freq = layer.ModeSleep, nightBinauralFreq
	default:
		return
	}
	l.Enabled = mode == want
	l.Frequency = layer.Float(freq)
}

func tunePad(l *layer.SoundLayer, tod layer.TimeOfDay) {
	switch tod {
	case layer.Afternoon:
		l.Volume = afternoonPadVolume
	case layer.Night:
		l.Volume = nightPadVolume
	}
}

func tuneNoise(l *layer.SoundLayer, tod layer.TimeOfDay) {
	switch tod {
	case layer.Morning:
		l.Volume = morningNoiseVolume
	case layer.Evening:
		l.Volume = eveningNoiseVolume
	case layer.Night:
		l.Volume = nightNoiseVolume
	}
}

// TimeOfDayAt buckets the local hour of t.
func TimeOfDayAt(t time.Time) layer.TimeOfDay {
	h := t.Hour()
	switch {
	case h >= morningStartHour && h < afternoonStartHour:
		return layer.Morning
	case h >= afternoonStartHour && h < eveningStartHour:
		return layer.Afternoon
	case h >= eveningStartHour && h < nightStartHour:
		return layer.Evening
	default:
		return layer.Night
	}
}
