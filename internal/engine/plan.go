package engine

import (
	"fmt"

	"github.com/linuxmatters/lullwave/internal/layer"
)

// Synthesis constants.
const (
	rampTau = 0.1 // s, time constant of every parameter ramp

	defaultNoiseCutoff = 1000.0
	defaultNoiseQ      = 1.0
	noiseCutoffSpan    = 2000.0 // Hz added at full intensity
	noiseQSpan         = 3.0

	defaultPadCutoff = 800.0
	defaultPadQ      = 2.0

	defaultPulseCutoff = 1000.0
	defaultPulseQ      = 1.0
	defaultPulseLFO    = 0.3 // depth as a share of the pulse gain

	binauralCarrier = 200.0 // Hz, left ear

	reverbSendLevel = 0.2
	reverbSendGate  = 0.3
	noiseSendLevel  = 0.15
	noiseSendGate   = 0.4
)

// Pad oscillators: detune in cents and share of the layer volume. The first
// oscillator carries the largest share.
var (
	padDetune  = [...]float64{0, 5, -5}
	padWeights = [...]float64{0.4, 0.3, 0.3}
)

// Waveform names a voice's sound source.
type Waveform string

const (
	WaveNoise    Waveform = "noise"
	WaveSine     Waveform = "sine"
	WaveTriangle Waveform = "triangle"
)

// ModTarget names the parameter a voice's modulator drives.
type ModTarget string

const (
	ModNone   ModTarget = ""
	ModCutoff ModTarget = "cutoff"
	ModGain   ModTarget = "gain"
)

// VoicePlan is the resolved shape of one registry entry: its source, filter,
// gain, modulator and reverb send at a given volume and intensity.
type VoicePlan struct {
	Key       string
	LayerID   string
	Type      layer.Type
	Index     int // pad oscillator, or 0 left / 1 right for binaural
	Waveform  Waveform
	Frequency float64 // Hz, zero for noise
	Detune    float64 // cents
	Filtered  bool
	Cutoff    float64 // Hz
	Q         float64
	Gain      float64
	LFORate   float64 // Hz, zero without a modulator
	LFODepth  float64 // absolute, in the target parameter's unit
	LFOTarget ModTarget
	Send      float64 // reverb send level, zero when gated off
}

// LayerPlan groups the voices one enabled layer builds. Err is set when the
// layer would be skipped.
type LayerPlan struct {
	Layer  layer.SoundLayer
	Voices []VoicePlan
	Err    error
}

// mix is the engine-wide input every voice target depends on.
type mix struct {
	volume    float64
	intensity float64
}

// Plan resolves the voices every enabled layer would build at the given
// volume and intensity, without touching an audio device.
func Plan(layers []layer.SoundLayer, volume, intensity float64) []LayerPlan {
	m := mix{volume: clamp01(volume), intensity: clamp01(intensity)}
	var plans []LayerPlan
	for _, l := range layers {
		if !l.Enabled {
			continue
		}
		voices, err := planLayer(l, m)
		plans = append(plans, LayerPlan{Layer: l.Clone(), Voices: voices, Err: err})
	}
	return plans
}

// planLayer dispatches on the layer type.
func planLayer(l layer.SoundLayer, m mix) ([]VoicePlan, error) {
	if l.Type.Pitched() && !set(l.Frequency) {
		return nil, fmt.Errorf("%w: %s layer %q", ErrMissingFrequency, l.Type, l.ID)
	}
	switch l.Type {
	case layer.TypeNoise:
		return []VoicePlan{planNoise(l, m)}, nil
	case layer.TypePad:
		voices := make([]VoicePlan, len(padDetune))
		for i := range voices {
			voices[i] = planPad(l, i, m)
		}
		return voices, nil
	case layer.TypePulse:
		return []VoicePlan{planPulse(l, m)}, nil
	case layer.TypeBinaural:
		return []VoicePlan{planBinaural(l, 0, m), planBinaural(l, 1, m)}, nil
	}
	return nil, fmt.Errorf("%w: %q (layer %s)", ErrUnknownLayerType, l.Type, l.ID)
}

// planVoice recomputes a single voice's targets after a mix change.
func planVoice(l layer.SoundLayer, index int, m mix) VoicePlan {
	switch l.Type {
	case layer.TypeNoise:
		return planNoise(l, m)
	case layer.TypePad:
		return planPad(l, index, m)
	case layer.TypePulse:
		return planPulse(l, m)
	default:
		return planBinaural(l, index, m)
	}
}

func planNoise(l layer.SoundLayer, m mix) VoicePlan {
	v := VoicePlan{
		Key:      l.ID,
		LayerID:  l.ID,
		Type:     l.Type,
		Waveform: WaveNoise,
		Filtered: true,
		Cutoff:   layer.Or(l.FilterFreq, defaultNoiseCutoff) + noiseCutoffSpan*m.intensity,
		Q:        layer.Or(l.Resonance, defaultNoiseQ) + noiseQSpan*m.intensity,
		Gain:     l.Volume * m.volume * (0.5 + 0.5*m.intensity),
		Send:     sendLevel(m.intensity, noiseSendLevel, noiseSendGate),
	}
	if set(l.LFORate) && set(l.LFODepth) {
		v.LFORate, v.LFODepth, v.LFOTarget = *l.LFORate, v.Cutoff * *l.LFODepth, ModCutoff
	}
	return v
}

func planPad(l layer.SoundLayer, i int, m mix) VoicePlan {
	cutoff := layer.Or(l.FilterFreq, defaultPadCutoff)
	v := VoicePlan{
		Key:       fmt.Sprintf("%s_%d", l.ID, i),
		LayerID:   l.ID,
		Type:      l.Type,
		Index:     i,
		Waveform:  WaveSine,
		Frequency: *l.Frequency,
		Detune:    padDetune[i],
		Filtered:  true,
		Cutoff:    cutoff,
		Q:         layer.Or(l.Resonance, defaultPadQ),
		Gain:      l.Volume * m.volume * padWeights[i],
		Send:      sendLevel(m.intensity, reverbSendLevel, reverbSendGate),
	}
	if set(l.LFORate) && set(l.LFODepth) {
		v.LFORate, v.LFODepth, v.LFOTarget = *l.LFORate, cutoff * *l.LFODepth, ModCutoff
	}
	return v
}

func planPulse(l layer.SoundLayer, m mix) VoicePlan {
	v := VoicePlan{
		Key:       l.ID,
		LayerID:   l.ID,
		Type:      l.Type,
		Waveform:  WaveTriangle,
		Frequency: *l.Frequency,
		Filtered:  true,
		Cutoff:    layer.Or(l.FilterFreq, defaultPulseCutoff),
		Q:         layer.Or(l.Resonance, defaultPulseQ),
		Gain:      l.Volume * m.volume * (0.3 + 0.4*m.intensity),
		Send:      sendLevel(m.intensity, reverbSendLevel, reverbSendGate),
	}
	if set(l.LFORate) {
		depth := defaultPulseLFO
		if set(l.LFODepth) {
			depth = *l.LFODepth
		}
		v.LFORate, v.LFODepth, v.LFOTarget = *l.LFORate, v.Gain*depth, ModGain
	}
	return v
}

// planBinaural places index 0 on the left carrier and index 1 on the right,
// offset by the beat frequency. Only the left voice owns the reverb send of
// the merged pair.
func planBinaural(l layer.SoundLayer, i int, m mix) VoicePlan {
	v := VoicePlan{
		LayerID:   l.ID,
		Type:      l.Type,
		Index:     i,
		Waveform:  WaveSine,
		Frequency: binauralCarrier,
		Gain:      l.Volume * m.volume,
	}
	if i == 0 {
		v.Key = l.ID + "_left"
		v.Send = sendLevel(m.intensity, reverbSendLevel, reverbSendGate)
	} else {
		v.Key = l.ID + "_right"
		v.Frequency += *l.Frequency
	}
	return v
}

// sendLevel is intensity*level above the gate and zero at or below it.
func sendLevel(intensity, level, gate float64) float64 {
	if intensity <= gate {
		return 0
	}
	return intensity * level
}

// set reports whether an optional field holds a usable non-zero value.
func set(p *float64) bool {
	return p != nil && *p > 0
}
