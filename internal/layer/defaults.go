package layer

// Session defaults.
const (
	DefaultVolume        = 0.7
	DefaultIntensity     = 0.5
	DefaultSessionLength = 15
	DefaultBinauralFreq  = 40.0
	DefaultMode          = ModeFocus
)

// DefaultLayers returns the stock soundscape: pink noise and a low pad
// enabled, with a pulse and a binaural pair ready to be switched on.
func DefaultLayers() []SoundLayer {
	return []SoundLayer{
		{
			ID:         "noise",
			Type:       TypeNoise,
			Volume:     0.3,
			Enabled:    true,
			FilterFreq: Float(1000),
			Resonance:  Float(1),
			LFORate:    Float(0.1),
			LFODepth:   Float(0.1),
		},
		{
			ID:         "pad",
			Type:       TypePad,
			Volume:     0.5,
			Frequency:  Float(80),
			Enabled:    true,
			FilterFreq: Float(800),
			Resonance:  Float(2),
			LFORate:    Float(0.05),
			LFODepth:   Float(0.2),
		},
		{
			ID:        "pulse",
			Type:      TypePulse,
			Volume:    0.2,
			Frequency: Float(60),
			Enabled:   false,
			LFORate:   Float(1),
			LFODepth:  Float(0.3),
		},
		{
			ID:        "binaural",
			Type:      TypeBinaural,
			Volume:    0.1,
			Frequency: Float(DefaultBinauralFreq),
			Enabled:   false,
		},
	}
}
