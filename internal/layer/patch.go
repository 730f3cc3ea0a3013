package layer

import "fmt"

// Patch is a partial update of one layer. Nil fields are left untouched.
type Patch struct {
	Volume     *float64
	Frequency  *float64
	Enabled    *bool
	FilterFreq *float64
	Resonance  *float64
	LFORate    *float64
	LFODepth   *float64
}

// Apply returns a copy of l with the patch applied. l is not modified.
func (p Patch) Apply(l SoundLayer) SoundLayer {
	out := l.Clone()
	if p.Volume != nil {
		out.Volume = clamp01(*p.Volume)
	}
	if p.Frequency != nil {
		out.Frequency = clonePtr(p.Frequency)
	}
	if p.Enabled != nil {
		out.Enabled = *p.Enabled
	}
	if p.FilterFreq != nil {
		out.FilterFreq = clonePtr(p.FilterFreq)
	}
	if p.Resonance != nil {
		out.Resonance = clonePtr(p.Resonance)
	}
	if p.LFORate != nil {
		out.LFORate = clonePtr(p.LFORate)
	}
	if p.LFODepth != nil {
		out.LFODepth = clonePtr(p.LFODepth)
	}
	return out
}

// PatchSet applies a patch to the layer with the given ID and returns the new
// set. The input set is not modified.
func PatchSet(layers []SoundLayer, id string, p Patch) ([]SoundLayer, error) {
	i := Find(layers, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	out := CloneLayers(layers)
	out[i] = p.Apply(out[i])
	return out, nil
}

// Bool returns a pointer to b, for building patches in code.
func Bool(b bool) *bool {
	return &b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
