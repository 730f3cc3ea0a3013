package engine

import (
	"errors"
	"fmt"

	"github.com/linuxmatters/lullwave/internal/graph"
	"github.com/linuxmatters/lullwave/internal/layer"
)

// outlet is any node that can feed another node.
type outlet interface {
	graph.Node
	Kind() string
	Connect(dst graph.Node) error
	Disconnect()
}

// source is a schedulable sound source.
type source interface {
	outlet
	Start(t float64) error
	Stop(t float64) error
}

// voice is one registry entry of the live graph.
type voice struct {
	key    string
	layer  layer.SoundLayer
	index  int
	src    source
	gain   *graph.Gain
	filter *graph.BiquadFilter
	mod    *modulator
	out    outlet // node routed to the bus; nil when a sibling voice routes it
	send   *graph.Gain
	nodes  []outlet
}

// buildAllLocked builds every enabled effective layer. A layer that fails is
// logged and skipped.
func (s *Synth) buildAllLocked() {
	m := s.mix()
	for _, l := range s.effective {
		if !l.Enabled {
			continue
		}
		voices, err := s.build(l, m)
		if err == nil {
			err = s.claimKeys(voices)
		}
		if err != nil {
			s.log.Warnf("Skipping layer %s: %v", l.ID, err)
			continue
		}
		for _, v := range voices {
			s.voices[v.key] = v
			s.order = append(s.order, v.key)
		}
		s.log.Debugf("Built layer %s (%d voices)", l.ID, len(voices))
	}
}

// claimKeys checks that no voice collides with a registered one. Derived
// keys such as pad_0 can clash with another layer's ID; on a clash the new
// voices are released.
func (s *Synth) claimKeys(voices []*voice) error {
	for _, v := range voices {
		if _, taken := s.voices[v.key]; taken {
			now := s.ctx.CurrentTime()
			for _, v := range voices {
				v.release(now)
			}
			return fmt.Errorf("%w: %s", ErrDuplicateVoice, v.key)
		}
	}
	return nil
}

// rebuildLocked tears every voice down before building replacements.
func (s *Synth) rebuildLocked() {
	s.teardownLocked()
	s.buildAllLocked()
	s.log.Infof("Rebuilt %d voices", len(s.voices))
}

// teardownLocked stops and disconnects every voice. Per-node failures are
// collected and logged; the registry is cleared regardless.
func (s *Synth) teardownLocked() {
	if len(s.order) == 0 {
		return
	}
	now := s.ctx.CurrentTime()
	var errs []error
	for _, key := range s.order {
		errs = append(errs, s.voices[key].release(now)...)
	}
	clear(s.voices)
	s.order = s.order[:0]
	if err := errors.Join(errs...); err != nil {
		s.log.Debugf("Teardown: %v", err)
	}
}

// build dispatches one layer to its synthesizer.
func (s *Synth) build(l layer.SoundLayer, m mix) ([]*voice, error) {
	plans, err := planLayer(l, m)
	if err != nil {
		return nil, err
	}
	var voices []*voice
	switch l.Type {
	case layer.TypeNoise:
		voices, err = s.buildNoise(l, plans[0])
	case layer.TypePad:
		voices, err = s.buildPad(l, plans)
	case layer.TypePulse:
		voices, err = s.buildPulse(l, plans[0])
	case layer.TypeBinaural:
		voices, err = s.buildBinaural(l, plans)
	}
	if err != nil {
		now := s.ctx.CurrentTime()
		for _, v := range voices {
			v.release(now)
		}
		return nil, err
	}
	return voices, nil
}

func (s *Synth) buildNoise(l layer.SoundLayer, p VoicePlan) ([]*voice, error) {
	if s.noise == nil {
		return nil, ErrNoNoiseBuffer
	}
	src, err := s.ctx.NewBufferSource(s.noise, true)
	if err != nil {
		return nil, fmt.Errorf("noise source: %w", err)
	}
	v, err := s.filteredVoice(l, p, src)
	return []*voice{v}, err
}

func (s *Synth) buildPad(l layer.SoundLayer, plans []VoicePlan) ([]*voice, error) {
	var voices []*voice
	for _, p := range plans {
		osc := s.ctx.NewOscillator(graph.Sine)
		osc.Frequency.SetValue(p.Frequency)
		osc.Detune.SetValue(p.Detune)
		v, err := s.filteredVoice(l, p, osc)
		voices = append(voices, v)
		if err != nil {
			return voices, err
		}
	}
	return voices, nil
}

func (s *Synth) buildPulse(l layer.SoundLayer, p VoicePlan) ([]*voice, error) {
	osc := s.ctx.NewOscillator(graph.Triangle)
	osc.Frequency.SetValue(p.Frequency)
	v, err := s.filteredVoice(l, p, osc)
	return []*voice{v}, err
}

// filteredVoice wires src → lowpass → gain → bus, with the gain ramping up
// from silence and an optional modulator on the cutoff or the gain.
func (s *Synth) filteredVoice(l layer.SoundLayer, p VoicePlan, src source) (*voice, error) {
	now := s.ctx.CurrentTime()
	v := &voice{key: p.Key, layer: l.Clone(), index: p.Index, src: src}
	v.filter = s.ctx.NewBiquadFilter(graph.Lowpass)
	v.gain = s.ctx.NewGain()
	v.out = v.gain
	v.nodes = append(v.nodes, src, v.filter, v.gain)

	v.filter.Frequency.SetValue(p.Cutoff)
	v.filter.Q.SetValue(p.Q)
	v.gain.Gain.SetValueAtTime(0, now)
	v.gain.Gain.SetTargetAtTime(p.Gain, now, rampTau)

	if err := src.Connect(v.filter); err != nil {
		return v, err
	}
	if err := v.filter.Connect(v.gain); err != nil {
		return v, err
	}
	if err := s.modulate(v, p); err != nil {
		return v, err
	}
	if err := s.connectToOutput(v, p); err != nil {
		return v, err
	}
	return v, src.Start(now)
}

// buildBinaural builds the left and right carriers merged into one stereo
// pair. Both voices reference the merger; the left one owns its send.
func (s *Synth) buildBinaural(l layer.SoundLayer, plans []VoicePlan) ([]*voice, error) {
	now := s.ctx.CurrentTime()
	merger := s.ctx.NewChannelMerger()
	var voices []*voice
	for _, p := range plans {
		osc := s.ctx.NewOscillator(graph.Sine)
		osc.Frequency.SetValue(p.Frequency)
		v := &voice{key: p.Key, layer: l.Clone(), index: p.Index, src: osc, gain: s.ctx.NewGain()}
		v.gain.Gain.SetValue(p.Gain)
		v.nodes = append(v.nodes, osc, v.gain, merger)
		voices = append(voices, v)

		if err := osc.Connect(v.gain); err != nil {
			return voices, err
		}
		if err := v.gain.ConnectInput(merger, p.Index); err != nil {
			return voices, err
		}
	}
	voices[0].out = merger
	if err := s.connectToOutput(voices[0], plans[0]); err != nil {
		return voices, err
	}
	for _, v := range voices {
		if err := v.src.Start(now); err != nil {
			return voices, err
		}
	}
	return voices, nil
}

func (s *Synth) modulate(v *voice, p VoicePlan) error {
	var target *graph.Param
	switch p.LFOTarget {
	case ModCutoff:
		target = v.filter.Frequency
	case ModGain:
		target = v.gain.Gain
	default:
		return nil
	}
	mod, err := attach(s.ctx, p.LFORate, p.LFODepth, target)
	if err != nil {
		return err
	}
	v.mod = mod
	v.nodes = append(v.nodes, mod.osc, mod.depth)
	return nil
}

// connectToOutput routes the voice into the master gain, adding a reverb
// send when the intensity clears the gate.
func (s *Synth) connectToOutput(v *voice, p VoicePlan) error {
	if p.Send > 0 {
		send, err := s.bus.newSend(v.out, p.Send)
		if err != nil {
			return err
		}
		v.send = send
		v.nodes = append(v.nodes, send)
	}
	return v.out.Connect(s.bus.master)
}

// retarget ramps every parameter of the voice to the plan for m. A send is
// created once the intensity first clears the gate.
func (v *voice) retarget(b *bus, m mix, now float64) error {
	p := planVoice(v.layer, v.index, m)
	v.gain.Gain.SetTargetAtTime(p.Gain, now, rampTau)
	if v.filter != nil {
		v.filter.Frequency.SetTargetAtTime(p.Cutoff, now, rampTau)
		v.filter.Q.SetTargetAtTime(p.Q, now, rampTau)
	}
	if v.mod != nil {
		v.mod.depth.Gain.SetTargetAtTime(p.LFODepth, now, rampTau)
	}
	if v.out == nil {
		return nil
	}
	switch {
	case v.send != nil:
		v.send.Gain.SetTargetAtTime(p.Send, now, rampTau)
	case p.Send > 0:
		send, err := b.newSend(v.out, p.Send)
		if err != nil {
			return fmt.Errorf("%s reverb send: %w", v.key, err)
		}
		v.send = send
		v.nodes = append(v.nodes, send)
	}
	return nil
}

// release stops the voice's sources and disconnects all of its nodes.
func (v *voice) release(now float64) []error {
	var errs []error
	if v.src != nil {
		if err := v.src.Stop(now); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", v.key, v.src.Kind(), err))
		}
	}
	if v.mod != nil {
		if err := v.mod.osc.Stop(now); err != nil {
			errs = append(errs, fmt.Errorf("%s modulator %s: %w", v.key, v.mod.osc.Kind(), err))
		}
	}
	for _, n := range v.nodes {
		n.Disconnect()
	}
	return errs
}
