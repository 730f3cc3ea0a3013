package session

import (
	"context"
	"fmt"
	"time"

	"github.com/linuxmatters/lullwave/internal/audio"
	"github.com/linuxmatters/lullwave/internal/layer"
)

// Play starts the engine if it is not already playing.
func (s *Session) Play() error {
	return s.do(s.play)
}

// Pause stops the engine, keeping the countdown position.
func (s *Session) Pause() error {
	return s.do(func(context.Context) error {
		s.pause()
		return nil
	})
}

// Toggle switches between playing and paused.
func (s *Session) Toggle() error {
	return s.do(func(ctx context.Context) error {
		if s.state.Playing {
			s.pause()
			return nil
		}
		return s.play(ctx)
	})
}

func (s *Session) play(ctx context.Context) error {
	if s.state.Playing {
		return nil
	}
	s.player.UpdateSettings(s.settings())
	if err := s.player.Start(ctx); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	s.state.Playing = true
	s.log.Infof("Playing %s, %s left", s.state.Mode, s.state.Length-s.state.Elapsed)
	return nil
}

func (s *Session) pause() {
	if !s.state.Playing {
		return
	}
	s.player.Stop()
	s.state.Playing = false
	s.log.Infof("Paused at %s", s.state.Elapsed)
}

// SetVolume ramps the master volume. Values are clamped to [0, 1].
func (s *Session) SetVolume(v float64) error {
	return s.do(func(context.Context) error {
		s.state.Volume = clamp01(v)
		s.player.UpdateVolume(s.state.Volume)
		return nil
	})
}

// NudgeVolume changes the volume by delta.
func (s *Session) NudgeVolume(delta float64) error {
	return s.do(func(context.Context) error {
		s.state.Volume = clamp01(s.state.Volume + delta)
		s.player.UpdateVolume(s.state.Volume)
		return nil
	})
}

// SetIntensity ramps filters, gains and reverb to a new intensity.
func (s *Session) SetIntensity(i float64) error {
	return s.do(func(context.Context) error {
		s.state.Intensity = clamp01(i)
		s.player.UpdateIntensity(s.state.Intensity)
		return nil
	})
}

// NudgeIntensity changes the intensity by delta.
func (s *Session) NudgeIntensity(delta float64) error {
	return s.do(func(context.Context) error {
		s.state.Intensity = clamp01(s.state.Intensity + delta)
		s.player.UpdateIntensity(s.state.Intensity)
		return nil
	})
}

// SetNoiseColor regenerates the shared noise loop.
func (s *Session) SetNoiseColor(c audio.NoiseColor) error {
	return s.do(func(context.Context) error {
		return s.setNoiseColor(c)
	})
}

// CycleNoiseColor moves to the next noise colour.
func (s *Session) CycleNoiseColor() error {
	return s.do(func(context.Context) error {
		return s.setNoiseColor(s.state.NoiseColor.Next())
	})
}

func (s *Session) setNoiseColor(c audio.NoiseColor) error {
	if _, err := audio.ParseNoiseColor(string(c)); err != nil {
		return err
	}
	if err := s.player.UpdateNoiseColor(c); err != nil {
		return err
	}
	s.state.NoiseColor = c
	return nil
}

// SetBinauralFreq retunes every binaural layer to hz.
func (s *Session) SetBinauralFreq(hz float64) error {
	return s.do(func(context.Context) error {
		if hz <= 0 {
			return fmt.Errorf("binaural frequency must be positive, got %g", hz)
		}
		s.state.BinauralFreq = hz
		s.state.Base = withBinauralFreq(s.state.Base, hz)
		s.player.UpdateLayers(s.state.Base)
		return nil
	})
}

// SetMode switches the session mode and re-applies the adaptation policy.
func (s *Session) SetMode(m layer.Mode) error {
	return s.do(func(context.Context) error {
		if _, err := layer.ParseMode(string(m)); err != nil {
			return err
		}
		s.state.Mode = m
		s.player.UpdateSettings(s.settings())
		return nil
	})
}

// NextMode cycles to the following mode.
func (s *Session) NextMode() error {
	return s.do(func(context.Context) error {
		s.state.Mode = s.state.Mode.Next()
		s.player.UpdateSettings(s.settings())
		return nil
	})
}

// SetAdaptToTime switches time-of-day adaptation on or off.
func (s *Session) SetAdaptToTime(on bool) error {
	return s.do(func(context.Context) error {
		s.state.AdaptToTime = on
		s.player.UpdateSettings(s.settings())
		return nil
	})
}

// ToggleAdapt flips time-of-day adaptation.
func (s *Session) ToggleAdapt() error {
	return s.do(func(context.Context) error {
		s.state.AdaptToTime = !s.state.AdaptToTime
		s.player.UpdateSettings(s.settings())
		return nil
	})
}

// SetLength changes the session length. The countdown restarts if the new
// length is already used up.
func (s *Session) SetLength(d time.Duration) error {
	return s.do(func(context.Context) error {
		if d <= 0 {
			return fmt.Errorf("session length must be positive, got %s", d)
		}
		s.state.Length = d
		if s.state.Elapsed >= d {
			s.state.Elapsed = 0
		}
		s.player.UpdateSettings(s.settings())
		return nil
	})
}

// UpdateLayer patches one base layer.
func (s *Session) UpdateLayer(id string, p layer.Patch) error {
	return s.do(func(context.Context) error {
		next, err := layer.PatchSet(s.state.Base, id, p)
		if err != nil {
			return err
		}
		s.state.Base = next
		s.player.UpdateLayers(s.state.Base)
		return nil
	})
}

// ToggleLayer flips the enabled flag of one base layer.
func (s *Session) ToggleLayer(id string) error {
	return s.do(func(context.Context) error {
		i := layer.Find(s.state.Base, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", layer.ErrUnknownLayer, id)
		}
		next, err := layer.PatchSet(s.state.Base, id, layer.Patch{Enabled: layer.Bool(!s.state.Base[i].Enabled)})
		if err != nil {
			return err
		}
		s.state.Base = next
		s.player.UpdateLayers(s.state.Base)
		return nil
	})
}

// SetLayers replaces the base layer set.
func (s *Session) SetLayers(layers []layer.SoundLayer) error {
	return s.do(func(context.Context) error {
		if err := layer.ValidateSet(layers); err != nil {
			return err
		}
		s.state.Base = layer.CloneLayers(layers)
		s.state.BinauralFreq = binauralFreq(s.state.Base)
		s.player.UpdateLayers(s.state.Base)
		return nil
	})
}
