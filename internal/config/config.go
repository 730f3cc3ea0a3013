// Package config loads and saves the lullwave YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/linuxmatters/lullwave/internal/audio"
	"github.com/linuxmatters/lullwave/internal/layer"
)

// DefaultFileName is the config file name inside the user config directory.
const DefaultFileName = "lullwave.yaml"

// Audio output defaults.
const (
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 512
	DefaultBackend         = "portaudio"
)

// Config is the on-disk configuration.
type Config struct {
	Audio   AudioConfig        `yaml:"audio"`
	Session SessionConfig      `yaml:"session"`
	Layers  []layer.SoundLayer `yaml:"layers"`
	Presets PresetConfig       `yaml:"presets"`
	Log     LogConfig          `yaml:"log"`
}

// AudioConfig selects the output device and the starting mix.
type AudioConfig struct {
	Backend         string  `yaml:"backend"`
	SampleRate      int     `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	Volume          float64 `yaml:"volume"`
	Intensity       float64 `yaml:"intensity"`
	NoiseColor      string  `yaml:"noise_color"`
}

// SessionConfig holds the session driver settings.
type SessionConfig struct {
	Mode          string        `yaml:"mode"`
	LengthMinutes int           `yaml:"length_minutes"`
	AdaptToTime   bool          `yaml:"adapt_to_time"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

// PresetConfig locates the preset store.
type PresetConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the debug log.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Volume:          layer.DefaultVolume,
			Intensity:       layer.DefaultIntensity,
			NoiseColor:      string(audio.DefaultNoiseColor),
		},
		Session: SessionConfig{
			Mode:          string(layer.DefaultMode),
			LengthMinutes: layer.DefaultSessionLength,
			AdaptToTime:   true,
			PollInterval:  time.Minute,
		},
		Layers: layer.DefaultLayers(),
		Log: LogConfig{
			Level: "info",
			File:  "lullwave-debug.log",
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "lullwave", DefaultFileName), nil
}

// LoadConfig reads path over the defaults. A missing file returns the
// defaults together with an error wrapping fs.ErrNotExist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating the directory if needed.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks values a file may get wrong.
func (c *Config) Validate() error {
	var errs []error
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer))
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		errs = append(errs, fmt.Errorf("audio.volume: %w", layer.ErrVolumeRange))
	}
	if c.Audio.Intensity < 0 || c.Audio.Intensity > 1 {
		errs = append(errs, fmt.Errorf("audio.intensity must be within [0,1], got %g", c.Audio.Intensity))
	}
	if _, err := audio.ParseNoiseColor(c.Audio.NoiseColor); err != nil {
		errs = append(errs, err)
	}
	if _, err := layer.ParseMode(c.Session.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Session.LengthMinutes <= 0 {
		errs = append(errs, fmt.Errorf("session.length_minutes must be positive, got %d", c.Session.LengthMinutes))
	}
	if err := layer.ValidateSet(c.Layers); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
