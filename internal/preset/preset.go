// Package preset stores named soundscapes: a mode, a layer set and the
// session-level mix. Presets persist as YAML and travel as JSON.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/linuxmatters/lullwave/internal/audio"
	"github.com/linuxmatters/lullwave/internal/layer"
)

// DefaultFileName is the preset file placed next to the config file.
const DefaultFileName = "presets.yaml"

var (
	ErrNotFound  = errors.New("preset not found")
	ErrEmptyName = errors.New("preset name is empty")
)

// Preset is one saved soundscape.
type Preset struct {
	ID           string             `yaml:"id" json:"id"`
	Name         string             `yaml:"name" json:"name"`
	Mode         layer.Mode         `yaml:"mode" json:"mode"`
	Layers       []layer.SoundLayer `yaml:"layers" json:"layers"`
	Volume       float64            `yaml:"volume" json:"volume"`
	NoiseType    audio.NoiseColor   `yaml:"noiseType" json:"noiseType"`
	BinauralFreq float64            `yaml:"binauralFreq" json:"binauralFreq"`
	CreatedAt    time.Time          `yaml:"createdAt" json:"createdAt"`
}

// Validate checks a preset before it is stored.
func (p Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if _, err := layer.ParseMode(string(p.Mode)); err != nil {
		return err
	}
	if p.Volume < 0 || p.Volume > 1 {
		return fmt.Errorf("preset %q: %w", p.Name, layer.ErrVolumeRange)
	}
	if _, err := audio.ParseNoiseColor(string(p.NoiseType)); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	if err := layer.ValidateSet(p.Layers); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	return nil
}

// Store is a preset collection backed by a YAML file. A Store with an empty
// path lives in memory only.
type Store struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	presets []Preset
}

type storeFile struct {
	Presets []Preset `yaml:"presets"`
}

// Open loads the store at path. A missing file gives an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	var f storeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets %s: %w", path, err)
	}
	s.presets = f.Presets
	return s, nil
}

// Path of the backing file.
func (s *Store) Path() string { return s.path }

// List returns copies of all presets in insertion order.
func (s *Store) List() []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Preset, len(s.presets))
	for i, p := range s.presets {
		out[i] = clonePreset(p)
	}
	return out
}

// Add validates p, assigns an ID and creation time when missing, stores and
// persists it. The stored preset is returned.
func (s *Store) Add(p Preset) (Preset, error) {
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p = clonePreset(p)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.ID == "" || s.indexLocked(p.ID) >= 0 {
		p.ID = s.newIDLocked(p.CreatedAt)
	}
	s.presets = append(s.presets, p)
	if err := s.saveLocked(); err != nil {
		s.presets = s.presets[:len(s.presets)-1]
		return Preset{}, err
	}
	return clonePreset(p), nil
}

// Delete removes the preset with the given ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := s.presets[i]
	s.presets = append(s.presets[:i], s.presets[i+1:]...)
	if err := s.saveLocked(); err != nil {
		s.presets = append(s.presets[:i], append([]Preset{removed}, s.presets[i:]...)...)
		return err
	}
	return nil
}

// Find returns the preset with the given ID or name.
func (s *Store) Find(key string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(key); i >= 0 {
		return clonePreset(s.presets[i]), nil
	}
	for _, p := range s.presets {
		if strings.EqualFold(p.Name, key) {
			return clonePreset(p), nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Export writes every preset as an indented JSON array.
func (s *Store) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.List()); err != nil {
		return fmt.Errorf("failed to export presets: %w", err)
	}
	return nil
}

// Import reads a JSON array of presets and adds each valid one, giving it a
// fresh ID when its ID is already taken. Invalid entries are skipped and
// reported together; the count of imported presets is returned.
func (s *Store) Import(r io.Reader) (int, error) {
	var in []Preset
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return 0, fmt.Errorf("failed to import presets: %w", err)
	}
	var errs []error
	n := 0
	for _, p := range in {
		if _, err := s.Add(p); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

func (s *Store) indexLocked(id string) int {
	for i, p := range s.presets {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) newIDLocked(t time.Time) string {
	ms := t.UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if s.indexLocked(id) < 0 {
			return id
		}
		ms++
	}
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(storeFile{Presets: s.presets})
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preset directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	return nil
}

func clonePreset(p Preset) Preset {
	p.Layers = layer.CloneLayers(p.Layers)
	return p
}
