// Package ui provides the Bubbletea terminal user interface for lullwave
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/lullwave/internal/layer"
	"github.com/linuxmatters/lullwave/internal/preset"
	"github.com/linuxmatters/lullwave/internal/session"
)

// Step sizes for the adjustment keys
const (
	volumeStep    = 0.05
	intensityStep = 0.1
	binauralStep  = 1.0 // Hz
	minBinaural   = 1.0
	maxBinaural   = 45.0
)

// Controller is the session surface the UI drives. *session.Session
// satisfies it.
type Controller interface {
	Snapshots() <-chan session.Snapshot
	Done() <-chan struct{}
	Toggle() error
	NudgeVolume(delta float64) error
	NudgeIntensity(delta float64) error
	CycleNoiseColor() error
	NextMode() error
	ToggleAdapt() error
	ToggleLayer(id string) error
	SetBinauralFreq(hz float64) error
	Preset(name string) (preset.Preset, error)
}

// PresetSaver stores presets. *preset.Store satisfies it.
type PresetSaver interface {
	Add(p preset.Preset) (preset.Preset, error)
}

// Model is the Bubbletea model for the session screen
type Model struct {
	ctrl    Controller
	presets PresetSaver
	now     func() time.Time

	Snapshot session.Snapshot
	Ready    bool // first snapshot received
	Status   string
	Err      error
	Done     bool

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates the UI model. presets may be nil to disable saving.
func NewModel(ctrl Controller, presets PresetSaver) Model {
	return Model{ctrl: ctrl, presets: presets, now: time.Now}
}

// Init starts listening for session snapshots
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.ctrl)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case SnapshotMsg:
		m.Snapshot = msg.Snapshot
		m.Ready = true
		return m, waitForSnapshot(m.ctrl)

	case CommandDoneMsg:
		m.Err = msg.Err
		if msg.Err == nil && msg.Status != "" {
			m.Status = msg.Status
		}

	case SessionEndedMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.ctrl
	switch key := msg.String(); key {
	case "q", "ctrl+c", "esc":
		m.Done = true
		return m, tea.Quit
	case " ", "space", "enter":
		return m, run("", c.Toggle)
	case "+", "=", "up":
		return m, run("", func() error { return c.NudgeVolume(volumeStep) })
	case "-", "_", "down":
		return m, run("", func() error { return c.NudgeVolume(-volumeStep) })
	case "]", "right":
		return m, run("", func() error { return c.NudgeIntensity(intensityStep) })
	case "[", "left":
		return m, run("", func() error { return c.NudgeIntensity(-intensityStep) })
	case "n":
		return m, run("Noise colour changed", c.CycleNoiseColor)
	case "m":
		return m, run("Mode changed", c.NextMode)
	case "a":
		return m, run("Adaptation toggled", c.ToggleAdapt)
	case "b", "B":
		hz := m.Snapshot.BinauralFreq + binauralStep
		if key == "B" {
			hz = m.Snapshot.BinauralFreq - binauralStep
		}
		hz = max(minBinaural, min(hz, maxBinaural))
		return m, run(fmt.Sprintf("Binaural beat %.0f Hz", hz), func() error { return c.SetBinauralFreq(hz) })
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(key[0] - '1')
		if i >= len(m.Snapshot.Base) {
			return m, nil
		}
		id := m.Snapshot.Base[i].ID
		return m, run("Toggled "+id, func() error { return c.ToggleLayer(id) })
	case "p":
		return m, m.savePreset()
	}
	return m, nil
}

// savePreset captures the session under a name built from the mode and time
func (m Model) savePreset() tea.Cmd {
	if m.presets == nil {
		return func() tea.Msg { return CommandDoneMsg{Err: fmt.Errorf("no preset store configured")} }
	}
	name := fmt.Sprintf("%s %s", m.Snapshot.Mode.Title(), m.now().Format("2006-01-02 15:04"))
	ctrl, store := m.ctrl, m.presets
	return func() tea.Msg {
		p, err := ctrl.Preset(name)
		if err != nil {
			return CommandDoneMsg{Err: err}
		}
		if _, err := store.Add(p); err != nil {
			return CommandDoneMsg{Err: err}
		}
		return CommandDoneMsg{Status: "Saved preset " + name}
	}
}

// View renders the UI
func (m Model) View() string {
	if !m.Ready {
		return "Starting audio engine...\n"
	}
	return renderSessionView(m)
}

// run wraps a blocking session command
func run(status string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return CommandDoneMsg{Status: status, Err: fn()}
	}
}

// waitForSnapshot creates a command that waits for the next session state
func waitForSnapshot(c Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-c.Snapshots():
			return SnapshotMsg{Snapshot: snap}
		case <-c.Done():
			return SessionEndedMsg{}
		}
	}
}

// layerIcon marks a layer as off, on, or switched by adaptation
func layerIcon(base, effective bool) string {
	switch {
	case base && effective:
		return "●"
	case effective:
		return "◐" // enabled by time of day
	case base:
		return "◌" // disabled by time of day
	default:
		return "○"
	}
}

// effectiveEnabled reports whether the effective set enables id
func effectiveEnabled(layers []layer.SoundLayer, id string) bool {
	i := layer.Find(layers, id)
	return i >= 0 && layers[i].Enabled
}
