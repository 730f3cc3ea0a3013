package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linuxmatters/lullwave/internal/adaptive"
	"github.com/linuxmatters/lullwave/internal/audio"
	"github.com/linuxmatters/lullwave/internal/config"
	"github.com/linuxmatters/lullwave/internal/layer"
	"github.com/linuxmatters/lullwave/internal/locale"
	"github.com/linuxmatters/lullwave/internal/preset"
	"github.com/linuxmatters/lullwave/internal/session"
)

func TestApplyFlags(t *testing.T) {
	vol, intensity := 0.3, 0.9
	cfg := config.DefaultConfig()
	err := applyFlags(cfg, &CLI{
		Mode:      "sleep",
		Minutes:   45,
		Volume:    &vol,
		Intensity: &intensity,
		Noise:     "brown",
		Backend:   "null",
		NoAdapt:   true,
		LogLevel:  "debug",
	})
	if err != nil {
		t.Fatalf("applyFlags() error = %v", err)
	}
	if cfg.Session.Mode != "sleep" || cfg.Session.LengthMinutes != 45 || cfg.Session.AdaptToTime {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Audio.Volume != 0.3 || cfg.Audio.Intensity != 0.9 || cfg.Audio.NoiseColor != "brown" || cfg.Audio.Backend != "null" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestApplyFlagsKeepsConfigWhenUnset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Audio.Volume = 0.4
	if err := applyFlags(cfg, &CLI{}); err != nil {
		t.Fatalf("applyFlags() error = %v", err)
	}
	if cfg.Audio.Volume != 0.4 || !cfg.Session.AdaptToTime {
		t.Errorf("unset flags changed the config: %+v", cfg)
	}
}

func TestApplyFlagsRejectsBadValues(t *testing.T) {
	for name, c := range map[string]*CLI{
		"mode":  {Mode: "party"},
		"noise": {Noise: "purple"},
	} {
		if err := applyFlags(config.DefaultConfig(), c); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.yaml")
	if _, _, err := loadConfig(missing); err == nil {
		t.Error("explicit missing config should fail")
	}

	path := filepath.Join(dir, "lullwave.yaml")
	cfg := config.DefaultConfig()
	cfg.Session.Mode = "relax"
	if err := config.SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	gotPath, got, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if gotPath != path || got.Session.Mode != "relax" {
		t.Errorf("loadConfig() = %s, %+v", gotPath, got.Session)
	}
}

func TestPresetPath(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := presetPath(cfg, "/home/u/.config/lullwave/lullwave.yaml"); got != "/home/u/.config/lullwave/presets.yaml" {
		t.Errorf("presetPath() = %s", got)
	}
	cfg.Presets.Path = "/tmp/p.yaml"
	if got := presetPath(cfg, "/x/lullwave.yaml"); got != "/tmp/p.yaml" {
		t.Errorf("presetPath() = %s", got)
	}
}

func TestPresetCommands(t *testing.T) {
	dir := t.TempDir()
	store, err := preset.Open(filepath.Join(dir, "presets.yaml"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := store.Add(preset.Preset{Name: "Deep Night", Mode: layer.ModeSleep, Layers: layer.DefaultLayers(), Volume: 0.5}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if handled, err := presetCommand(&CLI{}, store); handled || err != nil {
		t.Errorf("no preset flag: handled=%v err=%v", handled, err)
	}

	export := filepath.Join(dir, "export.json")
	if handled, err := presetCommand(&CLI{ExportPresets: export}, store); !handled || err != nil {
		t.Fatalf("export: handled=%v err=%v", handled, err)
	}
	b, _ := os.ReadFile(export)
	if !strings.Contains(string(b), `"name": "Deep Night"`) {
		t.Errorf("export = %s", b)
	}

	if _, err := presetCommand(&CLI{DeletePreset: "deep night"}, store); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if len(store.List()) != 0 {
		t.Fatalf("preset not deleted: %v", store.List())
	}

	if _, err := presetCommand(&CLI{ImportPresets: export}, store); err != nil {
		t.Fatalf("import error = %v", err)
	}
	if _, err := store.Find("Deep Night"); err != nil {
		t.Errorf("imported preset missing: %v", err)
	}
}

func TestImportPresetsReportsFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := preset.Open(filepath.Join(dir, "presets.yaml"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"name": "", "mode": "sleep", "volume": 0.5}]`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	handled, err := presetCommand(&CLI{ImportPresets: bad}, store)
	if !handled || err == nil {
		t.Fatalf("import of invalid preset: handled=%v err=%v", handled, err)
	}
	if !strings.Contains(err.Error(), "imported 0 preset(s)") {
		t.Errorf("error = %v", err)
	}
}

func TestInspect(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.AdaptToTime = true
	night := func() time.Time { return time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC) }
	clock := adaptive.NewWatcher(night, time.UTC, 0)
	loc := locale.Info{Zone: "UTC", MainsHz: 50, Location: time.UTC}

	var sb strings.Builder
	inspect(&sb, cfg, layer.ModeSleep, audio.Pink, loc, clock, nil)
	out := sb.String()
	for _, want := range []string{"INSPECT: Sleep mode", "night (UTC, 50 Hz mains)", "binaural_left", "binaural_right", "pad_0"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectUsesPreset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.AdaptToTime = false
	clock := adaptive.NewWatcher(nil, time.UTC, 0)
	p := &preset.Preset{Name: "quiet", Mode: layer.ModeFocus, Volume: 0.2, NoiseType: audio.Brown}

	var sb strings.Builder
	inspect(&sb, cfg, layer.ModeSleep, audio.Pink, locale.Info{}, clock, p)
	out := sb.String()
	if !strings.Contains(out, "INSPECT: Focus mode") || !strings.Contains(out, "Noise:       brown") {
		t.Errorf("preset not applied:\n%s", out)
	}
}

func TestReportData(t *testing.T) {
	start := time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)
	final := session.Snapshot{
		Mode:       layer.ModeSleep,
		Length:     30 * time.Minute,
		Played:     30 * time.Minute,
		Completed:  true,
		Volume:     0.5,
		Intensity:  0.5,
		NoiseColor: audio.Pink,
		TimeOfDay:  layer.Night,
		Layers:     layer.DefaultLayers(),
		Peak:       -1.5,
	}
	data := reportData(final, start, "null", 44100, locale.Info{Zone: "Europe/London", MainsHz: 50})
	if data.Backend != "null" || data.Zone != "Europe/London" || data.PeakReduction != -1.5 || !data.Completed {
		t.Errorf("reportData() = %+v", data)
	}
	if data.SessionLength != 30*time.Minute || data.NoiseColor != "pink" {
		t.Errorf("reportData() = %+v", data)
	}
}
