package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/lullwave/internal/adaptive"
	"github.com/linuxmatters/lullwave/internal/audio"
	"github.com/linuxmatters/lullwave/internal/backend"
	"github.com/linuxmatters/lullwave/internal/cli"
	"github.com/linuxmatters/lullwave/internal/config"
	"github.com/linuxmatters/lullwave/internal/engine"
	"github.com/linuxmatters/lullwave/internal/layer"
	"github.com/linuxmatters/lullwave/internal/locale"
	"github.com/linuxmatters/lullwave/internal/logging"
	"github.com/linuxmatters/lullwave/internal/preset"
	"github.com/linuxmatters/lullwave/internal/session"
	"github.com/linuxmatters/lullwave/internal/ui"
)

var (
	version = "0.0.1"
)

// CLI defines the command-line interface
type CLI struct {
	Version   bool     `short:"v" help:"Show version information"`
	Config    string   `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	Mode      string   `short:"m" help:"Session mode"`
	Minutes   int      `short:"t" help:"Session length in minutes"`
	Volume    *float64 `placeholder:"0-1" help:"Master volume"`
	Intensity *float64 `placeholder:"0-1" help:"Brightness and reverb amount"`
	Noise     string   `short:"n" placeholder:"COLOR" help:"Noise colour: white, pink or brown"`
	Backend   string   `short:"b" help:"Audio output: portaudio, oto or null"`
	NoAdapt   bool     `help:"Disable time-of-day adaptation"`
	Zone      string   `placeholder:"TZ" help:"IANA timezone for time-of-day adaptation (default: system zone)"`
	Preset    string   `short:"p" help:"Start from a saved preset (name or ID)"`
	Paused    bool     `help:"Start paused"`
	Inspect   bool     `help:"Print the effective layers and voice graph, then exit"`
	Logs      bool     `help:"Save a session report when playback ends"`
	LogLevel  string   `help:"Debug log level: debug, info, warn or error"`

	ListPresets   bool   `help:"List saved presets and exit"`
	DeletePreset  string `placeholder:"ID" help:"Delete a saved preset and exit"`
	ExportPresets string `placeholder:"FILE" help:"Export presets as JSON (- for stdout) and exit"`
	ImportPresets string `type:"existingfile" placeholder:"FILE" help:"Import presets from JSON and exit"`
	WriteConfig   bool   `help:"Write the effective configuration to the config file and exit"`
}

func main() {
	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name("lullwave"),
		kong.Description("Generative ambient soundscapes for focus, relaxation and sleep"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if err := run(cliArgs); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

func run(cliArgs *CLI) error {
	cfgPath, cfg, err := loadConfig(cliArgs.Config)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, cliArgs); err != nil {
		return err
	}
	if cliArgs.WriteConfig {
		if err := config.SaveConfig(cfgPath, cfg); err != nil {
			return err
		}
		cli.PrintSuccess("Wrote " + cfgPath)
		return nil
	}

	store, err := preset.Open(presetPath(cfg, cfgPath))
	if err != nil {
		return err
	}
	if handled, err := presetCommand(cliArgs, store); handled || err != nil {
		return err
	}

	loc := locale.Detect()
	if cliArgs.Zone != "" {
		loc = locale.ForZone(cliArgs.Zone)
	}
	clock := adaptive.NewWatcher(nil, loc.Location, cfg.Session.PollInterval)

	mode, _ := layer.ParseMode(cfg.Session.Mode)
	noise, _ := audio.ParseNoiseColor(cfg.Audio.NoiseColor)

	var start *preset.Preset
	if cliArgs.Preset != "" {
		p, err := store.Find(cliArgs.Preset)
		if err != nil {
			return err
		}
		start = &p
	}

	if cliArgs.Inspect {
		inspect(os.Stdout, cfg, mode, noise, loc, clock, start)
		return nil
	}

	// Open debug log file
	log, err := logging.NewFileLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		logging.NewConsoleLogger("warn").Warnf("[MAIN] debug log disabled: %v", err)
		log = logging.Discard()
	}
	defer log.Close()
	log.Infof("[MAIN] lullwave %s, config %s, zone %q (%d Hz mains)", version, cfgPath, loc.Zone, loc.MainsHz)

	out, err := backend.New(cfg.Audio.Backend)
	if err != nil {
		return err
	}
	synth := engine.New(out, engine.Options{
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		NoiseColor:      noise,
		Volume:          cfg.Audio.Volume,
		Intensity:       cfg.Audio.Intensity,
		Logger:          log,
	})
	sess := session.New(synth, session.Options{
		Mode:        mode,
		Length:      time.Duration(cfg.Session.LengthMinutes) * time.Minute,
		AdaptToTime: cfg.Session.AdaptToTime,
		Volume:      cfg.Audio.Volume,
		Intensity:   cfg.Audio.Intensity,
		NoiseColor:  noise,
		Layers:      cfg.Layers,
		Clock:       clock,
		Logger:      log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startTime := time.Now()
	runErr := make(chan error, 1)
	go func() {
		runErr <- sess.Run(ctx)
	}()

	if err := startPlayback(sess, start, cliArgs.Paused); err != nil {
		cancel()
		if rerr := <-runErr; rerr != nil {
			return rerr
		}
		return err
	}

	// Start the TUI
	p := tea.NewProgram(ui.NewModel(sess, store), tea.WithAltScreen())
	_, uiErr := p.Run()

	cancel()
	if err := <-runErr; err != nil {
		return err
	}
	if uiErr != nil {
		return fmt.Errorf("UI error: %w", uiErr)
	}

	final := sess.Final()
	log.Infof("[MAIN] session ended after %s", final.Played)
	if cliArgs.Logs {
		data := reportData(final, startTime, out.Name(), cfg.Audio.SampleRate, loc)
		path := logging.ReportPath(".", startTime)
		if err := logging.GenerateReport(path, data); err != nil {
			log.Warnf("[MAIN] Failed to generate log file: %v", err)
			return err
		}
		cli.PrintSuccess("Session report saved to " + path)
	}
	return nil
}

// loadConfig reads the config file. A missing file is fine unless it was
// named explicitly.
func loadConfig(path string) (string, *config.Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := config.DefaultPath()
		if err != nil {
			return "", config.DefaultConfig(), nil
		}
		path = p
	}
	cfg, err := config.LoadConfig(path)
	switch {
	case err == nil:
		return path, cfg, nil
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return path, cfg, nil
	default:
		return path, nil, err
	}
}

// applyFlags overlays command-line values on the config.
func applyFlags(cfg *config.Config, c *CLI) error {
	if c.Mode != "" {
		cfg.Session.Mode = c.Mode
	}
	if c.Minutes != 0 {
		cfg.Session.LengthMinutes = c.Minutes
	}
	if c.Volume != nil {
		cfg.Audio.Volume = *c.Volume
	}
	if c.Intensity != nil {
		cfg.Audio.Intensity = *c.Intensity
	}
	if c.Noise != "" {
		cfg.Audio.NoiseColor = c.Noise
	}
	if c.Backend != "" {
		cfg.Audio.Backend = c.Backend
	}
	if c.NoAdapt {
		cfg.Session.AdaptToTime = false
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	return cfg.Validate()
}

// presetPath places the preset file next to the config unless configured.
func presetPath(cfg *config.Config, cfgPath string) string {
	if cfg.Presets.Path != "" {
		return cfg.Presets.Path
	}
	return filepath.Join(filepath.Dir(cfgPath), preset.DefaultFileName)
}

// presetCommand runs the preset management flags. handled reports whether
// one ran.
func presetCommand(c *CLI, store *preset.Store) (handled bool, err error) {
	switch {
	case c.ListPresets:
		list := store.List()
		if len(list) == 0 {
			fmt.Println("No saved presets")
		}
		for _, p := range list {
			cli.PrintKeyValue(os.Stdout, p.ID, fmt.Sprintf("%s (%s, volume %.0f%%)", p.Name, p.Mode.Title(), p.Volume*100))
		}
		return true, nil

	case c.DeletePreset != "":
		p, err := store.Find(c.DeletePreset)
		if err != nil {
			return true, err
		}
		if err := store.Delete(p.ID); err != nil {
			return true, err
		}
		cli.PrintSuccess("Deleted preset " + p.Name)
		return true, nil

	case c.ExportPresets != "":
		w := io.Writer(os.Stdout)
		if c.ExportPresets != "-" {
			f, err := os.Create(c.ExportPresets)
			if err != nil {
				return true, fmt.Errorf("failed to create export file: %w", err)
			}
			defer f.Close()
			w = f
		}
		return true, store.Export(w)

	case c.ImportPresets != "":
		f, err := os.Open(c.ImportPresets)
		if err != nil {
			return true, fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		n, err := store.Import(f)
		if err != nil {
			return true, fmt.Errorf("imported %d preset(s), some failed: %w", n, err)
		}
		cli.PrintSuccess(fmt.Sprintf("Imported %d preset(s)", n))
		return true, nil
	}
	return false, nil
}

// startPlayback applies the starting preset and begins playing.
func startPlayback(sess *session.Session, p *preset.Preset, paused bool) error {
	if p != nil {
		if err := sess.ApplyPreset(*p); err != nil {
			return err
		}
	}
	if paused {
		return nil
	}
	return sess.Play()
}

// inspect prints what the engine would build without opening a device.
func inspect(w io.Writer, cfg *config.Config, mode layer.Mode, noise audio.NoiseColor, loc locale.Info, clock *adaptive.Watcher, p *preset.Preset) {
	base, volume := cfg.Layers, cfg.Audio.Volume
	if p != nil {
		if len(p.Layers) > 0 {
			base = p.Layers
		}
		if p.Mode != "" {
			mode = p.Mode
		}
		if p.NoiseType != "" {
			noise = p.NoiseType
		}
		volume = p.Volume
	}
	tod := clock.Current()
	effective := adaptive.Adapt(base, tod, mode, cfg.Session.AdaptToTime)

	info := logging.PlanInfo{
		Mode:        mode,
		TimeOfDay:   tod,
		AdaptToTime: cfg.Session.AdaptToTime,
		Volume:      volume,
		Intensity:   cfg.Audio.Intensity,
		NoiseColor:  string(noise),
		Zone:        loc.Zone,
		MainsHz:     loc.MainsHz,
		Layers:      effective,
	}
	for _, lp := range engine.Plan(effective, volume, cfg.Audio.Intensity) {
		pl := logging.PlanLayer{ID: lp.Layer.ID, Type: lp.Layer.Type, Err: lp.Err}
		for _, v := range lp.Voices {
			pl.Voices = append(pl.Voices, logging.PlanVoice{
				Key:       v.Key,
				Waveform:  string(v.Waveform),
				Frequency: v.Frequency,
				Cutoff:    v.Cutoff,
				Q:         v.Q,
				Gain:      v.Gain,
				LFORate:   v.LFORate,
				LFODepth:  v.LFODepth,
				LFOTarget: string(v.LFOTarget),
				Send:      v.Send,
			})
		}
		info.Plan = append(info.Plan, pl)
	}
	logging.DisplayVoicePlan(w, info)
}

// reportData builds the session report from the final session state.
func reportData(final session.Snapshot, start time.Time, backendName string, sampleRate int, loc locale.Info) logging.ReportData {
	tips := logging.GenerateSessionTips(logging.TipInput{
		Layers:         final.Layers,
		Mode:           final.Mode,
		TimeOfDay:      final.TimeOfDay,
		Volume:         final.Volume,
		Intensity:      final.Intensity,
		NoiseColor:     string(final.NoiseColor),
		MainsHz:        loc.MainsHz,
		SessionMinutes: int(final.Length.Minutes()),
	})
	return logging.ReportData{
		StartTime:     start,
		EndTime:       time.Now(),
		Mode:          final.Mode,
		Backend:       backendName,
		SampleRate:    sampleRate,
		SessionLength: final.Length,
		Played:        final.Played,
		Completed:     final.Completed,
		Volume:        final.Volume,
		Intensity:     final.Intensity,
		NoiseColor:    string(final.NoiseColor),
		AdaptToTime:   final.AdaptToTime,
		TimeOfDay:     final.TimeOfDay,
		Zone:          loc.Zone,
		MainsHz:       loc.MainsHz,
		Transitions:   final.Transitions,
		Layers:        final.Layers,
		PeakReduction: final.Peak,
		Tips:          tips,
	}
}
