package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/lullwave/internal/layer"
)

// Transition records a time-of-day boundary crossed during a session.
type Transition struct {
	At   time.Time
	From layer.TimeOfDay
	To   layer.TimeOfDay
}

// ReportData contains everything needed to write a session report.
type ReportData struct {
	StartTime     time.Time
	EndTime       time.Time
	Mode          layer.Mode
	Backend       string
	SampleRate    int
	SessionLength time.Duration
	Played        time.Duration
	Completed     bool // the countdown reached zero
	Volume        float64
	Intensity     float64
	NoiseColor    string
	AdaptToTime   bool
	TimeOfDay     layer.TimeOfDay
	Zone          string
	MainsHz       int
	Transitions   []Transition
	Layers        []layer.SoundLayer // effective set at the end of the session
	PeakReduction float64            // deepest limiter gain reduction seen, dB
	Tips          []SessionTip
}

// ReportPath names the report file for a session started at t.
func ReportPath(dir string, t time.Time) string {
	return filepath.Join(dir, "lullwave-"+t.Format("20060102-150405")+".log")
}

// GenerateReport writes the session report to path.
func GenerateReport(path string, data ReportData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	if err := WriteReport(f, data); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return nil
}

// WriteReport renders the report:
// 1. Header - mode, date, backend
// 2. Session Summary - planned vs played time
// 3. Mix - volume, intensity, noise, limiter activity
// 4. Time of Day - adaptation and transitions
// 5. Layers - table of the effective set
// 6. Tips - prioritised advice
func WriteReport(w io.Writer, data ReportData) error {
	ew := &errWriter{w: w}
	writeReportHeader(ew, data)
	writeSessionSummary(ew, data)
	writeMix(ew, data)
	writeTimeOfDay(ew, data)
	writeLayers(ew, data)
	writeTips(ew, data)
	return ew.err
}

// errWriter keeps the first write error so section writers stay linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, nil
}

// writeSection writes a section header with title and dashed underline.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

func writeReportHeader(w io.Writer, data ReportData) {
	title := "Lullwave Session Report"
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintf(w, "Mode: %s (%s)\n", data.Mode.Title(), data.Mode.Description())
	fmt.Fprintf(w, "Started: %s\n", data.StartTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Output: %s @ %d Hz, stereo\n", data.Backend, data.SampleRate)
	fmt.Fprintln(w, "")
}

func writeSessionSummary(w io.Writer, data ReportData) {
	writeSection(w, "Session Summary")
	fmt.Fprintf(w, "Planned:  %s\n", formatDuration(data.SessionLength))
	fmt.Fprintf(w, "Played:   %s", formatDuration(data.Played))
	if data.SessionLength > 0 {
		fmt.Fprintf(w, " (%s)", formatPercent(float64(data.Played)/float64(data.SessionLength)))
	}
	fmt.Fprintln(w, "")
	status := "stopped early"
	if data.Completed {
		status = "✓ completed"
	}
	fmt.Fprintf(w, "Status:   %s\n", status)
	fmt.Fprintf(w, "Wall:     %s\n", formatDuration(data.EndTime.Sub(data.StartTime)))
	fmt.Fprintln(w, "")
}

func writeMix(w io.Writer, data ReportData) {
	writeSection(w, "Mix")
	fmt.Fprintf(w, "Volume:     %s (%s dB)\n", formatPercent(data.Volume), formatGainDB(data.Volume, 1))
	fmt.Fprintf(w, "Intensity:  %s (%s)\n", formatPercent(data.Intensity), interpretIntensity(data.Intensity))
	fmt.Fprintf(w, "Noise:      %s\n", data.NoiseColor)
	fmt.Fprintf(w, "Limiter:    %s dB peak reduction (%s)\n", formatMetricSigned(data.PeakReduction, 1), interpretReduction(data.PeakReduction))
	fmt.Fprintln(w, "")
}

func writeTimeOfDay(w io.Writer, data ReportData) {
	writeSection(w, "Time of Day")
	if !data.AdaptToTime {
		fmt.Fprintln(w, "Adaptation: DISABLED")
		fmt.Fprintln(w, "")
		return
	}
	fmt.Fprintln(w, "Adaptation: ENABLED")
	zone := data.Zone
	if zone == "" {
		zone = "unknown"
	}
	fmt.Fprintf(w, "Zone:       %s", zone)
	if data.MainsHz > 0 {
		fmt.Fprintf(w, " (%d Hz mains)", data.MainsHz)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Final:      %s\n", data.TimeOfDay)
	if len(data.Transitions) == 0 {
		fmt.Fprintln(w, "Transitions: none")
	} else {
		fmt.Fprintln(w, "Transitions:")
		for _, tr := range data.Transitions {
			fmt.Fprintf(w, "  %s  %s → %s\n", tr.At.Format("15:04"), tr.From, tr.To)
		}
	}
	fmt.Fprintln(w, "")
}

func writeLayers(w io.Writer, data ReportData) {
	writeSection(w, "Layers")
	if len(data.Layers) == 0 {
		fmt.Fprintln(w, "No layers configured")
		fmt.Fprintln(w, "")
		return
	}
	fmt.Fprint(w, LayerTable(data.Layers).String())
	fmt.Fprintln(w, "")
}

func writeTips(w io.Writer, data ReportData) {
	if len(data.Tips) == 0 {
		return
	}
	writeSection(w, "Tips")
	for i, tip := range data.Tips {
		fmt.Fprintf(w, "%d. %s\n", i+1, wrapText(tip.Message, 72, "   "))
	}
	fmt.Fprintln(w, "")
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", minutes/60, minutes%60, seconds)
}

func interpretIntensity(i float64) string {
	switch {
	case i <= 0.3:
		return "dark and dry"
	case i <= 0.6:
		return "balanced, light reverb"
	case i <= 0.85:
		return "bright, spacious"
	default:
		return "very bright, heavy reverb"
	}
}

func interpretReduction(db float64) string {
	switch {
	case db > -0.5:
		return "idle"
	case db > -3:
		return "gentle"
	case db > -6:
		return "working"
	default:
		return "heavy, consider lowering volume"
	}
}
