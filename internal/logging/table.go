package logging

import (
	"fmt"
	"math"
	"strings"

	"github.com/linuxmatters/lullwave/internal/layer"
)

// TableRow is one line of a Table. Values are pre-formatted so a column can
// mix precisions.
type TableRow struct {
	Label  string
	Values []string
	Note   string
}

// Table renders aligned columns: a left-aligned label, right-aligned values
// and an optional trailing note column.
type Table struct {
	Headers []string
	Rows    []TableRow
}

// AddRow appends a row.
func (t *Table) AddRow(label string, values []string, note string) {
	t.Rows = append(t.Rows, TableRow{Label: label, Values: values, Note: note})
}

func (t *Table) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth := 0
	hasNote := false
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
		if row.Note != "" {
			hasNote = true
		}
		for i, v := range row.Values {
			if i < len(widths) {
				widths[i] = max(widths[i], len(v))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, h := range t.Headers {
		fmt.Fprintf(&sb, "%*s  ", widths[i], h)
	}
	if hasNote {
		sb.WriteString("Notes")
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		fmt.Fprintf(&sb, "%-*s  ", labelWidth, row.Label)
		for i := range t.Headers {
			v := MissingValue
			if i < len(row.Values) && row.Values[i] != "" {
				v = row.Values[i]
			}
			fmt.Fprintf(&sb, "%*s  ", widths[i], v)
		}
		if hasNote {
			sb.WriteString(row.Note)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// MissingValue is shown for absent or invalid values.
const MissingValue = "-"

// SilenceFloorDB is the level below which a gain is shown as silent.
const SilenceFloorDB = -120.0

func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	if value != 0 && math.Abs(value) < 0.0001 {
		return fmt.Sprintf("%.2e", value)
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

func formatMetricSigned(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%+.*f", decimals, value)
}

// formatGainDB converts a linear gain to dB, flooring silence.
func formatGainDB(gain float64, decimals int) string {
	if math.IsNaN(gain) {
		return MissingValue
	}
	if gain <= 0 {
		return "< -120"
	}
	db := 20 * math.Log10(gain)
	if db < SilenceFloorDB {
		return "< -120"
	}
	return fmt.Sprintf("%.*f", decimals, db)
}

func formatOptional(p *float64) string {
	if p == nil {
		return MissingValue
	}
	return formatMetric(*p, 1)
}

func formatPercent(v float64) string {
	if math.IsNaN(v) {
		return MissingValue
	}
	return fmt.Sprintf("%.0f%%", v*100)
}

// LayerTable lists a layer set with volume, pitch, filter and modulation.
func LayerTable(layers []layer.SoundLayer) *Table {
	t := &Table{Headers: []string{"Type", "Volume", "Gain dB", "Freq Hz", "Cutoff Hz", "Q", "LFO Hz", "State"}}
	for _, l := range layers {
		state := "off"
		if l.Enabled {
			state = "on"
		}
		note := ""
		if l.Type == layer.TypeBinaural && l.Frequency != nil {
			note = fmt.Sprintf("%.1f Hz beat (%s)", *l.Frequency, interpretBeat(*l.Frequency))
		}
		t.AddRow(l.ID, []string{
			string(l.Type),
			formatPercent(l.Volume),
			formatGainDB(l.Volume, 1),
			formatOptional(l.Frequency),
			formatOptional(l.FilterFreq),
			formatOptional(l.Resonance),
			formatOptional(l.LFORate),
			state,
		}, note)
	}
	return t
}

// interpretBeat names the brainwave band a binaural beat frequency targets.
func interpretBeat(hz float64) string {
	switch {
	case hz < 4:
		return "delta, deep sleep"
	case hz < 8:
		return "theta, drowsy and meditative"
	case hz < 13:
		return "alpha, calm and relaxed"
	case hz < 30:
		return "beta, alert and focused"
	default:
		return "gamma, high concentration"
	}
}
