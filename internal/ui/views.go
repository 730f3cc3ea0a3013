package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/lullwave/internal/layer"
)

// Palette
var (
	brandColor = lipgloss.Color("#7B68EE")
	mutedColor = lipgloss.Color("#888888")
	okColor    = lipgloss.Color("#00AA00")
	warnColor  = lipgloss.Color("#FFA500")
	errColor   = lipgloss.Color("#A40000")
)

const boxWidth = 60

// renderSessionView renders the main session view
func renderSessionView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderTransport(m))
	b.WriteString("\n")

	b.WriteString(renderMix(m))
	b.WriteString("\n")

	b.WriteString(renderLayers(m))
	b.WriteString("\n")

	b.WriteString(renderStatusLine(m))
	b.WriteString("\n")
	b.WriteString(renderHelp())

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(brandColor).
		Render("Lullwave 🌙 - Generative Ambient Soundscapes")

	s := m.Snapshot
	subtitle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true).
		Render(fmt.Sprintf("%s mode: %s", s.Mode.Title(), s.Mode.Description()))

	return title + "\n" + subtitle
}

// renderTransport renders play state and the session countdown
func renderTransport(m Model) string {
	s := m.Snapshot
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(brandColor).
		Padding(0, 1).
		Width(boxWidth)

	var content strings.Builder
	if s.Playing {
		icon := lipgloss.NewStyle().Foreground(okColor).Render("▶")
		content.WriteString(fmt.Sprintf("%s Playing\n", icon))
	} else {
		icon := lipgloss.NewStyle().Foreground(mutedColor).Render("⏸")
		label := "Paused"
		if s.Completed && s.Elapsed == 0 {
			label = "Session complete"
		}
		content.WriteString(fmt.Sprintf("%s %s\n", icon, label))
	}

	content.WriteString(renderProgressBar(s.Progress(), 40))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("⏱  Elapsed: %s | Remaining: %s",
		formatClock(s.Elapsed), formatClock(s.Remaining())))

	return box.Render(content.String())
}

// renderMix renders the global controls
func renderMix(m Model) string {
	s := m.Snapshot
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Padding(0, 1).
		Width(boxWidth)

	var content strings.Builder
	content.WriteString(fmt.Sprintf("Volume     %s\n", renderProgressBar(s.Volume, 30)))
	content.WriteString(fmt.Sprintf("Intensity  %s\n", renderProgressBar(s.Intensity, 30)))
	content.WriteString(fmt.Sprintf("Noise: %s | Binaural: %.0f Hz\n", s.NoiseColor, s.BinauralFreq))

	adapt := "off"
	if s.AdaptToTime {
		adapt = "on (" + string(s.TimeOfDay) + ")"
	}
	content.WriteString(fmt.Sprintf("Time-of-day adaptation: %s\n", adapt))
	content.WriteString(renderLimiter(s.Reduction))

	return box.Render(content.String())
}

// renderLimiter colours the limiter meter by how hard it is working
func renderLimiter(db float64) string {
	color := okColor
	switch {
	case db <= -6:
		color = errColor
	case db <= -3:
		color = warnColor
	}
	return "Limiter: " + lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%+.1f dB", db))
}

// renderLayers renders the layer list keyed by number
func renderLayers(m Model) string {
	s := m.Snapshot
	var b strings.Builder
	if len(s.Base) == 0 {
		return lipgloss.NewStyle().Foreground(mutedColor).Render(" No layers configured") + "\n"
	}
	for i, l := range s.Base {
		b.WriteString(renderLayerEntry(i, l, effectiveEnabled(s.Layers, l.ID)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderLayerEntry renders a single layer line
func renderLayerEntry(index int, l layer.SoundLayer, effective bool) string {
	color := mutedColor
	if effective {
		color = okColor
	}
	icon := lipgloss.NewStyle().Foreground(color).Render(layerIcon(l.Enabled, effective))
	line := fmt.Sprintf(" %d %s %-10s %-9s vol %3.0f%%", index+1, icon, l.ID, l.Type, l.Volume*100)
	if l.Frequency != nil {
		line += fmt.Sprintf("  %.0f Hz", *l.Frequency)
	}
	return line
}

// renderStatusLine shows the last command result
func renderStatusLine(m Model) string {
	switch {
	case m.Err != nil:
		return lipgloss.NewStyle().Foreground(errColor).Render("✗ " + m.Err.Error())
	case m.Snapshot.Err != nil:
		return lipgloss.NewStyle().Foreground(errColor).Render("✗ " + m.Snapshot.Err.Error())
	case m.Status != "":
		return lipgloss.NewStyle().Foreground(okColor).Render("✓ " + m.Status)
	}
	return ""
}

func renderHelp() string {
	return lipgloss.NewStyle().Foreground(mutedColor).Render(
		"space play/pause · +/- volume · [/] intensity · 1-9 layers · m mode\n" +
			"n noise · a adapt · b/B binaural · p save preset · q quit")
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = max(0, min(progress, 1))
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	percentage := int(progress*100 + 0.5)

	return fmt.Sprintf("%s %d%%", bar, percentage)
}

// formatClock formats a duration as mm:ss, or h:mm:ss past the hour
func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
