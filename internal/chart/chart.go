// Package chart provides sparkline rendering with threshold-coded
// temperature colors, minute tick marks and timeline labels.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dterol/cpd-telemetry/internal/config"
	"github.com/dterol/cpd-telemetry/internal/series"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// TempColor returns the color for a temperature given the configured
// thresholds. Without thresholds every value renders in the ok color.
func TempColor(v float64, cfg *config.Settings) lipgloss.Color {
	if !cfg.HasThresholds {
		return lipgloss.Color("78") // soft green
	}
	switch {
	case v > cfg.Thresholds.Danger:
		return lipgloss.Color("196") // red
	case v > cfg.Thresholds.Warning:
		return lipgloss.Color("208") // orange
	case v >= cfg.Thresholds.Warning*0.85:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78")
	}
}

// RenderSparkline renders a series as color-coded blocks with a subtle
// pipe at each minute boundary.
func RenderSparkline(points []series.Point, width int, rangeMin, rangeMax float64, cfg *config.Settings) string {
	if width <= 0 {
		return ""
	}

	if len(points) == 0 {
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		norm := (p.Temp - rangeMin) / span
		norm = math.Max(0, math.Min(1, norm))

		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}

		if isMinuteTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}

		style := lipgloss.NewStyle().Foreground(TempColor(p.Temp, cfg))
		if cfg.HasThresholds && p.Temp > cfg.Thresholds.Danger {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

func isMinuteTick(points []series.Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if p.Time.Second() == 0 {
		return true
	}
	if i > 0 && !points[i-1].Time.IsZero() {
		return p.Time.Minute() != points[i-1].Time.Minute()
	}
	return false
}

// RenderTimeline renders HH:MM labels under the sparkline at each minute
// tick position.
func RenderTimeline(points []series.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick

	for i, p := range points {
		if isMinuteTick(points, i) {
			ticks = append(ticks, tick{pos: padLen + i, label: p.Time.Format("15:04")})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos - 2
		if start < 0 {
			start = 0
		}
		end := start + len(t.label)
		if end > width {
			continue
		}
		if start <= lastEnd+1 {
			continue
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return tickStyle.Render(string(line))
}

// RenderTempValue renders a temperature with threshold color coding.
func RenderTempValue(temp float64, cfg *config.Settings) string {
	s := fmt.Sprintf("%5.1f°C", temp)
	style := lipgloss.NewStyle().Foreground(TempColor(temp, cfg))
	if cfg.HasThresholds && temp > cfg.Thresholds.Danger {
		style = style.Bold(true)
	}
	return style.Render(s)
}

// RenderMissingValue renders the placeholder for an absent temperature.
func RenderMissingValue() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("    N/A")
}
