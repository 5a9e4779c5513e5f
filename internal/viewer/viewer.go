// Package viewer implements the recorded-data browser TUI with time
// scrubbing, day navigation and per-location sparkline windows.
package viewer

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dterol/cpd-telemetry/internal/chart"
	"github.com/dterol/cpd-telemetry/internal/config"
	"github.com/dterol/cpd-telemetry/internal/record"
	"github.com/dterol/cpd-telemetry/internal/series"
)

// Run launches the recorded-data browser TUI.
func Run(cfg *config.Settings) {
	days, err := record.ListDays("")
	if err != nil || len(days) == 0 {
		fmt.Fprintf(os.Stderr, "No recorded data found in %s\n", record.DataDir())
		os.Exit(1)
	}

	p := tea.NewProgram(
		initModel(cfg, days),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorCrit     = lipgloss.Color("196")
)

// ── Model ────────────────────────────────────────────────────────────

type model struct {
	cfg    *config.Settings
	days   []string
	dayIdx int
	cursor int // time cursor position
	scroll int
	width  int
	height int
	err    error

	total     int                       // readings loaded for current day
	timeSlots []time.Time               // unique timestamps (sorted)
	locations []string                  // sorted location keys
	data      map[string][]series.Point // location -> sorted points
}

func initModel(cfg *config.Settings, days []string) model {
	m := model{cfg: cfg, days: days}
	m.loadDay()
	return m
}

func (m *model) loadDay() {
	day := m.days[m.dayIdx]
	readings, err := record.LoadDay(day)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.total = len(readings)

	timeSet := make(map[int64]time.Time)
	data := make(map[string][]series.Point)

	for _, r := range readings {
		timeSet[r.Time.Unix()] = r.Time
		if r.Temperature == nil {
			continue
		}
		key := r.Key()
		data[key] = append(data[key], series.Point{Time: r.Time, Temp: *r.Temperature})
	}

	var locations []string
	for k := range data {
		locations = append(locations, k)
	}
	sort.Strings(locations)
	m.locations = locations

	var times []time.Time
	for _, t := range timeSet {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	m.timeSlots = times

	for k, pts := range data {
		sort.Slice(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
		data[k] = pts
	}
	m.data = data

	if len(m.timeSlots) > 0 {
		m.cursor = len(m.timeSlots) - 1
	}
	m.scroll = 0
}

// ── Init / Update ────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < len(m.timeSlots)-1 {
				m.cursor++
			}
		case "shift+left", "H":
			m.cursor -= 60
			if m.cursor < 0 {
				m.cursor = 0
			}
		case "shift+right", "L":
			m.cursor += 60
			if m.cursor >= len(m.timeSlots) {
				m.cursor = len(m.timeSlots) - 1
			}
		case "home":
			m.cursor = 0
		case "end":
			if len(m.timeSlots) > 0 {
				m.cursor = len(m.timeSlots) - 1
			}

		case "[":
			if m.dayIdx < len(m.days)-1 {
				m.dayIdx++
				m.loadDay()
			}
		case "]":
			if m.dayIdx > 0 {
				m.dayIdx--
				m.loadDay()
			}

		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// ── View ─────────────────────────────────────────────────────────────

func (m model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string

	sections = append(sections, m.renderTitle(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if len(m.timeSlots) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render("No data for this day.")
		sections = append(sections, empty)
	} else {
		sections = append(sections, m.renderCursorInfo(contentWidth))
		sections = append(sections, m.renderPanel(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}

	start := m.scroll
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("TELEMETRY HISTORY")

	day := m.days[m.dayIdx]
	dayText := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true).
		Render(day)

	nav := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  [ %d/%d ]", m.dayIdx+1, len(m.days)))

	dataInfo := ""
	if len(m.timeSlots) > 0 {
		first := m.timeSlots[0].Format("15:04:05")
		last := m.timeSlots[len(m.timeSlots)-1].Format("15:04:05")
		dataInfo = lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("  %s - %s  (%d readings, %d locations)",
				first, last, m.total, len(m.locations)))
	}

	right := dayText + nav + dataInfo

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + filler + right)
}

func (m model) renderCursorInfo(width int) string {
	if m.cursor < 0 || m.cursor >= len(m.timeSlots) {
		return ""
	}

	t := m.timeSlots[m.cursor]
	ts := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true).
		Render(t.Format("15:04:05"))

	pos := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.timeSlots)))

	barWidth := width - 30
	if barWidth < 10 {
		barWidth = 10
	}
	scrubber := m.renderScrubber(barWidth)

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render("  " + ts + pos + "  " + scrubber)
}

func (m model) renderScrubber(width int) string {
	if len(m.timeSlots) == 0 || width <= 0 {
		return ""
	}

	pos := 0
	if len(m.timeSlots) > 1 {
		pos = m.cursor * (width - 1) / (len(m.timeSlots) - 1)
	}
	if pos >= width {
		pos = width - 1
	}

	var sb strings.Builder
	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	curS := lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i := 0; i < width; i++ {
		if i == pos {
			sb.WriteString(curS.Render("◆"))
			continue
		}
		slotIdx := 0
		if len(m.timeSlots) > 1 {
			slotIdx = i * (len(m.timeSlots) - 1) / (width - 1)
		}
		if slotIdx > 0 && slotIdx < len(m.timeSlots) {
			t := m.timeSlots[slotIdx]
			tPrev := m.timeSlots[slotIdx-1]
			if t.Hour() != tPrev.Hour() {
				sb.WriteString(tickS.Render("│"))
				continue
			}
		}
		sb.WriteString(dimS.Render("─"))
	}

	return sb.String()
}

func (m model) renderPanel(totalWidth int) string {
	if m.cursor < 0 || m.cursor >= len(m.timeSlots) {
		return ""
	}

	cursorTime := m.timeSlots[m.cursor]

	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}

	labelW := 16
	tempW := 8
	chartWidth := innerWidth - labelW - tempW - 26
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	var rows []string

	for i, key := range m.locations {
		pts := m.data[key]
		if len(pts) == 0 {
			continue
		}

		curTemp := findTempAtTime(pts, cursorTime)

		minV, maxV := math.MaxFloat64, -math.MaxFloat64
		for _, p := range pts {
			if p.Temp < minV {
				minV = p.Temp
			}
			if p.Temp > maxV {
				maxV = p.Temp
			}
		}
		rangeMin := math.Max(0, minV-5)
		rangeMax := maxV + 5
		if m.cfg.HasThresholds && m.cfg.Thresholds.Danger > rangeMax {
			rangeMax = m.cfg.Thresholds.Danger + 5
		}

		sparkPts := sparkWindow(pts, m.cursor, chartWidth, m.timeSlots)

		label := lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.cfg.SeriesColor(i))).
			Bold(true).
			Width(labelW).
			Render(truncate(key, labelW))

		temp := lipgloss.NewStyle().
			Width(tempW).
			Align(lipgloss.Right).
			Render(chart.RenderTempValue(curTemp, m.cfg))

		spark := chart.RenderSparkline(sparkPts, chartWidth, rangeMin, rangeMax, m.cfg)

		avg := 0.0
		for _, p := range pts {
			avg += p.Temp
		}
		avg /= float64(len(pts))

		stats := dimS.Render(" avg") + valS.Render(fmt.Sprintf("%5.1f", avg)) +
			dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", minV)) +
			dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", maxV))

		rows = append(rows, label+" "+temp+" "+frameL+spark+frameR+stats)

		timeline := chart.RenderTimeline(sparkPts, chartWidth)
		if strings.TrimSpace(timeline) != "" {
			pad := strings.Repeat(" ", labelW+tempW+2)
			rows = append(rows, pad+timeline)
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  h/l") + keyS.Render(":scrub") +
		dimS.Render("  H/L") + keyS.Render(":skip 1m") +
		dimS.Render("  home/end") + keyS.Render(":jump") +
		dimS.Render("  [/]") + keyS.Render(":day") +
		dimS.Render("  j/k") + keyS.Render(":scroll")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

// ── Helpers ──────────────────────────────────────────────────────────

func findTempAtTime(pts []series.Point, t time.Time) float64 {
	best := pts[0].Temp
	bestDiff := absDuration(pts[0].Time.Sub(t))
	for _, p := range pts {
		diff := absDuration(p.Time.Sub(t))
		if diff < bestDiff {
			bestDiff = diff
			best = p.Temp
		}
		if p.Time.After(t) && diff > bestDiff {
			break
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func sparkWindow(pts []series.Point, cursorIdx int, width int, timeSlots []time.Time) []series.Point {
	if len(pts) == 0 || len(timeSlots) == 0 {
		return nil
	}

	tempMap := make(map[int64]float64)
	for _, p := range pts {
		tempMap[p.Time.Unix()] = p.Temp
	}

	var result []series.Point
	for i := width - 1; i >= 0; i-- {
		slotIdx := cursorIdx - i
		if slotIdx < 0 || slotIdx >= len(timeSlots) {
			continue
		}
		t := timeSlots[slotIdx]
		if temp, ok := tempMap[t.Unix()]; ok {
			result = append(result, series.Point{Temp: temp, Time: t})
		}
	}

	return result
}

func truncate(s string, w int) string {
	if len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}
	return s[:w-1] + "…"
}
