// Package dashboard implements the live telemetry dashboard TUI using
// BubbleTea: current readings, alert banner and list, and per-location
// sparkline charts fed by the push channel.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dterol/cpd-telemetry/internal/alerts"
	"github.com/dterol/cpd-telemetry/internal/api"
	"github.com/dterol/cpd-telemetry/internal/chart"
	"github.com/dterol/cpd-telemetry/internal/config"
	"github.com/dterol/cpd-telemetry/internal/logging"
	"github.com/dterol/cpd-telemetry/internal/record"
	"github.com/dterol/cpd-telemetry/internal/series"
	"github.com/dterol/cpd-telemetry/internal/stream"
	"github.com/dterol/cpd-telemetry/internal/telemetry"
)

const (
	tickInterval   = 1 * time.Second
	debounceDelay  = 250 * time.Millisecond
	historicalDays = 1
	readingBacklog = 64
)

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type readingMsg telemetry.Reading

type historicalMsg struct {
	gen      int
	readings []telemetry.Reading
	err      error
}

type locationsMsg struct {
	locations []string
	err       error
}

type debounceMsg struct{ gen int }

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live dashboard. The model owns
// the session state: current filter, fetch generation, view geometry.
type Model struct {
	ctx     context.Context
	cfg     *config.Settings
	log     *slog.Logger
	client  *api.Client
	stream  *stream.Manager
	monitor *alerts.Monitor
	agg     *series.Aggregator
	rec     *record.Recorder

	readings  chan telemetry.Reading
	locations []string
	locIdx    int // 0 = all locations
	fetchGen  int

	width       int
	height      int
	scroll      int
	lastReading time.Time
	startTime   time.Time
	err         error
}

// Run wires all components and blocks until the operator quits.
func Run(cfg *config.Settings, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.New(log, cfg.Server.BaseURL, cfg.Server.Timeout)
	defer client.Close()

	m := Model{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		client:    client,
		stream:    stream.New(log, cfg.Server.BaseURL, cfg.Stream.RetryDelay),
		monitor:   alerts.New(log, client, cfg),
		agg:       series.New(cfg),
		readings:  make(chan telemetry.Reading, readingBacklog),
		fetchGen:  1,
		startTime: time.Now(),
	}

	rec, err := record.New()
	if err != nil {
		m.err = fmt.Errorf("recorder: %w", err)
	}
	m.rec = rec

	m.stream.OnReading(func(r telemetry.Reading) {
		select {
		case m.readings <- r:
		default:
			log.Warn("reading backlog full, dropping sample")
		}
	})
	m.stream.Connect("")
	defer m.stream.Close()

	m.monitor.Schedule(ctx, cfg.Poll.Banner, cfg.Poll.List)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

// ── Commands ─────────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitForReading() tea.Cmd {
	return func() tea.Msg {
		return readingMsg(<-m.readings)
	}
}

func (m Model) fetchLocations() tea.Cmd {
	return func() tea.Msg {
		locs, err := m.client.Locations(m.ctx)
		return locationsMsg{locations: locs, err: err}
	}
}

func (m Model) fetchHistorical(gen int, filter string) tea.Cmd {
	return func() tea.Msg {
		readings, err := m.client.Historical(m.ctx, historicalDays, filter)
		return historicalMsg{gen: gen, readings: readings, err: err}
	}
}

func debounceCmd(gen int) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceMsg{gen: gen}
	})
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchLocations(),
		m.fetchHistorical(m.fetchGen, ""),
		m.waitForReading(),
		tickCmd(),
	)
}

func (m Model) filter() string {
	if m.locIdx == 0 || m.locIdx > len(m.locations) {
		return ""
	}
	return m.locations[m.locIdx-1]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.rec != nil {
				m.rec.Close()
			}
			return m, tea.Quit
		case "left", "h":
			return m.changeFilter(m.locIdx - 1)
		case "right", "l", "tab":
			return m.changeFilter(m.locIdx + 1)
		case "r":
			m.fetchGen++
			m.agg.Reset()
			return m, m.fetchHistorical(m.fetchGen, m.filter())
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		case "home":
			m.scroll = 0
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()

	case readingMsg:
		r := telemetry.Reading(msg)
		m.agg.Ingest(r)
		m.lastReading = time.Now()
		if m.rec != nil {
			if err := m.rec.Write(r); err != nil {
				m.err = fmt.Errorf("record: %w", err)
			}
		}
		return m, m.waitForReading()

	case debounceMsg:
		// Only the newest pending filter change gets to fetch.
		if msg.gen != m.fetchGen {
			return m, nil
		}
		return m, m.fetchHistorical(msg.gen, m.filter())

	case historicalMsg:
		if msg.gen != m.fetchGen {
			m.log.Info("discarding stale historical fetch",
				slog.Int("gen", msg.gen), slog.Int("current", m.fetchGen))
			return m, nil
		}
		if msg.err != nil {
			m.log.Warn("historical fetch failed", logging.Err(msg.err))
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.agg.Load(msg.readings)

	case locationsMsg:
		if msg.err != nil {
			m.log.Warn("locations fetch failed", logging.Err(msg.err))
			return m, nil
		}
		m.locations = msg.locations
	}

	return m, nil
}

// changeFilter is the filter-change transaction: supersede the stream,
// refilter alerts, reset the aggregator and schedule the (debounced)
// historical refetch. Stale in-flight fetches are fenced off by gen.
func (m Model) changeFilter(idx int) (tea.Model, tea.Cmd) {
	n := len(m.locations) + 1
	m.locIdx = ((idx % n) + n) % n

	f := m.filter()
	m.stream.Connect(f)
	m.monitor.SetFilter(f)
	m.agg.Reset()
	m.fetchGen++

	pollNow := func() tea.Msg {
		m.monitor.Poll(m.ctx)
		return nil
	}
	return m, tea.Batch(debounceCmd(m.fetchGen), pollNow)
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("208")
	colorCrit     = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string

	sections = append(sections, m.renderTitleBar(contentWidth))

	if banner := m.monitor.Banner(); banner.State == alerts.Shown {
		sections = append(sections, renderBanner(banner, contentWidth))
	}

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	current := m.agg.Current()
	if len(current) == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for sensor data...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderCurrentPanel(current, contentWidth))
		sections = append(sections, m.renderChartPanel(contentWidth))
	}

	if list := m.monitor.List(); len(list) > 0 {
		sections = append(sections, m.renderAlertList(list, contentWidth))
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

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("CPD TELEMETRY")

	var statusParts []string

	filterName := "all locations"
	if f := m.filter(); f != "" {
		filterName = f
	}
	statusParts = append(statusParts, lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true).
		Render(filterName))

	statusParts = append(statusParts, renderConnState(m.stream.State()))

	if !m.lastReading.IsZero() {
		statusParts = append(statusParts, lipgloss.NewStyle().
			Foreground(colorDim).
			Render(m.lastReading.Format("15:04:05")))
	}

	statusParts = append(statusParts, lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime)))))

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

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

func renderConnState(s stream.State) string {
	color := colorCrit
	switch s {
	case stream.Open:
		color = colorOk
	case stream.Connecting:
		color = lipgloss.Color("220")
	}
	return lipgloss.NewStyle().Foreground(color).Render("● " + s.String())
}

func renderBanner(b alerts.Banner, width int) string {
	label := strings.ToUpper(string(b.Severity))
	return lipgloss.NewStyle().
		Background(lipgloss.Color(b.Color)).
		Foreground(lipgloss.Color("231")).
		Bold(true).
		Width(width).
		Padding(0, 1).
		Render(fmt.Sprintf("%s  %s", label, b.Message))
}

func (m Model) renderCurrentPanel(entries []series.Entry, totalWidth int) string {
	labelW := 20

	var rows []string

	header := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Render(
		fmt.Sprintf("%-*s %8s %8s", labelW, "location", "temp", "humid"))
	rows = append(rows, header)

	for _, e := range entries {
		r := e.Reading

		label := lipgloss.NewStyle().
			Foreground(colorLabel).
			Width(labelW).
			Render(truncate(r.Key(), labelW))

		var temp string
		if r.Temperature != nil {
			temp = chart.RenderTempValue(*r.Temperature, m.cfg)
		} else {
			temp = chart.RenderMissingValue()
		}

		humid := lipgloss.NewStyle().Foreground(colorDim).Render("     --")
		if r.Humidity != nil {
			humid = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Render(fmt.Sprintf("%5.1f%%", *r.Humidity))
		}

		tag := ""
		switch e.Class {
		case series.ClassDanger:
			tag = lipgloss.NewStyle().Foreground(colorCrit).Bold(true).Render("  DANGER")
		case series.ClassWarning:
			tag = lipgloss.NewStyle().Foreground(colorWarn).Render("  WARNING")
		}

		rows = append(rows, label+" "+temp+" "+humid+tag)
	}

	return panel(lipgloss.JoinVertical(lipgloss.Left, rows...), totalWidth)
}

func (m Model) renderChartPanel(totalWidth int) string {
	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}

	labelW := 16
	tempW := 7
	chartWidth := innerWidth - labelW - tempW - 28
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var rows []string
	var lastPts []series.Point

	for _, s := range m.agg.Snapshot() {
		if len(s.Points) == 0 {
			continue
		}

		rangeMin := math.Max(0, s.Min-5)
		rangeMax := s.Peak + 5
		if m.cfg.HasThresholds && m.cfg.Thresholds.Danger > rangeMax {
			rangeMax = m.cfg.Thresholds.Danger + 5
		}

		label := lipgloss.NewStyle().
			Foreground(lipgloss.Color(s.Color)).
			Bold(true).
			Width(labelW).
			Render(truncate(s.Location, labelW))

		last := s.Points[len(s.Points)-1]
		temp := lipgloss.NewStyle().
			Width(tempW).
			Align(lipgloss.Right).
			Render(chart.RenderTempValue(last.Temp, m.cfg))

		pts := s.Points
		if len(pts) > chartWidth {
			pts = pts[len(pts)-chartWidth:]
		}
		lastPts = pts
		spark := chart.RenderSparkline(pts, chartWidth, rangeMin, rangeMax, m.cfg)

		avg := 0.0
		for _, p := range s.Points {
			avg += p.Temp
		}
		avg /= float64(len(s.Points))

		stats := dimS.Render(" avg") + valS.Render(fmt.Sprintf("%5.1f", avg)) +
			dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", s.Min)) +
			dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", s.Peak))

		rows = append(rows, label+" "+temp+" "+frameL+spark+frameR+stats)
	}

	if len(rows) == 0 {
		return ""
	}

	if lastPts != nil {
		timeline := chart.RenderTimeline(lastPts, chartWidth)
		if strings.TrimSpace(timeline) != "" {
			pad := strings.Repeat(" ", labelW+tempW+2)
			rows = append(rows, pad+" "+timeline)
		}
	}

	return panel(lipgloss.JoinVertical(lipgloss.Left, rows...), totalWidth)
}

func (m Model) renderAlertList(list []telemetry.Alert, totalWidth int) string {
	var rows []string

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("147")).
		Render(fmt.Sprintf("Active alerts (%d)", len(list)))
	rows = append(rows, title)

	for _, a := range list {
		color := colorOk
		switch a.Severity {
		case telemetry.SeverityDanger:
			color = colorCrit
		case telemetry.SeverityWarning:
			color = colorWarn
		}
		bullet := lipgloss.NewStyle().Foreground(color).Render("●")
		loc := lipgloss.NewStyle().Foreground(colorLabel).Bold(true).Render(a.Location)
		msg := lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Render(a.Message)
		rows = append(rows, bullet+" "+loc+"  "+msg)
	}

	return panel(lipgloss.JoinVertical(lipgloss.Left, rows...), totalWidth)
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	okS := lipgloss.NewStyle().Foreground(colorOk).Render("██")
	warnS := lipgloss.NewStyle().Foreground(colorWarn).Render("██")
	critS := lipgloss.NewStyle().Foreground(colorCrit).Render("██")
	legend := okS + dimS.Render(" ok ") +
		warnS + dimS.Render(" warning ") +
		critS + dimS.Render(" danger")

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  h/l") + keyS.Render(":location") +
		dimS.Render("  r") + keyS.Render(":reload") +
		dimS.Render("  j/k") + keyS.Render(":scroll")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + filler + keys)
}

// ── Helpers ──────────────────────────────────────────────────────────

func panel(content string, width int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(content)
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

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, min, s)
	}
	return fmt.Sprintf("%dm%02ds", min, s)
}
