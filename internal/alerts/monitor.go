// Package alerts polls the backend's alert endpoint and drives the
// banner and alert-list view state.
package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dterol/cpd-telemetry/internal/api"
	"github.com/dterol/cpd-telemetry/internal/config"
	"github.com/dterol/cpd-telemetry/internal/logging"
	"github.com/dterol/cpd-telemetry/internal/telemetry"
)

// NeutralColor is used when an alert's severity has no entry in the
// configured color map.
const NeutralColor = "#607d8b"

// BannerState is the banner's visibility state.
type BannerState int

const (
	Hidden BannerState = iota
	Shown
)

// Banner is the banner view model. While Shown it carries the severity,
// text and background color taken from the most critical alert.
type Banner struct {
	State    BannerState
	Severity telemetry.Severity
	Message  string
	Color    string
}

// Monitor polls alert state on its own cadence, independent of the push
// channel. Every poll determines the banner from scratch; fetch failures
// leave the displayed state untouched and retry on the next tick.
type Monitor struct {
	log    *slog.Logger
	client *api.Client
	colors map[string]string

	mu     sync.Mutex
	filter string
	banner Banner
	list   []telemetry.Alert
}

func New(log *slog.Logger, client *api.Client, cfg *config.Settings) *Monitor {
	return &Monitor{
		log:    log,
		client: client,
		colors: cfg.Colors,
	}
}

// SetFilter changes the location filter used by banner polls.
func (m *Monitor) SetFilter(filter string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = filter
}

// Banner returns the current banner view model.
func (m *Monitor) Banner() Banner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.banner
}

// List returns the alert-list view entries from the last list poll.
func (m *Monitor) List() []telemetry.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]telemetry.Alert, len(m.list))
	copy(out, m.list)
	return out
}

// Poll fetches the alert set for the current filter and applies it to
// the banner.
func (m *Monitor) Poll(ctx context.Context) {
	m.mu.Lock()
	filter := m.filter
	m.mu.Unlock()

	alerts, err := m.client.Alerts(ctx, filter)
	if err != nil {
		m.log.Warn("alert poll failed", slog.String("filter", filter), logging.Err(err))
		return
	}
	m.Apply(alerts)
}

// Apply recomputes the banner from an alert set. Element 0 is treated as
// most critical per the backend's ordering contract; the client does not
// re-sort.
func (m *Monitor) Apply(alerts []telemetry.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(alerts) == 0 {
		m.banner = Banner{State: Hidden}
		return
	}

	top := alerts[0]
	color, ok := m.colors[string(top.Severity)]
	if !ok {
		color = NeutralColor
	}
	m.banner = Banner{
		State:    Shown,
		Severity: top.Severity,
		Message:  top.Message,
		Color:    color,
	}
}

// PollList fetches the unfiltered alert set and fully replaces the list
// view entries.
func (m *Monitor) PollList(ctx context.Context) {
	alerts, err := m.client.Alerts(ctx, "")
	if err != nil {
		m.log.Warn("alert list poll failed", logging.Err(err))
		return
	}
	m.mu.Lock()
	m.list = alerts
	m.mu.Unlock()
}

// Schedule runs both polling paths until ctx is cancelled. The banner
// and list polls tick independently so a slow fetch on one path never
// delays the other.
func (m *Monitor) Schedule(ctx context.Context, bannerEvery, listEvery time.Duration) {
	go m.run(ctx, bannerEvery, func() { m.Poll(ctx) })
	go m.run(ctx, listEvery, func() { m.PollList(ctx) })
}

func (m *Monitor) run(ctx context.Context, every time.Duration, poll func()) {
	poll()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
