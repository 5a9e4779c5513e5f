// Package series turns heterogeneous readings into chart-ready,
// threshold-classified time series grouped by location.
package series

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dterol/cpd-telemetry/internal/config"
	"github.com/dterol/cpd-telemetry/internal/telemetry"
)

// Point is a single charted data point.
type Point struct {
	Time time.Time
	Temp float64
}

// Series is the chart data for one location. Color is assigned from the
// palette by first-seen order and stays stable until the next Load.
type Series struct {
	Location string
	Color    string
	Points   []Point
	Min      float64
	Peak     float64
}

// Class is the threshold classification of a reading.
type Class int

const (
	ClassNone Class = iota
	ClassWarning
	ClassDanger
)

// Entry is one row of the current-readings view.
type Entry struct {
	Reading telemetry.Reading
	Class   Class
}

type buffer struct {
	points []Point
	min    float64
	peak   float64
}

func newBuffer() *buffer {
	return &buffer{min: math.MaxFloat64, peak: -math.MaxFloat64}
}

func (b *buffer) push(temp float64, t time.Time) {
	b.points = append(b.points, Point{Time: t, Temp: temp})
	if temp < b.min {
		b.min = temp
	}
	if temp > b.peak {
		b.peak = temp
	}
}

// Aggregator maintains the chart dataset and the current-readings view.
// Load replaces everything wholesale; Ingest appends live points. Safe
// for concurrent use: the stream delivers from its own goroutine.
type Aggregator struct {
	mu     sync.Mutex
	cfg    *config.Settings
	series map[string]*buffer
	order  []string // locations in first-seen order
	latest map[string]telemetry.Reading
}

func New(cfg *config.Settings) *Aggregator {
	a := &Aggregator{cfg: cfg}
	a.resetLocked()
	return a
}

func (a *Aggregator) resetLocked() {
	a.series = make(map[string]*buffer)
	a.order = nil
	a.latest = make(map[string]telemetry.Reading)
}

// Reset drops all data and the palette assignment order.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

// Load replaces the dataset from a historical batch. Color assignment
// order restarts from the batch's own first-seen order.
func (a *Aggregator) Load(batch []telemetry.Reading) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
	for _, r := range batch {
		a.ingestLocked(r)
	}
}

// Ingest appends a single live reading to its location's series.
func (a *Aggregator) Ingest(r telemetry.Reading) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ingestLocked(r)
}

func (a *Aggregator) ingestLocked(r telemetry.Reading) {
	key := r.Key()
	b, ok := a.series[key]
	if !ok {
		b = newBuffer()
		a.series[key] = b
		a.order = append(a.order, key)
	}
	a.latest[key] = r
	// Readings without a temperature stay out of the chart but remain
	// visible in the current view through a.latest.
	if r.Temperature != nil {
		b.push(*r.Temperature, r.Time)
	}
}

// Snapshot returns the chart dataset, one series per location in
// first-seen order, points copied in arrival order.
func (a *Aggregator) Snapshot() []Series {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Series, 0, len(a.order))
	for i, key := range a.order {
		b := a.series[key]
		pts := make([]Point, len(b.points))
		copy(pts, b.points)
		out = append(out, Series{
			Location: key,
			Color:    a.cfg.SeriesColor(i),
			Points:   pts,
			Min:      b.min,
			Peak:     b.peak,
		})
	}
	return out
}

// Current returns the current-readings view: the latest reading per
// location, sorted by temperature descending. Ties keep first-seen
// order; readings without a temperature sort last.
func (a *Aggregator) Current() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Entry, 0, len(a.order))
	for _, key := range a.order {
		r, ok := a.latest[key]
		if !ok {
			continue
		}
		out = append(out, Entry{Reading: r, Class: a.classify(r.Temperature)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sortTemp(out[i].Reading) > sortTemp(out[j].Reading)
	})
	return out
}

// Classify applies the threshold classification to a temperature.
func (a *Aggregator) Classify(temp float64) Class {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.classify(&temp)
}

// The danger check runs first: the two predicates overlap, so order
// decides which one wins for values above both thresholds.
func (a *Aggregator) classify(temp *float64) Class {
	if temp == nil || !a.cfg.HasThresholds {
		return ClassNone
	}
	switch {
	case *temp > a.cfg.Thresholds.Danger:
		return ClassDanger
	case *temp > a.cfg.Thresholds.Warning:
		return ClassWarning
	default:
		return ClassNone
	}
}

func sortTemp(r telemetry.Reading) float64 {
	if r.Temperature == nil {
		return -math.MaxFloat64
	}
	return *r.Temperature
}
