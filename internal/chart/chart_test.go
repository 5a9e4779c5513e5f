package chart

import (
	"strings"
	"testing"
	"time"

	"github.com/dterol/cpd-telemetry/internal/config"
	"github.com/dterol/cpd-telemetry/internal/series"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Thresholds:    config.Thresholds{Warning: 15, Danger: 18},
		HasThresholds: true,
	}
}

func TestSparkline(t *testing.T) {
	base := time.Date(2026, 8, 30, 14, 0, 0, 0, time.Local)
	var pts []series.Point
	for i, v := range []float64{12, 14, 15, 16, 17, 18, 19, 20} {
		pts = append(pts, series.Point{Temp: v, Time: base.Add(time.Duration(i) * time.Second)})
	}

	result := RenderSparkline(pts, 20, 5, 25, testSettings())
	if len(result) == 0 {
		t.Error("sparkline should not be empty")
	}
	t.Logf("Sparkline: %s", result)
}

func TestSparklineMinuteTicks(t *testing.T) {
	base := time.Date(2026, 8, 30, 14, 0, 50, 0, time.Local)
	var pts []series.Point
	for i := 0; i < 20; i++ {
		pts = append(pts, series.Point{
			Temp: float64(14 + i%3),
			Time: base.Add(time.Duration(i) * time.Second),
		})
	}

	result := RenderSparkline(pts, 20, 10, 20, testSettings())
	if !strings.Contains(result, "│") {
		t.Error("expected minute tick mark in sparkline")
	}
	t.Logf("Sparkline with ticks: %s", result)
}

func TestSparklineEmpty(t *testing.T) {
	result := RenderSparkline(nil, 10, 0, 1, testSettings())
	if len(result) == 0 {
		t.Error("empty series should render a placeholder line")
	}
}

func TestTempColorThresholds(t *testing.T) {
	cfg := testSettings()

	tests := []struct {
		temp float64
		want string
	}{
		{10.0, "78"},  // ok
		{16.0, "208"}, // above warning
		{18.5, "196"}, // above danger
	}
	for _, tt := range tests {
		if got := string(TempColor(tt.temp, cfg)); got != tt.want {
			t.Errorf("TempColor(%v) = %s, want %s", tt.temp, got, tt.want)
		}
	}
}

func TestTempColorWithoutThresholds(t *testing.T) {
	cfg := config.Degraded()
	for _, temp := range []float64{10, 20, 100} {
		if got := string(TempColor(temp, cfg)); got != "78" {
			t.Errorf("TempColor(%v) without thresholds = %s, want ok color", temp, got)
		}
	}
}
