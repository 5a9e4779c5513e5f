package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeSettings(t, `{
		"thresholds": {"warning": 15, "danger": 18},
		"colors": {"danger": "#d9534f", "warning": "#f0ad4e", "info": "#5bc0de"},
		"chartColors": ["#36a2eb", "#ff6384"]
	}`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.HasThresholds {
		t.Error("HasThresholds should be true")
	}
	if s.Thresholds.Warning != 15 || s.Thresholds.Danger != 18 {
		t.Errorf("thresholds: %+v", s.Thresholds)
	}
	if s.Colors["danger"] != "#d9534f" {
		t.Errorf("colors: %v", s.Colors)
	}
	if s.SeriesColor(0) != "#36a2eb" || s.SeriesColor(2) != "#36a2eb" {
		t.Error("palette should wrap around")
	}
	if s.Server.BaseURL == "" {
		t.Error("server base URL default should apply")
	}
	if s.Stream.RetryDelay <= 0 {
		t.Error("retry delay default should apply")
	}
}

func TestLoadMissingFileDegrades(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if s == nil {
		t.Fatal("degraded settings must still be returned")
	}
	if s.HasThresholds {
		t.Error("missing file must disable classification")
	}
	if len(s.ChartColors) == 0 {
		t.Error("degraded settings keep a default palette")
	}
}

func TestLoadMalformedFileDegrades(t *testing.T) {
	path := writeSettings(t, `{"thresholds": `)

	s, err := Load(path)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if s.HasThresholds {
		t.Error("parse failure must disable classification")
	}
}

func TestLoadWithoutChartColors(t *testing.T) {
	path := writeSettings(t, `{"thresholds": {"warning": 15, "danger": 18}}`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.ChartColors) == 0 {
		t.Error("default palette should fill in")
	}
	if s.Colors == nil {
		t.Error("color map should never be nil")
	}
}
