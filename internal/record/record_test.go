package record

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dterol/cpd-telemetry/internal/telemetry"
)

func f(v float64) *float64 { return &v }

func TestRecorderRoundTrip(t *testing.T) {
	dir := t.TempDir()

	rec := &Recorder{dir: dir}
	defer rec.Close()

	ts := time.Date(2026, 8, 30, 14, 30, 0, 0, time.Local)
	readings := []telemetry.Reading{
		{Location: "sala1", Time: ts, Temperature: f(21.5), Humidity: f(40.0)},
		{Location: "sala2", Time: ts, Temperature: nil, Humidity: f(38.5)},
		{Location: "", Time: ts, Temperature: f(19.0)},
	}

	for _, r := range readings {
		if err := rec.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	rec.Close()

	loaded, err := LoadFile(filepath.Join(dir, "2026-08-30.csv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if len(loaded) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(loaded))
	}

	if loaded[0].Location != "sala1" || *loaded[0].Temperature != 21.5 || *loaded[0].Humidity != 40.0 {
		t.Errorf("first reading: %+v", loaded[0])
	}
	if loaded[1].Temperature != nil {
		t.Error("absent temperature must survive the round trip as nil")
	}
	if loaded[2].Location != telemetry.UnknownLocation {
		t.Errorf("empty location stored as %q", loaded[2].Location)
	}
	if loaded[2].Humidity != nil {
		t.Error("absent humidity must load as nil")
	}
}

func TestDayRotation(t *testing.T) {
	dir := t.TempDir()

	rec := &Recorder{dir: dir}
	defer rec.Close()

	day1 := time.Date(2026, 8, 29, 23, 59, 0, 0, time.Local)
	day2 := time.Date(2026, 8, 30, 0, 1, 0, 0, time.Local)

	rec.Write(telemetry.Reading{Location: "sala1", Time: day1, Temperature: f(20)})
	rec.Write(telemetry.Reading{Location: "sala1", Time: day2, Temperature: f(21)})
	rec.Close()

	days, err := ListDays(dir)
	if err != nil {
		t.Fatalf("ListDays: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 day files, got %v", days)
	}
	if days[0] != "2026-08-30" {
		t.Errorf("newest day first, got %v", days)
	}
}
