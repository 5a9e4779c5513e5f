package telemetry

import (
	"encoding/json"
	"testing"
)

func TestReadingDecode(t *testing.T) {
	payload := `{"fecha_hora":"2026-08-30T12:34:56","ubicacion":"sala1","temperatura":21.5,"humedad":null}`

	var r Reading
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Location != "sala1" {
		t.Errorf("location: got %q", r.Location)
	}
	if r.Temperature == nil || *r.Temperature != 21.5 {
		t.Errorf("temperature: got %v", r.Temperature)
	}
	if r.Humidity != nil {
		t.Error("null humidity should decode to nil")
	}
	if r.Time.Hour() != 12 || r.Time.Second() != 56 {
		t.Errorf("time: got %v", r.Time)
	}
}

func TestReadingKey(t *testing.T) {
	if (Reading{Location: "sala1"}).Key() != "sala1" {
		t.Error("key should be the location")
	}
	if (Reading{}).Key() != UnknownLocation {
		t.Error("missing location should bucket as unknown")
	}
}

func TestReadingRoundTrip(t *testing.T) {
	payload := `{"ubicacion":"sala1","fecha_hora":"2026-08-30T12:00:00","temperatura":20,"humedad":45.5}`

	var r Reading
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var again Reading
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if !again.Time.Equal(r.Time) || *again.Temperature != *r.Temperature {
		t.Errorf("round trip mismatch: %+v vs %+v", r, again)
	}
}

func TestSeverityFromLevel(t *testing.T) {
	tests := []struct {
		nivel string
		want  Severity
	}{
		{"roja", SeverityDanger},
		{"amarilla", SeverityWarning},
		{"azul", SeverityInfo},
		{"", SeverityInfo},
		{"fucsia", SeverityInfo},
	}
	for _, tt := range tests {
		if got := SeverityFromLevel(tt.nivel); got != tt.want {
			t.Errorf("SeverityFromLevel(%q) = %q, want %q", tt.nivel, got, tt.want)
		}
	}
}

func TestAlertDecode(t *testing.T) {
	payload := `{"ubicacion":"sala2","nivel":"amarilla","texto":"Temperatura elevada 16.2°C en sala2"}`

	var a Alert
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Location != "sala2" || a.Severity != SeverityWarning {
		t.Errorf("got %+v", a)
	}
}
