// Package telemetry defines the data model shared across the dashboard:
// sensor readings as delivered by the backend and pre-classified alerts.
package telemetry

import (
	"encoding/json"
	"time"
)

// UnknownLocation is the bucket for readings that arrive without a location.
const UnknownLocation = "unknown"

// timeLayout matches the backend's timestamp format (ISO 8601, no zone).
const timeLayout = "2006-01-02T15:04:05"

// Reading is a single temperature/humidity sample. Temperature and
// Humidity are nil when the sensor did not report a value.
type Reading struct {
	Location    string
	Time        time.Time
	Temperature *float64
	Humidity    *float64
}

// Key returns the grouping key for this reading, never empty.
func (r Reading) Key() string {
	if r.Location == "" {
		return UnknownLocation
	}
	return r.Location
}

// HasTemperature reports whether the reading carries a temperature value.
func (r Reading) HasTemperature() bool { return r.Temperature != nil }

type wireReading struct {
	Location    string   `json:"ubicacion"`
	Time        string   `json:"fecha_hora"`
	Temperature *float64 `json:"temperatura"`
	Humidity    *float64 `json:"humedad"`
}

// UnmarshalJSON decodes the backend's wire format. Timestamps arrive as
// ISO 8601 strings without a zone and are interpreted as local time.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var w wireReading
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t, err := parseTime(w.Time)
	if err != nil {
		return err
	}
	r.Location = w.Location
	r.Time = t
	r.Temperature = w.Temperature
	r.Humidity = w.Humidity
	return nil
}

// MarshalJSON emits the same wire format the backend uses.
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireReading{
		Location:    r.Location,
		Time:        r.Time.Format(timeLayout),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
	})
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(timeLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
