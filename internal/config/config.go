// Package config loads the dashboard settings from config/settings.json.
// Thresholds, severity colors and the chart palette come from the file;
// server and timing knobs come from environment variables. Settings are
// read once at startup and treated as immutable for the session.
package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is where the settings file lives relative to the working dir.
const DefaultPath = "config/settings.json"

// defaultPalette is used when the settings file provides no chartColors
// or could not be loaded at all.
var defaultPalette = []string{
	"#36a2eb", "#ff6384", "#4bc0c0", "#ff9f40",
	"#9966ff", "#ffcd56", "#c9cbcf", "#2ecc71",
}

type Thresholds struct {
	Warning float64 `json:"warning"`
	Danger  float64 `json:"danger"`
}

type Server struct {
	BaseURL string        `json:"-" env:"CPD_SERVER_URL" env-default:"http://localhost:8000"`
	Timeout time.Duration `json:"-" env:"CPD_HTTP_TIMEOUT" env-default:"10s"`
}

type Stream struct {
	RetryDelay time.Duration `json:"-" env:"CPD_STREAM_RETRY" env-default:"3s"`
}

type Poll struct {
	Banner time.Duration `json:"-" env:"CPD_ALERT_POLL" env-default:"30s"`
	List   time.Duration `json:"-" env:"CPD_LIST_POLL" env-default:"5s"`
}

// Settings is the session configuration. HasThresholds is false when the
// settings file was absent or malformed; classification is then disabled
// but everything else keeps working.
type Settings struct {
	Thresholds  Thresholds        `json:"thresholds"`
	Colors      map[string]string `json:"colors"`
	ChartColors []string          `json:"chartColors"`
	Server      Server            `json:"-"`
	Stream      Stream            `json:"-"`
	Poll        Poll              `json:"-"`

	HasThresholds bool `json:"-"`
}

// Load reads the settings file and environment overrides. On any file
// error it returns degraded settings alongside the error so the caller
// can log it and carry on without classification.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultPath
	}

	var s Settings
	if err := cleanenv.ReadConfig(path, &s); err != nil {
		return Degraded(), err
	}
	if len(s.ChartColors) == 0 {
		s.ChartColors = defaultPalette
	}
	if s.Colors == nil {
		s.Colors = map[string]string{}
	}
	s.HasThresholds = s.Thresholds.Danger > s.Thresholds.Warning
	return &s, nil
}

// Degraded returns settings with classification disabled: no thresholds,
// no severity colors, default chart palette.
func Degraded() *Settings {
	s := Settings{
		Colors:      map[string]string{},
		ChartColors: defaultPalette,
	}
	// Env knobs still apply so the dashboard can reach the backend.
	_ = cleanenv.ReadEnv(&s)
	return &s
}

// SeriesColor returns the palette color for the i-th first-seen location.
func (s *Settings) SeriesColor(i int) string {
	if len(s.ChartColors) == 0 {
		return defaultPalette[i%len(defaultPalette)]
	}
	return s.ChartColors[i%len(s.ChartColors)]
}
