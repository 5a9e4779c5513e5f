package telemetry

import "encoding/json"

// Severity classifies an alert or reading, ordered by prominence.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Alert is a pre-classified alert produced by the backend. The backend
// returns alerts ordered most-critical first; element 0 of a fetched
// sequence drives the banner and the client never re-sorts.
type Alert struct {
	Location string
	Severity Severity
	Message  string
}

type wireAlert struct {
	Location string `json:"ubicacion"`
	Level    string `json:"nivel"`
	Message  string `json:"texto"`
}

// SeverityFromLevel maps the backend's nivel values to severities.
// Unknown levels map to info so the alert still renders.
func SeverityFromLevel(nivel string) Severity {
	switch nivel {
	case "roja":
		return SeverityDanger
	case "amarilla":
		return SeverityWarning
	case "azul":
		return SeverityInfo
	default:
		return SeverityInfo
	}
}

// UnmarshalJSON decodes the backend's {ubicacion, nivel, texto} format.
func (a *Alert) UnmarshalJSON(data []byte) error {
	var w wireAlert
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.Location = w.Location
	a.Severity = SeverityFromLevel(w.Level)
	a.Message = w.Message
	return nil
}
