// Package record handles persistent CSV recording of delivered readings
// with daily file rotation. Data is stored in ~/.cpd-telemetry/.
package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dterol/cpd-telemetry/internal/telemetry"
)

const (
	dirName    = ".cpd-telemetry"
	timeLayout = "2006-01-02T15:04:05"
	fileLayout = "2006-01-02"
)

// Recorder appends readings to daily CSV files with the format:
//
//	time,location,temperature,humidity
//
// Absent temperature or humidity values are written as empty cells.
type Recorder struct {
	dir     string
	current *os.File
	writer  *csv.Writer
	curDate string
}

// New creates a recorder, creating the data directory if needed.
func New() (*Recorder, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot find home dir: %w", err)
	}
	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create data dir: %w", err)
	}
	return &Recorder{dir: dir}, nil
}

// Write appends a reading to the day file matching its timestamp.
func (d *Recorder) Write(r telemetry.Reading) error {
	dateStr := r.Time.Format(fileLayout)

	if d.curDate != dateStr || d.current == nil {
		d.Close()
		path := filepath.Join(d.dir, dateStr+".csv")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		d.current = f
		d.writer = csv.NewWriter(f)
		d.curDate = dateStr

		info, _ := f.Stat()
		if info.Size() == 0 {
			d.writer.Write([]string{"time", "location", "temperature", "humidity"})
		}
	}

	d.writer.Write([]string{
		r.Time.Format(timeLayout),
		r.Key(),
		formatOptional(r.Temperature),
		formatOptional(r.Humidity),
	})
	d.writer.Flush()
	return d.writer.Error()
}

// Close flushes and closes the current file.
func (d *Recorder) Close() {
	if d.writer != nil {
		d.writer.Flush()
	}
	if d.current != nil {
		d.current.Close()
		d.current = nil
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// ListDays returns available recorded dates (newest first).
func ListDays(dir string) ([]string, error) {
	if dir == "" {
		dir = DataDir()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var days []string
	for i := len(entries) - 1; i >= 0; i-- {
		name := entries[i].Name()
		if strings.HasSuffix(name, ".csv") {
			days = append(days, strings.TrimSuffix(name, ".csv"))
		}
	}
	return days, nil
}

// LoadDay reads all readings from a specific day's file.
func LoadDay(day string) ([]telemetry.Reading, error) {
	return LoadFile(filepath.Join(DataDir(), day+".csv"))
}

// LoadFile reads all readings from a CSV file.
func LoadFile(path string) ([]telemetry.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var readings []telemetry.Reading
	for i, row := range records {
		if i == 0 && len(row) > 0 && row[0] == "time" {
			continue
		}
		if len(row) < 4 {
			continue
		}

		t, err := time.ParseInLocation(timeLayout, row[0], time.Local)
		if err != nil {
			continue
		}

		readings = append(readings, telemetry.Reading{
			Time:        t,
			Location:    row[1],
			Temperature: parseOptional(row[2]),
			Humidity:    parseOptional(row[3]),
		})
	}

	return readings, nil
}

func parseOptional(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// DataDir returns the path to the data directory.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}
