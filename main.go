package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dterol/cpd-telemetry/internal/api"
	"github.com/dterol/cpd-telemetry/internal/config"
	"github.com/dterol/cpd-telemetry/internal/dashboard"
	"github.com/dterol/cpd-telemetry/internal/logging"
	"github.com/dterol/cpd-telemetry/internal/viewer"
)

func main() {
	log, logFile := logging.Init()
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := config.Load(os.Getenv("CPD_SETTINGS"))
	if err != nil {
		// Degraded mode: the dashboard stays up without classification.
		log.Warn("settings load failed, classification disabled", logging.Err(err))
	}

	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "", "live":
		if err := dashboard.Run(cfg, log); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "history":
		viewer.Run(cfg)
	case "export":
		runExport(cfg, log, args[1:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

// runExport downloads the backend's CSV rendering of the historical data
// and writes it verbatim to a file.
func runExport(cfg *config.Settings, log *slog.Logger, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	days := fs.Int("days", 1, "number of days to export")
	location := fs.String("location", "", "location filter (empty for all)")
	out := fs.String("o", "telemetry.csv", "output file")
	fs.Parse(args)

	client := api.New(log, cfg.Server.BaseURL, cfg.Server.Timeout)
	defer client.Close()

	data, err := client.HistoricalCSV(context.Background(), *days, *location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(data), *out)
}

func printUsage() {
	fmt.Println("Usage: cpd-telemetry [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  live      Live dashboard (default)")
	fmt.Println("  history   Browse recorded data")
	fmt.Println("  export    Download historical data as CSV")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  CPD_SERVER_URL   Backend origin (default http://localhost:8000)")
	fmt.Println("  CPD_SETTINGS     Settings file (default config/settings.json)")
	fmt.Println("  CPD_LOG_DIR      Diagnostics directory (default ./logs)")
}
