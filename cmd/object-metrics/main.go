package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/object-metrics/internal/config"
	"github.com/ironsheep/object-metrics/internal/export"
	"github.com/ironsheep/object-metrics/internal/logger"
	"github.com/ironsheep/object-metrics/internal/pipeline"
	"github.com/ironsheep/object-metrics/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	exitOK    = 0
	exitIO    = 1
	exitUsage = 2
)

const programName = "object-metrics"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

func run(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	mode := "run"
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			printVersion(stdout)
			return exitOK
		case "--help", "-h", "help":
			printUsage(stdout)
			return exitOK
		case "serve", "run":
			mode = args[0]
			args = args[1:]
		}
	}

	cfg, err := config.Parse(programName+" "+mode, args, getenv, stderr, mode == "run")
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)
		return exitUsage
	}

	// Validate has already accepted the level name.
	level, _ := logger.ParseLevel(cfg.LogLevel)
	log := logger.NewConsoleLogger(stderr, level)
	log.Debug("main", "Starting", map[string]interface{}{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
		"mode":       mode,
	})

	if mode == "serve" {
		srv := server.New(cfg, log, Version)
		if err := srv.Run(); err != nil {
			log.Error("main", err, nil)
			return exitIO
		}
		return exitOK
	}

	return runBatch(cfg, log, stdout, stderr)
}

func runBatch(cfg config.Config, log logger.Logger, stdout, stderr io.Writer) int {
	runner, err := pipeline.NewRunner(cfg, pipeline.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx, cfg.Root)
	if err != nil {
		log.Error("main", err, map[string]interface{}{"root": cfg.Root})
		return exitIO
	}

	csvPath := export.CSVPath(report.Root, cfg.OutDir)
	if err := export.WriteCSVFile(csvPath, report.Records); err != nil {
		log.Error("main", err, map[string]interface{}{"path": csvPath})
		return exitIO
	}

	if cfg.Manifest {
		manifestPath := export.ManifestPath(report.Root, cfg.OutDir)
		m := export.NewManifest(Version, cfg, report, csvPath)
		if err := export.WriteManifest(manifestPath, m); err != nil {
			log.Error("main", err, map[string]interface{}{"path": manifestPath})
			return exitIO
		}
	}

	fmt.Fprintf(stdout, "Ellipse data exported to %s\n", csvPath)
	return exitOK
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", programName, Version)
	fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "object-metrics - measure the main object in every image of a folder")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  object-metrics [run] [options] <root>    Measure a folder tree and write the CSV")
	fmt.Fprintln(w, "  object-metrics serve [options]           Serve the measurement tools over MCP (stdio)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --strategy mean|fixed        Thresholding strategy (default mean)")
	fmt.Fprintln(w, "  --chain none|simple          Contour chain approximation (default none)")
	fmt.Fprintln(w, "  --backend native|opencv      Shape analysis backend (default native)")
	fmt.Fprintln(w, "  --diagnostics off|save|show  Diagnostic panels (default off)")
	fmt.Fprintln(w, "  --save-plots, --show-plots   Shorthands for --diagnostics")
	fmt.Fprintln(w, "  --max-images N               Open at most N images (default 10 with diagnostics)")
	fmt.Fprintln(w, "  --workers N                  Images measured concurrently (default 1)")
	fmt.Fprintln(w, "  --out DIR                    Output directory (default: parent of the root)")
	fmt.Fprintln(w, "  --manifest=false             Skip the YAML run manifest")
	fmt.Fprintln(w, "  --log-level LEVEL            debug, info, warn or error")
	fmt.Fprintln(w, "  --version, -v                Print version information")
	fmt.Fprintln(w, "  --help, -h                   Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every option can also be set with an OBJECT_METRICS_<NAME> environment")
	fmt.Fprintln(w, "variable, e.g. OBJECT_METRICS_WORKERS=4 or OBJECT_METRICS_ROOT=/data/run1.")
	fmt.Fprintln(w, "Logs go to stderr.")
}
