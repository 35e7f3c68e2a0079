// Command metrolog-cli analyses one measurement file without the web
// server: it prints the per-dimension statistics and optionally writes the
// statistics CSV and the dimension registry.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"metrolog/internal/compare"
	"metrolog/internal/config"
	"metrolog/internal/exporter"
	"metrolog/internal/infrastructure"
	"metrolog/internal/registry"
	"metrolog/internal/services"
	"metrolog/internal/session"
	"metrolog/internal/stats"
	"metrolog/internal/validation"
)

type options struct {
	input      string
	order      string
	byOrder    bool
	bounds     string
	statsOut   string
	registry   string
	importFile string
	baseDir    string
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("metrolog-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "in", "", "measurement file (.xlsx, .tsv, .csv or .txt)")
	fs.StringVar(&opts.order, "of", "", "restrict statistics to one manufacturing order")
	fs.BoolVar(&opts.byOrder, "by-order", false, "compute statistics per (dimension, order)")
	fs.StringVar(&opts.bounds, "bounds", "", "tolerance bounds policy: strict | first_row")
	fs.StringVar(&opts.statsOut, "stats", "", "write statistics CSV to this file (relative to data/exports)")
	fs.StringVar(&opts.registry, "registry", "", "write the dimension registry to this .csv or .json file")
	fs.StringVar(&opts.importFile, "import", "", "registry JSON document applied before computing statistics")
	fs.StringVar(&opts.baseDir, "base", "", "base directory for relative paths (defaults to the executable directory)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug | info | warn | error")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.input == "" {
		fs.Usage()
		return opts, errors.New("-in is required")
	}
	return opts, nil
}

func newLogger(level string, stderr io.Writer) (*slog.Logger, error) {
	cfg := config.Default().Logging
	cfg.Level = level
	return infrastructure.NewLogger(cfg, stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.logLevel, stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config, using defaults", slog.String("error", err.Error()))
		cfg = config.Default()
	}
	paths, err := config.ResolvePaths(cfg, opts.baseDir)
	if err != nil {
		return err
	}

	bounds, err := stats.ParseBoundsPolicy(opts.bounds)
	if err != nil {
		return err
	}

	manager := session.NewManager(session.ManagerConfig{
		Settings: session.Settings{
			SlotCount: cfg.Analysis.SlotCount,
			Bounds:    bounds,
			Compare: compare.Options{
				Prefix:    cfg.Analysis.ComparisonPrefix,
				LabelA:    cfg.Analysis.LabelA,
				LabelB:    cfg.Analysis.LabelB,
				Threshold: cfg.Analysis.ComparisonThreshold,
			}.WithDefaults(),
		},
	}, logger)
	svc := services.NewAnalysisService(manager, nil, nil, nil, logger)

	files := validation.NewFileValidator(logger)
	if err := files.ValidateMeasurementFile(opts.input); err != nil {
		return err
	}

	info, err := svc.CreateSession(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	result, err := svc.IngestFile(ctx, info.ID, filepath.Base(opts.input), file)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", opts.input, err)
	}
	fmt.Fprintf(stderr, "loaded %d rows, %d dimensions (%s layout)\n", result.Rows, len(result.Dimensions), result.Layout)

	if opts.importFile != "" {
		if err := importRegistry(ctx, svc, info.ID, opts.importFile); err != nil {
			return err
		}
	}

	var order *string
	if opts.order != "" {
		order = &opts.order
	}
	summaries, err := svc.Summaries(ctx, info.ID, stats.Options{Order: order, Bounds: bounds}, opts.byOrder)
	if err != nil {
		return err
	}

	if err := exporter.Write(stdout, exporter.WriteOptions{
		Headers: exporter.StatHeaders,
		Records: exporter.StatRecords(summaries),
		Comma:   '\t',
	}); err != nil {
		return err
	}

	if opts.statsOut != "" {
		writer := exporter.NewCSVWriter(paths, logger)
		path, err := writer.WriteFile(opts.statsOut, exporter.WriteOptions{
			Headers:   exporter.StatHeaders,
			Records:   exporter.StatRecords(summaries),
			BOMPrefix: true,
		})
		if err != nil {
			return fmt.Errorf("failed to write statistics: %w", err)
		}
		fmt.Fprintf(stderr, "statistics written to %s\n", path)
	}

	if opts.registry != "" {
		target := paths.ExportPath(opts.registry)
		if err := files.ValidateOutputDirectory(filepath.Dir(target)); err != nil {
			return err
		}
		path, err := exportRegistry(ctx, svc, info.ID, target)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "registry written to %s\n", path)
	}
	return nil
}

func importRegistry(ctx context.Context, svc *services.AnalysisService, id, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open registry document: %w", err)
	}
	defer f.Close()

	if _, err := svc.ImportRegistry(ctx, id, f, registry.ImportMerge); err != nil {
		return fmt.Errorf("failed to import registry: %w", err)
	}
	return nil
}

func exportRegistry(ctx context.Context, svc *services.AnalysisService, id, path string) (string, error) {
	format := services.RegistryFormatJSON
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		format = services.RegistryFormatCSV
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create registry file: %w", err)
	}
	if err := svc.ExportRegistry(ctx, id, format, f); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
