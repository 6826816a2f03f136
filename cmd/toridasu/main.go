// Package main is the Toridasu CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/toridasu/internal/batch"
	"github.com/hyperjump/toridasu/internal/catalog"
	"github.com/hyperjump/toridasu/internal/cli"
	"github.com/hyperjump/toridasu/internal/config"
	"github.com/hyperjump/toridasu/internal/extract"
	"github.com/hyperjump/toridasu/internal/keyword"
	"github.com/hyperjump/toridasu/internal/models"
	"github.com/hyperjump/toridasu/internal/reader"
	"github.com/hyperjump/toridasu/internal/report"
	"github.com/hyperjump/toridasu/internal/serialize"
	"github.com/hyperjump/toridasu/internal/server"
	"github.com/hyperjump/toridasu/internal/watcher"
	"github.com/hyperjump/toridasu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/toridasu/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	if _, err := os.Stat(path); err != nil {
		// No config anywhere: run on defaults.
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "batch":
		runBatch()
	case "extract":
		runExtract()
	case "serve":
		runServe()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("toridasu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runBatch() {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	workers := fs.Int("workers", 0, "concurrent workers (default from config)")
	format := fs.String("format", "", "output format: full or summary (default from config)")
	reportPath := fs.String("report", "", "write an XLSX report of the run to this path")
	outputFormat := fs.String("output", "text", "stats output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toridasu batch [flags] <input-dir> [output-dir]")
		os.Exit(1)
	}
	inputDir := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() >= 2 {
		cfg.Output.Directory = fs.Arg(1)
	}
	if *workers > 0 {
		cfg.Batch.MaxWorkers = *workers
	}
	if *format != "" {
		cfg.Output.Format = *format
	}

	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	outFormat, err := serialize.ParseFormat(cfg.Output.Format)
	if err != nil {
		fmt.Printf("Invalid format: %v\n", err)
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var reportMu sync.Mutex
	var reportRows []report.Row

	hooks := []batch.Option{
		batch.WithLogger(logger),
		batch.WithWorkers(cfg.Batch.MaxWorkers),
	}
	if components.Catalog != nil {
		hooks = append(hooks, batch.WithRecordHook(func(ctx context.Context, runID string, record *models.DocumentRecord, outputPath string) error {
			return components.Catalog.SaveRecord(ctx, record, outputPath, runID)
		}))
		hooks = append(hooks, batch.WithRunHook(func(ctx context.Context, stats *models.BatchStats) error {
			return components.Catalog.SaveRun(ctx, stats)
		}))
	}
	if components.Index != nil {
		hooks = append(hooks, batch.WithRecordHook(func(ctx context.Context, runID string, record *models.DocumentRecord, outputPath string) error {
			return components.Index.Add(record.FileHash, keyword.FromRecord(record))
		}))
	}
	if *reportPath != "" {
		hooks = append(hooks, batch.WithRecordHook(func(ctx context.Context, runID string, record *models.DocumentRecord, outputPath string) error {
			reportMu.Lock()
			defer reportMu.Unlock()
			reportRows = append(reportRows, report.Row{Record: record, OutputPath: outputPath})
			return nil
		}))
	}

	orch := batch.NewOrchestrator(components.Extractor, components.Serializer, hooks...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := orch.Run(ctx, inputDir, outFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Batch failed: %v\n", err)
		os.Exit(1)
	}

	if *reportPath != "" {
		if err := report.WriteXLSX(*reportPath, reportRows); err != nil {
			logger.Error("report write failed", zap.Error(err))
		} else {
			fmt.Printf("Report written: %s\n", *reportPath)
		}
	}

	statsFormat := cli.OutputText
	if *outputFormat == "json" {
		statsFormat = cli.OutputJSON
	}
	if err := cli.WriteBatchStats(os.Stdout, stats, statsFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	format := fs.String("format", "", "output format: full or summary (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toridasu extract [flags] <file.pdf>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	outFormat, err := serialize.ParseFormat(cfg.Output.Format)
	if err != nil {
		fmt.Printf("Invalid format: %v\n", err)
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	record, err := components.Extractor.Extract(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}
	outputPath, err := components.Serializer.Serialize(record, outFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Serialization failed: %v\n", err)
		os.Exit(1)
	}
	if components.Catalog != nil {
		if err := components.Catalog.SaveRecord(ctx, record, outputPath, ""); err != nil {
			logger.Warn("catalog save failed", zap.Error(err))
		}
	}
	if components.Index != nil {
		if err := components.Index.Add(record.FileHash, keyword.FromRecord(record)); err != nil {
			logger.Warn("keyword indexing failed", zap.Error(err))
		}
	}

	fmt.Print(serialize.SummaryReport(record))
	fmt.Printf("\nOutput written: %s\n", outputPath)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	outFormat, err := serialize.ParseFormat(cfg.Output.Format)
	if err != nil {
		logger.Fatal("Invalid output format", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(
		components.Extractor,
		components.Serializer,
		components.Catalog,
		components.Index,
		&cfg.Server,
		logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if len(cfg.Watch.Directories) > 0 {
		ingest := func(path string) {
			record, err := components.Extractor.Extract(context.Background(), path)
			if err != nil {
				logger.Warn("watch extraction failed", zap.String("path", path), zap.Error(err))
				return
			}
			outputPath, err := components.Serializer.Serialize(record, outFormat)
			if err != nil {
				logger.Warn("watch serialization failed", zap.String("path", path), zap.Error(err))
				return
			}
			if components.Catalog != nil {
				if err := components.Catalog.SaveRecord(context.Background(), record, outputPath, ""); err != nil {
					logger.Warn("watch catalog save failed", zap.Error(err))
				}
			}
			if components.Index != nil {
				if err := components.Index.Add(record.FileHash, keyword.FromRecord(record)); err != nil {
					logger.Warn("watch keyword indexing failed", zap.Error(err))
				}
			}
			logger.Info("watched file extracted",
				zap.String("path", path),
				zap.String("output", outputPath))
		}

		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watch := watcher.New(cfg.Watch.Directories, cfg.Watch.RecursiveOrDefault(), ingest, watchOpts...)
		if err := watch.Start(gctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watch.Stop()
		watch.SyncExisting()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve exited", zap.Error(err))
		os.Exit(1)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: toridasu search [flags] <query>")
		os.Exit(1)
	}
	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: toridasu search [flags] <query>")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	idx, err := keyword.OpenIndex(cfg.Keyword.IndexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open keyword index: %v\n", err)
		os.Exit(1)
	}
	defer idx.Close()

	hits, err := idx.Search(query, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}
	if err := cli.WriteSearchHits(os.Stdout, query, hits, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// buildQuery joins all positional args with spaces so multi-word queries work
// the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	cat, err := catalog.Open(cfg.Catalog.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open catalog: %v\n", err)
		os.Exit(1)
	}
	defer cat.Close()

	ctx := context.Background()
	records, err := cat.CountRecords(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count records failed: %v\n", err)
		os.Exit(1)
	}
	runs, err := cat.CountRuns(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Count runs failed: %v\n", err)
		os.Exit(1)
	}

	var indexed uint64
	if cfg.Keyword.Enabled {
		if idx, idxErr := keyword.OpenIndex(cfg.Keyword.IndexPath); idxErr == nil {
			indexed, _ = idx.Count()
			_ = idx.Close()
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"records":           records,
			"runs":              runs,
			"indexed_documents": indexed,
			"catalog_path":      cfg.Catalog.DatabasePath,
		})
	default:
		fmt.Printf("records:            %d   # cataloged extractions\n", records)
		fmt.Printf("runs:               %d   # recorded batch runs\n", runs)
		if cfg.Keyword.Enabled {
			fmt.Printf("indexed_documents:  %d   # keyword-searchable documents\n", indexed)
		}
		fmt.Printf("catalog_path:       %s\n", cfg.Catalog.DatabasePath)
	}
}

// Components holds initialized services.
type Components struct {
	Extractor  *extract.Extractor
	Serializer *serialize.Serializer
	Catalog    *catalog.Catalog
	Index      *keyword.Index
}

func (c *Components) Close() {
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	extractOpts := []extract.Option{
		extract.WithLogger(logger),
		extract.WithImageExtraction(cfg.Extract.EnableImagesOrDefault()),
	}
	switch cfg.Extract.DedupMode {
	case config.DedupSkip:
		extractOpts = append(extractOpts, extract.WithDedupMode(extract.DedupSkip))
	case config.DedupObserve, "":
		extractOpts = append(extractOpts, extract.WithDedupMode(extract.DedupObserve))
	default:
		return nil, fmt.Errorf("unknown dedup mode %q", cfg.Extract.DedupMode)
	}
	extractor := extract.NewExtractor(reader.NewPDFOpener(), extractOpts...)

	serializer := serialize.NewSerializer(cfg.Output.Directory, serialize.WithLogger(logger))

	cat, err := catalog.Open(cfg.Catalog.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	var idx *keyword.Index
	if cfg.Keyword.Enabled {
		idx, err = keyword.OpenIndex(cfg.Keyword.IndexPath)
		if err != nil {
			_ = cat.Close()
			return nil, fmt.Errorf("failed to open keyword index: %w", err)
		}
	}

	return &Components{
		Extractor:  extractor,
		Serializer: serializer,
		Catalog:    cat,
		Index:      idx,
	}, nil
}

func printUsage() {
	fmt.Println(`toridasu - PDF content extraction pipeline

Usage:
  toridasu batch [flags] <input-dir> [output-dir]   Extract every PDF in a directory
  toridasu extract [flags] <file.pdf>               Extract a single PDF
  toridasu serve [flags]                            Start the HTTP API (and watcher, if configured)
  toridasu search [flags] <query>                   Search extracted text
  toridasu status [flags]                           Show catalog/index status
  toridasu version                                  Show version
  toridasu help                                     Show this help

Batch Flags:
  --config string    Config file path (default: /usr/local/etc/toridasu/config.yaml)
  --workers int      Concurrent workers (default from config: 4)
  --format string    Output format: full or summary (default from config: full)
  --report string    Write an XLSX report of the run to this path
  --output string    Stats output format: text or json (default: text)
  --debug            Enable debug logging

Extract Flags:
  --config string    Config file path
  --format string    Output format: full or summary
  --debug            Enable debug logging

Serve Flags:
  --config string    Config file path
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path
  --limit int        Number of results (default: 10)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Examples:
  toridasu batch ./pdfs ./extracted_content
  toridasu batch --workers 8 --format summary --report run.xlsx ./pdfs
  toridasu extract report.pdf
  toridasu serve
  toridasu search "quarterly revenue"
  toridasu status --output json`)
}
