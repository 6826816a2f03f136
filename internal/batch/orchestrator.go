// Package batch runs document extraction over directories with bounded
// concurrency. Each worker owns one document end to end (open, page loop,
// close, serialize); only the set of documents is parallelized.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/toridasu/internal/extract"
	"github.com/hyperjump/toridasu/internal/models"
	"github.com/hyperjump/toridasu/internal/serialize"
)

// ErrDirectoryNotFound reports a missing batch input directory.
var ErrDirectoryNotFound = errors.New("directory not found")

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 4

// failedSampleSize caps the failed-file names included in the batch log.
const failedSampleSize = 5

// RecordHook runs after each successful extraction (catalog insert, keyword
// indexing). Hooks may be called concurrently from worker goroutines.
type RecordHook func(ctx context.Context, runID string, record *models.DocumentRecord, outputPath string) error

// RunHook runs once after all tasks of a batch complete.
type RunHook func(ctx context.Context, stats *models.BatchStats) error

// Orchestrator dispatches extraction tasks to a fixed worker pool and
// collects results in completion order.
type Orchestrator struct {
	extractor   *extract.Extractor
	serializer  *serialize.Serializer
	workers     int
	recordHooks []RecordHook
	runHooks    []RunHook
	logger      *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a logger for per-file and aggregate reporting.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithWorkers sets the worker pool size (default 4).
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRecordHook registers fn to run after each successful extraction.
// Hook errors are logged and do not fail the file.
func WithRecordHook(fn RecordHook) Option {
	return func(o *Orchestrator) { o.recordHooks = append(o.recordHooks, fn) }
}

// WithRunHook registers fn to run once after the batch completes.
func WithRunHook(fn RunHook) Option {
	return func(o *Orchestrator) { o.runHooks = append(o.runHooks, fn) }
}

// NewOrchestrator creates an orchestrator around an extractor and a
// serializer.
func NewOrchestrator(extractor *extract.Extractor, serializer *serialize.Serializer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor:  extractor,
		serializer: serializer,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type taskResult struct {
	path   string
	output string
	record *models.DocumentRecord
	err    error
}

// Run extracts every *.pdf file directly under inputDir (non-recursive) and
// returns the batch stats. One file's failure never aborts the batch; the
// only error Run itself returns is a structural one (missing input
// directory). An input directory with no PDF files yields empty stats and a
// warning, not an error.
func (o *Orchestrator) Run(ctx context.Context, inputDir string, format serialize.Format) (*models.BatchStats, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, inputDir)
		}
		return nil, fmt.Errorf("stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, inputDir)
	}

	files, err := filepath.Glob(filepath.Join(inputDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}

	stats := &models.BatchStats{
		RunID:    uuid.New().String(),
		InputDir: inputDir,
		Outputs:  []string{},
	}
	if len(files) == 0 {
		if o.logger != nil {
			o.logger.Warn("no PDF files found", zap.String("dir", inputDir))
		}
		return stats, nil
	}

	workers := o.workers
	if workers > len(files) {
		workers = len(files)
	}
	if o.logger != nil {
		o.logger.Info("starting batch",
			zap.String("run_id", stats.RunID),
			zap.Int("files", len(files)),
			zap.Int("workers", workers))
	}

	start := time.Now()
	jobs := make(chan string, len(files))
	results := make(chan taskResult, len(files))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- o.processOne(ctx, stats.RunID, path, format)
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		switch {
		case res.err == nil:
			stats.Outputs = append(stats.Outputs, res.output)
			stats.Succeeded++
			if o.logger != nil {
				o.logger.Info("completed", zap.String("file", filepath.Base(res.path)))
			}
		case errors.Is(res.err, extract.ErrDuplicateDocument):
			stats.Skipped++
			if o.logger != nil {
				o.logger.Info("skipped duplicate", zap.String("file", filepath.Base(res.path)))
			}
		default:
			stats.Failed++
			stats.Failures = append(stats.Failures, models.BatchFailure{
				Path: res.path,
				Err:  res.err.Error(),
			})
			if o.logger != nil {
				o.logger.Error("failed", zap.String("file", filepath.Base(res.path)), zap.Error(res.err))
			}
		}
	}
	stats.Elapsed = time.Since(start).Seconds()

	o.logSummary(stats)
	for _, hook := range o.runHooks {
		if err := hook(ctx, stats); err != nil && o.logger != nil {
			o.logger.Warn("run hook failed", zap.Error(err))
		}
	}
	return stats, nil
}

// processOne runs one document end to end: extract, serialize, then feed the
// registered hooks.
func (o *Orchestrator) processOne(ctx context.Context, runID, path string, format serialize.Format) taskResult {
	record, err := o.extractor.Extract(ctx, path)
	if err != nil {
		return taskResult{path: path, err: err}
	}
	output, err := o.serializer.Serialize(record, format)
	if err != nil {
		return taskResult{path: path, err: err}
	}
	for _, hook := range o.recordHooks {
		if err := hook(ctx, runID, record, output); err != nil && o.logger != nil {
			o.logger.Warn("record hook failed",
				zap.String("file", filepath.Base(path)),
				zap.Error(err))
		}
	}
	return taskResult{path: path, output: output, record: record}
}

func (o *Orchestrator) logSummary(stats *models.BatchStats) {
	if o.logger == nil {
		return
	}
	o.logger.Info("batch complete",
		zap.String("run_id", stats.RunID),
		zap.Float64("seconds", stats.Elapsed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped))
	if stats.Failed == 0 {
		return
	}
	sample := make([]string, 0, failedSampleSize)
	for _, f := range stats.Failures {
		if len(sample) == failedSampleSize {
			break
		}
		sample = append(sample, filepath.Base(f.Path))
	}
	o.logger.Info("failed files", zap.Strings("sample", sample))
}
