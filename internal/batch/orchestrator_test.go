package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hyperjump/toridasu/internal/extract"
	"github.com/hyperjump/toridasu/internal/models"
	"github.com/hyperjump/toridasu/internal/reader"
	"github.com/hyperjump/toridasu/internal/serialize"
)

func onePageDoc(text string) *reader.StaticDocument {
	return &reader.StaticDocument{PageList: []reader.StaticPage{{PlainText: text}}}
}

// newInputDir writes n PDF placeholder files with distinct content and
// registers a static document for each.
func newInputDir(t *testing.T, n int) (string, *reader.StaticOpener) {
	t.Helper()
	dir := t.TempDir()
	opener := &reader.StaticOpener{
		Docs:    map[string]*reader.StaticDocument{},
		OpenErr: map[string]error{},
	}
	for i := 0; i < n; i++ {
		name := filepath.Join(dir, "doc"+string(rune('a'+i))+".pdf")
		if err := os.WriteFile(name, []byte("content "+name), 0600); err != nil {
			t.Fatal(err)
		}
		opener.Docs[name] = onePageDoc("words on page " + name)
	}
	return dir, opener
}

func newOrchestrator(opener reader.Opener, outDir string, opts ...Option) *Orchestrator {
	e := extract.NewExtractor(opener)
	s := serialize.NewSerializer(outDir)
	return NewOrchestrator(e, s, opts...)
}

func TestRun_allSucceed(t *testing.T) {
	inDir, opener := newInputDir(t, 3)
	outDir := t.TempDir()
	o := newOrchestrator(opener, outDir, WithWorkers(2))

	stats, err := o.Run(context.Background(), inDir, serialize.FormatFull)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Succeeded != 3 || stats.Failed != 0 {
		t.Errorf("stats: %+v", stats)
	}
	if len(stats.Outputs) != 3 {
		t.Fatalf("got %d outputs", len(stats.Outputs))
	}
	for _, out := range stats.Outputs {
		if _, err := os.Stat(out); err != nil {
			t.Errorf("output %q not written: %v", out, err)
		}
	}
	if stats.RunID == "" {
		t.Error("missing run id")
	}
}

func TestRun_oneFailureDoesNotAbort(t *testing.T) {
	inDir, opener := newInputDir(t, 3)
	// Make one file unopenable.
	var broken string
	for path := range opener.Docs {
		broken = path
		break
	}
	delete(opener.Docs, broken)
	opener.OpenErr[broken] = errors.New("not a pdf")

	o := newOrchestrator(opener, t.TempDir())
	stats, err := o.Run(context.Background(), inDir, serialize.FormatFull)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("stats: %+v", stats)
	}
	if len(stats.Outputs) != 2 {
		t.Errorf("got %d outputs", len(stats.Outputs))
	}
	if len(stats.Failures) != 1 || stats.Failures[0].Path != broken {
		t.Errorf("failures: %+v", stats.Failures)
	}
}

func TestRun_missingDirectory(t *testing.T) {
	o := newOrchestrator(&reader.StaticOpener{}, t.TempDir())
	_, err := o.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), serialize.FormatFull)
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Errorf("got %v, want ErrDirectoryNotFound", err)
	}
}

func TestRun_emptyDirectory(t *testing.T) {
	inDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(inDir, "notes.txt"), []byte("not a pdf"), 0600); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()
	o := newOrchestrator(&reader.StaticOpener{}, outDir)

	stats, err := o.Run(context.Background(), inDir, serialize.FormatFull)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stats.Outputs) != 0 || stats.Succeeded != 0 || stats.Failed != 0 {
		t.Errorf("stats: %+v", stats)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output files created for empty batch: %v", entries)
	}
}

func TestRun_duplicatesSkipped(t *testing.T) {
	inDir := t.TempDir()
	opener := &reader.StaticOpener{Docs: map[string]*reader.StaticDocument{}}
	// Two files with identical bytes hash to the same digest.
	for _, name := range []string{"a.pdf", "b.pdf"} {
		path := filepath.Join(inDir, name)
		if err := os.WriteFile(path, []byte("same content"), 0600); err != nil {
			t.Fatal(err)
		}
		opener.Docs[path] = onePageDoc("text")
	}
	e := extract.NewExtractor(opener, extract.WithDedupMode(extract.DedupSkip))
	o := NewOrchestrator(e, serialize.NewSerializer(t.TempDir()), WithWorkers(1))

	stats, err := o.Run(context.Background(), inDir, serialize.FormatFull)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Succeeded != 1 || stats.Skipped != 1 || stats.Failed != 0 {
		t.Errorf("stats: %+v", stats)
	}
}

func TestRun_hooks(t *testing.T) {
	inDir, opener := newInputDir(t, 2)

	var mu sync.Mutex
	var hookedPaths []string
	var runStats *models.BatchStats
	o := newOrchestrator(opener, t.TempDir(),
		WithRecordHook(func(_ context.Context, runID string, record *models.DocumentRecord, output string) error {
			mu.Lock()
			defer mu.Unlock()
			if runID == "" || output == "" || record == nil {
				t.Error("hook called with empty arguments")
			}
			hookedPaths = append(hookedPaths, record.FilePath)
			return nil
		}),
		WithRunHook(func(_ context.Context, stats *models.BatchStats) error {
			runStats = stats
			return nil
		}),
	)

	stats, err := o.Run(context.Background(), inDir, serialize.FormatSummary)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(hookedPaths) != 2 {
		t.Errorf("record hook ran %d times", len(hookedPaths))
	}
	if runStats == nil || runStats.RunID != stats.RunID {
		t.Errorf("run hook stats: %+v", runStats)
	}
}

func TestRun_hookErrorDoesNotFailFile(t *testing.T) {
	inDir, opener := newInputDir(t, 1)
	o := newOrchestrator(opener, t.TempDir(),
		WithRecordHook(func(context.Context, string, *models.DocumentRecord, string) error {
			return errors.New("catalog unavailable")
		}),
	)
	stats, err := o.Run(context.Background(), inDir, serialize.FormatFull)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Succeeded != 1 || stats.Failed != 0 {
		t.Errorf("stats: %+v", stats)
	}
}
