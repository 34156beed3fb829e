package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"lectern/internal/config"
	"lectern/internal/history"
	"lectern/internal/ledger"
	"lectern/internal/pipeline"
	"lectern/internal/testsupport"
)

// fakeModelServer answers every chat completion with fixed markdown.
func fakeModelServer(t *testing.T, cfg *config.Config) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"# Notes\n\n- structured point"}}]}`))
	}))
	t.Cleanup(server.Close)
	cfg.LLM.BaseURL = server.URL
}

// flagValue returns the value following flag in args, or "".
func flagValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// stubTranscriber makes the whisper collaborator write a transcript for the
// source file, failing for keys listed in failKeys.
func stubTranscriber(t *testing.T, collab *pipeline.Collaborators, calls *[]string, failKeys map[string]bool) {
	t.Helper()
	collab.Transcriber.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		source := args[0]
		key := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		if calls != nil {
			*calls = append(*calls, key)
		}
		if failKeys[key] {
			return errors.New("whisper exited 1")
		}
		outputDir := flagValue(args, "--output_dir")
		return os.WriteFile(filepath.Join(outputDir, key+".txt"), []byte("spoken words"), 0o644)
	})
}

// stubExtractor makes the ffmpeg collaborator write the destination file.
func stubExtractor(t *testing.T, collab *pipeline.Collaborators) {
	t.Helper()
	collab.Extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return os.WriteFile(args[len(args)-1], []byte("pcm"), 0o644)
	})
}

func seedFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config) (*pipeline.Pipeline, *pipeline.Collaborators) {
	t.Helper()
	collab, err := pipeline.NewCollaborators(cfg)
	if err != nil {
		t.Fatalf("NewCollaborators failed: %v", err)
	}
	return pipeline.New(cfg, nil, pipeline.Stages(cfg, collab)), collab
}

func TestRunProcessesRecordingEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fakeModelServer(t, cfg)
	seedFile(t, filepath.Join(cfg.Paths.RecordingsDir, "lecture01.mp4"))

	pipe, collab := newTestPipeline(t, cfg)
	stubExtractor(t, collab)
	stubTranscriber(t, collab, nil, nil)

	summary, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed() != 0 {
		t.Fatalf("unexpected failures: %+v", summary)
	}

	for _, path := range []string{
		filepath.Join(cfg.Paths.AudioDir, "lecture01.wav"),
		filepath.Join(cfg.Paths.TranscriptsDir, "lecture01.txt"),
		filepath.Join(cfg.Paths.NotesDir, "lecture01.md"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}

	led, err := ledger.Load(cfg.Paths.LedgerPath, pipeline.Columns())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	for _, column := range []string{"extracted", "transcribed", "structured"} {
		if !led.IsComplete("lecture01", column) {
			t.Fatalf("expected %s complete", column)
		}
	}
	if led.IsComplete("lecture01", "imported") {
		t.Fatal("imported must stay unset for an audio item")
	}

	notes, err := os.ReadFile(filepath.Join(cfg.Paths.NotesDir, "lecture01.md"))
	if err != nil {
		t.Fatalf("read notes: %v", err)
	}
	if !strings.Contains(string(notes), "structured point") {
		t.Fatalf("model output missing from notes: %s", notes)
	}
}

func TestRunRetriesOnlyFailedItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fakeModelServer(t, cfg)
	seedFile(t, filepath.Join(cfg.Paths.AudioDir, "a.wav"))
	seedFile(t, filepath.Join(cfg.Paths.AudioDir, "b.wav"))

	pipe, collab := newTestPipeline(t, cfg)
	var calls []string
	stubTranscriber(t, collab, &calls, map[string]bool{"b": true})

	summary, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if summary.Failed() != 1 {
		t.Fatalf("expected one failure, got %+v", summary)
	}
	if summary.Status() != pipeline.StatusWithFailures {
		t.Fatalf("unexpected status %q", summary.Status())
	}

	led, err := ledger.Load(cfg.Paths.LedgerPath, pipeline.Columns())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if !led.IsComplete("a", "transcribed") || !led.IsComplete("a", "structured") {
		t.Fatal("a must finish on the first run")
	}
	if led.IsComplete("b", "transcribed") {
		t.Fatal("b must stay pending after its failure")
	}

	// Second run: only b is retried, then structured.
	calls = nil
	stubTranscriber(t, collab, &calls, nil)
	pipe2 := pipeline.New(cfg, nil, pipeline.Stages(cfg, collab))
	summary2, err := pipe2.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(calls) != 1 || calls[0] != "b" {
		t.Fatalf("second run must transcribe only b, got %v", calls)
	}
	if summary2.Failed() != 0 {
		t.Fatalf("unexpected failures: %+v", summary2)
	}

	led, err = ledger.Load(cfg.Paths.LedgerPath, pipeline.Columns())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if !led.IsComplete("b", "transcribed") || !led.IsComplete("b", "structured") {
		t.Fatal("b must finish on the second run")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fakeModelServer(t, cfg)
	seedFile(t, filepath.Join(cfg.Paths.AudioDir, "a.wav"))

	pipe, collab := newTestPipeline(t, cfg)
	stubTranscriber(t, collab, nil, nil)
	if _, err := pipe.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Re-run with collaborators that must not be reached.
	collab.Transcriber.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		t.Error("transcriber invoked on an idempotent re-run")
		return nil
	})
	pipe2 := pipeline.New(cfg, nil, pipeline.Stages(cfg, collab))
	summary, err := pipe2.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.Completed() != 0 || summary.Reconciled() != 0 || summary.Failed() != 0 {
		t.Fatalf("re-run must be a no-op, got %+v", summary)
	}
}

func TestRunReconcilesExistingOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fakeModelServer(t, cfg)
	seedFile(t, filepath.Join(cfg.Paths.RecordingsDir, "a.mp4"))
	// The audio artifact already exists but the ledger does not know it.
	seedFile(t, filepath.Join(cfg.Paths.AudioDir, "a.wav"))

	pipe, collab := newTestPipeline(t, cfg)
	collab.Extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		t.Error("extractor invoked although the output exists")
		return nil
	})
	stubTranscriber(t, collab, nil, nil)

	summary, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Reconciled() == 0 {
		t.Fatalf("expected a reconcile, got %+v", summary)
	}
	led, err := ledger.Load(cfg.Paths.LedgerPath, pipeline.Columns())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if !led.IsComplete("a", "extracted") {
		t.Fatal("reconcile must mark extraction complete")
	}
}

func TestRunImportsRawText(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fakeModelServer(t, cfg)
	seedFile(t, filepath.Join(cfg.Paths.RawTextDir, "seminar.txt"))

	pipe, collab := newTestPipeline(t, cfg)
	collab.Transcriber.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		t.Error("transcriber invoked for a text-only item")
		return nil
	})

	summary, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed() != 0 {
		t.Fatalf("unexpected failures: %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.NotesDir, "seminar.md")); err != nil {
		t.Fatalf("expected notes for imported text: %v", err)
	}
	led, err := ledger.Load(cfg.Paths.LedgerPath, pipeline.Columns())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if !led.IsComplete("seminar", "imported") || !led.IsComplete("seminar", "structured") {
		t.Fatal("imported item must reach structured")
	}
}

func TestRunDownloadsFromURLTable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fakeModelServer(t, cfg)
	cfg.Downloader.Enabled = true
	cfg.Downloader.AudioFormat = "mp3"
	if err := os.WriteFile(cfg.Paths.URLTable,
		[]byte("url,title\nhttps://example.com/v/1,Guest Talk\n"), 0o644); err != nil {
		t.Fatalf("seed url table: %v", err)
	}

	pipe, collab := newTestPipeline(t, cfg)
	collab.Downloader.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		template := flagValue(args, "--output")
		return os.WriteFile(strings.Replace(template, "%(ext)s", "mp3", 1), []byte("audio"), 0o644)
	})
	stubTranscriber(t, collab, nil, nil)

	summary, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed() != 0 {
		t.Fatalf("unexpected failures: %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.AudioDir, "Guest Talk.mp3")); err != nil {
		t.Fatalf("expected downloaded audio: %v", err)
	}
	led, err := ledger.Load(cfg.Paths.LedgerPath, pipeline.Columns())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	for _, column := range []string{"downloaded", "transcribed", "structured"} {
		if !led.IsComplete("Guest Talk", column) {
			t.Fatalf("expected %s complete for downloaded item", column)
		}
	}
}

func TestRunRefusesConcurrentInvocation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock := flock.New(cfg.Paths.LedgerPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("seed lock: %v", err)
	}
	defer lock.Unlock()

	pipe, _ := newTestPipeline(t, cfg)
	if _, err := pipe.Run(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fakeModelServer(t, cfg)
	seedFile(t, filepath.Join(cfg.Paths.AudioDir, "a.wav"))

	store, err := history.Open(filepath.Join(cfg.Paths.LogDir, "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()

	collab, err := pipeline.NewCollaborators(cfg)
	if err != nil {
		t.Fatalf("NewCollaborators failed: %v", err)
	}
	stubTranscriber(t, collab, nil, nil)
	pipe := pipeline.New(cfg, nil, pipeline.Stages(cfg, collab), pipeline.WithHistory(store))

	summary, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	runs, err := store.RecentRuns(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[0].Completed != summary.Completed() {
		t.Fatalf("history count mismatch: %+v vs %+v", runs[0], summary)
	}
}

func TestStatusSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fakeModelServer(t, cfg)
	seedFile(t, filepath.Join(cfg.Paths.AudioDir, "a.wav"))

	pipe, collab := newTestPipeline(t, cfg)
	stubTranscriber(t, collab, nil, nil)
	if _, err := pipe.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	snapshot, err := pipeline.Status(cfg)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(snapshot.Items) != 1 || snapshot.Items[0].Key != "a" {
		t.Fatalf("unexpected snapshot items: %+v", snapshot.Items)
	}
	if snapshot.Counts["transcribed"] != 1 || snapshot.Counts["extracted"] != 0 {
		t.Fatalf("unexpected counts: %+v", snapshot.Counts)
	}
}
