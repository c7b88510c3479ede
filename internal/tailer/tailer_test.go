package tailer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/logging"
)

type captureSubmitter struct {
	mu      sync.Mutex
	batches []struct{ text, source string }
}

func (c *captureSubmitter) Ingest(ctx context.Context, text, source string) (*ingest.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, struct{ text, source string }{text, source})
	return &ingest.Result{}, nil
}

func (c *captureSubmitter) lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, b := range c.batches {
		out = append(out, strings.Split(b.text, "\n")...)
	}
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func startTailer(t *testing.T, files []File, sub Submitter) *Tailer {
	t.Helper()
	tl, err := New(files, sub, logging.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(tl.Stop)
	return tl
}

func TestTailerSkipsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("old line\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sub := &captureSubmitter{}
	startTailer(t, []File{{Path: path, Source: "app"}}, sub)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("new line one\nnew line two\n")
	f.Close()

	waitFor(t, 3*time.Second, func() bool { return len(sub.lines()) >= 2 })

	lines := sub.lines()
	for _, line := range lines {
		if line == "old line" {
			t.Error("pre-existing content was replayed")
		}
	}
	if lines[0] != "new line one" || lines[1] != "new line two" {
		t.Errorf("lines = %v", lines)
	}

	sub.mu.Lock()
	source := sub.batches[0].source
	sub.mu.Unlock()
	if source != "app" {
		t.Errorf("source = %q, want app", source)
	}
}

func TestTailerDefaultsSourceToFilename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nginx.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	sub := &captureSubmitter{}
	startTailer(t, []File{{Path: path}}, sub)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("a line\n")
	f.Close()

	waitFor(t, 3*time.Second, func() bool { return len(sub.lines()) >= 1 })

	sub.mu.Lock()
	source := sub.batches[0].source
	sub.mu.Unlock()
	if source != "nginx.log" {
		t.Errorf("source = %q, want nginx.log", source)
	}
}

func TestTailerSurvivesRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	sub := &captureSubmitter{}
	startTailer(t, []File{{Path: path, Source: "app"}}, sub)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("before rotation\n")
	f.Close()
	waitFor(t, 3*time.Second, func() bool { return len(sub.lines()) >= 1 })

	if err := os.Rename(path, filepath.Join(dir, "app.log.1")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("after rotation\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 5*time.Second, func() bool {
		for _, line := range sub.lines() {
			if line == "after rotation" {
				return true
			}
		}
		return false
	})
}
