// Package tailer follows local log files and feeds appended lines through
// the ingestion pipeline. Files are read from the end; history present
// before startup is not replayed.
package tailer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/logging"
)

const (
	// maxBatch bounds how many lines are submitted in one ingest call.
	maxBatch = 500

	// pollInterval is the idle wait at EOF between read attempts.
	pollInterval = 100 * time.Millisecond
)

// Submitter is the slice of the ingest service the tailer drives.
type Submitter interface {
	Ingest(ctx context.Context, text, source string) (*ingest.Result, error)
}

// File is one followed path with its source label.
type File struct {
	Path   string
	Source string
}

// Tailer follows a set of files and survives rotation.
type Tailer struct {
	files   []File
	svc     Submitter
	logger  *logging.Logger
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	open map[string]*followedFile

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type followedFile struct {
	path   string
	source string
	file   *os.File
	reader *bufio.Reader
}

// New creates a tailer over the given files.
func New(files []File, svc Submitter, logger *logging.Logger) (*Tailer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Tailer{
		files:   files,
		svc:     svc,
		logger:  logger.WithComponent("tailer"),
		watcher: watcher,
		open:    make(map[string]*followedFile),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start opens every file at its end and begins following. A file that cannot
// be opened is logged and skipped; the rest keep working.
func (t *Tailer) Start() error {
	for _, f := range t.files {
		if err := t.openFile(f.Path, f.Source, true); err != nil {
			t.logger.Error().Err(err).Str("path", f.Path).Msg("failed to open file")
		}
	}

	t.wg.Add(1)
	go t.watchLoop()
	return nil
}

// Stop halts following and closes all files.
func (t *Tailer) Stop() {
	t.cancel()
	t.watcher.Close()

	t.mu.Lock()
	for _, ff := range t.open {
		ff.file.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *Tailer) sourceFor(path, source string) string {
	if source != "" {
		return source
	}
	return filepath.Base(path)
}

func (t *Tailer) openFile(path, source string, seekEnd bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if seekEnd {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			file.Close()
			return fmt.Errorf("seeking %s: %w", path, err)
		}
	}

	ff := &followedFile{
		path:   path,
		source: t.sourceFor(path, source),
		file:   file,
		reader: bufio.NewReader(file),
	}

	t.mu.Lock()
	t.open[path] = ff
	t.mu.Unlock()

	if err := t.watcher.Add(path); err != nil {
		t.logger.Warn().Err(err).Str("path", path).Msg("failed to watch file")
	}

	t.logger.Info().Str("path", path).Str("source", ff.source).Msg("following file")
	t.wg.Add(1)
	go t.readLoop(ff)
	return nil
}

// readLoop drains appended lines, batching them per ingest call. Partial
// batches flush whenever the reader reaches EOF.
func (t *Tailer) readLoop(ff *followedFile) {
	defer t.wg.Done()

	var pending []string
	flush := func() {
		if len(pending) == 0 {
			return
		}
		if _, err := t.svc.Ingest(t.ctx, strings.Join(pending, "\n"), ff.source); err != nil {
			t.logger.Error().Err(err).Str("path", ff.path).Msg("submitting tailed lines failed")
		}
		pending = pending[:0]
	}

	for {
		select {
		case <-t.ctx.Done():
			flush()
			return
		default:
		}

		line, err := ff.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				flush()
				time.Sleep(pollInterval)
				continue
			}
			// The file handle is gone, usually rotation. The watch loop
			// reopens the path.
			flush()
			return
		}

		if line = strings.TrimRight(line, "\r\n"); line != "" {
			pending = append(pending, line)
		}
		if len(pending) >= maxBatch {
			flush()
		}
	}
}

func (t *Tailer) watchLoop() {
	defer t.wg.Done()

	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			t.handleEvent(event)
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Error().Err(err).Msg("file watcher error")
		case <-t.ctx.Done():
			return
		}
	}
}

func (t *Tailer) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	path := event.Name
	t.logger.Info().Str("path", path).Msg("file rotation detected")

	t.mu.Lock()
	ff, ok := t.open[path]
	if ok {
		delete(t.open, path)
	}
	t.mu.Unlock()

	var source string
	if ok {
		ff.file.Close()
		source = ff.source
	}

	// Give the writer a moment to create the replacement, then read the new
	// file from the top so nothing written to it is missed.
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for i := 0; i < 50; i++ {
			select {
			case <-t.ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			if _, err := os.Stat(path); err == nil {
				if err := t.openFile(path, source, false); err != nil {
					t.logger.Error().Err(err).Str("path", path).Msg("failed to reopen rotated file")
				}
				return
			}
		}
		t.logger.Warn().Str("path", path).Msg("rotated file never reappeared")
	}()
}
