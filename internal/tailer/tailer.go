// Package tailer streams new lines from a growing log file.
//
// The Unity editor is the single writer of the file; the tailer is the
// single reader. It polls on a fixed interval, forwards each complete new
// line to a sink, and stops itself when the file is rotated out from under
// it. Lifecycle is explicit: Start when the editor process launches, Stop
// after it exits (the caller waits a drain grace first so buffered lines
// make it out).
package tailer

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultInterval is the poll interval between reads.
const DefaultInterval = 500 * time.Millisecond

// DrainGrace is how long callers should wait after the editor exits before
// stopping the tailer, so trailing writes get picked up.
const DrainGrace = time.Second

// Tailer polls a log file and forwards complete lines to a sink.
type Tailer struct {
	log      *slog.Logger
	path     string
	sink     func(line string)
	interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	started bool
	stopped bool
	wg      sync.WaitGroup

	offset  int64
	partial []byte
}

// New creates a tailer for the given file. The sink receives each complete
// line without its trailing newline. The file does not need to exist yet.
func New(log *slog.Logger, path string, sink func(line string)) *Tailer {
	return &Tailer{
		log:      log.With("component", "tailer"),
		path:     path,
		sink:     sink,
		interval: DefaultInterval,
		done:     make(chan struct{}),
	}
}

// Start launches the polling goroutine. Calling Start twice is a no-op.
func (t *Tailer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started || t.stopped {
		return
	}

	t.started = true

	t.log.Debug("Starting log tailer", "path", t.path, "interval", t.interval)

	t.wg.Go(func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.done:
				// Final poll so lines written just before Stop are
				// not lost.
				t.poll()

				return
			case <-ticker.C:
				if !t.poll() {
					return
				}
			}
		}
	})
}

// Stop signals the tailer to finish and waits for the goroutine to exit.
// Safe to call multiple times and before Start.
func (t *Tailer) Stop() {
	t.mu.Lock()

	if !t.stopped {
		t.stopped = true

		close(t.done)
	}

	t.mu.Unlock()

	t.wg.Wait()
}

// poll reads any new content and forwards complete lines. It returns false
// when tailing should stop because the file was rotated.
func (t *Tailer) poll() bool {
	f, err := os.Open(t.path)
	if err != nil {
		// Not written yet, or already cleaned up. Keep polling.
		return true
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return true
	}

	if info.Size() < t.offset {
		t.log.Debug("Log file rotated, stopping tailer", "path", t.path, "size", info.Size(), "offset", t.offset)

		return false
	}

	if info.Size() == t.offset {
		return true
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		t.log.Warn("Failed to seek log file", "error", err)

		return true
	}

	data, err := io.ReadAll(f)
	if err != nil {
		t.log.Warn("Failed to read log file", "error", err)

		return true
	}

	t.offset += int64(len(data))

	t.forward(data)

	return true
}

// forward emits complete lines from data, carrying any trailing partial
// line over to the next poll.
func (t *Tailer) forward(data []byte) {
	data = append(t.partial, data...)

	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}

		line := data[:idx]
		line = bytes.TrimSuffix(line, []byte("\r"))

		t.sink(string(line))

		data = data[idx+1:]
	}

	t.partial = append(t.partial[:0], data...)
}
