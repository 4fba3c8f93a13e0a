package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dateSuffix = "2006-01-02"

// DailyWriter is a zapcore.WriteSyncer appending to <dir>/<name>.<date>,
// switching to a new file at local midnight.
type DailyWriter struct {
	dir  string
	name string
	now  func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

func NewDailyWriter(dir, name string) (*DailyWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &DailyWriter{dir: dir, name: name, now: time.Now}, nil
}

func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotate(); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

func (w *DailyWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// CurrentPath is the file receiving writes for the current local day.
func (w *DailyWriter) CurrentPath() string {
	return w.pathFor(w.now().Format(dateSuffix))
}

func (w *DailyWriter) pathFor(day string) string {
	return filepath.Join(w.dir, w.name+"."+day)
}

// rotate must be called with w.mu held.
func (w *DailyWriter) rotate() error {
	day := w.now().Format(dateSuffix)
	if w.file != nil && day == w.day {
		return nil
	}

	f, err := os.OpenFile(w.pathFor(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	w.file = f
	w.day = day
	return nil
}
