// Package flightlog persists per-tick telemetry as hourly-rotated
// zstd-compressed JSONL files. These files are the durable record of a
// simulation run; the SQLite index is derived and disposable.
package flightlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"skyfleet.ai/internal/sim/world"
)

const writerBufSize = 128 * 1024

// Writer appends JSON lines to hour-partitioned .jsonl.zst files under
// dir, rotating when the wall-clock hour changes. Safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	dir     string
	prefix  string
	curHour string
	f       *os.File
	zw      *zstd.Encoder
	bw      *bufio.Writer
}

// NewWriter creates dir if needed. prefix names the file family, e.g.
// "ticks" produces ticks-2026-01-14-09.jsonl.zst.
func NewWriter(dir, prefix string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("flightlog: mkdir %s: %w", dir, err)
	}
	return &Writer{dir: dir, prefix: prefix}, nil
}

// Append writes v as one JSON line to the current hour's file.
func (w *Writer) Append(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("flightlog: marshal: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.bw.Write(b); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("flightlog: open %s: %w", path, err)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return fmt.Errorf("flightlog: zstd writer: %w", err)
	}
	w.f = f
	w.zw = zw
	w.bw = bufio.NewWriterSize(zw, writerBufSize)
	w.curHour = hour
	return nil
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

func (w *Writer) closeLocked() error {
	if w.f == nil {
		return nil
	}
	var firstErr error
	if err := w.bw.Flush(); err != nil {
		firstErr = err
	}
	if err := w.zw.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	w.f = nil
	w.zw = nil
	w.bw = nil
	w.curHour = ""
	return firstErr
}

// Flush pushes buffered lines down to the OS without closing the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bw == nil {
		return nil
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}
	return w.zw.Flush()
}

// Close flushes and closes the current file. The writer may be reused;
// the next Append reopens.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// TickLogger records one entry per simulation tick. It satisfies the
// world engine's telemetry hook.
type TickLogger struct {
	w *Writer
}

func NewTickLogger(dir string) (*TickLogger, error) {
	w, err := NewWriter(dir, "ticks")
	if err != nil {
		return nil, err
	}
	return &TickLogger{w: w}, nil
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.w.Append(e) }
func (l *TickLogger) Flush() error                         { return l.w.Flush() }
func (l *TickLogger) Close() error                         { return l.w.Close() }
