package output_storage

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

// LineWriter implements io.Writer for subprocess stdio. Every complete line
// written to it is published to the sink as one log record at a fixed
// level, with the line terminator stripped. A trailing partial line is held
// until Flush.
type LineWriter struct {
	sink  lib.Sink
	level slog.Level

	mu  sync.Mutex
	buf []byte
}

func NewLineWriter(sink lib.Sink, level slog.Level) *LineWriter {
	if sink == nil {
		sink = lib.Discard
	}
	return &LineWriter{sink: sink, level: level}
}

// Write never fails; it returns len(p), nil.
func (w *LineWriter) Write(p []byte) (int, error) {
	if w == nil {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Copy the input to avoid retaining caller's buffer.
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.publish(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}

	return len(p), nil
}

// Flush publishes a pending partial line, if any.
func (w *LineWriter) Flush() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.publish(string(w.buf))
		w.buf = nil
	}
}

func (w *LineWriter) publish(line string) {
	w.sink.Publish(lib.Output{Level: w.level, Text: strings.TrimRight(line, "\r")})
}
