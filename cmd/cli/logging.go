package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/JustinBeckwith/flem/pkg/lib"
	"github.com/JustinBeckwith/flem/pkg/lib/output_storage"
)

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// logOutput writes one sink record through logger, keeping its timestamp.
func logOutput(logger *slog.Logger, o lib.Output) {
	ctx := context.Background()
	h := logger.Handler()
	if !h.Enabled(ctx, o.Level) {
		return
	}
	var r slog.Record
	if o.IsEvent() {
		r = slog.NewRecord(o.Time, o.Level, "lifecycle", 0)
		r.AddAttrs(slog.String("event", string(o.Event)))
	} else {
		r = slog.NewRecord(o.Time, o.Level, o.Text, 0)
	}
	_ = h.Handle(ctx, r)
}

// session is the output plumbing shared by the commands that drive the
// engine: every record goes through a non-retaining stream to logger, so a
// long hot reload session does not keep its output in memory.
type session struct {
	logger  *slog.Logger
	storage *output_storage.OutputStorage
	sink    lib.Sink
	done    chan struct{}
}

func newSession(w io.Writer, verbose bool) *session {
	s := &session{
		logger:  newLogger(w, verbose),
		storage: output_storage.RunNewOutputStream(),
		done:    make(chan struct{}),
	}
	s.sink = s.storage

	ch := s.storage.Subscribe(64)
	go func() {
		defer close(s.done)
		for o := range ch {
			logOutput(s.logger, o)
		}
	}()
	return s
}

// tee adds another sink after storage.
func (s *session) tee(sink lib.Sink) {
	s.sink = lib.Tee(s.sink, sink)
}

// Close stops storage and waits until every record has been logged.
func (s *session) Close() {
	s.storage.Stop()
	<-s.done
}
