package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetupLoggerConsoleOnlyWhenSeqURLEmpty(t *testing.T) {
	logger, closeFn := SetupLogger(Options{Level: slog.LevelInfo})
	defer closeFn()

	if logger == nil {
		t.Fatal("SetupLogger returned nil logger")
	}
	// Must not panic; console-only path returns a no-op close.
	closeFn()
}

func TestMultiHandlerFansOutToEveryHandler(t *testing.T) {
	a := recordingHandler{enabled: true}
	b := recordingHandler{enabled: true}
	multi := &multiHandler{handlers: []slog.Handler{&a, &b}}
	logger := slog.New(multi)

	logger.Info("hello", "k", "v")

	if a.count != 1 || b.count != 1 {
		t.Fatalf("a.count=%d b.count=%d, want 1 and 1", a.count, b.count)
	}
}

func TestMultiHandlerEnabledIfAnyHandlerEnabled(t *testing.T) {
	enabled := recordingHandler{enabled: true}
	disabled := recordingHandler{enabled: false}
	multi := &multiHandler{handlers: []slog.Handler{&enabled, &disabled}}

	if !multi.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("Enabled() = false, want true when any handler is enabled")
	}
}

type recordingHandler struct {
	enabled bool
	count   int
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.enabled
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.count++
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(name string) slog.Handler      { return h }
