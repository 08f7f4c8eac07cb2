package render

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards everything and reports every level as disabled, so
// log calls cost nothing until a logger is installed.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger used by all renderers. By default nothing is
// logged; pass nil to go back to that.
//
// Levels used:
//   - [slog.LevelDebug]: buffer recomputation
//   - [slog.LevelInfo]: buffer allocation
//   - [slog.LevelWarn]: slice index outside the stack
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
