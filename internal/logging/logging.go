package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
)

type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json

	RollbarToken       string
	RollbarEnvironment string
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.ToUpper(s)))
	return level, err
}

// New builds the process logger. When a Rollbar token is set, error records
// are also reported to Rollbar.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", opts.Level)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if opts.Format == "json" {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}

	if opts.RollbarToken != "" {
		rollbar.SetToken(opts.RollbarToken)
		rollbar.SetEnvironment(opts.RollbarEnvironment)
		rollbar.SetStackTracer(rollbarerrors.StackTracer)
		h = NewRollbarHandler(h, rollbarReport)
	}
	return slog.New(h), nil
}

// Close flushes pending Rollbar reports.
func Close() {
	rollbar.Close()
}

func rollbarReport(err error, extras map[string]interface{}) {
	rollbar.Error(err, extras)
}

// RollbarHandler forwards records at error level and above to report, then
// passes every record on to the wrapped handler.
type RollbarHandler struct {
	next   slog.Handler
	report func(err error, extras map[string]interface{})
	attrs  []slog.Attr
}

func NewRollbarHandler(next slog.Handler, report func(error, map[string]interface{})) *RollbarHandler {
	return &RollbarHandler{next: next, report: report}
}

func (h *RollbarHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RollbarHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		var reported error
		extras := map[string]interface{}{}
		collect := func(a slog.Attr) bool {
			if e, ok := a.Value.Any().(error); ok && reported == nil {
				reported = e
				return true
			}
			extras[a.Key] = a.Value.String()
			return true
		}
		for _, a := range h.attrs {
			collect(a)
		}
		r.Attrs(collect)

		if reported == nil {
			reported = errors.New(r.Message)
		} else {
			extras["message"] = r.Message
		}
		h.report(reported, extras)
	}
	return h.next.Handle(ctx, r)
}

func (h *RollbarHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &RollbarHandler{next: h.next.WithAttrs(attrs), report: h.report, attrs: merged}
}

func (h *RollbarHandler) WithGroup(name string) slog.Handler {
	return &RollbarHandler{next: h.next.WithGroup(name), report: h.report, attrs: h.attrs}
}
