// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrPanic wraps a panic recovered inside Capture.
var ErrPanic = errors.New("panic during captured call")

// Captured holds the log output recorded during a Capture scope.
type Captured struct {
	Out   string
	Lines []string
}

// Capture runs fn with a context whose logger also writes every record, at
// debug level and above, into an in-memory buffer. The buffer is always
// drained into the returned Captured, including when fn fails. A panic in fn
// is recovered and returned as an error wrapping ErrPanic.
//
// When enabled is false fn runs with ctx unchanged and Captured is nil.
func Capture(ctx context.Context, enabled bool, fn func(context.Context) error) (captured *Captured, err error) {
	if !enabled {
		return nil, fn(ctx)
	}

	buf := &lockedBuffer{}
	sink := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	parent := FromContext(ctx).Handler()
	scoped := slog.New(&teeHandler{handlers: []slog.Handler{parent, sink}})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		captured = buf.release()
	}()

	return nil, fn(WithLogger(ctx, scoped))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) release() *Captured {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.buf.String()
	b.buf.Reset()

	lines := []string{}
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return &Captured{Out: out, Lines: lines}
}

// teeHandler fans records out to several handlers.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}
