// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_RecordsScopedOutput(t *testing.T) {
	var parentOut bytes.Buffer
	parent := slog.New(slog.NewTextHandler(&parentOut, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := WithLogger(context.Background(), parent)

	captured, err := Capture(ctx, true, func(ctx context.Context) error {
		FromContext(ctx).Debug("request", "operation", "listServices")
		FromContext(ctx).Info("response", "status", 200)
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Len(t, captured.Lines, 2)
	assert.Contains(t, captured.Out, "operation=listServices")
	assert.Contains(t, captured.Out, "status=200")

	// Parent still receives records at its own level only.
	assert.NotContains(t, parentOut.String(), "listServices")
	assert.Contains(t, parentOut.String(), "status=200")
}

func TestCapture_ReleasesOnError(t *testing.T) {
	boom := errors.New("boom")

	captured, err := Capture(context.Background(), true, func(ctx context.Context) error {
		FromContext(ctx).Warn("about to fail")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, captured)
	assert.Contains(t, captured.Out, "about to fail")
}

func TestCapture_ReleasesOnPanic(t *testing.T) {
	var (
		captured *Captured
		err      error
	)
	require.NotPanics(t, func() {
		captured, err = Capture(context.Background(), true, func(ctx context.Context) error {
			FromContext(ctx).Warn("before panic")
			panic("nil map write")
		})
	})
	assert.ErrorIs(t, err, ErrPanic)
	assert.ErrorContains(t, err, "nil map write")
	require.NotNil(t, captured)
	assert.Contains(t, captured.Out, "before panic")
}

func TestCapture_Disabled(t *testing.T) {
	called := false
	captured, err := Capture(context.Background(), false, func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Nil(t, captured)
}

func TestCapture_EmptyScope(t *testing.T) {
	captured, err := Capture(context.Background(), true, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Empty(t, captured.Out)
	assert.Empty(t, captured.Lines)
	assert.NotNil(t, captured.Lines)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}
