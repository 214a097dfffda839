// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/metrics"
)

type scripted struct {
	statuses []string
	calls    int
	err      error
}

func (s *scripted) describe(context.Context) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	status := s.statuses[0]
	if len(s.statuses) > 1 {
		s.statuses = s.statuses[1:]
	}
	return status, nil
}

func identity(s string) string { return s }

func TestWaitForState_ImmediateMatch(t *testing.T) {
	s := &scripted{statuses: []string{"Ready"}}

	got, err := WaitForState(context.Background(), PollConfig{Delay: time.Hour, Timeout: 2 * time.Hour}, nil,
		s.describe, identity, de.NewStatusSet("Ready"))
	require.NoError(t, err)
	assert.Equal(t, "Ready", got)
	assert.Equal(t, 1, s.calls)
}

func TestWaitForState_PollsUntilMatch(t *testing.T) {
	s := &scripted{statuses: []string{"Pending", "Pending", "Ready"}}
	recorder := metrics.NewRecorder()

	got, err := WaitForState(context.Background(), PollConfig{Delay: time.Millisecond, Timeout: 5 * time.Second}, recorder,
		s.describe, identity, de.NewStatusSet("Ready"))
	require.NoError(t, err)
	assert.Equal(t, "Ready", got)
	assert.Equal(t, 3, s.calls)
}

func TestWaitForState_DelayLongerThanTimeout(t *testing.T) {
	s := &scripted{statuses: []string{"Pending"}}
	delay := 2 * time.Second

	start := time.Now()
	got, err := WaitForState(context.Background(), PollConfig{Delay: delay, Timeout: 50 * time.Millisecond}, nil,
		s.describe, identity, de.NewStatusSet("Ready"))
	elapsed := time.Since(start)

	require.NoError(t, err, "timeout is not an error")
	assert.Equal(t, "Pending", got, "last descriptor is returned on timeout")
	assert.Equal(t, 1, s.calls)
	assert.Less(t, elapsed, delay)
}

func TestWaitForState_DelayEqualToTimeout(t *testing.T) {
	tests := []struct {
		name  string
		delay time.Duration
	}{
		{name: "100ms", delay: 100 * time.Millisecond},
		{name: "2ms", delay: 2 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 10 {
				s := &scripted{statuses: []string{"Pending"}}
				recorder := metrics.NewRecorder()

				got, err := WaitForState(context.Background(), PollConfig{Delay: tt.delay, Timeout: tt.delay}, recorder,
					s.describe, identity, de.NewStatusSet("Ready"))
				require.NoError(t, err)
				assert.Equal(t, "Pending", got)
				assert.Equal(t, 1, s.calls)
			}
		})
	}
}

func TestWaitForState_StopsWhenNextPollExceedsTimeout(t *testing.T) {
	s := &scripted{statuses: []string{"Pending"}}

	_, err := WaitForState(context.Background(), PollConfig{Delay: 40 * time.Millisecond, Timeout: 100 * time.Millisecond}, nil,
		s.describe, identity, de.NewStatusSet("Ready"))
	require.NoError(t, err)
	assert.LessOrEqual(t, s.calls, 3, "no describe is issued past the timeout")
	assert.GreaterOrEqual(t, s.calls, 1)
}

func TestWaitForState_DescribeErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	s := &scripted{err: boom}

	_, err := WaitForState(context.Background(), PollConfig{Delay: time.Millisecond, Timeout: time.Second}, nil,
		s.describe, identity, de.NewStatusSet("Ready"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.calls)
}

func TestWaitForState_ParentCancelled(t *testing.T) {
	s := &scripted{statuses: []string{"Pending"}}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := WaitForState(ctx, PollConfig{Delay: 5 * time.Millisecond, Timeout: time.Minute}, nil,
		s.describe, identity, de.NewStatusSet("Ready"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PollConfig
		wantErr bool
	}{
		{name: "default", cfg: DefaultPollConfig()},
		{name: "zero delay", cfg: PollConfig{Timeout: time.Second}, wantErr: true},
		{name: "negative timeout", cfg: PollConfig{Delay: time.Second, Timeout: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWaitForState_InvalidConfig(t *testing.T) {
	s := &scripted{statuses: []string{"Ready"}}
	_, err := WaitForState(context.Background(), PollConfig{}, nil, s.describe, identity, de.NewStatusSet("Ready"))
	assert.Error(t, err)
	assert.Zero(t, s.calls)
}
