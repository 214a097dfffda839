// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/metrics"
)

// PollConfig controls WaitForState.
type PollConfig struct {
	Delay   time.Duration
	Timeout time.Duration
}

// DefaultPollConfig matches the module defaults: 60s between polls, 2h overall.
func DefaultPollConfig() PollConfig {
	return PollConfig{Delay: 60 * time.Second, Timeout: 2 * time.Hour}
}

func (c PollConfig) Validate() error {
	if c.Delay <= 0 {
		return fmt.Errorf("poll delay must be positive, got %s", c.Delay)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// WaitForState describes a resource until field(descriptor) is one of targets
// or the timeout elapses. The first describe happens immediately.
//
// No describe is issued once the next one would land past the timeout, so
// a delay at or above the timeout yields a single poll.
//
// A timeout is not an error: the most recent descriptor is returned and the
// caller decides whether it is acceptable. Describe errors and cancellation
// of ctx are returned as errors.
func WaitForState[T any](
	ctx context.Context,
	cfg PollConfig,
	recorder *metrics.Recorder,
	describe func(context.Context) (T, error),
	field func(T) string,
	targets de.StatusSet,
) (T, error) {
	var last T
	if err := cfg.Validate(); err != nil {
		return last, err
	}

	var (
		describeErr error
		reached     bool
		start       = time.Now()
	)

	err := wait.PollUntilContextTimeout(ctx, cfg.Delay, cfg.Timeout, true, func(context.Context) (bool, error) {
		recorder.PollAttempt()
		current, err := describe(ctx)
		if err != nil {
			describeErr = err
			return false, err
		}
		last = current
		reached = targets.Has(field(current))
		if !reached && time.Since(start)+cfg.Delay >= cfg.Timeout {
			return true, nil
		}
		return reached, nil
	})
	recorder.PollFinished(time.Since(start), reached)

	switch {
	case describeErr != nil:
		return last, describeErr
	case err == nil:
		return last, nil
	case ctx.Err() != nil:
		return last, ctx.Err()
	case wait.Interrupted(err) || errors.Is(err, context.DeadlineExceeded):
		return last, nil
	default:
		return last, err
	}
}
