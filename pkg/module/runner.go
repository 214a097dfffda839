// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package module

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/logging"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/metrics"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/reconcile"
)

// ClientFactory builds the DE client for a resolved configuration.
type ClientFactory func(cfg *config.Config) (reconcile.ServiceClient, error)

// DefaultClientFactory resolves credentials and builds a signed client.
func DefaultClientFactory(cfg *config.Config) (reconcile.ServiceClient, error) {
	if err := cfg.ResolveCredentials(); err != nil {
		return nil, err
	}
	c, err := client.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return c.DE, nil
}

// Options are the flags shared by the module binaries.
type Options struct {
	ConfigFile      string
	MetricsTextfile string
	LogLevel        string
	LogFormat       string
}

func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&o.MetricsTextfile, "metrics-textfile", "", "Write run metrics to this node-exporter textfile")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&o.LogFormat, "log-format", "", "Log format (text, json); defaults to text")
}

// Runner executes a module end to end: arguments file in, JSON result out.
type Runner struct {
	Options

	NewClient ClientFactory
	Stdout    io.Writer
	Stderr    io.Writer
}

func NewRunner(stdout, stderr io.Writer) *Runner {
	return &Runner{NewClient: DefaultClientFactory, Stdout: stdout, Stderr: stderr}
}

// Service runs the de module. The returned error is non-nil when the module
// failed; the failure has already been written to Stdout.
func (r *Runner) Service(ctx context.Context, argsPath string) error {
	args, err := readArgs(argsPath, ParseServiceArgs)
	if err != nil {
		return r.fail(err)
	}

	session, err := r.open(&args.CommonArgs)
	if err != nil {
		return r.fail(err)
	}
	ctx = logging.WithLogger(ctx, session.logger)

	res, err := RunService(ctx, args, Deps{
		Client:   session.client,
		States:   session.cfg.StateSets(),
		Recorder: session.recorder,
	})
	r.flushMetrics(session)
	if err != nil {
		return r.fail(err)
	}
	return Exit(r.Stdout, res)
}

// Info runs the de_info module.
func (r *Runner) Info(ctx context.Context, argsPath string) error {
	args, err := readArgs(argsPath, ParseInfoArgs)
	if err != nil {
		return r.fail(err)
	}

	session, err := r.open(&args.CommonArgs)
	if err != nil {
		return r.fail(err)
	}
	ctx = logging.WithLogger(ctx, session.logger)

	res, err := RunInfo(ctx, args, session.client, session.recorder)
	r.flushMetrics(session)
	if err != nil {
		return r.fail(err)
	}
	return Exit(r.Stdout, res)
}

type session struct {
	cfg      *config.Config
	client   reconcile.ServiceClient
	logger   *slog.Logger
	recorder *metrics.Recorder
}

func (r *Runner) open(common *CommonArgs) (*session, error) {
	cfg := &config.Config{}
	if r.ConfigFile != "" {
		loaded, err := config.Load(r.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	common.Apply(cfg)

	level := r.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	format := r.LogFormat
	if format == "" {
		format = cfg.LogFormat
	}
	logger := logging.Setup(level, format, r.Stderr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c, err := r.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("module session ready", "endpoint", cfg.EndpointURL(), "profile", cfg.Profile, "checkMode", common.CheckMode)
	return &session{cfg: cfg, client: c, logger: logger, recorder: metrics.NewRecorder()}, nil
}

func (r *Runner) flushMetrics(s *session) {
	if err := s.recorder.WriteTextfile(r.MetricsTextfile); err != nil {
		s.logger.Warn("failed to write metrics textfile", "path", r.MetricsTextfile, "error", err)
	}
}

func (r *Runner) fail(err error) error {
	var failure *Failure
	if !errors.As(err, &failure) {
		failure = Fail(err, nil, nil)
	}
	if writeErr := Exit(r.Stdout, failure); writeErr != nil {
		return errors.Join(failure, writeErr)
	}
	return failure
}

func readArgs[T any](path string, parse func([]byte) (T, error)) (T, error) {
	var zero T
	data, err := ReadArgsFile(path)
	if err != nil {
		return zero, err
	}
	return parse(data)
}
