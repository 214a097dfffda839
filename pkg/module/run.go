// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package module implements the Ansible binary module protocol for the de and
// de_info modules.
package module

import (
	"context"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/info"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/logging"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/metrics"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/reconcile"
)

// Deps are the collaborators of a module run.
type Deps struct {
	Client   reconcile.ServiceClient
	States   de.StateSets
	Recorder *metrics.Recorder
}

// RunService reconciles one service. Errors are always *Failure.
func RunService(ctx context.Context, args *ServiceArgs, deps Deps) (*ServiceResult, error) {
	r, err := reconcile.New(reconcile.Config{
		Client:    deps.Client,
		States:    deps.States,
		CheckMode: args.CheckMode,
		Recorder:  deps.Recorder,
	})
	if err != nil {
		return nil, Fail(err, nil, nil)
	}

	var res *reconcile.Result
	captured, err := logging.Capture(ctx, args.Debug, func(ctx context.Context) error {
		var runErr error
		res, runErr = r.Reconcile(ctx, args.Request())
		return runErr
	})

	var warnings []string
	if res != nil {
		warnings = res.Warnings
	}
	if err != nil {
		return nil, Fail(err, captured, warnings)
	}

	out := &ServiceResult{
		Changed:  res.Changed,
		Service:  map[string]interface{}{},
		Warnings: warnings,
		Debug:    debugFrom(captured),
	}
	if res.Service != nil {
		out.Service = res.Service
	}
	return out, nil
}

// RunInfo lists services. Errors are always *Failure.
func RunInfo(ctx context.Context, args *InfoArgs, lister info.Lister, recorder *metrics.Recorder) (*InfoResult, error) {
	reader := info.NewReader(lister)

	var services []de.Service
	captured, err := logging.Capture(ctx, args.Debug, func(ctx context.Context) error {
		var runErr error
		services, runErr = reader.Services(ctx, args.Query())
		return runErr
	})
	recorder.InfoQuery(len(services), err)
	if err != nil {
		return nil, Fail(err, captured, nil)
	}

	return &InfoResult{
		Changed:  false,
		Services: services,
		Debug:    debugFrom(captured),
	}, nil
}
