// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/logging"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/metrics"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/transport/cdp"
)

// ServiceClient is the subset of the DE API the reconciler drives.
type ServiceClient interface {
	ListServices(ctx context.Context, env string, removeDeleted bool) ([]de.Service, error)
	DescribeService(ctx context.Context, clusterID string) (*de.Service, error)
	EnableService(ctx context.Context, req *de.EnableRequest) (*de.Service, error)
	DisableService(ctx context.Context, clusterID string, force bool) error
}

// DesiredState is the declared target of a reconciliation.
type DesiredState string

const (
	StatePresent DesiredState = "present"
	StateAbsent  DesiredState = "absent"
)

var (
	ErrInvalidState   = errors.New("invalid desired state")
	ErrInvalidRequest = errors.New("invalid reconcile request")
)

func (s DesiredState) Validate() error {
	switch s {
	case StatePresent, StateAbsent:
		return nil
	default:
		return fmt.Errorf("%w: %q is not valid for this module", ErrInvalidState, string(s))
	}
}

// Actions recorded in Result.Actions.
const (
	ActionEnable  = "enable"
	ActionDisable = "disable"
)

// statusGone stands in for a service that disappeared while being polled.
const statusGone = "<gone>"

type Config struct {
	Client    ServiceClient
	States    de.StateSets
	CheckMode bool
	Recorder  *metrics.Recorder
}

type Reconciler struct {
	client    ServiceClient
	states    de.StateSets
	checkMode bool
	recorder  *metrics.Recorder
}

func New(cfg Config) (*Reconciler, error) {
	if cfg.Client == nil {
		return nil, errors.New("reconciler requires a service client")
	}
	states := cfg.States
	if states.Removable == nil && states.Stopped == nil {
		states = de.DefaultStateSets()
	}
	return &Reconciler{
		client:    cfg.Client,
		states:    states,
		checkMode: cfg.CheckMode,
		recorder:  cfg.Recorder,
	}, nil
}

// Request describes one reconciliation. Service.Name and Service.Environment
// identify the service; the remaining fields are only used to enable it.
type Request struct {
	Service de.EnableRequest
	State   DesiredState
	Force   bool
	Wait    bool
	Poll    PollConfig
}

// Result of a reconciliation. Changed is never set: callers that need to know
// whether anything happened should look at Actions.
type Result struct {
	Changed  bool
	Service  *de.Service
	Warnings []string
	Actions  []string
}

// Reconcile converges the named service onto req.State.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (*Result, error) {
	res, err := r.reconcile(ctx, req)
	switch {
	case err != nil:
		r.recorder.Outcome("error")
	case len(res.Warnings) > 0:
		r.recorder.Outcome("warning")
	default:
		r.recorder.Outcome("ok")
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Warnings: []string{}, Actions: []string{}}

	if err := req.State.Validate(); err != nil {
		return res, err
	}
	if req.Service.Name == "" || req.Service.Environment == "" {
		return res, fmt.Errorf("%w: name and environment are required", ErrInvalidRequest)
	}
	if req.State == StatePresent {
		if err := req.Service.Validate(); err != nil {
			return res, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	if req.Poll == (PollConfig{}) {
		req.Poll = DefaultPollConfig()
	}
	if req.Wait {
		if err := req.Poll.Validate(); err != nil {
			return res, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	logger := logging.FromContext(ctx).With("name", req.Service.Name, "environment", req.Service.Environment)

	current, err := r.lookup(ctx, req.Service.Name, req.Service.Environment)
	if err != nil {
		return res, err
	}

	if r.checkMode {
		logger.Debug("check mode, skipping reconciliation", "observed", r.states.Classify(current).String())
		res.Service = current
		return res, nil
	}

	p := &pass{Reconciler: r, req: req, res: res, logger: logger}
	svc, err := p.converge(ctx, current)
	if err != nil {
		return res, err
	}
	res.Service = svc
	return res, nil
}

// lookup finds the first service named name in env and describes it. A nil
// service means not found.
func (r *Reconciler) lookup(ctx context.Context, name, env string) (*de.Service, error) {
	services, err := r.client.ListServices(ctx, env, true)
	if err != nil {
		return nil, err
	}

	var clusterID string
	for _, svc := range services {
		if svc.Name == name {
			clusterID = svc.ClusterID
			break
		}
	}
	if clusterID == "" {
		return nil, nil
	}

	svc, err := r.client.DescribeService(ctx, clusterID)
	if isGone(err) {
		return nil, nil
	}
	return svc, err
}

// pass carries the state of a single Reconcile call.
type pass struct {
	*Reconciler
	req    Request
	res    *Result
	logger *slog.Logger
}

// converge dispatches on the observed class of current. After waiting out a
// transitional status it is invoked once more with the fresh descriptor.
func (p *pass) converge(ctx context.Context, current *de.Service) (*de.Service, error) {
	observed := p.states.Classify(current)
	p.recorder.Observed(observed.String(), string(p.req.State))
	p.logger.Debug("dispatching", "observed", observed.String(), "desired", string(p.req.State))

	name := p.req.Service.Name

	switch observed {
	case de.ObservedNotFound:
		if p.req.State == StatePresent {
			return p.enable(ctx)
		}
		p.logger.Info("DE service already absent or terminated in environment")
		return nil, nil

	case de.ObservedActive:
		if p.req.State == StateAbsent {
			return p.disable(ctx, current)
		}
		p.warn("DE service %s already present; configuration validation and reconciliation is not supported", name)
		if p.req.Wait {
			return p.waitFor(ctx, current.ClusterID, p.states.Terminal())
		}
		return current, nil

	case de.ObservedStopped:
		if p.req.State == StateAbsent {
			p.logger.Info("DE service already stopped", "status", current.Status)
			return current, nil
		}
		if !p.req.Wait {
			p.warn("DE service %s is %s; configuration reconciliation is not supported", name, current.Status)
			return current, nil
		}
		p.warn("DE service %s is %s; configuration reconciliation is not supported, enabling a new service", name, current.Status)
		return p.enable(ctx)

	default:
		p.warn("DE service %s is not in a terminal state: %q", name, current.Status)
		if !p.req.Wait {
			return current, nil
		}
		fresh, err := p.waitFor(ctx, current.ClusterID, p.states.Terminal())
		if err != nil {
			return nil, err
		}
		if fresh != nil && p.states.Classify(fresh) == de.ObservedTransitioning {
			p.warn("DE service %s did not reach a terminal state within %s: %q", name, p.req.Poll.Timeout, fresh.Status)
			return fresh, nil
		}
		return p.converge(ctx, fresh)
	}
}

func (p *pass) enable(ctx context.Context) (*de.Service, error) {
	req := p.req.Service
	svc, err := p.client.EnableService(ctx, &req)
	if err != nil {
		return nil, err
	}
	p.record(ActionEnable)
	p.logger.Info("enabled DE service", "clusterId", svc.ClusterID, "status", svc.Status)

	if !p.req.Wait {
		return svc, nil
	}

	final, err := p.waitFor(ctx, svc.ClusterID, p.states.Removable)
	if err != nil {
		return nil, err
	}
	if final == nil || !p.states.Removable.Has(final.Status) {
		p.warn("DE service %s did not enable successfully (status %q)", p.req.Service.Name, statusOf(final))
	}
	return final, nil
}

func (p *pass) disable(ctx context.Context, current *de.Service) (*de.Service, error) {
	if err := p.client.DisableService(ctx, current.ClusterID, p.req.Force); err != nil {
		return nil, err
	}
	p.record(ActionDisable)
	p.logger.Info("disabled DE service", "clusterId", current.ClusterID, "force", p.req.Force)

	if !p.req.Wait {
		return nil, nil
	}

	final, err := p.waitFor(ctx, current.ClusterID, p.states.Stopped)
	if err != nil {
		return nil, err
	}
	if final != nil && !p.states.Stopped.Has(final.Status) {
		p.warn("DE service %s did not disable successfully (status %q)", p.req.Service.Name, final.Status)
	}
	return final, nil
}

// waitFor polls clusterID until its status is in targets. A service that
// vanishes while polling satisfies any wait that accepts stopped statuses and
// yields a nil descriptor.
func (p *pass) waitFor(ctx context.Context, clusterID string, targets de.StatusSet) (*de.Service, error) {
	if hasAny(targets, p.states.Stopped) {
		targets = targets.Union(de.NewStatusSet(statusGone))
	}

	p.logger.Debug("waiting for DE service", "clusterId", clusterID, "targets", targets.List(),
		"delay", p.req.Poll.Delay, "timeout", p.req.Poll.Timeout)

	return WaitForState(ctx, p.req.Poll, p.recorder,
		func(ctx context.Context) (*de.Service, error) {
			svc, err := p.client.DescribeService(ctx, clusterID)
			if isGone(err) {
				return nil, nil
			}
			return svc, err
		},
		func(svc *de.Service) string {
			if svc == nil {
				return statusGone
			}
			return svc.Status
		},
		targets,
	)
}

func (p *pass) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.res.Warnings = append(p.res.Warnings, msg)
	p.recorder.Warning()
	p.logger.Warn(msg)
}

func (p *pass) record(action string) {
	p.res.Actions = append(p.res.Actions, action)
	p.recorder.Mutation(action)
}

func isGone(err error) bool {
	return err != nil && (cdp.IsNotFound(err) || errors.Is(err, de.ErrServiceNotFound))
}

func hasAny(set, members de.StatusSet) bool {
	for m := range members {
		if set.Has(m) {
			return true
		}
	}
	return false
}

func statusOf(svc *de.Service) string {
	if svc == nil {
		return ""
	}
	return svc.Status
}
