// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package de

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/transport/cdp"
)

// ServiceName is the control plane service prefix for Data Engineering.
const ServiceName = "de"

const (
	opListServices    = "listServices"
	opDescribeService = "describeService"
	opEnableService   = "enableService"
	opDisableService  = "disableService"
)

var (
	// ErrMissingClusterID is returned when enableService answers without a cluster id.
	ErrMissingClusterID = errors.New("enable response carries no clusterId")
	// ErrServiceNotFound is returned when a describe response has no service.
	ErrServiceNotFound = errors.New("service not found")
)

// Doer executes a control plane request.
type Doer interface {
	Do(ctx context.Context, opts cdp.RequestOptions) (*cdp.Response, error)
}

// API is the Data Engineering client.
type API struct {
	client Doer
}

func NewAPI(client Doer) *API {
	return &API{client: client}
}

// ListServices lists services, keeping only those in env when env is set.
func (a *API) ListServices(ctx context.Context, env string, removeDeleted bool) ([]Service, error) {
	resp, err := a.client.Do(ctx, cdp.RequestOptions{
		Service:   ServiceName,
		Operation: opListServices,
		Body:      map[string]interface{}{"removeDeleted": removeDeleted},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	var services []Service
	if err := decodeField(resp.Body, "services", &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}

	if env == "" {
		if services == nil {
			services = []Service{}
		}
		return services, nil
	}

	filtered := make([]Service, 0, len(services))
	for _, svc := range services {
		if svc.EnvironmentName == env {
			filtered = append(filtered, svc)
		}
	}
	return filtered, nil
}

// DescribeService returns the full descriptor of a service.
func (a *API) DescribeService(ctx context.Context, clusterID string) (*Service, error) {
	resp, err := a.client.Do(ctx, cdp.RequestOptions{
		Service:   ServiceName,
		Operation: opDescribeService,
		Body:      map[string]interface{}{"clusterId": clusterID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe service %s: %w", clusterID, err)
	}

	var svc *Service
	if err := decodeField(resp.Body, "service", &svc); err != nil {
		return nil, fmt.Errorf("failed to decode service %s: %w", clusterID, err)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, clusterID)
	}
	return svc, nil
}

// EnableService creates a new service.
func (a *API) EnableService(ctx context.Context, req *EnableRequest) (*Service, error) {
	if req == nil {
		return nil, errors.New("enable request is nil")
	}

	resp, err := a.client.Do(ctx, cdp.RequestOptions{
		Service:   ServiceName,
		Operation: opEnableService,
		Body:      req,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enable service %s: %w", req.Name, err)
	}

	var svc *Service
	if err := decodeField(resp.Body, "service", &svc); err != nil {
		return nil, fmt.Errorf("failed to decode enabled service %s: %w", req.Name, err)
	}
	if svc == nil || svc.ClusterID == "" {
		return nil, fmt.Errorf("%w (service %s)", ErrMissingClusterID, req.Name)
	}
	return svc, nil
}

// DisableService removes a service. force skips the graceful teardown.
func (a *API) DisableService(ctx context.Context, clusterID string, force bool) error {
	_, err := a.client.Do(ctx, cdp.RequestOptions{
		Service:   ServiceName,
		Operation: opDisableService,
		Body:      map[string]interface{}{"clusterId": clusterID, "force": force},
	})
	if err != nil {
		return fmt.Errorf("failed to disable service %s: %w", clusterID, err)
	}
	return nil
}

// decodeField re-encodes body[key] into v. A missing key leaves v untouched.
func decodeField(body map[string]interface{}, key string, v interface{}) error {
	raw, ok := body[key]
	if !ok || raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
