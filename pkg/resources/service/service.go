// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package service provisions Data Engineering services as formae resources.
// Create enables a service and Delete disables it; both are long-running and
// are driven to completion by Status.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platform-engineering-labs/formae/pkg/model"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/logging"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/registry"
)

const ResourceType = "CDP::DataEngineering::Service"

var (
	Descriptor = plugin.ResourceDescriptor{
		Type:         ResourceType,
		Discoverable: true,
	}

	Schema = model.Schema{
		Identifier:   "clusterId",
		Discoverable: true,
		Fields: []string{
			"name", "environment", "instanceType",
			"minimumInstances", "maximumInstances",
			"minimumSpotInstances", "maximumSpotInstances",
			"initialInstances", "initialSpotInstances", "rootVolumeSize",
			"chartValueOverrides", "enablePublicEndpoint", "enableWorkloadAnalytics",
			"skipValidation", "useSsd", "tags", "whitelistIps",
		},
		Hints: map[string]model.FieldHint{
			"name":         {Required: true, CreateOnly: true},
			"environment":  {Required: true, CreateOnly: true},
			"instanceType": {Required: true, CreateOnly: true},
		},
	}
)

// Request IDs carry the pending operation so Status knows what it is waiting for.
const (
	opEnable  = "enable"
	opDisable = "disable"
)

// API is the part of the DE API the provisioner drives.
type API interface {
	ListServices(ctx context.Context, env string, removeDeleted bool) ([]de.Service, error)
	DescribeService(ctx context.Context, clusterID string) (*de.Service, error)
	EnableService(ctx context.Context, req *de.EnableRequest) (*de.Service, error)
	DisableService(ctx context.Context, clusterID string, force bool) error
}

type Provisioner struct {
	API    API
	States de.StateSets
}

var _ prov.Provisioner = &Provisioner{}

func init() {
	registry.Register(ResourceType, Descriptor, Schema,
		func(c *client.Client, cfg *config.Config) prov.Provisioner {
			return &Provisioner{API: c.DE, States: cfg.StateSets()}
		},
	)
}

func (p *Provisioner) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	req, err := parseProperties(request.Properties)
	if err != nil {
		return createFailure("", resource.OperationErrorCodeInvalidRequest, err.Error()), nil
	}
	if err := req.Validate(); err != nil {
		return createFailure("", resource.OperationErrorCodeInvalidRequest, err.Error()), nil
	}

	logger := logging.FromContext(ctx).With("name", req.Name, "environment", req.Environment)

	existing, err := p.find(ctx, req.Name, req.Environment)
	if err != nil {
		return createFailure("", errorCode(err), err.Error()), nil
	}
	switch p.States.Classify(existing) {
	case de.ObservedActive, de.ObservedTransitioning:
		return createFailure(existing.ClusterID, resource.OperationErrorCodeAlreadyExists,
			fmt.Sprintf("DE service %s already exists in %s (status %q)", req.Name, req.Environment, existing.Status)), nil
	}

	svc, err := p.API.EnableService(ctx, req)
	if err != nil {
		return createFailure("", errorCode(err), err.Error()), nil
	}
	logger.Info("enabled DE service", "clusterId", svc.ClusterID, "status", svc.Status)

	propsJSON, _ := json.Marshal(svc)

	return &resource.CreateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:          resource.OperationCreate,
			OperationStatus:    resource.OperationStatusInProgress,
			RequestID:          requestID(opEnable, svc.ClusterID),
			NativeID:           svc.ClusterID,
			ResourceProperties: propsJSON,
		},
	}, nil
}

func (p *Provisioner) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	if request.NativeID == "" {
		return &resource.ReadResult{ErrorCode: resource.OperationErrorCodeInvalidRequest}, nil
	}

	svc, err := p.API.DescribeService(ctx, request.NativeID)
	if err != nil {
		return &resource.ReadResult{ErrorCode: errorCode(err)}, nil
	}
	// Disabled services linger until purged; they no longer exist for formae.
	if p.States.Classify(svc) == de.ObservedStopped {
		return &resource.ReadResult{ErrorCode: resource.OperationErrorCodeNotFound}, nil
	}

	propsJSON, err := json.Marshal(svc)
	if err != nil {
		return &resource.ReadResult{ErrorCode: resource.OperationErrorCodeGeneralServiceException}, nil
	}
	return &resource.ReadResult{Properties: string(propsJSON)}, nil
}

// Update is not supported: the control plane has no way to reconfigure a service in place.
func (p *Provisioner) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	return &resource.UpdateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationUpdate,
			OperationStatus: resource.OperationStatusFailure,
			ErrorCode:       resource.OperationErrorCodeNotUpdatable,
			StatusMessage:   "DE services cannot be updated; replace the resource instead",
			NativeID:        request.NativeID,
		},
	}, nil
}

func (p *Provisioner) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	if request.NativeID == "" {
		return deleteFailure("", resource.OperationErrorCodeInvalidRequest, "nativeID is required"), nil
	}

	err := p.API.DisableService(ctx, request.NativeID, false)
	if err != nil {
		// 404 is success for delete
		if errorCode(err) == resource.OperationErrorCodeNotFound {
			return deleteSuccess(request.NativeID), nil
		}
		return deleteFailure(request.NativeID, errorCode(err), err.Error()), nil
	}
	logging.FromContext(ctx).Info("disabled DE service", "clusterId", request.NativeID)

	return &resource.DeleteResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationDelete,
			OperationStatus: resource.OperationStatusInProgress,
			RequestID:       requestID(opDisable, request.NativeID),
			NativeID:        request.NativeID,
		},
	}, nil
}

// Status performs one observation of a pending enable or disable.
func (p *Provisioner) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	op, clusterID := parseRequestID(request.RequestID)
	if clusterID == "" {
		clusterID = request.NativeID
	}
	if clusterID == "" {
		return statusFailure(request, resource.OperationErrorCodeInvalidRequest, "nativeID is required"), nil
	}

	svc, err := p.API.DescribeService(ctx, clusterID)
	if err != nil {
		if op == opDisable && errorCode(err) == resource.OperationErrorCodeNotFound {
			return statusSuccess(request, nil), nil
		}
		return statusFailure(request, errorCode(err), err.Error()), nil
	}

	logging.FromContext(ctx).Debug("DE service status", "clusterId", clusterID, "operation", op, "status", svc.Status)

	if op == opDisable {
		return p.disableStatus(request, svc), nil
	}
	return p.enableStatus(request, svc), nil
}

func (p *Provisioner) enableStatus(request *resource.StatusRequest, svc *de.Service) *resource.StatusResult {
	switch p.States.Classify(svc) {
	case de.ObservedActive:
		if isFailed(svc.Status) {
			return statusFailure(request, resource.OperationErrorCodeGeneralServiceException,
				fmt.Sprintf("DE service did not enable successfully (status %q)", svc.Status))
		}
		propsJSON, _ := json.Marshal(svc)
		return statusSuccess(request, propsJSON)
	case de.ObservedStopped:
		return statusFailure(request, resource.OperationErrorCodeNotFound,
			fmt.Sprintf("DE service stopped while enabling (status %q)", svc.Status))
	default:
		return statusInProgress(request, svc.Status)
	}
}

func (p *Provisioner) disableStatus(request *resource.StatusRequest, svc *de.Service) *resource.StatusResult {
	switch {
	case p.States.Classify(svc) == de.ObservedStopped:
		return statusSuccess(request, nil)
	case isFailed(svc.Status):
		return statusFailure(request, resource.OperationErrorCodeGeneralServiceException,
			fmt.Sprintf("DE service did not disable successfully (status %q)", svc.Status))
	default:
		return statusInProgress(request, svc.Status)
	}
}

// List returns the cluster IDs of services that have not been disabled,
// optionally restricted to the "environment" additional property.
func (p *Provisioner) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	env := request.AdditionalProperties["environment"]

	services, err := p.API.ListServices(ctx, env, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list DE services: %w", err)
	}

	nativeIDs := make([]string, 0, len(services))
	for _, svc := range services {
		if svc.ClusterID != "" {
			nativeIDs = append(nativeIDs, svc.ClusterID)
		}
	}
	return &resource.ListResult{NativeIDs: nativeIDs}, nil
}

// find describes the first service named name in env, or returns nil.
func (p *Provisioner) find(ctx context.Context, name, env string) (*de.Service, error) {
	services, err := p.API.ListServices(ctx, env, true)
	if err != nil {
		return nil, err
	}
	for _, svc := range services {
		if svc.Name != name {
			continue
		}
		described, err := p.API.DescribeService(ctx, svc.ClusterID)
		if errorCode(err) == resource.OperationErrorCodeNotFound {
			return nil, nil
		}
		return described, err
	}
	return nil, nil
}

// parseProperties decodes resource properties into an enable request. The
// environment is accepted as either "environment" or "env".
func parseProperties(data json.RawMessage) (*de.EnableRequest, error) {
	var req de.EnableRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	var extra struct {
		Environment string `json:"environment"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	if req.Environment == "" {
		req.Environment = extra.Environment
	}
	return &req, nil
}

func requestID(op, clusterID string) string {
	return op + "/" + clusterID
}

func parseRequestID(id string) (op, clusterID string) {
	op, clusterID, ok := strings.Cut(id, "/")
	if !ok {
		return opEnable, ""
	}
	return op, clusterID
}

func isFailed(status string) bool {
	return strings.HasSuffix(status, "Failed")
}
