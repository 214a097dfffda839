// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package prov

import (
	"context"

	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
)

// Provisioner is implemented by every CDP resource type
type Provisioner interface {
	// Create starts provisioning; long-running creates report InProgress
	Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error)

	Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error)

	Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error)

	Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error)

	// Status advances a long-running operation by one observation
	Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error)

	// List discovers resources of this type
	List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error)
}
