// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package info is the read-only view over Data Engineering services.
package info

import (
	"context"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/logging"
)

// Lister is the subset of the DE API the reader needs.
type Lister interface {
	ListServices(ctx context.Context, env string, removeDeleted bool) ([]de.Service, error)
	DescribeService(ctx context.Context, clusterID string) (*de.Service, error)
}

// Query selects services. Empty fields match everything.
type Query struct {
	Name        string
	Environment string
}

type Reader struct {
	client Lister
}

func NewReader(client Lister) *Reader {
	return &Reader{client: client}
}

// Services lists services, excluding deleted ones. With a name, only exact
// matches are returned, each fully described.
func (r *Reader) Services(ctx context.Context, q Query) ([]de.Service, error) {
	services, err := r.client.ListServices(ctx, q.Environment, true)
	if err != nil {
		return nil, err
	}
	if q.Name == "" {
		if services == nil {
			services = []de.Service{}
		}
		return services, nil
	}

	out := []de.Service{}
	for _, svc := range services {
		if svc.Name != q.Name {
			continue
		}
		described, err := r.client.DescribeService(ctx, svc.ClusterID)
		if err != nil {
			return nil, err
		}
		out = append(out, *described)
	}

	logging.FromContext(ctx).Debug("described DE services", "name", q.Name, "matches", len(out))
	return out, nil
}
