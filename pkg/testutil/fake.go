// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/transport/cdp"
)

// DisableCall records one DisableService invocation.
type DisableCall struct {
	ClusterID string
	Force     bool
}

// FakeDE is an in-memory Data Engineering control plane. Each service has a
// queue of statuses: every describe pops the head until one is left, which
// then repeats.
type FakeDE struct {
	mu sync.Mutex

	services []de.Service
	statuses map[string][]string
	next     int

	// NextClusterID is assigned to the next enabled service; generated when empty.
	NextClusterID   string
	// EnableStatuses seeds the status queue of an enabled service.
	EnableStatuses  []string
	// DisableStatuses replaces the status queue of a disabled service.
	DisableStatuses []string
	// RemoveOnDisable drops the service entirely once it is disabled.
	RemoveOnDisable bool
	// Errors fails the named operation by its API name.
	Errors          map[string]error

	calls    map[string]int
	Enabled  []de.EnableRequest
	Disabled []DisableCall
}

func NewFakeDE() *FakeDE {
	return &FakeDE{
		statuses:        map[string][]string{},
		calls:           map[string]int{},
		Errors:          map[string]error{},
		EnableStatuses:  []string{de.StatusClusterCreationInProgress, de.StatusClusterCreationCompleted},
		DisableStatuses: []string{de.StatusClusterDeletionInProgress, de.StatusClusterDeletionCompleted},
	}
}

// AddService registers svc. statuses seeds its describe queue; svc.Status is
// used when none are given.
func (f *FakeDE) AddService(svc de.Service, statuses ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(statuses) == 0 {
		statuses = []string{svc.Status}
	}
	f.services = append(f.services, svc)
	f.statuses[svc.ClusterID] = append([]string(nil), statuses...)
}

// Calls returns how often op was invoked.
func (f *FakeDE) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// MutationCalls is the number of enable and disable calls.
func (f *FakeDE) MutationCalls() int {
	return f.Calls("enableService") + f.Calls("disableService")
}

// TotalCalls counts every operation.
func (f *FakeDE) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *FakeDE) ListServices(_ context.Context, env string, removeDeleted bool) ([]de.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["listServices"]++
	if err := f.Errors["listServices"]; err != nil {
		return nil, err
	}

	out := []de.Service{}
	for _, svc := range f.services {
		if env != "" && svc.EnvironmentName != "" && svc.EnvironmentName != env {
			continue
		}
		if removeDeleted && f.headLocked(svc.ClusterID) == de.StatusClusterDeletionCompleted {
			continue
		}
		out = append(out, de.Service{Name: svc.Name, ClusterID: svc.ClusterID, EnvironmentName: svc.EnvironmentName})
	}
	return out, nil
}

func (f *FakeDE) DescribeService(_ context.Context, clusterID string) (*de.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["describeService"]++
	if err := f.Errors["describeService"]; err != nil {
		return nil, err
	}

	queue, ok := f.statuses[clusterID]
	if !ok {
		return nil, &cdp.Error{
			Code:      cdp.ErrorCodeResourceNotFound,
			Message:   fmt.Sprintf("cluster %s not found", clusterID),
			HTTPCode:  404,
			Operation: "describeService",
		}
	}

	status := queue[0]
	if len(queue) > 1 {
		f.statuses[clusterID] = queue[1:]
	}

	for _, svc := range f.services {
		if svc.ClusterID == clusterID {
			svc.Status = status
			return &svc, nil
		}
	}
	return &de.Service{ClusterID: clusterID, Status: status}, nil
}

func (f *FakeDE) EnableService(_ context.Context, req *de.EnableRequest) (*de.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["enableService"]++
	if err := f.Errors["enableService"]; err != nil {
		return nil, err
	}
	f.Enabled = append(f.Enabled, *req)

	id := f.NextClusterID
	if id == "" {
		f.next++
		id = fmt.Sprintf("cluster-%d", f.next)
	}
	f.NextClusterID = ""

	queue := append([]string(nil), f.EnableStatuses...)
	if len(queue) == 0 {
		queue = []string{de.StatusClusterCreationCompleted}
	}

	svc := de.Service{Name: req.Name, ClusterID: id, EnvironmentName: req.Environment, Status: queue[0]}
	f.services = append(f.services, svc)
	f.statuses[id] = queue
	return &svc, nil
}

func (f *FakeDE) DisableService(_ context.Context, clusterID string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["disableService"]++
	if err := f.Errors["disableService"]; err != nil {
		return err
	}
	if _, ok := f.statuses[clusterID]; !ok {
		return &cdp.Error{Code: cdp.ErrorCodeResourceNotFound, Message: "cluster not found", HTTPCode: 404, Operation: "disableService"}
	}

	f.Disabled = append(f.Disabled, DisableCall{ClusterID: clusterID, Force: force})
	if f.RemoveOnDisable {
		f.removeLocked(clusterID)
		return nil
	}
	queue := append([]string(nil), f.DisableStatuses...)
	if len(queue) == 0 {
		queue = []string{de.StatusClusterDeletionCompleted}
	}
	f.statuses[clusterID] = queue
	return nil
}

func (f *FakeDE) headLocked(clusterID string) string {
	if queue := f.statuses[clusterID]; len(queue) > 0 {
		return queue[0]
	}
	return ""
}

func (f *FakeDE) removeLocked(clusterID string) {
	delete(f.statuses, clusterID)
	kept := f.services[:0]
	for _, svc := range f.services {
		if svc.ClusterID != clusterID {
			kept = append(kept, svc)
		}
	}
	f.services = kept
}
