// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package de

import "sort"

// Lifecycle statuses reported by the control plane.
const (
	StatusClusterCreationCompleted = "ClusterCreationCompleted"
	StatusClusterCreationFailed    = "ClusterCreationFailed"
	StatusClusterDeletionFailed    = "ClusterDeletionFailed"
	StatusClusterUpgradeFailed     = "ClusterUpgradeFailed"
	StatusClusterUpgradeCompleted  = "ClusterUpgradeCompleted"
	StatusClusterRestoreCompleted  = "ClusterRestoreCompleted"
	StatusClusterRestoreFailed     = "ClusterRestoreFailed"
	StatusClusterUnhealthy         = "ClusterUnhealthy"
	StatusClusterDeletionCompleted = "ClusterDeletionCompleted"
	StatusAppDeletionCompleted     = "AppDeletionCompleted"
	StatusStopped                  = "Stopped"

	StatusClusterCreationInProgress = "ClusterCreationInProgress"
	StatusClusterDeletionInProgress = "ClusterDeletionInProgress"
)

// StatusSet is an unordered set of lifecycle statuses.
type StatusSet map[string]struct{}

func NewStatusSet(statuses ...string) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}

func (s StatusSet) Has(status string) bool {
	_, ok := s[status]
	return ok
}

// Union returns a new set containing the members of s and other.
func (s StatusSet) Union(other StatusSet) StatusSet {
	out := make(StatusSet, len(s)+len(other))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

// List returns the members sorted.
func (s StatusSet) List() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// StateSets groups the statuses the reconciler treats as terminal.
type StateSets struct {
	// Removable statuses are those from which a disable is valid.
	Removable StatusSet
	// Stopped statuses are inert but the record still exists.
	Stopped StatusSet
}

// DefaultStateSets returns the Data Engineering terminal statuses.
func DefaultStateSets() StateSets {
	return StateSets{
		Removable: NewStatusSet(
			StatusClusterCreationCompleted,
			StatusClusterCreationFailed,
			StatusClusterDeletionFailed,
			StatusClusterUpgradeFailed,
			StatusClusterUpgradeCompleted,
			StatusClusterRestoreCompleted,
			StatusClusterRestoreFailed,
			StatusClusterUnhealthy,
		),
		Stopped: NewStatusSet(
			StatusClusterDeletionCompleted,
			StatusAppDeletionCompleted,
			StatusStopped,
		),
	}
}

// Terminal is Removable ∪ Stopped.
func (s StateSets) Terminal() StatusSet {
	return s.Removable.Union(s.Stopped)
}

// Observed is the class of a looked-up service.
type Observed int

const (
	ObservedNotFound Observed = iota
	ObservedActive
	ObservedStopped
	ObservedTransitioning
)

func (o Observed) String() string {
	switch o {
	case ObservedNotFound:
		return "not_found"
	case ObservedActive:
		return "active"
	case ObservedStopped:
		return "stopped"
	default:
		return "transitioning"
	}
}

// Classify maps a descriptor onto an observed class. A nil service is not
// found; an empty status counts as transitioning.
func (s StateSets) Classify(svc *Service) Observed {
	switch {
	case svc == nil:
		return ObservedNotFound
	case s.Removable.Has(svc.Status):
		return ObservedActive
	case s.Stopped.Has(svc.Status):
		return ObservedStopped
	default:
		return ObservedTransitioning
	}
}
