// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package de

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Service describes a Data Engineering service as returned by the control plane.
// List responses carry a partial record; describe fills in the rest.
type Service struct {
	Name                    string               `json:"name" yaml:"name"`
	ClusterID               string               `json:"clusterId" yaml:"clusterId"`
	EnvironmentName         string               `json:"environmentName,omitempty" yaml:"environmentName,omitempty"`
	EnvironmentCrn          string               `json:"environmentCrn,omitempty" yaml:"environmentCrn,omitempty"`
	Status                  string               `json:"status,omitempty" yaml:"status,omitempty"`
	CreatorEmail            string               `json:"creatorEmail,omitempty" yaml:"creatorEmail,omitempty"`
	CreatorCrn              string               `json:"creatorCrn,omitempty" yaml:"creatorCrn,omitempty"`
	EnablingTime            string               `json:"enablingTime,omitempty" yaml:"enablingTime,omitempty"`
	TenantID                string               `json:"tenantId,omitempty" yaml:"tenantId,omitempty"`
	Resources               *Resources           `json:"resources,omitempty" yaml:"resources,omitempty"`
	ClusterFqdn             string               `json:"clusterFqdn,omitempty" yaml:"clusterFqdn,omitempty"`
	CloudPlatform           string               `json:"cloudPlatform,omitempty" yaml:"cloudPlatform,omitempty"`
	DataLakeFileSystems     string               `json:"dataLakeFileSystems,omitempty" yaml:"dataLakeFileSystems,omitempty"`
	LogLocation             string               `json:"logLocation,omitempty" yaml:"logLocation,omitempty"`
	DataLakeAtlasUIEndpoint string               `json:"dataLakeAtlasUIEndpoint,omitempty" yaml:"dataLakeAtlasUIEndpoint,omitempty"`
	ChartValueOverrides     []ChartValueOverride `json:"chartValueOverrides,omitempty" yaml:"chartValueOverrides,omitempty"`
}

// Resources is the compute sizing of a service.
type Resources struct {
	InstanceType         string `json:"instanceType,omitempty" yaml:"instanceType,omitempty"`
	MinInstances         string `json:"minInstances,omitempty" yaml:"minInstances,omitempty"`
	MaxInstances         string `json:"maxInstances,omitempty" yaml:"maxInstances,omitempty"`
	InitialInstances     string `json:"initialInstances,omitempty" yaml:"initialInstances,omitempty"`
	MinSpotInstances     string `json:"minSpotInstances,omitempty" yaml:"minSpotInstances,omitempty"`
	MaxSpotInstances     string `json:"maxSpotInstances,omitempty" yaml:"maxSpotInstances,omitempty"`
	InitialSpotInstances string `json:"initialSpotInstances,omitempty" yaml:"initialSpotInstances,omitempty"`
	RootVol              string `json:"rootVol,omitempty" yaml:"rootVol,omitempty"`
}

// ChartValueOverride overrides helm values for one chart of the service.
type ChartValueOverride struct {
	ChartName string `json:"chartName" yaml:"chartName"`
	Overrides string `json:"overrides" yaml:"overrides"`
}

// UnmarshalJSON accepts both the API's camelCase keys and snake_case keys
// used in playbooks.
func (c *ChartValueOverride) UnmarshalJSON(data []byte) error {
	var raw struct {
		ChartName      string `json:"chartName"`
		ChartNameSnake string `json:"chart_name"`
		Overrides      string `json:"overrides"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ChartName = raw.ChartName
	if c.ChartName == "" {
		c.ChartName = raw.ChartNameSnake
	}
	c.Overrides = raw.Overrides
	return nil
}

// EnableRequest is the body of enableService. Optional sizing fields are
// pointers so that unset values are left to the control plane.
type EnableRequest struct {
	Name                    string               `json:"name"`
	Environment             string               `json:"env"`
	InstanceType            string               `json:"instanceType"`
	MinimumInstances        int                  `json:"minimumInstances"`
	MaximumInstances        int                  `json:"maximumInstances"`
	MinimumSpotInstances    int                  `json:"minimumSpotInstances"`
	MaximumSpotInstances    int                  `json:"maximumSpotInstances"`
	ChartValueOverrides     []ChartValueOverride `json:"chartValueOverrides,omitempty"`
	EnablePublicEndpoint    bool                 `json:"enablePublicEndpoint"`
	EnableWorkloadAnalytics bool                 `json:"enableWorkloadAnalytics"`
	InitialInstances        *int                 `json:"initialInstances,omitempty"`
	InitialSpotInstances    *int                 `json:"initialSpotInstances,omitempty"`
	RootVolumeSize          *int                 `json:"rootVolumeSize,omitempty"`
	SkipValidation          bool                 `json:"skipValidation"`
	Tags                    map[string]string    `json:"tags,omitempty"`
	UseSsd                  bool                 `json:"useSsd"`
	WhitelistIps            []string             `json:"whitelistIps,omitempty"`
}

// Validate checks the fields the control plane requires.
func (r *EnableRequest) Validate() error {
	var errs []error
	if r.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if r.Environment == "" {
		errs = append(errs, errors.New("environment is required"))
	}
	if r.InstanceType == "" {
		errs = append(errs, errors.New("instance type is required"))
	}
	if r.MinimumInstances < 0 || r.MaximumInstances < r.MinimumInstances {
		errs = append(errs, fmt.Errorf("invalid instance range [%d, %d]", r.MinimumInstances, r.MaximumInstances))
	}
	if r.MinimumSpotInstances < 0 || r.MaximumSpotInstances < r.MinimumSpotInstances {
		errs = append(errs, fmt.Errorf("invalid spot instance range [%d, %d]", r.MinimumSpotInstances, r.MaximumSpotInstances))
	}
	return errors.Join(errs...)
}
