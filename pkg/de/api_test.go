// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package de

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/transport/cdp"
)

type stubDoer struct {
	calls     []cdp.RequestOptions
	responses map[string]string
	err       error
}

func (s *stubDoer) Do(_ context.Context, opts cdp.RequestOptions) (*cdp.Response, error) {
	s.calls = append(s.calls, opts)
	if s.err != nil {
		return nil, s.err
	}
	body := map[string]interface{}{}
	if raw, ok := s.responses[opts.Operation]; ok {
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return nil, err
		}
	}
	return &cdp.Response{StatusCode: 200, Body: body}, nil
}

func bodyOf(t *testing.T, opts cdp.RequestOptions) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(opts.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestListServices(t *testing.T) {
	doer := &stubDoer{responses: map[string]string{
		"listServices": `{"services":[
			{"name":"svc-a","clusterId":"c-1","environmentName":"dev"},
			{"name":"svc-b","clusterId":"c-2","environmentName":"prod"}]}`,
	}}
	api := NewAPI(doer)

	tests := []struct {
		name string
		env  string
		want []string
	}{
		{name: "all environments", env: "", want: []string{"c-1", "c-2"}},
		{name: "filtered", env: "prod", want: []string{"c-2"}},
		{name: "no match", env: "qa", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			services, err := api.ListServices(context.Background(), tt.env, true)
			require.NoError(t, err)
			ids := make([]string, 0, len(services))
			for _, s := range services {
				ids = append(ids, s.ClusterID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	last := doer.calls[len(doer.calls)-1]
	assert.Equal(t, "de", last.Service)
	assert.Equal(t, true, bodyOf(t, last)["removeDeleted"])
}

func TestListServices_EmptyResponse(t *testing.T) {
	api := NewAPI(&stubDoer{})

	services, err := api.ListServices(context.Background(), "", false)
	require.NoError(t, err)
	assert.NotNil(t, services)
	assert.Empty(t, services)
}

func TestDescribeService(t *testing.T) {
	doer := &stubDoer{responses: map[string]string{
		"describeService": `{"service":{"name":"svc-a","clusterId":"c-1","status":"ClusterCreationCompleted",
			"resources":{"instanceType":"m5.xlarge","minInstances":"1","maxInstances":"4"}}}`,
	}}

	svc, err := NewAPI(doer).DescribeService(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "ClusterCreationCompleted", svc.Status)
	require.NotNil(t, svc.Resources)
	assert.Equal(t, "m5.xlarge", svc.Resources.InstanceType)
	assert.Equal(t, "c-1", bodyOf(t, doer.calls[0])["clusterId"])
}

func TestDescribeService_MissingService(t *testing.T) {
	_, err := NewAPI(&stubDoer{}).DescribeService(context.Background(), "c-9")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestDescribeService_TransportError(t *testing.T) {
	notFound := &cdp.Error{Code: cdp.ErrorCodeResourceNotFound, Message: "gone"}
	_, err := NewAPI(&stubDoer{err: notFound}).DescribeService(context.Background(), "c-9")
	assert.True(t, cdp.IsNotFound(err))
}

func TestEnableService(t *testing.T) {
	initial := 2
	doer := &stubDoer{responses: map[string]string{
		"enableService": `{"service":{"name":"svc-a","clusterId":"c-new","status":"ClusterCreationInProgress"}}`,
	}}

	svc, err := NewAPI(doer).EnableService(context.Background(), &EnableRequest{
		Name:             "svc-a",
		Environment:      "dev",
		InstanceType:     "m5.xlarge",
		MinimumInstances: 1,
		MaximumInstances: 4,
		InitialInstances: &initial,
		Tags:             map[string]string{"team": "data"},
		ChartValueOverrides: []ChartValueOverride{
			{ChartName: "dex-app", Overrides: "a: b"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "c-new", svc.ClusterID)

	body := bodyOf(t, doer.calls[0])
	assert.Equal(t, "svc-a", body["name"])
	assert.Equal(t, "dev", body["env"])
	assert.Equal(t, float64(2), body["initialInstances"])
	assert.Equal(t, float64(0), body["minimumSpotInstances"])
	assert.NotContains(t, body, "rootVolumeSize")
	assert.Equal(t, false, body["useSsd"])
}

func TestEnableService_MissingClusterID(t *testing.T) {
	doer := &stubDoer{responses: map[string]string{"enableService": `{"service":{"name":"svc-a"}}`}}
	_, err := NewAPI(doer).EnableService(context.Background(), &EnableRequest{Name: "svc-a"})
	assert.ErrorIs(t, err, ErrMissingClusterID)
}

func TestDisableService(t *testing.T) {
	doer := &stubDoer{responses: map[string]string{"disableService": `{}`}}

	require.NoError(t, NewAPI(doer).DisableService(context.Background(), "c-1", true))
	body := bodyOf(t, doer.calls[0])
	assert.Equal(t, "disableService", doer.calls[0].Operation)
	assert.Equal(t, "c-1", body["clusterId"])
	assert.Equal(t, true, body["force"])
}

func TestDisableService_Error(t *testing.T) {
	boom := errors.New("boom")
	err := NewAPI(&stubDoer{err: boom}).DisableService(context.Background(), "c-1", false)
	assert.ErrorIs(t, err, boom)
}
