// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package module

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/reconcile"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/testutil"
)

func newTestRunner(fake *testutil.FakeDE) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	r := NewRunner(&stdout, &stderr)
	r.NewClient = func(*config.Config) (reconcile.ServiceClient, error) { return fake, nil }
	return r, &stdout, &stderr
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunner_ServiceDisable(t *testing.T) {
	fake := testutil.NewFakeDE()
	fake.AddService(de.Service{Name: "svc-a", ClusterID: "c-1", EnvironmentName: "dev", Status: de.StatusClusterCreationCompleted})

	r, stdout, _ := newTestRunner(fake)
	r.MetricsTextfile = filepath.Join(t.TempDir(), "cde.prom")

	argsPath := writeFile(t, "args.json", `{"name":"svc-a","env":"dev","instance_type":"m5.xlarge",
		"minimum_instances":1,"maximum_instances":2,"state":"absent","delay":1,"timeout":10}`)

	require.NoError(t, r.Service(context.Background(), argsPath))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, de.StatusClusterDeletionCompleted, out["service"].(map[string]interface{})["status"])
	assert.Len(t, fake.Disabled, 1)

	metrics, err := os.ReadFile(r.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `cde_mutations_total{action="disable"} 1`)
}

func TestRunner_FailureWritesJSON(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantMsg string
	}{
		{name: "bad args", args: `{"name":"svc-a"}`, wantMsg: "missing required arguments"},
		{name: "not json", args: `nope`, wantMsg: "not a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, stdout, _ := newTestRunner(testutil.NewFakeDE())

			err := r.Service(context.Background(), writeFile(t, "args.json", tt.args))
			require.Error(t, err)

			var out map[string]interface{}
			require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
			assert.Equal(t, true, out["failed"])
			assert.Contains(t, out["msg"], tt.wantMsg)
		})
	}
}

func TestRunner_MissingArgsFile(t *testing.T) {
	r, stdout, _ := newTestRunner(testutil.NewFakeDE())

	err := r.Info(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, stdout.String(), `"failed":true`)
}

func TestRunner_InfoWithConfigFile(t *testing.T) {
	fake := testutil.NewFakeDE()
	fake.AddService(de.Service{Name: "svc-a", ClusterID: "c-1", EnvironmentName: "dev", Status: de.StatusStopped})

	var seen *config.Config
	r, stdout, stderr := newTestRunner(fake)
	r.NewClient = func(cfg *config.Config) (reconcile.ServiceClient, error) {
		seen = cfg
		return fake, nil
	}
	r.ConfigFile = writeFile(t, "cde.yaml", "region: eu-1\nlogLevel: debug\n")
	r.MetricsTextfile = filepath.Join(t.TempDir(), "cde.prom")

	require.NoError(t, r.Info(context.Background(), writeFile(t, "args.json", `{"env":"dev","tls":false}`)))

	require.NotNil(t, seen)
	assert.Equal(t, "https://api.eu-1.cdp.cloudera.com/", seen.EndpointURL())
	assert.False(t, seen.TLSVerify())
	assert.Contains(t, stdout.String(), `"clusterId":"c-1"`)
	assert.Contains(t, stderr.String(), "module session ready")

	metrics, err := os.ReadFile(r.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `cde_info_queries_total{outcome="ok"} 1`)
	assert.Contains(t, string(metrics), "cde_info_services_returned 1")
}
