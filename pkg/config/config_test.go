// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/platform-engineering-labs/formae/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/transport/cdp"
)

const credentialsFile = `[default]
cdp_access_key_id = ak-default
cdp_private_key = pk-default

[staging]
cdp_access_key_id = ak-staging
cdp_private_key = pk-staging
cdp_endpoint_url = https://api.staging.example.com/
`

// isolate clears every variable the package reads and points the
// credentials file at a temporary copy of credentialsFile.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAccessKeyID, EnvPrivateKey, EnvProfile, EnvEndpoint, EnvRegion} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte(credentialsFile), 0o600))
	t.Setenv(EnvCredentialsFile, path)
}

func TestFromTargetConfig_EnvironmentWins(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAccessKeyID, "ak-env")
	t.Setenv(EnvPrivateKey, "pk-env")

	cfg, err := FromTargetConfig(json.RawMessage(`{"region":"eu-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "ak-env", cfg.AccessKeyID)
	assert.Equal(t, "pk-env", cfg.PrivateKey)
	assert.Equal(t, "https://api.eu-1.cdp.cloudera.com/", cfg.EndpointURL())
}

func TestFromTargetConfig_Profiles(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		envProfile   string
		wantKey      string
		wantEndpoint string
	}{
		{name: "default profile", target: `{}`, wantKey: "ak-default", wantEndpoint: cdp.DefaultEndpoint},
		{name: "profile from target", target: `{"profile":"staging"}`, wantKey: "ak-staging", wantEndpoint: "https://api.staging.example.com/"},
		{name: "profile from env", target: `{}`, envProfile: "staging", wantKey: "ak-staging", wantEndpoint: "https://api.staging.example.com/"},
		{name: "endpoint in target wins", target: `{"profile":"staging","endpoint":"https://cdp.internal/"}`, wantKey: "ak-staging", wantEndpoint: "https://cdp.internal/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(EnvProfile, tt.envProfile)

			cfg, err := FromTargetConfig(json.RawMessage(tt.target))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.AccessKeyID)
			assert.Equal(t, tt.wantEndpoint, cfg.EndpointURL())
		})
	}
}

func TestFromTargetConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T)
		target  string
		wantErr string
	}{
		{name: "bad json", target: `{`, wantErr: "failed to unmarshal target config"},
		{name: "unknown profile", target: `{"profile":"prod"}`, wantErr: `profile "prod" not found`},
		{
			name:   "no credentials file",
			target: `{}`,
			setup: func(t *testing.T) {
				t.Setenv(EnvCredentialsFile, filepath.Join(t.TempDir(), "missing"))
			},
			wantErr: "failed to read credentials file",
		},
		{name: "relative endpoint", target: `{"endpoint":"api.example.com"}`, wantErr: "not an absolute URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if tt.setup != nil {
				tt.setup(t)
			}
			_, err := FromTargetConfig(json.RawMessage(tt.target))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFromTarget(t *testing.T) {
	isolate(t)

	_, err := FromTarget(nil)
	assert.Error(t, err)

	cfg, err := FromTarget(&model.Target{Config: json.RawMessage(`{"region":"ap-1"}`)})
	require.NoError(t, err)
	assert.Equal(t, "ap-1", cfg.Region)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cde.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
endpoint: https://api.us-west-1.cdp.cloudera.com/
agentHeader: my-automation
verifyTLS: false
logLevel: debug
states:
  stopped: [Stopped]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-automation", cfg.AgentHeader)
	assert.False(t, cfg.TLSVerify())
	assert.Equal(t, "debug", cfg.LogLevel)

	sets := cfg.StateSets()
	assert.Equal(t, []string{de.StatusStopped}, sets.Stopped.List())
	assert.Equal(t, de.DefaultStateSets().Removable.List(), sets.Removable.List())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	overlapping := filepath.Join(dir, "overlap.yaml")
	require.NoError(t, os.WriteFile(overlapping, []byte("states:\n  removable: [Stopped]\n"), 0o600))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("states: [\n"), 0o600))

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(broken)
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load(overlapping)
	assert.ErrorContains(t, err, "both removable and stopped")
}

func TestClientConfig(t *testing.T) {
	verify := false
	cfg := &Config{Region: "eu-1", AccessKeyID: "ak", PrivateKey: "pk", VerifyTLS: &verify, AgentHeader: "x"}

	cc := cfg.ClientConfig()
	assert.Equal(t, "https://api.eu-1.cdp.cloudera.com/", cc.Endpoint)
	assert.Equal(t, "ak", cc.AccessKeyID)
	assert.False(t, cc.VerifyTLS)
	assert.Equal(t, "x", cc.AgentHeader)

	assert.True(t, (&Config{}).TLSVerify())
}
