// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/platform-engineering-labs/formae/pkg/model"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/transport/cdp"
)

const (
	EnvAccessKeyID     = "CDP_ACCESS_KEY_ID"
	EnvPrivateKey      = "CDP_PRIVATE_KEY"
	EnvProfile         = "CDP_PROFILE"
	EnvCredentialsFile = "CDP_SHARED_CREDENTIALS_FILE"
	EnvEndpoint        = "CDP_ENDPOINT_URL"
	EnvRegion          = "CDP_REGION"

	DefaultProfile = "default"
)

// Config holds control plane configuration
// Note: Only endpoint, region and state overrides are stored in the target
// config. Credentials are always read from the environment or the
// credentials file to avoid storing secrets in the database.
type Config struct {
	// Stored in target config (non-sensitive)
	Endpoint    string        `json:"endpoint,omitempty" yaml:"endpoint"`
	Region      string        `json:"region,omitempty" yaml:"region"` // us-west-1, eu-1, ap-1
	Profile     string        `json:"profile,omitempty" yaml:"profile"`
	AgentHeader string        `json:"agentHeader,omitempty" yaml:"agentHeader"`
	VerifyTLS   *bool         `json:"verifyTLS,omitempty" yaml:"verifyTLS"`
	States      *StatesConfig `json:"states,omitempty" yaml:"states"`

	// Module runs only
	LogLevel  string `json:"-" yaml:"logLevel"`
	LogFormat string `json:"-" yaml:"logFormat"`

	// Read from environment or credentials file only (never stored)
	AccessKeyID string `json:"-" yaml:"-"`
	PrivateKey  string `json:"-" yaml:"-"`
}

// StatesConfig overrides the terminal status sets.
type StatesConfig struct {
	Removable []string `json:"removable,omitempty" yaml:"removable"`
	Stopped   []string `json:"stopped,omitempty" yaml:"stopped"`
}

// FromTarget extracts control plane configuration from a Target
func FromTarget(target *model.Target) (*Config, error) {
	if target == nil {
		return nil, fmt.Errorf("target is nil")
	}
	return FromTargetConfig(target.Config)
}

// FromTargetConfig extracts configuration from a TargetConfig JSON and
// resolves credentials.
func FromTargetConfig(targetConfig json.RawMessage) (*Config, error) {
	var cfg Config

	if len(targetConfig) > 0 {
		if err := json.Unmarshal(targetConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal target config: %w", err)
		}
	}

	if err := cfg.ResolveCredentials(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ResolveCredentials fills AccessKeyID, PrivateKey and Endpoint. Environment
// variables win over the credentials file profile.
func (c *Config) ResolveCredentials() error {
	if c.Profile == "" {
		c.Profile = os.Getenv(EnvProfile)
	}
	if c.Profile == "" {
		c.Profile = DefaultProfile
	}
	if c.Region == "" {
		c.Region = os.Getenv(EnvRegion)
	}
	if c.Endpoint == "" {
		c.Endpoint = os.Getenv(EnvEndpoint)
	}

	c.AccessKeyID = os.Getenv(EnvAccessKeyID)
	c.PrivateKey = os.Getenv(EnvPrivateKey)

	if c.AccessKeyID == "" || c.PrivateKey == "" || c.Endpoint == "" {
		section, err := c.profileSection()
		if err != nil {
			if c.AccessKeyID == "" || c.PrivateKey == "" {
				return err
			}
		} else {
			if c.AccessKeyID == "" {
				c.AccessKeyID = section.Key("cdp_access_key_id").String()
			}
			if c.PrivateKey == "" {
				c.PrivateKey = section.Key("cdp_private_key").String()
			}
			if c.Endpoint == "" {
				c.Endpoint = section.Key("cdp_endpoint_url").String()
			}
		}
	}

	if c.AccessKeyID == "" {
		return fmt.Errorf("%s environment variable or cdp_access_key_id in profile %q is required", EnvAccessKeyID, c.Profile)
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("%s environment variable or cdp_private_key in profile %q is required", EnvPrivateKey, c.Profile)
	}
	return nil
}

func (c *Config) profileSection() (*ini.Section, error) {
	path := CredentialsFile()
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}
	section, err := file.GetSection(c.Profile)
	if err != nil {
		return nil, fmt.Errorf("profile %q not found in %s: %w", c.Profile, path, err)
	}
	return section, nil
}

// CredentialsFile returns the shared credentials file path.
func CredentialsFile() string {
	if path := os.Getenv(EnvCredentialsFile); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cdp", "credentials")
	}
	return filepath.Join(home, ".cdp", "credentials")
}

// EndpointURL returns the configured endpoint, derived from the region when unset.
func (c *Config) EndpointURL() string {
	switch {
	case c.Endpoint != "":
		return c.Endpoint
	case c.Region != "":
		return fmt.Sprintf("https://api.%s.cdp.cloudera.com/", c.Region)
	default:
		return cdp.DefaultEndpoint
	}
}

// TLSVerify defaults to true.
func (c *Config) TLSVerify() bool {
	return c.VerifyTLS == nil || *c.VerifyTLS
}

// StateSets returns the configured terminal status sets, falling back to the
// defaults for any set that is not overridden.
func (c *Config) StateSets() de.StateSets {
	sets := de.DefaultStateSets()
	if c.States == nil {
		return sets
	}
	if len(c.States.Removable) > 0 {
		sets.Removable = de.NewStatusSet(c.States.Removable...)
	}
	if len(c.States.Stopped) > 0 {
		sets.Stopped = de.NewStatusSet(c.States.Stopped...)
	}
	return sets
}

// ClientConfig converts Config to transport configuration
func (c *Config) ClientConfig() *cdp.CDPConfig {
	return &cdp.CDPConfig{
		Endpoint:    c.EndpointURL(),
		AccessKeyID: c.AccessKeyID,
		PrivateKey:  c.PrivateKey,
		AgentHeader: c.AgentHeader,
		VerifyTLS:   c.TLSVerify(),
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("endpoint %q is not an absolute URL", c.Endpoint))
		}
	}

	sets := c.StateSets()
	for status := range sets.Removable {
		if sets.Stopped.Has(status) {
			errs = append(errs, fmt.Errorf("status %q is both removable and stopped", status))
		}
	}

	return errors.Join(errs...)
}
