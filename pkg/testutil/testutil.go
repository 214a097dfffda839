// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/transport/cdp"
)

var (
	// Control plane configuration - read from environment variables
	CDPEndpoint    = getEnvOrDefault("CDP_ENDPOINT_URL", cdp.DefaultEndpoint)
	CDPAccessKeyID = os.Getenv("CDP_ACCESS_KEY_ID")
	CDPPrivateKey  = os.Getenv("CDP_PRIVATE_KEY")

	// CDPConfig returns the control plane client configuration
	CDPConfig = &cdp.CDPConfig{
		Endpoint:    CDPEndpoint,
		AccessKeyID: CDPAccessKeyID,
		PrivateKey:  CDPPrivateKey,
		VerifyTLS:   true,
	}

	// Environment the integration tests enable services in
	TestEnvironment = os.Getenv("CDP_TEST_ENVIRONMENT")

	// Sizing for services created by integration tests
	TestInstanceType  = getEnvOrDefault("CDP_TEST_INSTANCE_TYPE", "m5.2xlarge")
	TestServicePrefix = getEnvOrDefault("CDP_TEST_SERVICE_PREFIX", "formae-it")
)

// getEnvOrDefault returns the environment variable value or the default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsCDPConfigured returns true if the required control plane environment variables are set
func IsCDPConfigured() bool {
	return CDPAccessKeyID != "" && CDPPrivateKey != "" && TestEnvironment != ""
}

// SkipIfCDPNotConfigured skips the test if required control plane environment variables are not set
func SkipIfCDPNotConfigured(t interface{ Skip(...any) }) {
	if !IsCDPConfigured() {
		t.Skip("Skipping test: CDP credentials not configured. Set CDP_ACCESS_KEY_ID, CDP_PRIVATE_KEY and CDP_TEST_ENVIRONMENT environment variables.")
	}
}

// NewCDPClient creates a new control plane client from environment configuration
func NewCDPClient() (*cdp.Client, error) {
	return cdp.NewClient(CDPConfig)
}

// UniqueServiceName returns a service name that does not collide between runs
func UniqueServiceName() string {
	return fmt.Sprintf("%s-%d", TestServicePrefix, time.Now().Unix()%100000)
}

// StatusChecker defines the interface for checking operation status
type StatusChecker interface {
	Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error)
}

// PollConfig configures the polling behavior
type PollConfig struct {
	MaxAttempts   int
	CheckInterval time.Duration
	ResourceType  string
	OperationName string // "Create" or "Delete" for better logging
}

// DefaultPollConfig returns sensible defaults for polling
func DefaultPollConfig() PollConfig {
	return PollConfig{
		MaxAttempts:   100,
		CheckInterval: 5 * time.Second,
		OperationName: "Operation",
	}
}

// PollConfigBuilder provides a fluent API for building PollConfig
type PollConfigBuilder struct {
	config PollConfig
}

// NewPollConfig creates a new PollConfigBuilder with defaults
func NewPollConfig() *PollConfigBuilder {
	return &PollConfigBuilder{
		config: DefaultPollConfig(),
	}
}

// WithResourceType sets the resource type
func (b *PollConfigBuilder) WithResourceType(resourceType string) *PollConfigBuilder {
	b.config.ResourceType = resourceType
	return b
}

// ForEnable configures for enabling a service, which takes tens of minutes
func (b *PollConfigBuilder) ForEnable() *PollConfigBuilder {
	b.config.OperationName = "Create"
	b.config.MaxAttempts = 120 // ~60 minutes with 30s intervals
	b.config.CheckInterval = 30 * time.Second
	return b
}

// ForDisable configures for disabling a service
func (b *PollConfigBuilder) ForDisable() *PollConfigBuilder {
	b.config.OperationName = "Delete"
	b.config.MaxAttempts = 120
	b.config.CheckInterval = 30 * time.Second
	return b
}

// Build returns the final PollConfig
func (b *PollConfigBuilder) Build() PollConfig {
	return b.config
}

// PollUntilComplete polls the status of a pending operation until it
// completes or times out. The request ID of progress is passed back on every
// status check.
func PollUntilComplete(
	t *testing.T,
	ctx context.Context,
	checker StatusChecker,
	progress *resource.ProgressResult,
	targetConfig json.RawMessage,
	config PollConfig,
) (*resource.StatusResult, error) {
	t.Helper()
	require.NotNil(t, progress, "%s progress result should not be nil", config.OperationName)

	if config.MaxAttempts == 0 {
		config.MaxAttempts = 30
	}
	if config.CheckInterval == 0 {
		config.CheckInterval = 2 * time.Second
	}

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		time.Sleep(config.CheckInterval)

		statusReq := &resource.StatusRequest{
			RequestID:    progress.RequestID,
			NativeID:     progress.NativeID,
			ResourceType: config.ResourceType,
			TargetConfig: targetConfig,
		}

		statusResult, err := checker.Status(ctx, statusReq)
		require.NoError(t, err, "%s status check should not return error", config.OperationName)
		require.NotNil(t, statusResult, "%s status result should not be nil", config.OperationName)
		require.NotNil(t, statusResult.ProgressResult, "%s progress result should not be nil", config.OperationName)

		t.Logf("%s status check attempt %d/%d: %s (status: %s)",
			config.OperationName,
			attempt+1,
			config.MaxAttempts,
			statusResult.ProgressResult.StatusMessage,
			statusResult.ProgressResult.OperationStatus)

		switch statusResult.ProgressResult.OperationStatus {
		case resource.OperationStatusSuccess:
			t.Logf("%s completed successfully with native ID: %s",
				config.OperationName,
				statusResult.ProgressResult.NativeID)
			return statusResult, nil

		case resource.OperationStatusFailure:
			return statusResult, fmt.Errorf("%s operation failed: %s (error code: %s)",
				config.OperationName,
				statusResult.ProgressResult.StatusMessage,
				statusResult.ProgressResult.ErrorCode)
		}
	}

	return nil, fmt.Errorf("%s operation timed out after %d attempts", config.OperationName, config.MaxAttempts)
}

// WaitForEnable polls a pending Create until the service is enabled
func WaitForEnable(
	t *testing.T,
	ctx context.Context,
	checker StatusChecker,
	createResult *resource.CreateResult,
	targetConfig json.RawMessage,
	resourceType string,
) (*resource.StatusResult, error) {
	t.Helper()

	config := NewPollConfig().
		ForEnable().
		WithResourceType(resourceType).
		Build()

	return PollUntilComplete(t, ctx, checker, createResult.ProgressResult, targetConfig, config)
}

// WaitForDisable polls a pending Delete until the service is stopped
func WaitForDisable(
	t *testing.T,
	ctx context.Context,
	checker StatusChecker,
	deleteResult *resource.DeleteResult,
	targetConfig json.RawMessage,
	resourceType string,
) (*resource.StatusResult, error) {
	t.Helper()

	config := NewPollConfig().
		ForDisable().
		WithResourceType(resourceType).
		Build()

	return PollUntilComplete(t, ctx, checker, deleteResult.ProgressResult, targetConfig, config)
}
