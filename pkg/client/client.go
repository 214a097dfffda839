// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"fmt"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/transport/cdp"
)

// Client wraps the control plane transport and the service APIs built on it
type Client struct {
	Config *config.Config

	// Data Engineering - services (virtual clusters are out of scope)
	DE *de.API

	transport *cdp.Client
}

// NewClient creates a new signed control plane client
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	transport, err := cdp.NewClient(cfg.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create control plane client: %w", err)
	}

	return &Client{
		Config:    cfg,
		DE:        de.NewAPI(transport),
		transport: transport,
	}, nil
}

// Endpoint returns the control plane base URL in use
func (c *Client) Endpoint() string {
	return c.transport.Endpoint()
}
