// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/config"
)

func TestNewClient(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	c, err := NewClient(&config.Config{
		Region:      "eu-1",
		AccessKeyID: "ak",
		PrivateKey:  base64.StdEncoding.EncodeToString(priv.Seed()),
	})
	require.NoError(t, err)
	assert.NotNil(t, c.DE)
	assert.Equal(t, "https://api.eu-1.cdp.cloudera.com/", c.Endpoint())
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&config.Config{AccessKeyID: "ak", PrivateKey: "short"})
	assert.ErrorContains(t, err, "failed to create control plane client")
}
