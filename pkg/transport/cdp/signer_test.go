// pkg/transport/cdp/signer_test.go
package cdp

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name    string
		keyID   string
		key     string
		wantErr bool
	}{
		{name: "seed", keyID: "ak", key: base64.StdEncoding.EncodeToString(priv.Seed())},
		{name: "expanded key", keyID: "ak", key: base64.StdEncoding.EncodeToString(priv)},
		{name: "missing key id", keyID: "", key: base64.StdEncoding.EncodeToString(priv.Seed()), wantErr: true},
		{name: "rsa-sized key", keyID: "ak", key: base64.StdEncoding.EncodeToString(make([]byte, 48)), wantErr: true},
		{name: "not base64", keyID: "ak", key: "%%%", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := NewSigner(tt.keyID, tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, signer)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, signer)
		})
	}
}

func TestSigner_Sign(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := NewSigner("ak-1", base64.StdEncoding.EncodeToString(priv.Seed()))
	require.NoError(t, err)
	signer.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)) }

	req, err := http.NewRequest(http.MethodPost, "https://api.example.com/api/v1/de/describeService?x=1", nil)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	require.NoError(t, signer.Sign(req))

	assert.Equal(t, "Fri, 01 Mar 2024 11:00:00 GMT", req.Header.Get(headerDate))

	parts := splitAuthHeader(t, req.Header.Get(headerAuth))
	assert.Equal(t, "ak-1", parts.meta["access_key_id"])
	assert.Equal(t, authMethodEd25519, parts.meta["auth_method"])

	canonical := "POST\napplication/json\nFri, 01 Mar 2024 11:00:00 GMT\n/api/v1/de/describeService?x=1\ned25519v1"
	assert.True(t, ed25519.Verify(pub, []byte(canonical), parts.signature))
}
