// pkg/transport/cdp/signer.go
package cdp

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	authMethodEd25519 = "ed25519v1"

	headerAuth = "x-altus-auth"
	headerDate = "x-altus-date"
)

// Signer signs control plane requests with an access key pair.
type Signer struct {
	accessKeyID string
	privateKey  ed25519.PrivateKey
	now         func() time.Time
}

// NewSigner parses a base64 encoded ed25519 private key (32 byte seed or
// 64 byte expanded key).
func NewSigner(accessKeyID, privateKey string) (*Signer, error) {
	if accessKeyID == "" {
		return nil, fmt.Errorf("access key ID is required")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(privateKey))
	if err != nil {
		return nil, fmt.Errorf("private key is not valid base64: %w", err)
	}

	var key ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(raw)
	default:
		return nil, fmt.Errorf("unsupported private key length %d (only %s keys are supported)", len(raw), authMethodEd25519)
	}

	return &Signer{accessKeyID: accessKeyID, privateKey: key, now: time.Now}, nil
}

// Sign sets the date and auth headers on req.
func (s *Signer) Sign(req *http.Request) error {
	date := s.now().UTC().Format(http.TimeFormat)
	req.Header.Set(headerDate, date)

	path := req.URL.EscapedPath()
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	canonical := strings.Join([]string{
		req.Method,
		req.Header.Get("Content-Type"),
		date,
		path,
		authMethodEd25519,
	}, "\n")

	meta, err := json.Marshal(map[string]string{
		"access_key_id": s.accessKeyID,
		"auth_method":   authMethodEd25519,
	})
	if err != nil {
		return fmt.Errorf("failed to encode auth metadata: %w", err)
	}

	signature := ed25519.Sign(s.privateKey, []byte(canonical))
	req.Header.Set(headerAuth,
		base64.URLEncoding.EncodeToString(meta)+"."+base64.URLEncoding.EncodeToString(signature))
	return nil
}

// signingTransport signs each outgoing request before handing it to next.
type signingTransport struct {
	signer *Signer
	next   http.RoundTripper
}

func (t *signingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	signed := req.Clone(req.Context())
	if err := t.signer.Sign(signed); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(signed)
}
