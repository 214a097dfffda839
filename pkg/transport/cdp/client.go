// pkg/transport/cdp/client.go
package cdp

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gophercloud/gophercloud/v2"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/logging"
)

// DefaultEndpoint is the public control plane endpoint for the us-west-1 region.
const DefaultEndpoint = "https://api.us-west-1.cdp.cloudera.com/"

const defaultAgentHeader = "formae-plugin-cde"

// Client wraps a gophercloud service client for the CDP REST architecture:
// every operation is a POST to /api/v1/{service}/{operation} with a JSON body.
type Client struct {
	service *gophercloud.ServiceClient
}

// RequestOptions defines options for an API request
type RequestOptions struct {
	Service   string // e.g. "de"
	Operation string // e.g. "listServices"
	Body      interface{}
}

// Response represents an API response
type Response struct {
	StatusCode int
	Body       map[string]interface{}
}

// CDPConfig holds control plane connection settings
type CDPConfig struct {
	Endpoint    string
	AccessKeyID string
	PrivateKey  string
	AgentHeader string
	VerifyTLS   bool
	Timeout     time.Duration
}

// NewClient creates a new control plane client from config
func NewClient(cfg *CDPConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // verify_tls=false is an explicit user choice
	}

	var rt http.RoundTripper = base
	if cfg.AccessKeyID != "" || cfg.PrivateKey != "" {
		signer, err := NewSigner(cfg.AccessKeyID, cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create request signer: %w", err)
		}
		rt = &signingTransport{signer: signer, next: base}
	}

	provider := &gophercloud.ProviderClient{
		HTTPClient: http.Client{Transport: rt, Timeout: cfg.Timeout},
	}
	agent := cfg.AgentHeader
	if agent == "" {
		agent = defaultAgentHeader
	}
	provider.UserAgent.Prepend(agent)

	return &Client{
		service: &gophercloud.ServiceClient{
			ProviderClient: provider,
			Endpoint:       gophercloud.NormalizeURL(endpoint),
		},
	}, nil
}

// Endpoint returns the normalized base URL.
func (c *Client) Endpoint() string {
	return c.service.Endpoint
}

// Do executes an API request
func (c *Client) Do(ctx context.Context, opts RequestOptions) (*Response, error) {
	if opts.Service == "" || opts.Operation == "" {
		return nil, NewError(ErrorCodeInvalidInput, "service and operation are required", nil)
	}

	body := opts.Body
	if body == nil {
		body = map[string]interface{}{}
	}

	url := c.service.ServiceURL("api", "v1", opts.Service, opts.Operation)
	logger := logging.FromContext(ctx).With("service", opts.Service, "operation", opts.Operation)
	logger.Debug("cdp request", "url", url)

	start := time.Now()
	resp, err := c.service.Post(ctx, url, body, nil, &gophercloud.RequestOpts{
		OkCodes:          []int{http.StatusOK},
		KeepResponseBody: true,
	})
	if err != nil {
		classified := c.classifyError(opts.Operation, err)
		logger.Debug("cdp request failed", "error", classified, "duration", time.Since(start))
		return nil, classified
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: ErrorCodeUnknown, Message: err.Error(), Operation: opts.Operation, Underlying: err}
	}

	logger.Debug("cdp response", "status", resp.StatusCode, "bytes", len(raw), "duration", time.Since(start))
	return c.parseResponse(opts.Operation, resp.StatusCode, raw)
}

// parseResponse converts raw JSON to Response
func (c *Client) parseResponse(operation string, status int, raw []byte) (*Response, error) {
	resp := &Response{StatusCode: status, Body: map[string]interface{}{}}
	if len(raw) == 0 {
		return resp, nil
	}

	if err := json.Unmarshal(raw, &resp.Body); err != nil {
		return nil, &Error{
			Code:       ErrorCodeUnknown,
			Message:    fmt.Sprintf("failed to parse response: %s", string(raw)),
			HTTPCode:   status,
			Operation:  operation,
			Underlying: err,
		}
	}
	if resp.Body == nil {
		resp.Body = map[string]interface{}{}
	}
	return resp, nil
}

// classifyError converts gophercloud errors to transport errors
func (c *Client) classifyError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if code, body, ok := unexpectedResponse(err); ok {
		return &Error{
			Code:       ClassifyHTTPStatus(code),
			Message:    apiMessage(body, err),
			HTTPCode:   code,
			Operation:  operation,
			Underlying: err,
		}
	}

	return &Error{
		Code:       ErrorCodeUnknown,
		Message:    err.Error(),
		Operation:  operation,
		Underlying: err,
	}
}

func unexpectedResponse(err error) (int, []byte, bool) {
	var byValue gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &byValue) {
		return byValue.Actual, byValue.Body, true
	}
	var byPointer *gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &byPointer) && byPointer != nil {
		return byPointer.Actual, byPointer.Body, true
	}
	return 0, nil, false
}

// apiMessage extracts the control plane's {"code","message"} error body.
func apiMessage(body []byte, fallback error) string {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		if apiErr.Code != "" {
			return apiErr.Code + ": " + apiErr.Message
		}
		return apiErr.Message
	}
	return fallback.Error()
}
