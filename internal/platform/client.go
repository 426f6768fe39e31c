package platform

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rflorenc/tablist/internal/models"
)

const (
	// DefaultPageSize is the number of items requested per page.
	DefaultPageSize = 100

	authHeader = "X-Tableau-Auth"
)

// Options tune a Client beyond what the Connection describes.
type Options struct {
	PageSize int
	Logger   *slog.Logger
}

// Client is an HTTP client for the Tableau REST API.
type Client struct {
	baseURL    string
	apiVersion string
	token      string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client from a Connection. The API version is taken
// from the connection; call UseServerVersion to discover it instead.
func NewClient(conn *models.Connection, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if conn.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	} else if conn.CACert != "" {
		caCertPool := x509.NewCertPool()
		if caCertPool.AppendCertsFromPEM([]byte(conn.CACert)) {
			transport.TLSClientConfig = &tls.Config{RootCAs: caCertPool}
		} else {
			logger.Warn("no certificates found in CA bundle, using system roots")
		}
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	apiVersion := conn.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		baseURL:    conn.BaseURL(),
		apiVersion: apiVersion,
		pageSize:   pageSize,
		httpClient: &http.Client{Transport: transport},
		logger:     logger,
	}
}

// APIVersion returns the REST API version requests are sent to.
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// apiPath prefixes path with the versioned API root.
func (c *Client) apiPath(path string) string {
	return "/api/" + c.apiVersion + path
}

// do performs a request against an absolute API path and decodes a JSON
// response into dest (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload, dest interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(authHeader, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %w", ErrConnectivity, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrConnectivity, err)
	}
	c.logger.Debug("api request", "method", method, "path", path, "query", params.Encode(), "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(method, path, resp.StatusCode, body)
	}
	if dest == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing %s %s response: %w", method, path, err)
	}
	return nil
}

// getJSON performs an authenticated GET under the versioned API root.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	return c.do(ctx, http.MethodGet, c.apiPath(path), params, nil, dest)
}

// postJSON performs an authenticated POST under the versioned API root.
func (c *Client) postJSON(ctx context.Context, path string, payload, dest interface{}) error {
	return c.do(ctx, http.MethodPost, c.apiPath(path), nil, payload, dest)
}
