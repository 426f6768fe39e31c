package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultAPIVersion is used when the server version cannot be discovered.
	DefaultAPIVersion = "3.4"

	// serverInfoVersion is the oldest API version that serves /serverinfo.
	serverInfoVersion = "2.4"
)

// ServerInfo holds the parsed /serverinfo response.
type ServerInfo struct {
	ProductVersion string
	Build          string
	RESTAPIVersion string
}

type serverInfoResponse struct {
	ServerInfo struct {
		ProductVersion struct {
			Value string `json:"value"`
			Build string `json:"build"`
		} `json:"productVersion"`
		RESTAPIVersion string `json:"restApiVersion"`
	} `json:"serverInfo"`
}

// ParseServerInfo extracts version details from a /serverinfo JSON body.
func ParseServerInfo(body []byte) (*ServerInfo, error) {
	var resp serverInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing serverinfo response: %w", err)
	}
	if resp.ServerInfo.RESTAPIVersion == "" {
		return nil, fmt.Errorf("serverinfo response missing restApiVersion field")
	}
	return &ServerInfo{
		ProductVersion: resp.ServerInfo.ProductVersion.Value,
		Build:          resp.ServerInfo.ProductVersion.Build,
		RESTAPIVersion: resp.ServerInfo.RESTAPIVersion,
	}, nil
}

// ServerInfo queries the unauthenticated /serverinfo endpoint.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var raw json.RawMessage
	path := "/api/" + serverInfoVersion + "/serverinfo"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	return ParseServerInfo(raw)
}

// UseServerVersion switches the client to the REST API version the server
// reports. Connectivity failures are returned; any other discovery failure
// is logged and the client keeps DefaultAPIVersion.
func (c *Client) UseServerVersion(ctx context.Context) error {
	info, err := c.ServerInfo(ctx)
	if err != nil {
		if errors.Is(err, ErrConnectivity) {
			return err
		}
		c.logger.Warn("could not discover server version, using default",
			"default", DefaultAPIVersion, "error", err)
		c.apiVersion = DefaultAPIVersion
		return nil
	}
	c.apiVersion = info.RESTAPIVersion
	c.logger.Info("discovered server version",
		"product", info.ProductVersion, "build", info.Build, "api", info.RESTAPIVersion)
	return nil
}

// CompareVersions performs a simple dotted-version comparison.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
// Handles partial versions (e.g. "3.4" vs "3.4.0").
func CompareVersions(a, b string) int {
	aParts := parseVersionParts(a)
	bParts := parseVersionParts(b)

	maxLen := len(aParts)
	if len(bParts) > maxLen {
		maxLen = len(bParts)
	}

	for i := 0; i < maxLen; i++ {
		var av, bv int
		if i < len(aParts) {
			av = aParts[i]
		}
		if i < len(bParts) {
			bv = bParts[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// VersionAtLeast returns true if version >= min.
func VersionAtLeast(version, min string) bool {
	if version == "" || min == "" {
		return true
	}
	return CompareVersions(version, min) >= 0
}

func parseVersionParts(v string) []int {
	parts := strings.Split(v, ".")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		result = append(result, n)
	}
	return result
}
