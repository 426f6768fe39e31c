package models

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Connection describes how to reach and authenticate against a Tableau
// Server or Tableau Cloud site.
type Connection struct {
	Scheme     string // "http" or "https"
	Host       string
	Port       int
	Site       string // content URL; empty means the default site
	Username   string
	Password   string
	Insecure   bool   // skip TLS verification
	CACert     string // PEM-encoded CA bundle
	APIVersion string // REST API version; empty means discover from the server
}

// ParseServer fills Scheme, Host and Port from a server address such as
// "https://tableau.example.com" or "tableau.example.com:8000". A missing
// scheme defaults to https.
func (c *Connection) ParseServer(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("empty server address")
	}
	if !strings.Contains(addr, "://") {
		addr = "https://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("parsing server address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("server address %q has no host", addr)
	}
	c.Scheme = u.Scheme
	c.Host = u.Hostname()
	c.Port = 0
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid port %q", p)
		}
		c.Port = port
	}
	if c.Port == 0 {
		if c.Scheme == "https" {
			c.Port = 443
		} else {
			c.Port = 80
		}
	}
	return nil
}

// BaseURL returns the full base URL for this connection.
func (c *Connection) BaseURL() string {
	return fmt.Sprintf("%s://%s", c.Scheme, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
}

// MaskedPassword returns a fixed-width mask for display, or "" if no password is set.
func (c *Connection) MaskedPassword() string {
	if c.Password == "" {
		return ""
	}
	return "••••••••"
}
