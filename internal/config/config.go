package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/rflorenc/tablist/internal/models"
)

// maxPageSize is the largest page the REST API will serve.
const maxPageSize = 1000

// Config holds all configuration (CLI flags + config file).
type Config struct {
	Server       string   `yaml:"server"`
	Site         string   `yaml:"site"`
	Username     string   `yaml:"username"`
	Password     string   `yaml:"password"`
	LoggingLevel LogLevel `yaml:"logging_level"`
	Insecure     bool     `yaml:"insecure"`
	CACertFile   string   `yaml:"ca_cert"`
	APIVersion   string   `yaml:"api_version"`
	PageSize     int      `yaml:"page_size"`
	KeepGoing    bool     `yaml:"keep_going"`

	// Kind is the resource type to list, set by Finalize.
	Kind models.Kind `yaml:"-"`

	passwordSet bool
	configFile  string
	flags       *pflag.FlagSet
}

// BindFlags registers the command-line flags on fs.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	c.flags = fs
	fs.StringVarP(&c.Server, "server", "s", "", "server address")
	fs.StringVarP(&c.Site, "site", "S", "", "site to log into, do not specify for default site")
	fs.StringVarP(&c.Username, "username", "u", "", "username to sign into server")
	fs.StringVarP(&c.Password, "password", "p", "", "password for the user (prompted if omitted)")
	fs.VarP(&c.LoggingLevel, "logging-level", "l", "desired logging level: debug, info or error (set to error by default)")
	fs.StringVar(&c.configFile, "config", "", "path to config file (YAML)")
	fs.BoolVar(&c.Insecure, "insecure", false, "skip TLS certificate verification")
	fs.StringVar(&c.CACertFile, "ca-cert", "", "path to a PEM CA bundle for the server certificate")
	fs.StringVar(&c.APIVersion, "api-version", "", "REST API version to use instead of asking the server")
	fs.IntVar(&c.PageSize, "page-size", 100, "number of items fetched per page")
	fs.BoolVar(&c.KeepGoing, "keep-going", false, "log tasks whose target cannot be resolved and continue")
}

// Finalize overlays the config file, validates everything and parses the
// resource type from args. Config must not be modified afterwards.
func (c *Config) Finalize(args []string) error {
	if c.configFile != "" {
		if err := c.loadFile(c.configFile); err != nil {
			return &UsageError{Arg: "--config", Msg: err.Error()}
		}
	}
	if c.flags != nil && c.flags.Changed("password") {
		c.passwordSet = true
	}

	if strings.TrimSpace(c.Server) == "" {
		return &UsageError{Arg: "--server", Msg: "required flag not set"}
	}
	if strings.TrimSpace(c.Username) == "" {
		return &UsageError{Arg: "--username", Msg: "required flag not set"}
	}
	if c.PageSize < 1 || c.PageSize > maxPageSize {
		return &UsageError{Arg: "--page-size", Msg: fmt.Sprintf("must be between 1 and %d", maxPageSize)}
	}
	if c.APIVersion != "" && !validVersion(c.APIVersion) {
		return &UsageError{Arg: "--api-version", Msg: fmt.Sprintf("invalid version %q", c.APIVersion)}
	}
	if err := c.LoggingLevel.Set(c.LoggingLevel.String()); err != nil {
		return &UsageError{Arg: "--logging-level", Msg: err.Error()}
	}

	kind, err := ParseResourceType(args)
	if err != nil {
		return err
	}
	c.Kind = kind
	return nil
}

// ParseResourceType validates the positional arguments and returns the
// resource kind they name.
func ParseResourceType(args []string) (models.Kind, error) {
	choices := strings.Join(models.KindNames(), ", ")
	switch {
	case len(args) == 0:
		return 0, &UsageError{Arg: "resource_type", Msg: "required argument missing (choose from " + choices + ")"}
	case len(args) > 1:
		return 0, &UsageError{Arg: "resource_type", Msg: fmt.Sprintf("unexpected argument %q", args[1])}
	}
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return 0, &UsageError{Arg: "resource_type", Msg: fmt.Sprintf("invalid choice %q (choose from %s)", args[0], choices)}
	}
	return kind, nil
}

// SuppliedPassword returns the password given by flag or config file, or
// nil if none was given and the user must be prompted.
func (c *Config) SuppliedPassword() *string {
	if !c.passwordSet {
		return nil
	}
	p := c.Password
	return &p
}

// Connection builds the connection described by the configuration. The
// password is left empty; it is resolved separately.
func (c *Config) Connection() (*models.Connection, error) {
	conn := &models.Connection{
		Site:       c.Site,
		Username:   c.Username,
		Insecure:   c.Insecure,
		APIVersion: c.APIVersion,
	}
	if err := conn.ParseServer(c.Server); err != nil {
		return nil, &UsageError{Arg: "--server", Msg: err.Error()}
	}
	if c.CACertFile != "" {
		pem, err := os.ReadFile(c.CACertFile)
		if err != nil {
			return nil, &UsageError{Arg: "--ca-cert", Msg: err.Error()}
		}
		conn.CACert = string(pem)
	}
	return conn, nil
}

// loadFile reads a YAML config file. Values from the file are only applied
// if the corresponding CLI flag was not explicitly set.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	overlayString(c, "server", &c.Server, file.Server)
	overlayString(c, "site", &c.Site, file.Site)
	overlayString(c, "username", &c.Username, file.Username)
	overlayString(c, "ca-cert", &c.CACertFile, file.CACertFile)
	overlayString(c, "api-version", &c.APIVersion, file.APIVersion)
	if !c.changed("password") && file.Password != "" {
		c.Password = file.Password
		c.passwordSet = true
	}
	if !c.changed("logging-level") && file.LoggingLevel != "" {
		c.LoggingLevel = file.LoggingLevel
	}
	if !c.changed("insecure") && file.Insecure {
		c.Insecure = true
	}
	if !c.changed("keep-going") && file.KeepGoing {
		c.KeepGoing = true
	}
	if !c.changed("page-size") && file.PageSize != 0 {
		c.PageSize = file.PageSize
	}
	return nil
}

func (c *Config) changed(flag string) bool {
	return c.flags != nil && c.flags.Changed(flag)
}

func overlayString(c *Config, flag string, dst *string, value string) {
	if !c.changed(flag) && value != "" {
		*dst = value
	}
}

func validVersion(v string) bool {
	parts := strings.Split(v, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
