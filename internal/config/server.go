package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// ErrMissingFile is returned when no diagram file was given.
var ErrMissingFile = errors.New("a Mermaid file path is required")

// mermaidCDN is the jsDelivr ESM bundle location; %s is the version.
const mermaidCDN = "https://cdn.jsdelivr.net/npm/mermaid@%s/dist/mermaid.esm.min.mjs"

// mermaidVersionChars restricts versions to characters that are safe in a
// CDN path segment.
var mermaidVersionChars = regexp.MustCompile(`^[0-9A-Za-z.^~*+-]+$`)

// ServerConfig is the process-wide viewer configuration. It is built once
// at startup and passed by value; nothing mutates it afterwards.
type ServerConfig struct {
	FilePath       string
	Host           string
	Port           int
	Debug          bool
	PollInterval   time.Duration
	MermaidVersion string
	Cache          bool
	Watch          bool
	Debounce       time.Duration
	Metrics        bool
}

// NewServerConfig resolves file to an absolute path and combines it with the
// validated settings of cfg.
func NewServerConfig(file string, cfg *Config) (ServerConfig, error) {
	if strings.TrimSpace(file) == "" {
		return ServerConfig{}, ErrMissingFile
	}

	if cfg == nil {
		cfg = Default()
	}

	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("resolving %q: %w", file, err)
	}

	return ServerConfig{
		FilePath:       abs,
		Host:           cfg.Host,
		Port:           cfg.Port,
		Debug:          cfg.Debug,
		PollInterval:   cfg.PollInterval,
		MermaidVersion: cfg.MermaidVersion,
		Cache:          !cfg.NoCache,
		Watch:          !cfg.NoWatch,
		Debounce:       cfg.Debounce,
		Metrics:        cfg.Metrics,
	}, nil
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL returns the browser URL of the viewer.
func (c ServerConfig) URL() string {
	u := url.URL{Scheme: "http", Host: c.Addr(), Path: "/"}
	return u.String()
}

// DisplayName returns the base name of the watched file.
func (c ServerConfig) DisplayName() string {
	return filepath.Base(c.FilePath)
}

// MermaidURL returns the CDN URL of the Mermaid ESM bundle.
func (c ServerConfig) MermaidURL() string {
	return MermaidURL(c.MermaidVersion)
}

// MermaidURL returns the CDN URL for the given Mermaid version constraint.
func MermaidURL(version string) string {
	return fmt.Sprintf(mermaidCDN, version)
}

// ValidateMermaidVersion checks that version is a semver version or
// constraint that can be embedded in a CDN URL, such as "10", "10.9.1" or
// "^11".
func ValidateMermaidVersion(version string) error {
	if !mermaidVersionChars.MatchString(version) {
		return fmt.Errorf("invalid mermaid version %q: must be a version like 10, 10.9.1 or ^11", version)
	}

	if _, err := semver.NewConstraint(version); err != nil {
		return fmt.Errorf("invalid mermaid version %q: %w", version, err)
	}

	return nil
}
