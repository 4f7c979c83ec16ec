package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigFileName = ".extpack.toml"
	DefaultRegistryPath   = "extensions.toml"
	DefaultBuildDir       = "build"
	DefaultOutputDir      = "dist"
	DefaultBaselineRef    = "origin/main"
	DefaultCacheTTLHours  = 24
	DefaultJobs           = 1
	DefaultTimeout        = 10 * time.Minute
	PublishedCacheName    = "published-cache.yaml"
)

// ConfigFile represents the TOML config file structure
type ConfigFile struct {
	Registry       string `toml:"registry,omitempty"`
	BuildDir       string `toml:"build_dir,omitempty"`
	OutputDir      string `toml:"output_dir,omitempty"`
	BaselineRef    string `toml:"baseline_ref,omitempty"`
	PublishedIndex string `toml:"published_index,omitempty"`
	CacheTTL       int    `toml:"cache_ttl_hours,omitempty"`
	Jobs           int    `toml:"jobs,omitempty"`
	Timeout        string `toml:"timeout,omitempty"`
}

// Config holds the runtime configuration
type Config struct {
	ConfigPath     string
	RegistryPath   string
	BuildDir       string // Shared scratch root; each build gets its own subdirectory
	OutputDir      string // Where finished archives are moved
	BaselineRef    string // Git ref the registry is diffed against
	PublishedIndex string // File path or http(s) URL of the published-versions index
	CacheTTL       int
	Jobs           int
	Timeout        time.Duration // Per-extension build timeout
}

// DefaultConfig returns the default configuration, merged with the config
// file at path if it exists. An empty path means DefaultConfigFileName.
func DefaultConfig(path string) (*Config, error) {
	cfg := Defaults(path)
	if err := cfg.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config %s: %w", cfg.ConfigPath, err)
	}

	return cfg, nil
}

// Defaults returns the built-in configuration without reading any file.
// An empty path means DefaultConfigFileName.
func Defaults(path string) *Config {
	if path == "" {
		path = DefaultConfigFileName
	}
	return &Config{
		ConfigPath:   path,
		RegistryPath: DefaultRegistryPath,
		BuildDir:     DefaultBuildDir,
		OutputDir:    DefaultOutputDir,
		BaselineRef:  DefaultBaselineRef,
		CacheTTL:     DefaultCacheTTLHours,
		Jobs:         DefaultJobs,
		Timeout:      DefaultTimeout,
	}
}

// Load reads the config from disk
func (c *Config) Load() error {
	var cf ConfigFile
	if _, err := toml.DecodeFile(c.ConfigPath, &cf); err != nil {
		return err
	}

	if cf.Registry != "" {
		c.RegistryPath = cf.Registry
	}
	if cf.BuildDir != "" {
		c.BuildDir = cf.BuildDir
	}
	if cf.OutputDir != "" {
		c.OutputDir = cf.OutputDir
	}
	if cf.BaselineRef != "" {
		c.BaselineRef = cf.BaselineRef
	}
	if cf.PublishedIndex != "" {
		c.PublishedIndex = cf.PublishedIndex
	}
	if cf.CacheTTL > 0 {
		c.CacheTTL = cf.CacheTTL
	}
	if cf.Jobs > 0 {
		c.Jobs = cf.Jobs
	}
	if cf.Timeout != "" {
		d, err := time.ParseDuration(cf.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", cf.Timeout, err)
		}
		c.Timeout = d
	}

	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	if dir := filepath.Dir(c.ConfigPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(c.ConfigPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.Encode(f)
}

// Encode writes the config in its file form
func (c *Config) Encode(w io.Writer) error {
	cf := ConfigFile{
		Registry:       c.RegistryPath,
		BuildDir:       c.BuildDir,
		OutputDir:      c.OutputDir,
		BaselineRef:    c.BaselineRef,
		PublishedIndex: c.PublishedIndex,
		CacheTTL:       c.CacheTTL,
		Jobs:           c.Jobs,
		Timeout:        c.Timeout.String(),
	}
	return toml.NewEncoder(w).Encode(cf)
}

// PublishedCachePath returns where the fetched published-versions index is cached
func (c *Config) PublishedCachePath() string {
	return filepath.Join(c.BuildDir, PublishedCacheName)
}

// EnsureDirs creates the build and output directories if they don't exist
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.BuildDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.OutputDir, 0755)
}

// IsRemoteIndex reports whether the published index is fetched over HTTP
func (c *Config) IsRemoteIndex() bool {
	return strings.HasPrefix(c.PublishedIndex, "http://") ||
		strings.HasPrefix(c.PublishedIndex, "https://")
}
