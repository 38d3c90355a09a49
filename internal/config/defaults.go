package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults.
const (
	DefaultAddr         = ":5000"
	DefaultCacheDir     = "~/.cache/chatd/models"
	DefaultBackend      = BackendLlamaServer
	DefaultMaxBodyBytes = 20 << 20
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
)

// Backend names.
const (
	BackendLlamaServer = "llama-server"
	BackendLlama       = "llama"
)

// ApplyDefaults fills unset fields and validates enumerations.
func (c *Config) ApplyDefaults() error {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = DefaultAddr
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	switch c.Backend {
	case BackendLlamaServer, BackendLlama:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendLlamaServer, BackendLlama)
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q (want console or json)", c.LogFormat)
	}
	if c.CORSEnabled == nil {
		on := true
		c.CORSEnabled = &on
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	return nil
}

// MaxWait returns the admission wait as a duration; zero means the manager default.
func (c Config) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSeconds) * time.Second
}
