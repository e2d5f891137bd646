// Package config provides environment-driven application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds everything the gateway reads from the environment.
type Config struct {
	// Port is the TCP port the API server listens on.
	Port string

	// ProxyURL configures the outbound HTTP client. Supports http, https
	// and socks5 schemes. Nil means direct connections.
	ProxyURL *url.URL

	// Authorization is an optional shared secret. When set, every request
	// must carry it verbatim in the Authorization header. It is never sent
	// upstream.
	Authorization string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "3040"),
		Authorization: os.Getenv("AUTHORIZATION"),
	}

	if _, err := strconv.ParseUint(cfg.Port, 10, 16); err != nil {
		return nil, fmt.Errorf("invalid environment variable $PORT: %q", cfg.Port)
	}

	if raw := os.Getenv("ALL_PROXY"); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid environment variable $ALL_PROXY: %w", err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("invalid environment variable $ALL_PROXY: unsupported scheme %q", u.Scheme)
		}
		cfg.ProxyURL = u
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
