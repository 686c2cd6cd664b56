package client

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Config holds the information needed to connect to a quantjobs API server.
type Config struct {
	Service Service `json:"service"`
}

// Service describes how to reach the API server.
type Service struct {
	// Server is the URL of the API server (the part before /api/v1/...).
	Server string `json:"server"`
}

func NewDefault() *Config {
	return &Config{}
}

func (c *Config) Validate() error {
	if len(c.Service.Server) == 0 {
		return fmt.Errorf("invalid configuration: no server found")
	}
	u, err := url.Parse(c.Service.Server)
	if err != nil {
		return fmt.Errorf("invalid server format %q: %w", c.Service.Server, err)
	}
	if len(u.Hostname()) == 0 {
		return fmt.Errorf("invalid server format %q: no hostname", c.Service.Server)
	}
	return nil
}

// NewHTTPClientFromConfig returns a new HTTP client from the given config.
// There is deliberately no retry layer here; every operation is one request.
func NewHTTPClientFromConfig(_ *Config) (*http.Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     false,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	return httpClient, nil
}
