// Package healthcheck verifies the runner can reach Maven Central and has
// enough headroom to run Scala Steward.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/psantana5/steward-action/pkg/logging"
)

// DefaultTimeout bounds the Maven Central probe
const DefaultTimeout = 10 * time.Second

// ErrMavenCentral is returned when Maven Central cannot be reached
var ErrMavenCentral = errors.New("Unable to connect to Maven Central")

// HealthStatus is the outcome of a probe
type HealthStatus int

const (
	HealthStatusHealthy HealthStatus = iota
	HealthStatusDegraded
	HealthStatusUnhealthy
)

// String returns string representation of health status
func (hs HealthStatus) String() string {
	switch hs {
	case HealthStatusHealthy:
		return "healthy"
	case HealthStatusDegraded:
		return "degraded"
	case HealthStatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Checker runs the pre-flight probes
type Checker struct {
	mavenCentralURL string
	client          *http.Client
	sampler         Sampler
	minAvailable    uint64
	logger          *logging.Logger
}

// Option configures a Checker
type Option func(*Checker)

// WithHTTPClient replaces the probe client. Its timeout is left as is.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.client = client }
}

// WithSampler replaces the host resource sampler
func WithSampler(s Sampler) Option {
	return func(c *Checker) { c.sampler = s }
}

// New creates a checker probing mavenCentralURL
func New(mavenCentralURL string, logger *logging.Logger, opts ...Option) *Checker {
	c := &Checker{
		mavenCentralURL: mavenCentralURL,
		client:          &http.Client{Timeout: DefaultTimeout},
		sampler:         GopsutilSampler{},
		minAvailable:    DefaultMinAvailableMemory,
		logger:          logger.WithField("component", "healthcheck"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MavenCentral checks that the repository answers with a 2xx. It is
// attempted once.
func (c *Checker) MavenCentral(ctx context.Context) error {
	status, err := c.probe(ctx)
	if err != nil {
		c.logger.Debug("Maven Central probe failed", map[string]interface{}{
			"url":    c.mavenCentralURL,
			"status": status.String(),
			"error":  err.Error(),
		})
		return ErrMavenCentral
	}

	c.logger.Info("✓ Connected to Maven Central")
	return nil
}

func (c *Checker) probe(ctx context.Context) (HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mavenCentralURL, nil)
	if err != nil {
		return HealthStatusUnhealthy, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return HealthStatusUnhealthy, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return HealthStatusUnhealthy, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return HealthStatusHealthy, nil
}
