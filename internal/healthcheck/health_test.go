package healthcheck

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/steward-action/pkg/logging"
)

func newMavenServer(t *testing.T, status int) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	r := mux.NewRouter()
	r.HandleFunc("/maven2/", func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(status)
	}).Methods(http.MethodGet)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestMavenCentralReachable(t *testing.T) {
	srv, hits := newMavenServer(t, http.StatusOK)

	var buf bytes.Buffer
	logger := logging.NewLogger(logging.INFO, false)
	logger.SetOutput(&buf)

	c := New(srv.URL+"/maven2/", logger, WithHTTPClient(srv.Client()))
	require.NoError(t, c.MavenCentral(context.Background()))
	assert.Equal(t, 1, *hits)
	assert.Contains(t, buf.String(), "✓ Connected to Maven Central")
}

func TestMavenCentralErrorStatusIsNotRetried(t *testing.T) {
	srv, hits := newMavenServer(t, http.StatusServiceUnavailable)

	c := New(srv.URL+"/maven2/", logging.Discard(), WithHTTPClient(srv.Client()))
	err := c.MavenCentral(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMavenCentral))
	assert.Equal(t, 1, *hits)
}

func TestMavenCentralUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1/", logging.Discard())
	err := c.MavenCentral(context.Background())
	assert.True(t, errors.Is(err, ErrMavenCentral))
}

type fixedSampler struct {
	snap Snapshot
	err  error
}

func (f fixedSampler) Sample() (Snapshot, error) { return f.snap, f.err }

func TestHostCapacity(t *testing.T) {
	tests := []struct {
		name    string
		sampler Sampler
		want    HealthStatus
		warns   bool
	}{
		{"plenty", fixedSampler{snap: Snapshot{TotalMemory: 16 << 30, AvailableMemory: 8 << 30, CPUCount: 4}}, HealthStatusHealthy, false},
		{"low memory", fixedSampler{snap: Snapshot{TotalMemory: 4 << 30, AvailableMemory: 1 << 30, CPUCount: 2}}, HealthStatusDegraded, true},
		{"sampler error", fixedSampler{err: errors.New("no /proc")}, HealthStatusHealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewLogger(logging.INFO, false)
			logger.SetOutput(&buf)

			c := New("http://unused", logger, WithSampler(tt.sampler))
			assert.Equal(t, tt.want, c.HostCapacity())
			assert.Equal(t, tt.warns, bytes.Contains(buf.Bytes(), []byte("Low available memory")))
		})
	}
}

func TestHealthStatusString(t *testing.T) {
	assert.Equal(t, "healthy", HealthStatusHealthy.String())
	assert.Equal(t, "degraded", HealthStatusDegraded.String())
	assert.Equal(t, "unhealthy", HealthStatusUnhealthy.String())
	assert.Equal(t, "unknown", HealthStatus(42).String())
}
