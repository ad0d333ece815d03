package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCounters(t *testing.T) {
	m := New()

	m.LoadStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	m.LoadFinished(OutcomeSuccess, time.Now(), 128, 10)
	m.LoadStarted()
	m.LoadFinished(OutcomeDecodeError, time.Now(), 0, 0)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues(OutcomeDecodeError)))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.bytesRead))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.pointsLoaded))
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.LoadStarted()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.inFlight))
}

func TestServer(t *testing.T) {
	m := New()
	m.LoadStarted()
	m.LoadFinished(OutcomeEmptyGeometry, time.Now(), 0, 0)

	app := NewServer(m)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `pointcloud_loads_total{outcome="empty_geometry"} 1`))

	resp, err = app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
