package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels of the loads counter
const (
	OutcomeSuccess             = "success"
	OutcomeResourceUnavailable = "resource_unavailable"
	OutcomeDecodeError         = "decode_error"
	OutcomeEmptyGeometry       = "empty_geometry"
)

// Metrics holds the Prometheus metrics of the point cloud loader
type Metrics struct {
	registry     *prometheus.Registry
	loads        *prometheus.CounterVec
	inFlight     prometheus.Gauge
	bytesRead    prometheus.Counter
	pointsLoaded prometheus.Counter
	loadLatency  prometheus.Histogram
}

// Creates the metrics on a dedicated registry, so that independent viewers
// (and tests) never collide on registration
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pointcloud_loads_total",
				Help: "Total number of point cloud loads by outcome",
			},
			[]string{"outcome"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pointcloud_loads_in_flight",
				Help: "Number of point cloud loads currently running",
			},
		),
		bytesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pointcloud_bytes_read_total",
				Help: "Bytes read from point cloud resources",
			},
		),
		pointsLoaded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pointcloud_points_loaded_total",
				Help: "Points decoded by successful loads",
			},
		),
		loadLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pointcloud_load_duration_seconds",
				Help:    "Duration of point cloud loads, fetch and decode included",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Marks the beginning of a load
func (m *Metrics) LoadStarted() {
	m.inFlight.Inc()
}

// Records the end of a load started at start
func (m *Metrics) LoadFinished(outcome string, start time.Time, bytesRead int64, points int) {
	m.inFlight.Dec()
	m.loads.WithLabelValues(outcome).Inc()
	m.loadLatency.Observe(time.Since(start).Seconds())
	if bytesRead > 0 {
		m.bytesRead.Add(float64(bytesRead))
	}
	if points > 0 {
		m.pointsLoaded.Add(float64(points))
	}
}

// Builds a fiber app exposing the registry on /metrics
func NewServer(m *Metrics) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}
