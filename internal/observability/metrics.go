package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScanCollector bundles the Prometheus instruments of the scanning engine.
// All recording methods are nil-safe so engine code can run unmetered in
// tests without guards at every call site.
type ScanCollector struct {
	gatherer prometheus.Gatherer

	Samples          prometheus.Counter
	Brackets         prometheus.Counter
	Events           *prometheus.CounterVec
	EphemerisRetries prometheus.Counter
	RefineIterations prometheus.Histogram
	ScansInFlight    prometheus.Gauge
	CacheOps         *prometheus.CounterVec
}

// NewScanCollector registers the engine's metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// AlreadyRegistered collisions resolve to the existing collector, so
// repeated construction in tests is harmless.
func NewScanCollector(reg prometheus.Registerer) (*ScanCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &ScanCollector{gatherer: gatherer}

	samples := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_samples_total",
		Help: "Total coarse ephemeris samples taken across all scans.",
	})
	if err := register(reg, samples, &samples); err != nil {
		return nil, err
	}
	c.Samples = samples

	brackets := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_brackets_total",
		Help: "Total zero-crossing brackets detected.",
	})
	if err := register(reg, brackets, &brackets); err != nil {
		return nil, err
	}
	c.Brackets = brackets

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_events_total",
		Help: "Total refined events emitted, labeled by relationship kind.",
	}, []string{"kind"})
	if err := register(reg, events, &events); err != nil {
		return nil, err
	}
	c.Events = events

	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_ephemeris_retries_total",
		Help: "Transient ephemeris failures retried during sampling.",
	})
	if err := register(reg, retries, &retries); err != nil {
		return nil, err
	}
	c.EphemerisRetries = retries

	iterations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scan_refine_iterations",
		Help:    "Bisection iterations spent per bracket.",
		Buckets: []float64{0, 1, 2, 4, 8, 12, 16},
	})
	if err := register(reg, iterations, &iterations); err != nil {
		return nil, err
	}
	c.RefineIterations = iterations

	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scan_in_flight",
		Help: "Scans currently executing.",
	})
	if err := register(reg, inflight, &inflight); err != nil {
		return nil, err
	}
	c.ScansInFlight = inflight

	cacheOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relationship_cache_ops_total",
		Help: "Relationship cache operations, labeled by layer and result.",
	}, []string{"layer", "result"})
	if err := register(reg, cacheOps, &cacheOps); err != nil {
		return nil, err
	}
	c.CacheOps = cacheOps

	return c, nil
}

// register adds a collector, resolving AlreadyRegistered to the existing
// instance via the typed out-pointer.
func register[T prometheus.Collector](reg prometheus.Registerer, col T, out *T) error {
	if err := reg.Register(col); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return err
		}
		existing, ok := are.ExistingCollector.(T)
		if !ok {
			return err
		}
		*out = existing
	}
	return nil
}

// Handler serves the collector's registry for a /metrics endpoint.
func (c *ScanCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *ScanCollector) SampleTaken() {
	if c != nil {
		c.Samples.Inc()
	}
}

func (c *ScanCollector) BracketDetected() {
	if c != nil {
		c.Brackets.Inc()
	}
}

func (c *ScanCollector) EventEmitted(kind string) {
	if c != nil {
		c.Events.WithLabelValues(kind).Inc()
	}
}

func (c *ScanCollector) EphemerisRetried() {
	if c != nil {
		c.EphemerisRetries.Inc()
	}
}

func (c *ScanCollector) RefineObserved(iterations int) {
	if c != nil {
		c.RefineIterations.Observe(float64(iterations))
	}
}

func (c *ScanCollector) ScanStarted() {
	if c != nil {
		c.ScansInFlight.Inc()
	}
}

func (c *ScanCollector) ScanFinished() {
	if c != nil {
		c.ScansInFlight.Dec()
	}
}

// CacheOp records one cache lookup outcome ("local"/"shared"/"compute",
// "hit"/"miss"/"error").
func (c *ScanCollector) CacheOp(layer, result string) {
	if c != nil {
		c.CacheOps.WithLabelValues(layer, result).Inc()
	}
}
