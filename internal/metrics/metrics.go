package metrics

import (
	"context"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

var (
	// defaultRegistry is the default Prometheus registry
	defaultRegistry = prometheus.DefaultRegisterer
)

// Config holds metrics configuration.
type Config struct {
	// EnableSegmentLabel controls whether sealed-segment archival metrics
	// carry the segment's own bucket/key label, or collapse to "*" to keep
	// cardinality bounded on containers with many archived segments.
	EnableSegmentLabel bool
}

// Metrics holds all engine metrics.
type Metrics struct {
	config Config

	chunksProcessedTotal    *prometheus.CounterVec
	chunkProcessingDuration *prometheus.HistogramVec
	chunkBytesTotal         *prometheus.CounterVec

	dedupLookupsTotal   *prometheus.CounterVec
	dedupLookupDuration *prometheus.HistogramVec

	cryptoOperationsTotal *prometheus.CounterVec
	cryptoDuration        *prometheus.HistogramVec
	cryptoErrors          *prometheus.CounterVec
	cryptoBytes           *prometheus.CounterVec

	segmentArchiveTotal    *prometheus.CounterVec
	segmentArchiveDuration *prometheus.HistogramVec
	segmentArchiveErrors   *prometheus.CounterVec

	duplicateChainHops *prometheus.HistogramVec

	bufferPoolHits   *prometheus.CounterVec
	bufferPoolMisses *prometheus.CounterVec

	openContainers   prometheus.Gauge
	goroutines       prometheus.Gauge
	memoryAllocBytes prometheus.Gauge
	memorySysBytes   prometheus.Gauge

	hardwareAccelerationEnabled *prometheus.GaugeVec
}

// NewMetrics creates a new metrics instance with default configuration.
func NewMetrics() *Metrics {
	return NewMetricsWithConfig(Config{EnableSegmentLabel: true})
}

// NewMetricsWithConfig creates a new metrics instance with the provided configuration.
func NewMetricsWithConfig(cfg Config) *Metrics {
	return newMetricsWithRegistry(defaultRegistry, cfg)
}

// NewMetricsWithRegistry creates a new metrics instance with a custom registry.
// This is useful for testing to avoid metric registration conflicts.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetricsWithRegistry(reg, Config{EnableSegmentLabel: true})
}

// newMetricsWithRegistry creates a new metrics instance with a custom registry (for testing).
func newMetricsWithRegistry(reg prometheus.Registerer, cfg Config) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		config: cfg,
		chunksProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunks_processed_total",
				Help: "Total number of chunks processed by the chunking pipeline",
			},
			[]string{"result"}, // "unique", "same_bytes", "duplicate"
		),
		chunkProcessingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chunk_processing_duration_seconds",
				Help:    "Per-chunk pipeline stage duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"}, // "fingerprint", "dedup_lookup", "compress", "encrypt"
		),
		chunkBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_bytes_total",
				Help: "Total plaintext bytes consumed by the chunking pipeline",
			},
			[]string{"stage"},
		),
		dedupLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dedup_lookups_total",
				Help: "Total number of dedup backend lookups",
			},
			[]string{"backend", "result"}, // result: "hit" or "miss"
		),
		dedupLookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dedup_lookup_duration_seconds",
				Help:    "Dedup backend lookup duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		cryptoOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_crypto_operations_total",
				Help: "Total number of per-chunk AEAD seal/open operations",
			},
			[]string{"operation"}, // "seal" or "open"
		),
		cryptoDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chunk_crypto_duration_seconds",
				Help:    "Per-chunk AEAD operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"operation"},
		),
		cryptoErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_crypto_errors_total",
				Help: "Total number of per-chunk AEAD operation errors",
			},
			[]string{"operation", "error_type"},
		),
		cryptoBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_crypto_bytes_total",
				Help: "Total bytes sealed/opened by per-chunk AEAD",
			},
			[]string{"operation"},
		),
		segmentArchiveTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segment_archive_operations_total",
				Help: "Total number of sealed-segment archival backend operations",
			},
			[]string{"operation", "bucket"},
		),
		segmentArchiveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "segment_archive_operation_duration_seconds",
				Help:    "Sealed-segment archival backend operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "bucket"},
		),
		segmentArchiveErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segment_archive_operation_errors_total",
				Help: "Total number of sealed-segment archival backend errors",
			},
			[]string{"operation", "bucket", "error_type"},
		),
		duplicateChainHops: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "duplicate_chain_hops",
				Help:    "Number of duplicate_of hops followed to resolve a chunk read",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
			},
			[]string{},
		),
		bufferPoolHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buffer_pool_hits_total",
				Help: "Total number of buffer pool hits",
			},
			[]string{"size_class"},
		),
		bufferPoolMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buffer_pool_misses_total",
				Help: "Total number of buffer pool misses",
			},
			[]string{"size_class"},
		),
		openContainers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "open_containers",
				Help: "Number of currently mounted containers",
			},
		),
		goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "goroutines_total",
				Help: "Number of goroutines",
			},
		),
		memoryAllocBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_alloc_bytes",
				Help: "Number of bytes allocated and not yet freed",
			},
		),
		memorySysBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_sys_bytes",
				Help: "Total bytes of memory obtained from OS",
			},
		),
		hardwareAccelerationEnabled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hardware_acceleration_enabled",
				Help: "Hardware acceleration status (1=enabled, 0=disabled)",
			},
			[]string{"type"},
		),
	}
}

// SetHardwareAccelerationStatus sets the hardware acceleration status metric.
func (m *Metrics) SetHardwareAccelerationStatus(accelType string, enabled bool) {
	val := 0.0
	if enabled {
		val = 1.0
	}
	m.hardwareAccelerationEnabled.WithLabelValues(accelType).Set(val)
}

// GetHardwareAccelerationEnabledMetric returns the hardware acceleration enabled metric (for testing).
func (m *Metrics) GetHardwareAccelerationEnabledMetric() *prometheus.GaugeVec {
	return m.hardwareAccelerationEnabled
}

// RecordChunkProcessed records the outcome of running one chunk through the
// pipeline's same-bytes/dedup classification.
func (m *Metrics) RecordChunkProcessed(result string, plaintextBytes int64) {
	m.chunksProcessedTotal.WithLabelValues(result).Inc()
	m.chunkBytesTotal.WithLabelValues(result).Add(float64(plaintextBytes))
}

// RecordChunkStage records one pipeline stage's duration for a chunk.
func (m *Metrics) RecordChunkStage(stage string, duration time.Duration) {
	m.chunkProcessingDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordDedupLookup records a dedup backend lookup outcome.
func (m *Metrics) RecordDedupLookup(ctx context.Context, backend string, hit bool, duration time.Duration) {
	result := "miss"
	if hit {
		result = "hit"
	}
	labels := prometheus.Labels{"backend": backend, "result": result}
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.dedupLookupsTotal.With(labels).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.dedupLookupsTotal.With(labels).Inc()
		}
	} else {
		m.dedupLookupsTotal.With(labels).Inc()
	}
	m.dedupLookupDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordDuplicateChainHops records how many duplicate_of pointers a chunk
// read had to follow before reaching a stored (non-duplicate) chunk.
func (m *Metrics) RecordDuplicateChainHops(hops int) {
	m.duplicateChainHops.WithLabelValues().Observe(float64(hops))
}

// RecordCryptoOperation records a per-chunk AEAD seal/open.
func (m *Metrics) RecordCryptoOperation(ctx context.Context, operation string, duration time.Duration, bytes int64) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.cryptoOperationsTotal.WithLabelValues(operation).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.cryptoOperationsTotal.WithLabelValues(operation).Inc()
		}
		if observer, ok := m.cryptoDuration.WithLabelValues(operation).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.cryptoDuration.WithLabelValues(operation).Observe(duration.Seconds())
		}
	} else {
		m.cryptoOperationsTotal.WithLabelValues(operation).Inc()
		m.cryptoDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}
	m.cryptoBytes.WithLabelValues(operation).Add(float64(bytes))
}

// RecordCryptoError records a per-chunk AEAD operation error.
func (m *Metrics) RecordCryptoError(ctx context.Context, operation, errorType string) {
	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.cryptoErrors.WithLabelValues(operation, errorType).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.cryptoErrors.WithLabelValues(operation, errorType).Inc()
		}
	} else {
		m.cryptoErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// sanitizeSegmentLabel reduces a high-cardinality sealed-segment S3 key to a
// stable label, the same way a reverse proxy collapses "/bucket/key" paths.
// Examples:
// "evidence.z01" => "evidence.z01"
// "case-17/evidence.z01" => "case-17/*"
func sanitizeSegmentLabel(key string) string {
	if key == "" || key == "/" {
		return "/"
	}
	if i := strings.IndexByte(key, '?'); i >= 0 {
		key = key[:i]
	}
	segs := strings.Split(strings.TrimPrefix(key, "/"), "/")
	if len(segs) <= 1 {
		return segs[0]
	}
	return segs[0] + "/*"
}

// RecordSegmentArchive records a sealed-segment archival backend operation
// (e.g. S3 PutObject of a closed segment file).
func (m *Metrics) RecordSegmentArchive(ctx context.Context, operation, bucket string, duration time.Duration) {
	bucketLabel := bucket
	if !m.config.EnableSegmentLabel {
		bucketLabel = "*"
	}

	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.segmentArchiveTotal.WithLabelValues(operation, bucketLabel).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.segmentArchiveTotal.WithLabelValues(operation, bucketLabel).Inc()
		}
		if observer, ok := m.segmentArchiveDuration.WithLabelValues(operation, bucketLabel).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.segmentArchiveDuration.WithLabelValues(operation, bucketLabel).Observe(duration.Seconds())
		}
	} else {
		m.segmentArchiveTotal.WithLabelValues(operation, bucketLabel).Inc()
		m.segmentArchiveDuration.WithLabelValues(operation, bucketLabel).Observe(duration.Seconds())
	}
}

// RecordSegmentArchiveError records a sealed-segment archival backend error.
func (m *Metrics) RecordSegmentArchiveError(ctx context.Context, operation, bucket, errorType string) {
	bucketLabel := bucket
	if !m.config.EnableSegmentLabel {
		bucketLabel = "*"
	}

	if exemplar := getExemplar(ctx); exemplar != nil {
		if adder, ok := m.segmentArchiveErrors.WithLabelValues(operation, bucketLabel, errorType).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.segmentArchiveErrors.WithLabelValues(operation, bucketLabel, errorType).Inc()
		}
	} else {
		m.segmentArchiveErrors.WithLabelValues(operation, bucketLabel, errorType).Inc()
	}
}

// RecordBufferPoolHit records a buffer pool hit.
func (m *Metrics) RecordBufferPoolHit(sizeClass string) {
	m.bufferPoolHits.WithLabelValues(sizeClass).Inc()
}

// RecordBufferPoolMiss records a buffer pool miss.
func (m *Metrics) RecordBufferPoolMiss(sizeClass string) {
	m.bufferPoolMisses.WithLabelValues(sizeClass).Inc()
}

// UpdateSystemMetrics updates system-level metrics (goroutines, memory).
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAllocBytes.Set(float64(memStats.Alloc))
	m.memorySysBytes.Set(float64(memStats.Sys))
}

// IncrementOpenContainers increments the open-containers gauge.
func (m *Metrics) IncrementOpenContainers() {
	m.openContainers.Inc()
}

// DecrementOpenContainers decrements the open-containers gauge.
func (m *Metrics) DecrementOpenContainers() {
	m.openContainers.Dec()
}

// StartSystemMetricsCollector starts a goroutine that periodically updates system metrics.
func (m *Metrics) StartSystemMetricsCollector() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		for range ticker.C {
			m.UpdateSystemMetrics()
		}
	}()
}

// Handler returns the HTTP handler for metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// getExemplar extracts trace ID from context and returns prometheus Labels for exemplar.
func getExemplar(ctx context.Context) prometheus.Labels {
	if ctx == nil {
		return nil
	}
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if spanContext.IsValid() {
		return prometheus.Labels{"trace_id": spanContext.TraceID().String()}
	}
	return nil
}
