package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeSegmentLabel(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"/", "/"},
		{"evidence.z01", "evidence.z01"},
		{"case-17/evidence.z01", "case-17/*"},
		{"case-17/evidence.z01/extra", "case-17/*"},
		{"case-17?query=param", "case-17"},
		{"", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			result := sanitizeSegmentLabel(tt.key)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRecordSegmentArchive_Cardinality(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordSegmentArchive(context.Background(), "PutObject", "bucket-a", time.Millisecond)
	m.RecordSegmentArchive(context.Background(), "PutObject", "bucket-a", time.Millisecond)
	m.RecordSegmentArchive(context.Background(), "PutObject", "bucket-b", time.Millisecond)

	countA := testutil.ToFloat64(m.segmentArchiveTotal.WithLabelValues("PutObject", "bucket-a"))
	assert.Equal(t, 2.0, countA)

	countB := testutil.ToFloat64(m.segmentArchiveTotal.WithLabelValues("PutObject", "bucket-b"))
	assert.Equal(t, 1.0, countB)
}

func TestRecordSegmentArchive_DisableSegmentLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := Config{EnableSegmentLabel: false}
	m := newMetricsWithRegistry(reg, cfg)

	m.RecordSegmentArchive(context.Background(), "PutObject", "bucket-1", time.Millisecond)
	m.RecordSegmentArchive(context.Background(), "PutObject", "bucket-2", time.Millisecond)

	count := testutil.ToFloat64(m.segmentArchiveTotal.WithLabelValues("PutObject", "*"))
	assert.Equal(t, 2.0, count)
}

func TestRecordSegmentArchiveError_DisableSegmentLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := Config{EnableSegmentLabel: false}
	m := newMetricsWithRegistry(reg, cfg)

	m.RecordSegmentArchiveError(context.Background(), "GetObject", "bucket-1", "NoSuchKey")
	m.RecordSegmentArchiveError(context.Background(), "GetObject", "bucket-2", "NoSuchKey")

	count := testutil.ToFloat64(m.segmentArchiveErrors.WithLabelValues("GetObject", "*", "NoSuchKey"))
	assert.Equal(t, 2.0, count)
}

func TestRecordDedupLookup(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordDedupLookup(context.Background(), "bbolt", true, time.Millisecond)
	m.RecordDedupLookup(context.Background(), "bbolt", false, time.Millisecond)
	m.RecordDedupLookup(context.Background(), "bbolt", true, time.Millisecond)

	hits := testutil.ToFloat64(m.dedupLookupsTotal.WithLabelValues("bbolt", "hit"))
	assert.Equal(t, 2.0, hits)

	misses := testutil.ToFloat64(m.dedupLookupsTotal.WithLabelValues("bbolt", "miss"))
	assert.Equal(t, 1.0, misses)
}
