package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kenneth/zffcore/internal/config"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeSeal represents a segment/chunk being written and sealed
	// (compressed, optionally AEAD-encrypted) during acquisition.
	EventTypeSeal EventType = "seal"
	// EventTypeMount represents an object header/footer being mounted and,
	// if encrypted, its AEAD being derived during a read.
	EventTypeMount EventType = "mount"
	// EventTypeVerify represents a hash or signature verification
	// (xxh3 fingerprint, BLAKE3 dedup verifier, Ed25519 hash-value signature).
	EventTypeVerify EventType = "verify"
	// EventTypeAccess represents a general read operation against a
	// mounted container.
	EventTypeAccess EventType = "access"
)

// AuditEvent represents a single audit log event.
type AuditEvent struct {
	Timestamp     time.Time              `json:"timestamp"`
	EventType     EventType              `json:"event_type"`
	Operation     string                 `json:"operation"`
	SegmentNumber uint64                 `json:"segment_number,omitempty"`
	ObjectNumber  uint64                 `json:"object_number,omitempty"`
	ClientIP      string                 `json:"client_ip,omitempty"`
	UserAgent     string                 `json:"user_agent,omitempty"`
	RequestID     string                 `json:"request_id,omitempty"`
	Algorithm     string                 `json:"algorithm,omitempty"`
	KeyVersion    int                    `json:"key_version,omitempty"`
	Success       bool                   `json:"success"`
	Error         string                 `json:"error,omitempty"`
	Duration      time.Duration          `json:"duration_ms"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// Logger is the interface for audit logging.
type Logger interface {
	// Log logs an audit event.
	Log(event *AuditEvent) error

	// LogSeal logs a segment/chunk seal operation.
	LogSeal(segmentNumber uint64, algorithm string, keyVersion int, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogMount logs an object mount (header/footer decode, AEAD derivation).
	LogMount(objectNumber uint64, algorithm string, keyVersion int, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogVerify logs a hash or signature verification.
	LogVerify(objectNumber uint64, success bool, err error)

	// LogAccess logs a general read operation.
	LogAccess(eventType string, objectNumber uint64, clientIP, userAgent, requestID string, success bool, err error, duration time.Duration)

	// GetEvents returns all audit events (for testing/querying).
	GetEvents() []*AuditEvent

	// Close closes the logger and its underlying writer.
	Close() error
}

// auditLogger implements the Logger interface.
type auditLogger struct {
	mu         sync.Mutex
	events     []*AuditEvent
	maxEvents  int
	writer     EventWriter
	redactKeys []string
}

// EventWriter is an interface for writing audit events.
type EventWriter interface {
	WriteEvent(event *AuditEvent) error
}

// NewLogger creates a new audit logger.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return NewLoggerWithRedaction(maxEvents, writer, nil)
}

// NewLoggerWithRedaction creates a new audit logger with redaction keys.
func NewLoggerWithRedaction(maxEvents int, writer EventWriter, redactKeys []string) Logger {
	if writer == nil {
		writer = &defaultWriter{}
	}

	return &auditLogger{
		events:     make([]*AuditEvent, 0, maxEvents),
		maxEvents:  maxEvents,
		writer:     writer,
		redactKeys: redactKeys,
	}
}

// NewLoggerFromConfig creates a new audit logger from configuration.
func NewLoggerFromConfig(cfg config.AuditConfig) (Logger, error) {
	var writer EventWriter

	switch cfg.Sink.Type {
	case "http":
		writer = NewHTTPSink(cfg.Sink.Endpoint, cfg.Sink.Headers)
	case "file":
		writer = NewFileSink(cfg.Sink.FilePath)
	case "stdout", "":
		writer = &defaultWriter{}
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Sink.Type)
	}

	if cfg.Sink.BatchSize > 0 || cfg.Sink.FlushInterval > 0 {
		writer = NewBatchSink(writer, cfg.Sink.BatchSize, cfg.Sink.FlushInterval, cfg.Sink.RetryCount, cfg.Sink.RetryBackoff)
	}

	return NewLoggerWithRedaction(cfg.MaxEvents, writer, cfg.RedactMetadataKeys), nil
}

// Log logs an audit event.
func (l *auditLogger) Log(event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		_ = l.writer.WriteEvent(event)
	}

	l.events = append(l.events, event)

	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}

	return nil
}

// Close closes the logger and its underlying writer.
func (l *auditLogger) Close() error {
	if closer, ok := l.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// redactMetadata removes sensitive keys from metadata.
func (l *auditLogger) redactMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(l.redactKeys) == 0 || len(metadata) == 0 {
		return metadata
	}

	needsRedaction := false
	for _, k := range l.redactKeys {
		if _, ok := metadata[k]; ok {
			needsRedaction = true
			break
		}
	}

	if !needsRedaction {
		return metadata
	}

	clone := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}

	for _, key := range l.redactKeys {
		if _, ok := clone[key]; ok {
			clone[key] = "[REDACTED]"
		}
	}
	return clone
}

// LogSeal logs a segment/chunk seal operation.
func (l *auditLogger) LogSeal(segmentNumber uint64, algorithm string, keyVersion int, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:     time.Now(),
		EventType:     EventTypeSeal,
		Operation:     "seal",
		SegmentNumber: segmentNumber,
		Algorithm:     algorithm,
		KeyVersion:    keyVersion,
		Success:       success,
		Duration:      duration,
		Metadata:      l.redactMetadata(metadata),
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// LogMount logs an object mount (header/footer decode, AEAD derivation).
func (l *auditLogger) LogMount(objectNumber uint64, algorithm string, keyVersion int, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:    time.Now(),
		EventType:    EventTypeMount,
		Operation:    "mount",
		ObjectNumber: objectNumber,
		Algorithm:    algorithm,
		KeyVersion:   keyVersion,
		Success:      success,
		Duration:     duration,
		Metadata:     l.redactMetadata(metadata),
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// LogVerify logs a hash or signature verification.
func (l *auditLogger) LogVerify(objectNumber uint64, success bool, err error) {
	event := &AuditEvent{
		Timestamp:    time.Now(),
		EventType:    EventTypeVerify,
		Operation:    "verify",
		ObjectNumber: objectNumber,
		Success:      success,
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// LogAccess logs a general read operation.
func (l *auditLogger) LogAccess(eventType string, objectNumber uint64, clientIP, userAgent, requestID string, success bool, err error, duration time.Duration) {
	event := &AuditEvent{
		Timestamp:    time.Now(),
		EventType:    EventType(eventType),
		Operation:    eventType,
		ObjectNumber: objectNumber,
		ClientIP:     clientIP,
		UserAgent:    userAgent,
		RequestID:    requestID,
		Success:      success,
		Duration:     duration,
	}

	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// GetEvents returns all audit events (for testing/querying).
func (l *auditLogger) GetEvents() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*AuditEvent, len(l.events))
	copy(events, l.events)
	return events
}

// defaultWriter is a default implementation that writes to stdout as JSON.
type defaultWriter struct{}

func (w *defaultWriter) WriteEvent(event *AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	fmt.Printf("%s\n", string(data))
	return nil
}
