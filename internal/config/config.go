// Package config loads and hot-reloads the engine's tunables: chunk and
// segment sizing, compression and KDF parameters, dedup backend selection,
// and the audit sink. Built on spf13/viper, with fsnotify-driven reload the
// way viper's own WatchConfig wires the two together.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/kenneth/zffcore/internal/zfflog"
)

// EngineConfig bundles the container-format tunables spec.md leaves
// implementation-defined: chunk/segment sizing, the compression-gain
// threshold, and KDF cost parameters for password-based encryption.
type EngineConfig struct {
	ChunkSize             uint32  `mapstructure:"chunk_size"`
	SegmentSize           uint64  `mapstructure:"segment_size"`
	CompressionAlgorithm  string  `mapstructure:"compression_algorithm"`
	CompressionLevel      int     `mapstructure:"compression_level"`
	CompressionThreshold  float64 `mapstructure:"compression_threshold"`
	KDFMemoryKiB          uint32  `mapstructure:"kdf_memory_kib"`
	KDFIterations         uint32  `mapstructure:"kdf_iterations"`
	KDFParallelism        uint8   `mapstructure:"kdf_parallelism"`
	VerifyDedupWithBlake3 bool    `mapstructure:"verify_dedup_with_blake3"`
}

// DedupConfig selects and configures the deduplication backend (§4.E).
type DedupConfig struct {
	Backend       string `mapstructure:"backend"` // "memory", "bbolt", "redis"
	BboltPath     string `mapstructure:"bbolt_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// SinkConfig configures one audit EventWriter destination.
type SinkConfig struct {
	Type          string            `mapstructure:"type"` // "http", "file", "stdout"
	Endpoint      string            `mapstructure:"endpoint"`
	Headers       map[string]string `mapstructure:"headers"`
	FilePath      string            `mapstructure:"file_path"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval time.Duration     `mapstructure:"flush_interval"`
	RetryCount    int               `mapstructure:"retry_count"`
	RetryBackoff  time.Duration     `mapstructure:"retry_backoff"`
}

// AuditConfig configures internal/audit's logger.
type AuditConfig struct {
	Enabled            bool       `mapstructure:"enabled"`
	MaxEvents          int        `mapstructure:"max_events"`
	RedactMetadataKeys []string   `mapstructure:"redact_metadata_keys"`
	Sink               SinkConfig `mapstructure:"sink"`
}

// ArchiveConfig configures the optional S3-compatible sealed-segment
// archival backend (segment.S3Store). Endpoint/AccessKey/SecretKey are only
// needed for non-AWS S3-compatible stores (MinIO, Garage, etc); against
// real AWS, leave them empty and rely on the default credential chain.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Config is the engine's complete configuration tree.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Dedup   DedupConfig   `mapstructure:"dedup"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

// Default returns the engine's built-in defaults, the values a Loader falls
// back to when no config file or override supplies them.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			ChunkSize:            32 * 1024 * 1024,
			SegmentSize:          2 * 1024 * 1024 * 1024,
			CompressionAlgorithm: "zstd",
			CompressionLevel:     3,
			CompressionThreshold: 1.05,
			KDFMemoryKiB:         64 * 1024,
			KDFIterations:        3,
			KDFParallelism:       4,
		},
		Dedup: DedupConfig{
			Backend: "memory",
			RedisDB: 0,
		},
		Audit: AuditConfig{
			Enabled:   true,
			MaxEvents: 10000,
			Sink: SinkConfig{
				Type:          "stdout",
				BatchSize:     100,
				FlushInterval: 5 * time.Second,
			},
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Region:  "us-east-1",
		},
	}
}

// Loader owns a viper instance plus the last successfully decoded Config,
// guarded by a mutex since Watch's fsnotify callback fires on its own
// goroutine.
type Loader struct {
	v  *viper.Viper
	mu sync.RWMutex
	cfg Config

	onChangeMu sync.Mutex
	onChange   []func(Config)
}

func setDefaults(v *viper.Viper, defaults Config) {
	v.SetDefault("engine.chunk_size", defaults.Engine.ChunkSize)
	v.SetDefault("engine.segment_size", defaults.Engine.SegmentSize)
	v.SetDefault("engine.compression_algorithm", defaults.Engine.CompressionAlgorithm)
	v.SetDefault("engine.compression_level", defaults.Engine.CompressionLevel)
	v.SetDefault("engine.compression_threshold", defaults.Engine.CompressionThreshold)
	v.SetDefault("engine.kdf_memory_kib", defaults.Engine.KDFMemoryKiB)
	v.SetDefault("engine.kdf_iterations", defaults.Engine.KDFIterations)
	v.SetDefault("engine.kdf_parallelism", defaults.Engine.KDFParallelism)
	v.SetDefault("engine.verify_dedup_with_blake3", defaults.Engine.VerifyDedupWithBlake3)

	v.SetDefault("dedup.backend", defaults.Dedup.Backend)
	v.SetDefault("dedup.redis_db", defaults.Dedup.RedisDB)

	v.SetDefault("audit.enabled", defaults.Audit.Enabled)
	v.SetDefault("audit.max_events", defaults.Audit.MaxEvents)
	v.SetDefault("audit.sink.type", defaults.Audit.Sink.Type)
	v.SetDefault("audit.sink.batch_size", defaults.Audit.Sink.BatchSize)
	v.SetDefault("audit.sink.flush_interval", defaults.Audit.Sink.FlushInterval)

	v.SetDefault("archive.enabled", defaults.Archive.Enabled)
	v.SetDefault("archive.region", defaults.Archive.Region)
}

// NewLoader reads path (if non-empty) or searches the working directory for
// a "zff" config file (any extension viper supports: yaml, json, toml),
// decodes it over the built-in defaults, and returns a Loader. A missing
// config file is not an error: defaults apply as-is.
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix("ZFF")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("zff")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	l := &Loader{v: v}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) reload() error {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("config: decode: %w", err)
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return nil
}

// Current returns the most recently decoded configuration.
func (l *Loader) Current() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// OnChange registers fn to run, with the newly-decoded Config, every time
// Watch's fsnotify callback successfully reloads the file.
func (l *Loader) OnChange(fn func(Config)) {
	l.onChangeMu.Lock()
	defer l.onChangeMu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts viper's fsnotify-backed file watch. A reload that fails to
// decode is logged and discarded; the Loader keeps serving the last good
// Config rather than falling back to zero values.
func (l *Loader) Watch() {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if err := l.reload(); err != nil {
			zfflog.WithFields(logrus.Fields{"file": e.Name, "error": err}).
				Warn("config: reload failed, keeping previous configuration")
			return
		}
		cfg := l.Current()
		l.onChangeMu.Lock()
		callbacks := append([]func(Config){}, l.onChange...)
		l.onChangeMu.Unlock()
		for _, cb := range callbacks {
			cb(cfg)
		}
	})
	l.v.WatchConfig()
}
