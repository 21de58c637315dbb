package main

import (
	"context"
	"fmt"
	"io"

	"github.com/kenneth/zffcore/internal/chunking"
	"github.com/kenneth/zffcore/internal/config"
	"github.com/kenneth/zffcore/internal/dedup"
)

// openDedup constructs the configured dedup backend. The returned Closer
// must be closed once acquisition finishes; callers that disable dedup
// (backend "none") get a nil chunking.Dedup and a no-op Closer.
func openDedup(cfg config.DedupConfig) (chunking.Dedup, io.Closer, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, io.NopCloser(nil), nil
	case "memory":
		b := dedup.NewMemoryBackend()
		return b, b, nil
	case "bbolt":
		b, err := dedup.OpenBboltBackend(cfg.BboltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bbolt dedup backend: %w", err)
		}
		return b, b, nil
	case "redis":
		client := dedup.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		b := dedup.OpenRedisBackend(context.Background(), client)
		return b, b, nil
	default:
		return nil, nil, fmt.Errorf("unknown dedup backend %q", cfg.Backend)
	}
}
