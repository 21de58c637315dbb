package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kenneth/zffcore/internal/acquire"
	"github.com/kenneth/zffcore/internal/chunking"
	"github.com/kenneth/zffcore/internal/config"
	"github.com/kenneth/zffcore/internal/metrics"
	"github.com/kenneth/zffcore/internal/object"
	"github.com/kenneth/zffcore/internal/segment"
)

func newCreateCmd() *cobra.Command {
	var (
		caseNumber     string
		evidenceNumber string
		examinerName   string
		notes          string
		description    string
	)

	cmd := &cobra.Command{
		Use:   "create <stem> <source-file>",
		Short: "Acquire a single file into a new physical-object container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stem, source := args[0], args[1]
			dir := "."

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			dedupBackend, closer, err := openDedup(cfg.Dedup)
			if err != nil {
				return err
			}
			defer closer.Close()

			src, err := os.Open(source)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()

			w, err := segment.NewWriter(dir, stem, segment.Policy{
				TargetSegmentSize: cfg.Engine.SegmentSize,
				ChunkmapSize:      1 << 20,
			})
			if err != nil {
				return fmt.Errorf("create segment writer: %w", err)
			}
			if description != "" {
				w.SetDescriptionNotes(description)
			}

			desc := object.NewDescriptionHeader()
			if caseNumber != "" {
				desc.SetCaseNumber(caseNumber)
			}
			if evidenceNumber != "" {
				desc.SetEvidenceNumber(evidenceNumber)
			}
			if examinerName != "" {
				desc.SetExaminerName(examinerName)
			}
			if notes != "" {
				desc.SetNotes(notes)
			}

			compressionAlgo, err := parseCompressionAlgorithm(cfg.Engine.CompressionAlgorithm)
			if err != nil {
				return err
			}

			opts := acquire.Options{
				ChunkSize: cfg.Engine.ChunkSize,
				Compression: chunking.CompressionConfig{
					Algorithm: compressionAlgo,
					Level:     cfg.Engine.CompressionLevel,
					Threshold: cfg.Engine.CompressionThreshold,
				},
				Dedup:            dedupBackend,
				VerifyWithBlake3: cfg.Engine.VerifyDedupWithBlake3,
				HashTypes:        []object.HashType{object.HashTypeBlake3, object.HashTypeSHA256},
				Description:      desc,
			}

			ctx := context.Background()
			nextChunk, err := acquire.AcquirePhysical(ctx, w, 1, 0, src, opts)
			if err != nil {
				_ = w.Close()
				return fmt.Errorf("acquire: %w", err)
			}
			segmentPaths := w.SegmentPaths()
			if err := w.Close(); err != nil {
				return fmt.Errorf("close segment writer: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sealed object 1 (%d chunks) into %s.z00+\n", nextChunk, stem)

			if cfg.Archive.Enabled {
				if err := archiveSegments(ctx, cfg.Archive, segmentPaths); err != nil {
					return fmt.Errorf("archive segments: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archived %d segment(s) to s3://%s/%s\n", len(segmentPaths), cfg.Archive.Bucket, cfg.Archive.Prefix)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&caseNumber, "case-number", "", "case number recorded in the object's description header")
	cmd.Flags().StringVar(&evidenceNumber, "evidence-number", "", "evidence number recorded in the object's description header")
	cmd.Flags().StringVar(&examinerName, "examiner-name", "", "examiner name recorded in the object's description header")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes recorded in the object's description header")
	cmd.Flags().StringVar(&description, "segment-notes", "", "free-text notes recorded in the container's main footer")

	return cmd
}

// archiveSegments uploads every sealed segment file to the configured
// S3-compatible bucket once the writer has closed them for good.
func archiveSegments(ctx context.Context, cfg config.ArchiveConfig, segmentPaths []string) error {
	store, err := segment.NewS3Store(ctx, segment.S3StoreConfig{
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	}, metrics.NewMetrics())
	if err != nil {
		return err
	}
	for _, path := range segmentPaths {
		if err := store.Archive(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func parseCompressionAlgorithm(name string) (chunking.CompressionAlgorithm, error) {
	switch name {
	case "", "none":
		return chunking.CompressionNone, nil
	case "zstd":
		return chunking.CompressionZstd, nil
	case "lz4":
		return chunking.CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression algorithm %q", name)
	}
}
