package segment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kenneth/zffcore/internal/metrics"
)

// S3StoreConfig configures S3Store. Endpoint/AccessKey/SecretKey only need
// to be set against an S3-compatible store that isn't AWS itself (MinIO,
// Garage, Ceph RGW); leave them empty to use AWS's default credential
// chain and endpoint resolution.
type S3StoreConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Store archives sealed segment files to an S3-compatible object store
// once a Writer has finished with them, and fetches them back on demand
// for a Reader that only has local cache space for the segments currently
// being read (SPEC_FULL.md §3 sealed-segment archival).
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	metrics *metrics.Metrics
}

// NewS3Store builds an S3Store from cfg. metrics may be nil, in which case
// archive operations aren't recorded.
func NewS3Store(ctx context.Context, cfg S3StoreConfig, m *metrics.Metrics) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("segment: s3store: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("segment: s3store: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client:  s3.NewFromConfig(awsCfg, s3Opts...),
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		metrics: m,
	}, nil
}

func (s *S3Store) key(segmentFileName string) string {
	if s.prefix == "" {
		return segmentFileName
	}
	return filepath.ToSlash(filepath.Join(s.prefix, segmentFileName))
}

func (s *S3Store) record(ctx context.Context, op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	if err != nil {
		s.metrics.RecordSegmentArchiveError(ctx, op, s.bucket, "archive_error")
		return
	}
	s.metrics.RecordSegmentArchive(ctx, op, s.bucket, time.Since(start))
}

// Archive uploads the sealed segment file at localPath under its base name.
// Callers archive a segment only after its main footer has been written and
// the segment will no longer be extended (§4.G).
func (s *S3Store) Archive(ctx context.Context, localPath string) error {
	start := time.Now()
	f, err := os.Open(localPath)
	if err != nil {
		s.record(ctx, "archive", start, err)
		return fmt.Errorf("segment: s3store: open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(filepath.Base(localPath))),
		Body:   f,
	})
	s.record(ctx, "archive", start, err)
	if err != nil {
		return fmt.Errorf("segment: s3store: put %s: %w", localPath, err)
	}
	return nil
}

// Fetch downloads segmentFileName into destDir, returning its local path.
// A Reader calls this when a chunk map or chunk lookup needs a segment that
// isn't present in the local cache directory.
func (s *S3Store) Fetch(ctx context.Context, segmentFileName, destDir string) (string, error) {
	start := time.Now()
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(segmentFileName)),
	})
	if err != nil {
		s.record(ctx, "fetch", start, err)
		return "", fmt.Errorf("segment: s3store: get %s: %w", segmentFileName, err)
	}
	defer result.Body.Close()

	destPath := filepath.Join(destDir, segmentFileName)
	out, err := os.Create(destPath)
	if err != nil {
		s.record(ctx, "fetch", start, err)
		return "", fmt.Errorf("segment: s3store: create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, result.Body); err != nil {
		s.record(ctx, "fetch", start, err)
		return "", fmt.Errorf("segment: s3store: write %s: %w", destPath, err)
	}
	s.record(ctx, "fetch", start, nil)
	return destPath, nil
}

// Delete removes segmentFileName from the archive, used when a container is
// deleted outright or a segment is re-sealed after an Extend.
func (s *S3Store) Delete(ctx context.Context, segmentFileName string) error {
	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(segmentFileName)),
	})
	s.record(ctx, "delete", start, err)
	if err != nil {
		return fmt.Errorf("segment: s3store: delete %s: %w", segmentFileName, err)
	}
	return nil
}

// List returns the segment file names currently archived under the
// configured prefix, used to reconcile local state after a crash.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	var names []string
	var token *string
	for {
		result, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("segment: s3store: list: %w", err)
		}
		for _, obj := range result.Contents {
			names = append(names, filepath.Base(aws.ToString(obj.Key)))
		}
		if !aws.ToBool(result.IsTruncated) {
			break
		}
		token = result.NextContinuationToken
	}
	return names, nil
}
