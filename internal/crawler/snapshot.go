package crawler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/auditai/insight-engine/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of *s3.Client used for snapshots and health checks.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Snapshots stores page HTML under prefix/<host>/<timestamp>-<hash>.html.
type S3Snapshots struct {
	client S3API
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Snapshots loads the default AWS credential chain for cfg.S3Region.
func NewS3Snapshots(ctx context.Context, cfg config.SnapshotConfig) (*S3Snapshots, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewS3SnapshotsWithClient(s3.NewFromConfig(awsCfg), cfg), nil
}

// NewS3SnapshotsWithClient wraps an existing client.
func NewS3SnapshotsWithClient(client S3API, cfg config.SnapshotConfig) *S3Snapshots {
	return &S3Snapshots{client: client, bucket: cfg.S3Bucket, prefix: cfg.Prefix, now: time.Now}
}

// Save uploads html and returns its s3:// locator.
func (s *S3Snapshots) Save(ctx context.Context, pageURL string, html []byte) (string, error) {
	key := s.objectKey(pageURL, html)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(html),
		ContentType: aws.String("text/html; charset=utf-8"),
		Metadata:    map[string]string{"source-url": pageURL},
	})
	if err != nil {
		return "", fmt.Errorf("putting snapshot to S3: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// Ping checks that the bucket is reachable with the current credentials.
func (s *S3Snapshots) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func (s *S3Snapshots) objectKey(pageURL string, html []byte) string {
	host := "unknown"
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}
	sum := sha256.Sum256(html)
	prefix := s.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%s%s/%s-%s.html", prefix, host, s.now().UTC().Format("20060102T150405Z"), hex.EncodeToString(sum[:8]))
}
