// Package dataset reads the static reference tables from local disk or S3 and
// builds immutable reference snapshots from them.
package dataset

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
)

// ErrLocalOnly is returned for table formats that need a file on disk.
var ErrLocalOnly = errors.New("table format requires a local data source")

// Source opens named reference files.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	String() string
}

// LocalSource reads files under a directory.
type LocalSource struct {
	Dir string
}

// NewLocalSource creates a new LocalSource.
func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{Dir: dir}
}

// Path resolves name inside the source directory.
func (l *LocalSource) Path(name string) string {
	return filepath.Join(l.Dir, filepath.FromSlash(name))
}

func (l *LocalSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(l.Path(name))
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", name)
	}
	return f, nil
}

func (l *LocalSource) String() string { return l.Dir }

// s3API is the subset of the S3 client the source needs.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads objects under a bucket prefix.
type S3Source struct {
	client s3API
	bucket string
	prefix string
}

// S3Config configures an S3Source. Static keys are optional; without them
// the default credential chain is used.
type S3Config struct {
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Source creates an S3Source for an s3://bucket/prefix URL.
func NewS3Source(ctx context.Context, rawURL string, cfg S3Config) (*S3Source, error) {
	bucket, prefix, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: load aws config")
	}

	return &S3Source{client: s3.NewFromConfig(awsCfg), bucket: bucket, prefix: prefix}, nil
}

func (s *S3Source) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: get s3://%s/%s", s.bucket, s.key(name))
	}
	return out.Body, nil
}

func (s *S3Source) String() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

func parseS3URL(raw string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return "", "", eris.Errorf("dataset: not an s3 url: %q", raw)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", eris.Errorf("dataset: missing bucket in %q", raw)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// NewSource picks an S3 or local source from the location string.
func NewSource(ctx context.Context, location string, cfg S3Config) (Source, error) {
	if strings.HasPrefix(location, "s3://") {
		return NewS3Source(ctx, location, cfg)
	}
	if location == "" {
		location = "."
	}
	return NewLocalSource(location), nil
}
