package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Skryldev/gltf-importer/config"
	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/utils"
)

// S3API is the subset of *s3.Client the source needs. Tests inject a fake.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 reads an asset from an S3 (or S3-compatible) bucket. External URIs
// resolve to keys relative to the root object's key.
type S3 struct {
	client   S3API
	bucket   string
	key      string
	maxBytes int64
}

// NewS3 builds a client from the default AWS credential chain and returns a
// source for the object at key. cfg.Prefix is prepended to key.
func NewS3(ctx context.Context, cfg config.S3Config, key string) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 source: bucket is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 source: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client, cfg.Bucket, path.Join(cfg.Prefix, key))
}

// NewS3WithClient returns a source for bucket/key using client.
func NewS3WithClient(client S3API, bucket, key string) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 source: client must not be nil")
	}
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 source: bucket and key are required")
	}
	return &S3{client: client, bucket: bucket, key: strings.TrimPrefix(key, "/")}, nil
}

// WithLimit rejects objects larger than n bytes. 0 disables the check.
func (s *S3) WithLimit(n int64) *S3 {
	s.maxBytes = n
	return s
}

func (s *S3) FetchRoot(ctx context.Context) ([]byte, error) {
	return s.get(ctx, s.key)
}

func (s *S3) FetchExternal(ctx context.Context, uri string) ([]byte, error) {
	if IsDataURI(uri) {
		data, _, err := DecodeDataURI(uri)
		return data, err
	}
	key, err := objectKey(s.key, uri)
	if err != nil {
		return nil, fmt.Errorf("s3 source: %w", err)
	}
	return s.get(ctx, key)
}

func (s *S3) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.New(apperrors.KindIo, "s3.get", err)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := utils.ReadAll(ctx, out.Body, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

// ParseObjectURL splits "s3://bucket/key" or "gs://bucket/key".
func ParseObjectURL(raw string) (scheme, bucket, key string, err error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", "", "", fmt.Errorf("object url %q has no scheme", raw)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", "", fmt.Errorf("object url %q needs a bucket and a key", raw)
	}
	return strings.ToLower(scheme), bucket, key, nil
}

// objectKey resolves a relative document URI against the root object key.
func objectKey(rootKey, uri string) (string, error) {
	if _, ok := hasScheme(uri); ok {
		return "", fmt.Errorf("%w: absolute uri %q is not supported for object stores", apperrors.ErrInvalidURI, uri)
	}
	rel, err := relativePath(uri)
	if err != nil {
		return "", err
	}
	key := path.Join(path.Dir(rootKey), rel)
	if key == ".." || strings.HasPrefix(key, "../") {
		return "", fmt.Errorf("%w: %q escapes the bucket root", apperrors.ErrInvalidURI, uri)
	}
	return strings.TrimPrefix(key, "/"), nil
}
