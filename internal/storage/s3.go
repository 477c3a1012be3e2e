package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Config holds configuration for the S3-backed store.
type S3Config struct {
	// Bucket is the target bucket name (required).
	Bucket string

	// Region is the AWS region. Empty defers to the SDK's default chain.
	Region string

	// API overrides the S3 client, used by tests. If nil, a client is
	// built from a shared-config session.
	API s3iface.S3API
}

// S3Store writes bronze objects to an S3 bucket.
type S3Store struct {
	bucket string
	s3     s3iface.S3API
}

// NewS3Store creates an S3Store for the configured bucket.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}

	api := cfg.API
	if api == nil {
		awsCfg := aws.Config{}
		if cfg.Region != "" {
			awsCfg.Region = aws.String(cfg.Region)
		}
		sess, err := session.NewSessionWithOptions(session.Options{
			Config:            awsCfg,
			SharedConfigState: session.SharedConfigEnable,
		})
		if err != nil {
			return nil, fmt.Errorf("create aws session: %w", err)
		}
		api = s3.New(sess)
	}

	return &S3Store{bucket: cfg.Bucket, s3: api}, nil
}

// Put uploads body as an application/json object at key.
func (s *S3Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
