package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage stores objects through any S3-compatible endpoint, including the
// S3 gateway Supabase exposes at <project>/storage/v1/s3.
type S3Storage struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; custom endpoint enables path-style addressing
	AccessKeyID     string // optional; falls back to the default credential chain
	SecretAccessKey string
	// PublicBase prefixes "<bucket>/<path>" to build public URLs.
	PublicBase string
}

func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StorageFromClient(client, cfg.Bucket, cfg.PublicBase), nil
}

func NewS3StorageFromClient(client *s3.Client, bucket, publicBase string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket, publicBase: publicBase}
}

func (s *S3Storage) Bucket() string {
	return s.bucket
}

func (s *S3Storage) Upload(ctx context.Context, path string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(path),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
		IfNoneMatch:  aws.String("*"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", path, err)
	}
	return nil
}

func (s *S3Storage) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", path, err)
	}
	return nil
}

func (s *S3Storage) PublicURL(path string) string {
	return publicURL(s.publicBase, s.bucket, path)
}
