package blob

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds the configuration for the S3 client.
type Config struct {
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Client implements Store using the AWS S3 API.
type S3Client struct {
	client *s3.Client
}

// NewS3Client creates a new S3Client.
func NewS3Client(ctx context.Context, cfg Config) (*S3Client, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Client{client: s3.NewFromConfig(awsCfg, clientOpts...)}, nil
}

// NewS3ClientFromAPI wraps an existing S3 client. Useful for sharing a
// client with the presigner.
func NewS3ClientFromAPI(client *s3.Client) *S3Client {
	return &S3Client{client: client}
}

// Fetch downloads the object at bucket/key to localPath.
func (c *S3Client) Fetch(ctx context.Context, bucket, key, localPath string) error {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &TransferError{Op: "fetch", Bucket: bucket, Key: key, Err: err}
	}
	defer func() { _ = out.Body.Close() }()

	f, err := os.Create(localPath) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return &TransferError{Op: "fetch", Bucket: bucket, Key: key, Err: err}
	}

	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(localPath)
		return &TransferError{Op: "fetch", Bucket: bucket, Key: key, Err: err}
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(localPath)
		return &TransferError{Op: "fetch", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// Put uploads the file at localPath to bucket/key.
func (c *S3Client) Put(ctx context.Context, localPath, bucket, key string) error {
	f, err := os.Open(localPath) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return &TransferError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	defer func() { _ = f.Close() }()

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return &TransferError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

// Location returns the s3:// URL for an object.
func Location(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
