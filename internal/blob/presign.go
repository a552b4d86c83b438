package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner issues time-limited upload URLs for direct-to-bucket uploads.
type Presigner interface {
	// PresignPut returns a URL that allows a single PUT of the object.
	PresignPut(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// S3Presigner implements Presigner using SigV4 presigned PUT URLs.
type S3Presigner struct {
	presign *s3.PresignClient
}

// NewS3Presigner creates a presigner backed by the given S3 client.
func NewS3Presigner(client *s3.Client) *S3Presigner {
	return &S3Presigner{presign: s3.NewPresignClient(client)}
}

// PresignPut returns a presigned PUT URL for the object.
func (p *S3Presigner) PresignPut(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign put s3://%s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}
