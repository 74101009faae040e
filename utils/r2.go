// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"raid-dashboard/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Storage puts objects into a Cloudflare R2 bucket through its S3 API.
type R2Storage struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2Storage(ctx context.Context, cfg config.R2Config) (*R2Storage, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	cdnBaseURL := strings.TrimRight(cfg.CDNBaseURL, "/")
	if cdnBaseURL == "" {
		cdnBaseURL = endpoint + "/" + cfg.Bucket
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Storage{client: client, bucket: cfg.Bucket, cdnBaseURL: cdnBaseURL}, nil
}

// Put uploads body under key and returns its public URL.
func (r *R2Storage) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return r.PublicURL(key), nil
}

func (r *R2Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", r.cdnBaseURL, key)
}

// ReadMultipart reads an uploaded form file fully, up to maxBytes.
func ReadMultipart(fileHeader *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if fileHeader.Size > maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxBytes)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(file, maxBytes+1)); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(buf.Len()) > maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxBytes)
	}
	return buf.Bytes(), nil
}
