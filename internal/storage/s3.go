package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mfenderov/pdf-rag/pkg/models"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string // "pdf-rag"
	Region          string // optional; used when the bucket is created
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client stores uploaded PDFs in an S3-compatible bucket.
type Client struct {
	minioClient *minio.Client
	bucket      string
	region      string
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
		region:      config.Region,
	}, nil
}

// EnsureBucket creates the bucket on first use. It doubles as the startup
// connectivity check.
func (c *Client) EnsureBucket(ctx context.Context) error {
	err := c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region})
	if err == nil {
		slog.Info("created bucket", "bucket", c.bucket)
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return nil
	}
	return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
}

// ObjectName returns the key a document's PDF is stored under.
func ObjectName(documentID string) string {
	return path.Join("pdfs", documentID+".pdf")
}

// PutPDF writes a document's raw PDF bytes.
func (c *Client) PutPDF(ctx context.Context, documentID string, data []byte) error {
	info, err := c.minioClient.PutObject(ctx, c.bucket, ObjectName(documentID),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  "application/pdf",
			UserMetadata: map[string]string{"document-id": documentID},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to put pdf: %w", err)
	}
	slog.Debug("stored pdf", "document_id", documentID, "key", info.Key, "size", info.Size)
	return nil
}

// GetPDF reads a document's raw PDF bytes.
func (c *Client) GetPDF(ctx context.Context, documentID string) ([]byte, error) {
	object, err := c.minioClient.GetObject(ctx, c.bucket, ObjectName(documentID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get pdf: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: no stored PDF for %s", models.ErrNotFound, documentID)
		}
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	return data, nil
}

// DeletePDF removes a document's raw PDF. Missing objects are not an error.
func (c *Client) DeletePDF(ctx context.Context, documentID string) error {
	err := c.minioClient.RemoveObject(ctx, c.bucket, ObjectName(documentID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete pdf: %w", err)
	}
	return nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
