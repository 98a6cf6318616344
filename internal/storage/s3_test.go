package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

func TestNew(t *testing.T) {
	valid := Config{
		Endpoint:        "localhost:9000",
		Bucket:          "pdf-rag",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "with region", mutate: func(c *Config) { c.Region = "eu-west-1" }},
		{name: "missing endpoint", mutate: func(c *Config) { c.Endpoint = "" }, wantErr: true},
		{name: "missing bucket", mutate: func(c *Config) { c.Bucket = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			client, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && client.Bucket() != cfg.Bucket {
				t.Errorf("Bucket() = %q, want %q", client.Bucket(), cfg.Bucket)
			}
		})
	}
}

func TestObjectName(t *testing.T) {
	if got := ObjectName("abc123"); got != "pdfs/abc123.pdf" {
		t.Errorf("ObjectName() = %q, want %q", got, "pdfs/abc123.pdf")
	}
}

// TestIntegration_PDFOperations tests actual S3 operations against MinIO.
// Skip if MinIO is not running.
func TestIntegration_PDFOperations(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	client, err := New(Config{
		Endpoint:        endpoint,
		Bucket:          "pdf-rag-test",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		UseSSL:          false,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	if err := client.EnsureBucket(ctx); err != nil {
		t.Skipf("MinIO not available, skipping integration test: %v", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		t.Fatalf("second EnsureBucket() error = %v", err)
	}

	docID := models.NewDocumentID()
	content := []byte("%PDF-1.4\nfake body\n%%EOF\n")

	t.Run("PutPDF", func(t *testing.T) {
		if err := client.PutPDF(ctx, docID, content); err != nil {
			t.Fatalf("PutPDF() error = %v", err)
		}
	})

	t.Run("GetPDF", func(t *testing.T) {
		data, err := client.GetPDF(ctx, docID)
		if err != nil {
			t.Fatalf("GetPDF() error = %v", err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("GetPDF() = %q, want %q", data, content)
		}
	})

	t.Run("DeletePDF", func(t *testing.T) {
		if err := client.DeletePDF(ctx, docID); err != nil {
			t.Fatalf("DeletePDF() error = %v", err)
		}
		_, err := client.GetPDF(ctx, docID)
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("GetPDF() after delete error = %v, want ErrNotFound", err)
		}
	})
}
