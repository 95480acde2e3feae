package gcsuploader

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
)

// StorageService provides the storage operations used by the CLI.
type StorageService interface {
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURI(uri string) string
}

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, bucketName, objectName, filePath)
}

func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI)
}

func (s *GCSStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}

// Archiver copies scanned receipt images into a bucket. It holds one shared client.
type Archiver struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewArchiver opens a storage client for bucket.
func NewArchiver(ctx context.Context, bucket string) (*Archiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewArchiver: create storage client: %w", err)
	}
	return &Archiver{client: client, bucket: bucket, now: time.Now}, nil
}

// Archive stores one image and returns its gs:// URI.
func (a *Archiver) Archive(ctx context.Context, batchID, filename, contentType string, data []byte) (string, error) {
	object := ArchiveObjectName(a.now(), batchID, filename)
	if err := UploadBytes(ctx, a.client, a.bucket, object, contentType, data); err != nil {
		return "", fmt.Errorf("Archive: %s: %w", filename, err)
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, object), nil
}

// Close releases the storage client.
func (a *Archiver) Close() error {
	return a.client.Close()
}
