package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
)

type B2Storage struct {
	client     *b2.Client
	bucketName string
	bucket     *b2.Bucket
}

func NewB2Storage(ctx context.Context, keyID, applicationKey, bucketName string) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, keyID, applicationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create B2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	return &B2Storage{
		client:     client,
		bucketName: bucketName,
		bucket:     bucket,
	}, nil
}

// Put streams r into objectName and returns the SHA1 of what was written.
func (s *B2Storage) Put(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	writer := s.bucket.Object(objectName).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))

	hasher := sha1.New()
	if _, err := io.Copy(io.MultiWriter(writer, hasher), r); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to upload %s to B2: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close B2 writer: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *B2Storage) Delete(ctx context.Context, objectName string) error {
	if err := s.bucket.Object(objectName).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s from B2: %w", objectName, err)
	}
	return nil
}
