package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ELEVATE-Project/project-service-sub000/models"
	"github.com/ELEVATE-Project/project-service-sub000/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStorage is the blob store evidences are written to.
type ObjectStorage interface {
	Put(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// EvidenceService uploads category evidence files and returns the records stored on the category.
type EvidenceService struct {
	storage ObjectStorage
	maxSize int64
	logger  *zap.Logger
}

func NewEvidenceService(storage ObjectStorage, maxSize int64, logger *zap.Logger) *EvidenceService {
	return &EvidenceService{storage: storage, maxSize: maxSize, logger: logger}
}

// Upload stores files under the category's folder. If any upload fails the ones already
// written are removed and nothing is returned.
func (s *EvidenceService) Upload(ctx context.Context, tenantID, externalID string, files []*multipart.FileHeader) ([]models.Evidence, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.storage == nil {
		return nil, NewValidationError("evidence storage is not configured")
	}

	for _, header := range files {
		if err := utils.ValidateEvidenceFile(header, s.maxSize); err != nil {
			return nil, NewValidationError("%v", err)
		}
	}

	evidences := make([]models.Evidence, 0, len(files))
	for i, header := range files {
		objectName := fmt.Sprintf("categories/%s/%s/%s-%s", tenantID, externalID, uuid.NewString(), header.Filename)
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
		}

		if err := s.put(ctx, header, objectName, contentType); err != nil {
			s.Discard(ctx, evidences)
			return nil, newInternalError("failed to upload evidence", err)
		}

		evidences = append(evidences, models.Evidence{
			Title:    strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename)),
			Filepath: objectName,
			Type:     evidenceType(header.Filename, contentType),
			Sequence: i + 1,
		})
	}
	return evidences, nil
}

// Discard removes uploaded evidences, typically after the owning mutation failed.
func (s *EvidenceService) Discard(ctx context.Context, evidences []models.Evidence) {
	for _, e := range evidences {
		if err := s.storage.Delete(ctx, e.Filepath); err != nil {
			s.logger.Warn("Failed to discard evidence", zap.String("filepath", e.Filepath), zap.Error(err))
		}
	}
}

func (s *EvidenceService) put(ctx context.Context, header *multipart.FileHeader, objectName, contentType string) error {
	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", header.Filename, err)
	}
	defer file.Close()

	_, err = s.storage.Put(ctx, objectName, contentType, file)
	return err
}

func evidenceType(filename, contentType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext != "" {
		return ext
	}
	if contentType != "" {
		return contentType
	}
	return "file"
}

// MemoryStorage keeps objects in process, for development and tests.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (m *MemoryStorage) Put(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = data
	return "", nil
}

func (m *MemoryStorage) Delete(_ context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
	return nil
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
