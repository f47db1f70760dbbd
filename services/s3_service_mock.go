package services

import (
	"context"
	"fmt"
	"sync"
)

// MockS3Service is an in-memory ObjectStore for tests and local development
type MockS3Service struct {
	objects map[string]mockObject
	mu      sync.RWMutex
}

type mockObject struct {
	contentType string
	content     []byte
}

// NewMockS3Service creates an empty mock store
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		objects: make(map[string]mockObject),
	}
}

// PutObject stores content in memory
func (m *MockS3Service) PutObject(_ context.Context, key, contentType string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = mockObject{contentType: contentType, content: content}
	return nil
}

// ObjectURL returns a fake bucket URL
func (m *MockS3Service) ObjectURL(key string) string {
	return fmt.Sprintf("https://test-bucket.s3.ap-south-1.amazonaws.com/%s", key)
}

// PresignPut returns a fake signed upload URL
func (m *MockS3Service) PresignPut(_ context.Context, key, contentType string) (string, error) {
	return fmt.Sprintf("%s?mock=true&content-type=%s", m.ObjectURL(key), contentType), nil
}

// DeleteObject removes key
func (m *MockS3Service) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// FileExists checks if a file exists in mock storage
func (m *MockS3Service) FileExists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[key]
	return exists
}

// ContentType returns the stored content type of key
func (m *MockS3Service) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}

// Keys returns every stored key
func (m *MockS3Service) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
