package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixelpanic/pixel-panic-api/utils"
)

// Upload folders
const (
	FolderModelImages = "models"
	FolderOrderPhotos = "orders"
)

// StoredImage is the result of an upload
type StoredImage struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// PresignedUpload lets a client PUT a file straight to storage
type PresignedUpload struct {
	Key         string `json:"key"`
	UploadURL   string `json:"upload_url"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// ImageService validates images and stores them in an ObjectStore
type ImageService struct {
	store ObjectStore
	now   func() time.Time
}

// NewImageService creates an image service backed by store
func NewImageService(store ObjectStore) *ImageService {
	return &ImageService{store: store, now: time.Now}
}

func (s *ImageService) newKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%d_%s%s", strings.Trim(folder, "/"), s.now().Unix(), uuid.NewString()[:8], ext)
}

// UploadImage validates fileHeader and uploads it under folder
func (s *ImageService) UploadImage(ctx context.Context, folder string, fileHeader *multipart.FileHeader) (*StoredImage, error) {
	contentType, err := utils.ValidateImageFile(fileHeader)
	if err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := utils.VerifyImageContent(content, contentType); err != nil {
		return nil, err
	}

	key := s.newKey(folder, fileHeader.Filename)
	if err := s.store.PutObject(ctx, key, contentType, content); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	return &StoredImage{Key: key, URL: s.store.ObjectURL(key)}, nil
}

// CreateUploadURL presigns a direct upload for filename under folder
func (s *ImageService) CreateUploadURL(ctx context.Context, folder, filename string) (*PresignedUpload, error) {
	contentType, err := utils.ImageContentType(filename)
	if err != nil {
		return nil, err
	}

	key := s.newKey(folder, filename)
	uploadURL, err := s.store.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload URL: %w", err)
	}

	return &PresignedUpload{
		Key:         key,
		UploadURL:   uploadURL,
		URL:         s.store.ObjectURL(key),
		ContentType: contentType,
	}, nil
}

// KeyForURL returns the storage key behind url when url points into this
// service's store
func (s *ImageService) KeyForURL(url string) (string, bool) {
	prefix := s.store.ObjectURL("")
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// DeleteImage removes a stored image
func (s *ImageService) DeleteImage(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if err := s.store.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// DiscardReplaced deletes the stored object behind oldURL once a record has
// moved to newURL. URLs hosted elsewhere are left alone.
func (s *ImageService) DiscardReplaced(ctx context.Context, oldURL, newURL string) error {
	if oldURL == newURL {
		return nil
	}
	key, ok := s.KeyForURL(oldURL)
	if !ok {
		return nil
	}
	return s.DeleteImage(ctx, key)
}
