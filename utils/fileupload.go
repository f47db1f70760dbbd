package utils

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

// allowedImageTypes maps accepted extensions to their content type
var allowedImageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ImageContentType returns the content type for filename's extension
func ImageContentType(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := allowedImageTypes[ext]
	if !ok {
		return "", &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only PNG, JPEG and WEBP images are allowed",
		}
	}
	return contentType, nil
}

// ValidateImageFile validates the uploaded file format and size and returns its content type
func ValidateImageFile(fileHeader *multipart.FileHeader) (string, error) {
	// Check file size
	if fileHeader.Size > MaxFileSize {
		return "", &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}
	if fileHeader.Size == 0 {
		return "", &FileUploadError{
			Code:    "EMPTY_FILE",
			Message: "File is empty",
		}
	}

	return ImageContentType(fileHeader.Filename)
}

// VerifyImageContent sniffs content and checks it agrees with the declared type
func VerifyImageContent(content []byte, contentType string) error {
	sniffed := http.DetectContentType(content)
	if sniffed != contentType {
		return &FileUploadError{
			Code:    "INVALID_FILE_CONTENT",
			Message: "File content does not match its extension",
		}
	}
	return nil
}
