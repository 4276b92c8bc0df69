package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ELEVATE-Project/project-service-sub000/models"
)

var externalIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)

// Category validation
func ValidateCategoryName(name string, maxLength int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("category name cannot be empty")
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("category name contains invalid UTF-8 characters")
	}

	if utf8.RuneCountInString(name) > maxLength {
		return fmt.Errorf("category name too long (max %d characters)", maxLength)
	}

	if strings.ContainsRune(name, '\x00') {
		return fmt.Errorf("category name contains invalid character")
	}
	return nil
}

func ValidateExternalID(externalID string) error {
	if externalID == "" {
		return fmt.Errorf("externalId cannot be empty")
	}

	if len(externalID) > 128 {
		return fmt.Errorf("externalId too long (max 128 characters)")
	}

	if !externalIDPattern.MatchString(externalID) {
		return fmt.Errorf("externalId may only contain letters, digits, '.', '_' and '-'")
	}
	return nil
}

func ValidateCategoryStatus(status string) error {
	allowedStatuses := []string{models.CategoryStatusActive, models.CategoryStatusInactive}
	for _, allowed := range allowedStatuses {
		if status == allowed {
			return nil
		}
	}
	return fmt.Errorf("invalid status: %s. Allowed statuses: %s", status, strings.Join(allowedStatuses, ", "))
}

// Evidence file validation
func ValidateFileName(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if len(filename) > 255 {
		return fmt.Errorf("filename too long (max 255 characters)")
	}

	if !utf8.ValidString(filename) {
		return fmt.Errorf("filename contains invalid UTF-8 characters")
	}

	invalidChars := []string{"<", ">", ":", "\"", "|", "?", "*", "\x00", "/", "\\"}
	for _, char := range invalidChars {
		if strings.Contains(filename, char) {
			return fmt.Errorf("filename contains invalid character: %s", char)
		}
	}

	if strings.TrimSuffix(filename, filepath.Ext(filename)) == "" {
		return fmt.Errorf("filename must have a name before the extension")
	}
	return nil
}

func ValidateEvidenceFile(header *multipart.FileHeader, maxSize int64) error {
	if err := ValidateFileName(header.Filename); err != nil {
		return err
	}

	if header.Size > maxSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", header.Size, maxSize)
	}
	return nil
}
