package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// MaxUploadBytes caps uploaded document size at 15 MB.
const MaxUploadBytes = 15 << 20

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"text/plain":      true,
}

// ValidateMimeType checks the uploaded document type against the whitelist.
func ValidateMimeType(mimeType string) error {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if !allowedMimeTypes[mt] {
		return fmt.Errorf("unsupported document type: %s (allowed: pdf, png, jpeg, webp, plain text)", mimeType)
	}
	return nil
}

// ValidateUploadSize rejects empty or oversized uploads.
func ValidateUploadSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("uploaded document is empty")
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("uploaded document exceeds %d MB limit", MaxUploadBytes>>20)
	}
	return nil
}

// ValidateUserID validates user ID format
func ValidateUserID(user string) error {
	if user == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, user)
	if !matched {
		return fmt.Errorf("invalid user ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateAnalysisID validates analysis ID format (UUID)
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}

	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, id)
	if !matched {
		return fmt.Errorf("invalid analysis ID format")
	}

	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage validates pagination page number
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// ValidateQuestion bounds chat questions to a sane length.
func ValidateQuestion(q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if len(q) > 4000 {
		return fmt.Errorf("question exceeds 4000 character limit")
	}
	return nil
}
