package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMimeType(t *testing.T) {
	for _, mt := range []string{
		"application/pdf",
		"image/png",
		"image/jpeg",
		"image/webp",
		"text/plain",
		"text/plain; charset=utf-8",
		"APPLICATION/PDF",
	} {
		assert.NoError(t, ValidateMimeType(mt), mt)
	}

	for _, mt := range []string{
		"application/zip",
		"image/gif",
		"text/html",
		"",
	} {
		assert.Error(t, ValidateMimeType(mt), mt)
	}
}

func TestValidateUploadSize(t *testing.T) {
	assert.Error(t, ValidateUploadSize(0))
	assert.Error(t, ValidateUploadSize(-1))
	assert.NoError(t, ValidateUploadSize(1))
	assert.NoError(t, ValidateUploadSize(MaxUploadBytes))
	assert.Error(t, ValidateUploadSize(MaxUploadBytes+1))
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("user_123"))
	assert.NoError(t, ValidateUserID("a-b-c"))
	assert.Error(t, ValidateUserID(""))
	assert.Error(t, ValidateUserID("has space"))
	assert.Error(t, ValidateUserID(strings.Repeat("x", 65)))
}

func TestValidateAnalysisID(t *testing.T) {
	assert.NoError(t, ValidateAnalysisID("123e4567-e89b-42d3-a456-426614174000"))
	assert.Error(t, ValidateAnalysisID(""))
	assert.Error(t, ValidateAnalysisID("not-a-uuid"))
	assert.Error(t, ValidateAnalysisID("123E4567-E89B-42D3-A456-426614174000"))
}

func TestValidateLimitAndPage(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 20, ValidateLimit(-3))
	assert.Equal(t, 50, ValidateLimit(50))
	assert.Equal(t, 100, ValidateLimit(5000))

	assert.Equal(t, 1, ValidatePage(0))
	assert.Equal(t, 1, ValidatePage(-1))
	assert.Equal(t, 7, ValidatePage(7))
}

func TestValidateQuestion(t *testing.T) {
	assert.NoError(t, ValidateQuestion("why did my score drop?"))
	assert.Error(t, ValidateQuestion(""))
	assert.Error(t, ValidateQuestion("   "))
	assert.Error(t, ValidateQuestion(strings.Repeat("q", 4001)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "clean", SanitizeString("clean"))
	assert.Equal(t, "ab", SanitizeString("a\x00b"))
	assert.Equal(t, "a b", SanitizeString("  a b  "))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 1)

	assert.True(t, rl.Allow("u1:1.2.3.4"))
	assert.True(t, rl.Allow("u1:1.2.3.4"))
	assert.False(t, rl.Allow("u1:1.2.3.4"), "bucket exhausted")

	// Separate keys get their own buckets.
	assert.True(t, rl.Allow("u2:1.2.3.4"))
}
