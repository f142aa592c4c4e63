package errors

import (
	"math"
	"strings"
	"unicode"
)

// MaxItemCount bounds the number of strip items accepted from untrusted
// input (HTTP requests, config files). The layout itself has no such limit.
const MaxItemCount = 100_000

// ValidateItemCount validates an item count received from a caller.
func ValidateItemCount(n int) error {
	if n < 0 {
		return New(ErrCodeInvalidInput, "item count must be non-negative, got %d", n)
	}
	if n > MaxItemCount {
		return New(ErrCodeInvalidInput, "item count too large (max %d), got %d", MaxItemCount, n)
	}
	return nil
}

// ValidateViewport validates viewport dimensions.
//
// Zero is accepted for either dimension: hosts commonly lay out once before
// their bounds are known. Negative and non-finite values are rejected.
func ValidateViewport(width, height float64) error {
	if !isFinite(width) || width < 0 {
		return New(ErrCodeInvalidViewport, "viewport width must be a finite non-negative number, got %v", width)
	}
	if !isFinite(height) || height < 0 {
		return New(ErrCodeInvalidViewport, "viewport height must be a finite non-negative number, got %v", height)
	}
	return nil
}

// ValidateRatio validates an explicit width/height aspect ratio.
// Unknown ratios are represented by their absence, never by a sentinel value.
func ValidateRatio(r float64) error {
	if !isFinite(r) || r <= 0 {
		return New(ErrCodeInvalidInput, "aspect ratio must be a finite positive number, got %v", r)
	}
	return nil
}

// ValidateExpandedWidth validates a previously resolved expanded width
// handed back by a caller. It must be finite and lie in [min, max].
func ValidateExpandedWidth(w, min, max float64) error {
	if !isFinite(w) || w < min || w > max {
		return New(ErrCodeInvalidInput, "expanded width must be within [%v, %v], got %v", min, max, w)
	}
	return nil
}

// ValidatePath validates a file path within a served directory for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateSessionID validates a session identifier taken from a URL.
// Session IDs are UUID strings; anything else is rejected before it reaches
// a storage backend.
func ValidateSessionID(id string) error {
	if len(id) != 36 {
		return New(ErrCodeInvalidInput, "malformed session id")
	}
	for i, r := range id {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return New(ErrCodeInvalidInput, "malformed session id")
			}
		default:
			if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
				return New(ErrCodeInvalidInput, "malformed session id")
			}
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
