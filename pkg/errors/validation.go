package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// documentNameRegex matches names accepted by document stores: slash-separated
// segments of letters, digits, dots, dashes and underscores.
var documentNameRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*(/[A-Za-z0-9_][A-Za-z0-9._-]*)*$`)

// ValidateDocumentName validates a stored document name for safety.
// Names map to file paths and database keys, so they are restricted to
// relative slash-separated segments.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No absolute names or backslashes
//   - Maximum length of 256 characters
func ValidateDocumentName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "document name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidName, "document name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "document name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidName, "document name contains invalid characters: %q", pattern)
		}
	}

	if !documentNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid document name: %q", name)
	}

	return nil
}

// ValidatePath validates a file path given to a CLI or API operation.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// typeIDRegex matches catalog type identifiers such as "MoveTo" or
// "combat.attack_melee".
var typeIDRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.:-]*$`)

// ValidateTypeID validates a catalog type identifier.
func ValidateTypeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidCatalog, "type id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidCatalog, "type id too long (max 128 characters)")
	}
	if !typeIDRegex.MatchString(id) {
		return New(ErrCodeInvalidCatalog, "invalid type id: %q", id)
	}
	return nil
}

// ValidateURL validates a backend URL against the allowed schemes.
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s+"://") {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use one of the schemes: %s", strings.Join(schemes, ", "))
}
