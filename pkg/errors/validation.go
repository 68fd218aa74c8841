package errors

import (
	"strings"
	"unicode"
)

// ValidatePackID validates a pack identifier from a catalog or a command
// request. Pack ids are free-form wiki identifiers, so the rules are
// conservative rather than format-specific:
//   - No empty ids
//   - No control characters
//   - Maximum length of 256 characters
func ValidatePackID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "pack id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "pack id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "pack id contains control characters")
		}
	}

	return nil
}

// ValidatePageName validates a wiki page name. Page names follow the same
// conservative rules as pack ids, and additionally reject path separators
// so a page name can never escape its title prefix.
func ValidatePageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "page name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "page name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "page name contains control characters")
		}
	}

	if strings.Contains(name, "/") {
		return New(ErrCodeInvalidInput, "page name cannot contain path separators")
	}

	return nil
}

// ValidatePrefix validates a title prefix for a pack. The empty prefix is
// valid (pages keep their bare names); a non-empty prefix must not contain
// control characters or a trailing separator, since default titles are
// built as "prefix/name".
func ValidatePrefix(prefix string) error {
	if len(prefix) > 256 {
		return New(ErrCodeInvalidInput, "prefix too long (max 256 characters)")
	}

	for _, r := range prefix {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "prefix contains control characters")
		}
	}

	if strings.HasSuffix(prefix, "/") {
		return New(ErrCodeInvalidInput, "prefix cannot end with a separator")
	}

	return nil
}

// ValidateTitle validates a user-supplied page title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return New(ErrCodeInvalidInput, "title cannot be empty")
	}

	if len(title) > 512 {
		return New(ErrCodeInvalidInput, "title too long (max 512 characters)")
	}

	for _, r := range title {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "title contains control characters")
		}
	}

	return nil
}
