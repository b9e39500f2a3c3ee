package errors

import (
	"strings"
	"unicode"
)

// maxQueryLength bounds sector and node queries.
const maxQueryLength = 256

// ValidateQuery validates a taxonomy query (code, uid, alias or name).
//
// The validation rules are intentionally conservative:
//   - No empty or whitespace-only queries
//   - No control characters
//   - Maximum length of 256 characters
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return New(ErrCodeInvalidInput, "query cannot be empty")
	}

	if len(query) > maxQueryLength {
		return New(ErrCodeInvalidInput, "query too long (max %d characters)", maxQueryLength)
	}

	for _, r := range query {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "query contains invalid control characters")
		}
	}

	return nil
}

// ValidateRuleName validates the syntax of a fix rule name.
// Whether the rule exists is decided by the fix registry.
func ValidateRuleName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "rule name cannot be empty")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != '_' {
			return New(ErrCodeUnknownRule, "invalid rule name %q", name)
		}
	}
	return nil
}
