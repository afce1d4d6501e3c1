package errors

import (
	"strings"
	"unicode"
)

// ValidateStepKey validates a step key for safety and readability.
// Keys identify steps in suites, reports, and failure messages, so they must
// be printable and free of separators used in transcript filenames.
func ValidateStepKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidStep, "step key cannot be empty")
	}

	if len(key) > 128 {
		return New(ErrCodeInvalidStep, "step key too long (max 128 characters)")
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidStep, "step key contains control characters")
		}
		if unicode.IsSpace(r) {
			return New(ErrCodeInvalidStep, "step key cannot contain whitespace")
		}
	}

	if strings.ContainsAny(key, "/\\") {
		return New(ErrCodeInvalidStep, "step key cannot contain path separators")
	}

	return nil
}

// ValidateBaseURL validates a workflow server base URL.
// It ensures the URL has a safe scheme (http or https) and no trailing slash
// ambiguity is left to callers.
func ValidateBaseURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "base URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "base URL must use http or https scheme")
	}

	return nil
}

// ValidateRoutePattern validates a route pattern before registration.
// Patterns follow chi syntax and must be rooted paths. Placeholder regex
// constraints may not themselves contain braces; write [0-9][0-9] instead
// of [0-9]{2}.
func ValidateRoutePattern(pattern string) error {
	if pattern == "" {
		return New(ErrCodeInvalidInput, "route pattern cannot be empty")
	}

	if !strings.HasPrefix(pattern, "/") {
		return New(ErrCodeInvalidInput, "route pattern must start with /: %q", pattern)
	}

	for _, r := range pattern {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "route pattern contains invalid characters: %q", pattern)
		}
	}

	// Placeholders must be balanced
	depth := 0
	for _, r := range pattern {
		switch r {
		case '{':
			depth++
			if depth > 1 {
				return New(ErrCodeInvalidInput, "route pattern has nested braces: %q", pattern)
			}
		case '}':
			depth--
			if depth < 0 {
				return New(ErrCodeInvalidInput, "route pattern has unbalanced braces: %q", pattern)
			}
		}
	}
	if depth != 0 {
		return New(ErrCodeInvalidInput, "route pattern has unbalanced braces: %q", pattern)
	}

	return nil
}
