// ABOUTME: Input validation for values forwarded to the workflow backend
// ABOUTME: Reports missing required fields and rejects identifiers that are unsafe to forward or log

package services

import (
	"fmt"
	"strings"
)

// maxIdentifierLen bounds quest, user and microstep identifiers.
const maxIdentifierLen = 256

// RequiredField pairs a request field name with its submitted value.
type RequiredField struct {
	Name  string
	Value string
}

// MissingFields returns the names of fields whose values are empty or blank, in order.
func MissingFields(fields ...RequiredField) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// ValidateIdentifier rejects identifiers with control characters or excessive length.
// Upstream IDs have no fixed format, so only unsafe values are refused.
func ValidateIdentifier(name, value string) error {
	if len(value) > maxIdentifierLen {
		return fmt.Errorf("%s is too long", name)
	}
	if sanitizeForLog(value) != value {
		return fmt.Errorf("invalid %s format: %s", name, sanitizeForLog(value))
	}
	return nil
}

// sanitizeForLog removes control characters from strings to prevent log injection
// when including user input in error messages
func sanitizeForLog(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1 // Remove control characters
		}
		return r
	}, s)
}
