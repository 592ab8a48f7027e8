package application

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", formatFieldName(fieldName)),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "sessionDBPath" -> "session database path")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"sourceName":       "source name",
		"sessionDBPath":    "session database path",
		"detectionLogDir":  "detection log directory",
		"imageLogDir":      "image log directory",
		"outputDir":        "output directory",
		"maxGroupDuration": "maximum group duration",
		"maxImageDuration": "maximum image group duration",
		"splitBuffer":      "split buffer",
		"workers":          "workers",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}
	return fieldName
}

// ValidatePositiveDuration checks that a duration is strictly positive.
func ValidatePositiveDuration(fieldName string, d time.Duration) error {
	if d <= 0 {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s must be positive, got %s", formatFieldName(fieldName), d),
		}
	}
	return nil
}

// ValidateFile checks that path names an existing regular file.
func ValidateFile(fieldName, path string) error {
	if err := ValidateRequired(fieldName, path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Field: fieldName, Message: fmt.Sprintf("cannot access %s: %v", path, err)}
	}
	if info.IsDir() {
		return &ValidationError{Field: fieldName, Message: fmt.Sprintf("%s is a directory", path)}
	}
	return nil
}

// ValidateDir checks that path names an existing directory.
func ValidateDir(fieldName, path string) error {
	if err := ValidateRequired(fieldName, path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Field: fieldName, Message: fmt.Sprintf("cannot access %s: %v", path, err)}
	}
	if !info.IsDir() {
		return &ValidationError{Field: fieldName, Message: fmt.Sprintf("%s is not a directory", path)}
	}
	return nil
}
