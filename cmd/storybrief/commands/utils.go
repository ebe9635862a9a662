// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Text truncation, date display and flag validation helpers
package commands

import (
	"fmt"
	"time"
)

// truncate shortens a string to maxLen runes, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatDate renders an optional date, "-" when absent
func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

// wantJSON reports whether output should be JSON for the current --format
func wantJSON() bool {
	return outputFormat == "json"
}
