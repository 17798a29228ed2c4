package history

import (
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// timestampLayout is fixed-width so stored timestamps sort as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// clampLimit applies the default and maximum page sizes.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	t, err := time.Parse(timestampLayout, value)
	if err == nil {
		return t, nil
	}
	if fallback, fallbackErr := time.Parse(time.RFC3339Nano, value); fallbackErr == nil {
		return fallback, nil
	}
	return time.Time{}, fmt.Errorf("parsing timestamp: %w", err)
}

// pruneCutoff returns the oldest timestamp that survives a prune.
func pruneCutoff(now time.Time, olderThan time.Duration) (string, error) {
	if olderThan <= 0 {
		return "", fmt.Errorf("olderThan must be positive")
	}
	return formatTimestamp(now.Add(-olderThan)), nil
}
