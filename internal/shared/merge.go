package shared

import "strings"

// Partial updates keep the stored value for every field the caller leaves
// absent or blank. Free-text fields are trimmed before they overwrite.

// MergeString returns the trimmed submitted value, or current when the
// submission is empty or whitespace-only.
func MergeString(submitted, current string) string {
	trimmed := strings.TrimSpace(submitted)
	if trimmed == "" {
		return current
	}
	return trimmed
}

// MergeBool returns the submitted value when present, otherwise current.
func MergeBool(submitted *bool, current bool) bool {
	if submitted == nil {
		return current
	}
	return *submitted
}
