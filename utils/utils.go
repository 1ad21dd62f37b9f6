// Package utils provides utility functions for the application.
package utils

import (
	"context"
	"strings"
)

func ToPtr[T any](v T) *T {
	return &v
}

// StringFromContext returns the string stored under key, or "" when absent
func StringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// FirstNonEmpty returns the first value that is not blank after trimming
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
