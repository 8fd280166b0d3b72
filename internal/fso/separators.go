package fso

import (
	"path/filepath"
	"strings"
)

// canonicalizeSeparators rewrites every '/' and '\\' in s to the platform's
// path separator, regardless of which one the host OS natively uses.
func canonicalizeSeparators(s string) string {
	if filepath.Separator == '/' {
		return strings.ReplaceAll(s, "\\", "/")
	}
	return strings.ReplaceAll(s, "/", "\\")
}
