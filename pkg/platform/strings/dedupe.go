// Package strings holds small helpers for cleaning submitted form values.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops blanks and repeats, keeping the order of
// first appearance. Case is preserved: "Foo" and "foo" are different values.
//
//	DedupeAndTrim([]string{" manage_riders", "view_reports", "manage_riders", ""})
//	// []string{"manage_riders", "view_reports"}
func DedupeAndTrim(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
