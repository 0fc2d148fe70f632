// internal/normalize/normalize.go - Helpers for loosely shaped upstream data
package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Counted is any response fragment that may carry a nested total count.
type Counted interface {
	TotalCount() *int
}

// ExtractCount returns the nested count of node, or 0 when the node or its
// count is missing. Negative counts are clamped to 0.
func ExtractCount(node Counted) int {
	if node == nil {
		return 0
	}
	n := node.TotalCount()
	if n == nil || *n < 0 {
		return 0
	}
	return *n
}

// DedupeNonEmpty trims every value and returns the non-empty ones in
// first-seen order without duplicates. The result is never nil.
func DedupeNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		s := strings.TrimSpace(v)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// FirstNonEmpty returns the first trimmed non-empty value, or "".
func FirstNonEmpty(values []string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// Strings dereferences optional strings, mapping nil to "".
func Strings(values []*string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

// maxExactFloat is the largest magnitude at which every integer is exactly
// representable as a float64.
const maxExactFloat = 1 << 53

// NumericID renders a JSON number as an identifier. Integral values lose
// any fraction or exponent ("1001.0" and "1.001e3" become "1001"); anything
// else is returned trimmed but otherwise unchanged.
func NumericID(text string) string {
	text = strings.TrimSpace(text)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return text
	}
	if f == math.Trunc(f) && math.Abs(f) <= maxExactFloat {
		return strconv.FormatInt(int64(f), 10)
	}
	return text
}
