package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var sizedImagePattern = regexp.MustCompile(`/(120|300|600|1600)\.png$`)

// CoerceData converts form values to the canonical string form the
// inventory API stores: scalars are stringified, lists are joined with
// ", ", and empty values are dropped.
func CoerceData(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := coerceValue(v); ok {
			out[k] = s
		}
	}
	return out
}

func coerceValue(v any) (string, bool) {
	switch value := v.(type) {
	case nil:
		return "", false
	case string:
		return value, value != ""
	case []string:
		if len(value) == 0 {
			return "", false
		}
		return strings.Join(value, ", "), true
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := coerceValue(item); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32), true
	case bool:
		return strconv.FormatBool(value), true
	default:
		return fmt.Sprint(value), true
	}
}

// SplitMulti is the inverse of list coercion: "a, b,,c" → [a b c].
func SplitMulti(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ToMasterURL rewrites a sized rendition URL (…/300.png) to its master
// image (…/master.png). Other URLs are returned unchanged.
func ToMasterURL(u string) string {
	return sizedImagePattern.ReplaceAllString(u, "/master.png")
}

// ToMasterURLs applies ToMasterURL to every non-empty URL.
func ToMasterURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		out = append(out, ToMasterURL(u))
	}
	return out
}
