package session

import (
	"sort"
	"strings"
)

// defaultHeaders are sent on every HTTP transport unless the descriptor
// overrides them.
func defaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent": "mcp2skills/1.0",
	}
}

// mergeHeaders applies src entries into dst using case-insensitive key
// matching, so a descriptor's "authorization" replaces a default
// "Authorization" instead of duplicating it. When overwrite is true, src
// wins even if the casing differs.
func mergeHeaders(dst, src map[string]string, overwrite bool) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}

	for _, key := range sortedHeaderKeys(src) {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		if existing, ok := lookupKeyFold(dst, name); ok {
			if !overwrite {
				continue
			}
			delete(dst, existing)
		}
		dst[name] = src[key]
	}
	return dst
}

func sortedHeaderKeys(src map[string]string) []string {
	keys := make([]string, 0, len(src))
	for key := range src {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		li := strings.ToLower(strings.TrimSpace(keys[i]))
		lj := strings.ToLower(strings.TrimSpace(keys[j]))
		if li == lj {
			return keys[i] < keys[j]
		}
		return li < lj
	})
	return keys
}

func lookupKeyFold(headers map[string]string, name string) (string, bool) {
	for key := range headers {
		if strings.EqualFold(strings.TrimSpace(key), strings.TrimSpace(name)) {
			return key, true
		}
	}
	return "", false
}
