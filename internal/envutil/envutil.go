// Package envutil reads and merges KEY=VALUE environment slices without
// touching the process environment.
package envutil

import (
	"strings"
)

// GetEnv gets a value from an env slice.
// Returns the value and true if found, or empty string and false if not.
// When a key appears more than once the last entry wins, as with os.Getenv.
func GetEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):], true
		}
	}
	return "", false
}

// Lookup returns the first non-empty value among keys, checked in order,
// together with the key that supplied it. Surrounding whitespace is trimmed.
func Lookup(env []string, keys ...string) (value, key string, ok bool) {
	for _, k := range keys {
		if v, found := GetEnv(env, k); found {
			if v = strings.TrimSpace(v); v != "" {
				return v, k, true
			}
		}
	}
	return "", "", false
}

// SetEnv sets or replaces an environment variable in an env slice.
// Returns the modified slice. If the key already exists, its value is updated
// in place. Otherwise, the new entry is appended.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// MergeEnv merges additional env vars into base, with additional taking precedence.
// Returns a new slice. Variables in additional override those in base with the same key.
func MergeEnv(base, additional []string) []string {
	overrides := make(map[string]string, len(additional))
	overrideOrder := make([]string, 0, len(additional))
	for _, e := range additional {
		key := keyOf(e)
		if _, exists := overrides[key]; !exists {
			overrideOrder = append(overrideOrder, key)
		}
		overrides[key] = e
	}

	// Copy base, replacing any overridden keys.
	replaced := make(map[string]bool, len(overrides))
	result := make([]string, 0, len(base)+len(additional))
	for _, e := range base {
		key := keyOf(e)
		if override, ok := overrides[key]; ok {
			if !replaced[key] {
				result = append(result, override)
				replaced[key] = true
			}
			continue
		}
		result = append(result, e)
	}

	// Append any additional vars that weren't in base, preserving order.
	for _, key := range overrideOrder {
		if !replaced[key] {
			result = append(result, overrides[key])
		}
	}
	return result
}

func keyOf(e string) string {
	if idx := strings.IndexByte(e, '='); idx >= 0 {
		return e[:idx]
	}
	return e
}
