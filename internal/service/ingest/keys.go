package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const fallbackKeyPrefix = "auto:"

// NormalizeTitle trims, collapses whitespace runs to one space and lower-cases.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// FallbackKey derives the unique key for a record that has none. It depends
// only on the normalized title, so it is identical across processes,
// restarts and releases.
func FallbackKey(title string) string {
	sum := sha256.Sum256([]byte(NormalizeTitle(title)))
	return fallbackKeyPrefix + hex.EncodeToString(sum[:])
}

// EffectiveKey is the caller's key when given, the fallback key otherwise.
func EffectiveKey(uniqueKey, title string) string {
	if k := strings.TrimSpace(uniqueKey); k != "" {
		return k
	}
	return FallbackKey(title)
}
