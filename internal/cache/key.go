package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives the content-addressed slot for one unit. It combines the
// raw file bytes, the fully-resolved effective settings for the path,
// and the executable-permission bit, so two files under different
// per-path configuration never share a slot even with identical bytes.
// Invalidation is purely structural: a key changes or it doesn't.
func Key(content []byte, settingsFingerprint string, executable bool) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(settingsFingerprint))
	if executable {
		h.Write([]byte{0, 1})
	} else {
		h.Write([]byte{0, 0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GroupID names the shard for an analysis-unit grouping, usually the
// unit's directory relative to the project root.
func GroupID(group string) string {
	h := sha256.Sum256([]byte(group))
	return hex.EncodeToString(h[:])[:16]
}
