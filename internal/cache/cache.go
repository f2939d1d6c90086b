package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ResponseCache is an ephemeral store for recent AI responses. It is injected
// into callers rather than accessed as an ambient singleton so tests can
// substitute a deterministic fake.
type ResponseCache interface {
	Get(key string) (string, bool)
	Put(key, value string)
	Clear()
}

// Key builds a deterministic cache key from prompt and context parts.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(h[:])
}
