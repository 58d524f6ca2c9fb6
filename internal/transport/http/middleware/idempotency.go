package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const IdempotencyHeader = "Idempotency-Key"

// IdempotencyKey returns the trimmed client supplied key, empty when absent.
func IdempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(IdempotencyHeader))
}

// RequestHash fingerprints a request body so a reused key with a different payload is detected.
func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
