package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestRequestHashDeterministic(t *testing.T) {
	hash1 := RequestHash([]byte("payload"))
	hash2 := RequestHash([]byte("payload"))
	hash3 := RequestHash([]byte("other"))

	if hash1 != hash2 {
		t.Fatal("expected deterministic hash")
	}
	if hash1 == hash3 {
		t.Fatal("expected different hash for different payload")
	}
}

func TestIdempotencyKeyTrimsHeader(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/crm/payments/confirm", nil)
	if got := IdempotencyKey(req); got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}
	req.Header.Set(IdempotencyHeader, "  k-1 ")
	if got := IdempotencyKey(req); got != "k-1" {
		t.Fatalf("expected trimmed key, got %q", got)
	}
}
