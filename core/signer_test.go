package core

import (
	"strings"
	"testing"
)

func TestHMACSHA256Scheme_SignAndVerify(t *testing.T) {
	scheme := HMACSHA256Scheme{}
	payload := []byte(`{"eventType":"order.created","data":{}}`)

	signature, err := scheme.Sign(payload, "top-secret")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signature == "" {
		t.Fatal("expected non-empty signature")
	}
	if !scheme.Verify(payload, signature, "top-secret") {
		t.Fatal("expected signature to verify")
	}
}

func TestHMACSHA256Scheme_VerifyRejectsTampering(t *testing.T) {
	scheme := HMACSHA256Scheme{}
	payload := []byte(`{"eventType":"order.created"}`)

	signature, err := scheme.Sign(payload, "top-secret")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if scheme.Verify([]byte(`{"eventType":"order.deleted"}`), signature, "top-secret") {
		t.Fatal("mutated payload must not verify")
	}
	if scheme.Verify(payload, signature, "other-secret") {
		t.Fatal("wrong secret must not verify")
	}
	mutated := "0" + signature[1:]
	if strings.HasPrefix(signature, "0") {
		mutated = "1" + signature[1:]
	}
	if scheme.Verify(payload, mutated, "top-secret") {
		t.Fatal("mutated signature must not verify")
	}
}

func TestSchemeRegistry_UnknownSchemeFailsClosed(t *testing.T) {
	registry := NewSchemeRegistry()

	if _, err := registry.Sign([]byte("payload"), "secret", "md5"); err == nil {
		t.Fatal("expected error signing with unknown scheme")
	}
	if registry.Verify([]byte("payload"), "whatever", "secret", "md5") {
		t.Fatal("unknown scheme must never verify")
	}
}

func TestSchemeRegistry_ResolvesDefaultScheme(t *testing.T) {
	registry := NewSchemeRegistry()
	if _, ok := registry.Resolve(SchemeHMACSHA256); !ok {
		t.Fatalf("expected %s to be registered", SchemeHMACSHA256)
	}
	if _, ok := registry.Resolve(" HMAC-SHA256 "); !ok {
		t.Fatal("expected scheme lookup to normalize case and whitespace")
	}
}

func TestGenerateSecret_Unique(t *testing.T) {
	first, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first == second {
		t.Fatal("expected unique secrets")
	}
	if len(first) < 40 {
		t.Fatalf("secret too short: %d chars", len(first))
	}
}
