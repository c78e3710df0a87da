package core

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

const (
	SchemeHMACSHA256 = "hmac-sha256"

	secretByteLength = 32
)

// SignatureScheme is the capability contract for payload authentication.
// Verify never returns an error: an unverifiable signature is simply
// invalid.
type SignatureScheme interface {
	Scheme() string
	Sign(payload []byte, secret string) (string, error)
	Verify(payload []byte, signature string, secret string) bool
}

type HMACSHA256Scheme struct{}

func (HMACSHA256Scheme) Scheme() string { return SchemeHMACSHA256 }

func (HMACSHA256Scheme) Sign(payload []byte, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("core: signing secret is required")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (HMACSHA256Scheme) Verify(payload []byte, signature string, secret string) bool {
	if strings.TrimSpace(secret) == "" {
		return false
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return subtle.ConstantTimeCompare(decoded, mac.Sum(nil)) == 1
}

// SchemeRegistry resolves signature schemes by name. Verification against
// an unregistered scheme fails closed; signing reports an error so a
// misconfigured webhook is caught at create time, not on the wire.
type SchemeRegistry struct {
	mu      sync.RWMutex
	schemes map[string]SignatureScheme
}

func NewSchemeRegistry() *SchemeRegistry {
	registry := &SchemeRegistry{
		schemes: map[string]SignatureScheme{},
	}
	registry.Register(HMACSHA256Scheme{})
	return registry
}

func (r *SchemeRegistry) Register(scheme SignatureScheme) {
	if r == nil || scheme == nil {
		return
	}
	name := strings.TrimSpace(strings.ToLower(scheme.Scheme()))
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schemes == nil {
		r.schemes = map[string]SignatureScheme{}
	}
	r.schemes[name] = scheme
}

func (r *SchemeRegistry) Resolve(name string) (SignatureScheme, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	scheme, ok := r.schemes[strings.TrimSpace(strings.ToLower(name))]
	return scheme, ok
}

func (r *SchemeRegistry) Sign(payload []byte, secret string, schemeName string) (string, error) {
	scheme, ok := r.Resolve(schemeName)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSignatureScheme, schemeName)
	}
	return scheme.Sign(payload, secret)
}

func (r *SchemeRegistry) Verify(payload []byte, signature string, secret string, schemeName string) bool {
	scheme, ok := r.Resolve(schemeName)
	if !ok {
		return false
	}
	return scheme.Verify(payload, signature, secret)
}

// VerifySignature checks a signature against a webhook's stored secret
// and scheme. Unknown webhooks and unknown schemes both report false.
func (s *Service) VerifySignature(ctx context.Context, webhookID string, payload []byte, signature string) (bool, error) {
	if s == nil || s.webhookStore == nil {
		return false, fmt.Errorf("core: webhook store is required")
	}
	webhook, err := s.webhookStore.Get(ctx, strings.TrimSpace(webhookID))
	if err != nil {
		return false, s.mapError(err)
	}
	return s.schemes.Verify(payload, signature, webhook.Secret, webhook.Scheme), nil
}

// GenerateSecret produces a URL-safe random webhook secret. It is an
// operator utility and carries no webhook state.
func GenerateSecret() (string, error) {
	raw := make([]byte, secretByteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
