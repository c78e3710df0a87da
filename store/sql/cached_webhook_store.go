package sqlstore

import (
	"context"
	"net/url"
	"strings"

	"fmt"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-webhooks/core"
)

const matchCacheKeyPrefix = "go-webhooks::match::v1"

// CachedWebhookStore caches the hot-path ListMatching read. Every write
// that can change match results invalidates the whole match keyspace for
// the affected scope; CRUD reads always go to the base store.
type CachedWebhookStore struct {
	base  core.WebhookStore
	cache repositorycache.CacheService
}

func NewCachedWebhookStore(base core.WebhookStore, cacheService repositorycache.CacheService) (*CachedWebhookStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base webhook store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: webhook cache service is required")
	}
	return &CachedWebhookStore{base: base, cache: cacheService}, nil
}

// MatchCacheKey returns the deterministic cache key for a match lookup:
// go-webhooks::match::v1::<event_type>::<store_id> with each segment
// URL-path escaped.
func MatchCacheKey(eventType string, storeID string) string {
	segments := []string{
		url.PathEscape(strings.ToLower(strings.TrimSpace(eventType))),
		url.PathEscape(strings.TrimSpace(storeID)),
	}
	return strings.Join(append([]string{matchCacheKeyPrefix}, segments...), "::")
}

func (s *CachedWebhookStore) ListMatching(ctx context.Context, eventType string, storeID string) ([]core.Webhook, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached webhook store is not configured")
	}
	cacheKey := MatchCacheKey(eventType, storeID)
	matched, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]core.Webhook, error) {
		return s.base.ListMatching(ctx, eventType, storeID)
	})
	if err != nil {
		return nil, err
	}
	return append([]core.Webhook(nil), matched...), nil
}

func (s *CachedWebhookStore) Create(ctx context.Context, webhook core.Webhook) (core.Webhook, error) {
	created, err := s.base.Create(ctx, webhook)
	if err != nil {
		return core.Webhook{}, err
	}
	s.invalidateMatches(ctx)
	return created, nil
}

func (s *CachedWebhookStore) Get(ctx context.Context, id string) (core.Webhook, error) {
	return s.base.Get(ctx, id)
}

func (s *CachedWebhookStore) Update(ctx context.Context, webhook core.Webhook) (core.Webhook, error) {
	updated, err := s.base.Update(ctx, webhook)
	if err != nil {
		return core.Webhook{}, err
	}
	s.invalidateMatches(ctx)
	return updated, nil
}

func (s *CachedWebhookStore) Delete(ctx context.Context, id string) error {
	if err := s.base.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateMatches(ctx)
	return nil
}

func (s *CachedWebhookStore) List(ctx context.Context, filter core.WebhookFilter) ([]core.Webhook, int, error) {
	return s.base.List(ctx, filter)
}

func (s *CachedWebhookStore) RecordFailure(ctx context.Context, id string) (int, error) {
	return s.base.RecordFailure(ctx, id)
}

func (s *CachedWebhookStore) ResetFailures(ctx context.Context, id string) error {
	return s.base.ResetFailures(ctx, id)
}

func (s *CachedWebhookStore) Disable(ctx context.Context, id string, auto bool, reason string) error {
	if err := s.base.Disable(ctx, id, auto, reason); err != nil {
		return err
	}
	s.invalidateMatches(ctx)
	return nil
}

func (s *CachedWebhookStore) ReEnable(ctx context.Context, id string) (bool, error) {
	reenabled, err := s.base.ReEnable(ctx, id)
	if err != nil || !reenabled {
		return reenabled, err
	}
	s.invalidateMatches(ctx)
	return true, nil
}

// invalidateMatches flushes the whole match keyspace. Per-key deletes
// cannot be made correct here: an all-events subscription has no event
// list to enumerate and a global webhook appears in every store-scoped
// key, so any targeted scheme leaves stale lists behind.
func (s *CachedWebhookStore) invalidateMatches(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	_ = s.cache.DeleteByPrefix(ctx, matchCacheKeyPrefix)
}
