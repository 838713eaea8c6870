package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// PlanCacheKey identifies a cached plan result. plan() is a pure function
// of (graphs, asset, rule pack, config) per the core's data model, so the
// key must bind all four: the rule-pack content hash stands in for the
// rule pack, and the graph/config fingerprints stand in for the rest.
type PlanCacheKey struct {
	RulePackHash string
	AssetTag     string
	GraphHash    string
	ConfigHash   string
}

// String renders the key as a single cache key string.
func (k PlanCacheKey) String() string {
	return fmt.Sprintf("plan:%s:%s:%s:%s", k.RulePackHash, k.AssetTag, k.GraphHash, k.ConfigHash)
}

// HashConfig produces a short, stable fingerprint of any JSON-serializable
// planner configuration, used to build ConfigHash and GraphHash above.
// Replaces the teacher's graph-hash helper (pkg/cache/hasher.go), which
// depended on generated protobuf graph types that do not exist in this
// module — see DESIGN.md.
func HashConfig(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash config: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// PlanCache wraps a Cache to store pre-serialized plan payloads keyed by
// PlanCacheKey. It stores opaque []byte blobs — internal/core owns the
// serialization format (typically JSON) of the IsolationPlan it caches.
type PlanCache struct {
	cache Cache
	ttl   int64 // seconds; 0 means use the backend's configured default TTL path
}

// NewPlanCache wraps an existing Cache backend.
func NewPlanCache(c Cache) *PlanCache {
	return &PlanCache{cache: c}
}

// Get returns the cached plan payload for key, or ErrKeyNotFound.
func (p *PlanCache) Get(ctx context.Context, key PlanCacheKey) ([]byte, error) {
	return p.cache.Get(ctx, key.String())
}

// Set stores a plan payload for key with the given TTL in seconds (0 uses
// the backend's zero-value/no-expiry semantics).
func (p *PlanCache) Set(ctx context.Context, key PlanCacheKey, payload []byte, ttlSeconds int64) error {
	return p.cache.Set(ctx, key.String(), payload, secondsToDuration(ttlSeconds))
}

// Invalidate removes a single cached plan.
func (p *PlanCache) Invalidate(ctx context.Context, key PlanCacheKey) error {
	return p.cache.Delete(ctx, key.String())
}

// InvalidateRulePack removes every cached plan produced from a given
// rule-pack hash, used when a rule pack is superseded.
func (p *PlanCache) InvalidateRulePack(ctx context.Context, rulePackHash string) (int64, error) {
	return p.cache.DeleteByPattern(ctx, fmt.Sprintf("plan:%s:*", rulePackHash))
}

func secondsToDuration(s int64) time.Duration {
	return time.Duration(s) * time.Second
}
