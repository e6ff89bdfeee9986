package inferencecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
)

// RedisStore is the distributed inference-cache backend: a Store keyed
// by llm_cache_key, shared across worker processes so a cache hit on
// one node is visible to every other node.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an already-configured *redis.Client. ttl is the
// eviction policy; a miss after eviction is indistinguishable from a
// never-populated key and re-derives/re-populates the same way (§4.4:
// evictions never break replay because the key is content-addressed).
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(cacheKey string) string {
	return "ire:llmcache:" + cacheKey
}

func (s *RedisStore) Get(ctx context.Context, cacheKey string) (*model.LLMInferenceArtifact, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(cacheKey)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("inferencecache: redis get: %w", err)
	}
	var artifact model.LLMInferenceArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, false, fmt.Errorf("inferencecache: decode cached artifact: %w", err)
	}
	return &artifact, true, nil
}

func (s *RedisStore) Put(ctx context.Context, cacheKey string, artifact model.LLMInferenceArtifact) error {
	raw, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("inferencecache: encode artifact: %w", err)
	}
	// SETNX: content-addressed entries are write-once; a racing writer
	// for the same key is producing the same bytes, so losing the race
	// is harmless.
	if err := s.client.SetNX(ctx, redisKey(cacheKey), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("inferencecache: redis setnx: %w", err)
	}
	return nil
}
