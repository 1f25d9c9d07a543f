package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// GroupStore provides the group→tag reachability query.
type GroupStore interface {
	ListTagIDsByAgent(ctx context.Context, agentID string) ([]string, error)
}

const generationKey = "authz:generation"

// Resolver computes the effective tag set for an agent: the union of
// tag ids covered by every group the agent belongs to. Group and tag
// membership can change at any time, so cached sets carry a generation
// stamp; Invalidate bumps the generation and orphans every cached
// entry at once. With a nil cache client the resolver always hits the
// store, which matches the original recompute-per-check behavior.
type Resolver struct {
	groups GroupStore
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewResolver constructs the resolver. ttl <= 0 disables caching.
func NewResolver(groups GroupStore, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{groups: groups, cache: cache, ttl: ttl, logger: logger}
}

// EffectiveTags returns the deduplicated set of tag ids reachable from
// the agent through group membership. An agent in zero groups yields
// the empty set.
func (r *Resolver) EffectiveTags(ctx context.Context, agentID string) (map[string]struct{}, error) {
	if ids, ok := r.fromCache(ctx, agentID); ok {
		return toSet(ids), nil
	}

	ids, err := r.groups.ListTagIDsByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	r.storeInCache(ctx, agentID, ids)
	return toSet(ids), nil
}

// Invalidate orphans all cached tag sets. Called whenever group
// membership or tag coverage is mutated.
func (r *Resolver) Invalidate(ctx context.Context) {
	if !r.cacheEnabled() {
		return
	}
	if err := r.cache.Incr(ctx, generationKey).Err(); err != nil {
		r.logger.Warn("failed to bump authz cache generation", zap.Error(err))
	}
}

func (r *Resolver) cacheEnabled() bool {
	return r.cache != nil && r.ttl > 0
}

func (r *Resolver) cacheKey(ctx context.Context, agentID string) (string, error) {
	generation, err := r.cache.Get(ctx, generationKey).Result()
	if err != nil {
		if err != redis.Nil {
			return "", err
		}
		generation = "0"
	}
	return fmt.Sprintf("authz:tags:%s:%s", generation, agentID), nil
}

func (r *Resolver) fromCache(ctx context.Context, agentID string) ([]string, bool) {
	if !r.cacheEnabled() {
		return nil, false
	}
	key, err := r.cacheKey(ctx, agentID)
	if err != nil {
		r.logger.Debug("authz cache unavailable", zap.Error(err))
		return nil, false
	}
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug("authz cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

func (r *Resolver) storeInCache(ctx context.Context, agentID string, ids []string) {
	if !r.cacheEnabled() {
		return
	}
	key, err := r.cacheKey(ctx, agentID)
	if err != nil {
		return
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.logger.Debug("authz cache write failed", zap.Error(err))
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
