package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-scheduler/internal/domain"
)

const agentCacheKey = "scheduler:agents:directory"

// CachedAgentDirectory serves the agent directory from a short-TTL Redis
// snapshot. Assignment decisions tolerate a few seconds of staleness; the TTL
// keeps it there. Any cache failure falls through to the source.
type CachedAgentDirectory struct {
	source AgentRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedAgentDirectory wraps source with a Redis cache. A zero TTL or nil
// client disables caching.
func NewCachedAgentDirectory(source AgentRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedAgentDirectory {
	return &CachedAgentDirectory{source: source, client: client, ttl: ttl, logger: logger}
}

// ListAgents returns the cached directory when fresh, otherwise reads from the
// source and repopulates the cache.
func (c *CachedAgentDirectory) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	if c.client == nil || c.ttl <= 0 {
		return c.source.ListAgents(ctx)
	}

	payload, err := c.client.Get(ctx, agentCacheKey).Bytes()
	if err == nil {
		var agents []domain.Agent
		if err := json.Unmarshal(payload, &agents); err == nil {
			return agents, nil
		}
		c.logger.Warn("agent cache payload corrupt; rereading")
	} else if err != redis.Nil {
		c.logger.Warn("agent cache read failed", zap.Error(err))
	}

	agents, err := c.source.ListAgents(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(agents)
	if err == nil {
		if err := c.client.Set(ctx, agentCacheKey, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("agent cache write failed", zap.Error(err))
		}
	}
	return agents, nil
}

// Invalidate drops the cached snapshot.
func (c *CachedAgentDirectory) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, agentCacheKey).Err(); err != nil {
		c.logger.Warn("agent cache invalidate failed", zap.Error(err))
	}
}
