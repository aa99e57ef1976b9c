package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/auditai/insight-engine/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "llm:completion:"

// Cache serves repeated conversations from Redis. Redis errors are logged
// and the call falls through to the wrapped Completer.
type Cache struct {
	next  Completer
	rdb   redis.Cmdable
	model string
	ttl   time.Duration
}

// NewCache wraps next. model is part of the key so switching models does
// not serve stale answers.
func NewCache(next Completer, rdb redis.Cmdable, model string, ttl time.Duration) *Cache {
	return &Cache{next: next, rdb: rdb, model: model, ttl: ttl}
}

func (c *Cache) Complete(ctx context.Context, messages []Message) (string, error) {
	key, err := c.key(messages)
	if err != nil {
		return c.next.Complete(ctx, messages)
	}

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		logger.Debug("llm: cache hit", "key", key)
		return cached, nil
	case !errors.Is(err, redis.Nil):
		logger.Warn("llm: cache read failed", "key", key, "error", err)
	}

	out, err := c.next.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	if err := c.rdb.Set(ctx, key, out, c.ttl).Err(); err != nil {
		logger.Warn("llm: cache write failed", "key", key, "error", err)
	}
	return out, nil
}

func (c *Cache) key(messages []Message) (string, error) {
	b, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write(b)
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
