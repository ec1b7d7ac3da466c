package identity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "facegate/internal/platform/redis"
	"facegate/internal/user/models"
	id "facegate/pkg/domain"
)

const corpusCacheKey = "facegate:identity:corpus"

// CachedSource decorates a UserSource with a Redis cache so every scan does
// not re-read the whole embedding corpus from Postgres. Cache failures fall
// through to the underlying source; the gate never fails because Redis is
// down.
type CachedSource struct {
	source UserSource
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps source with a Redis cache. A nil client disables
// caching entirely.
func NewCachedSource(source UserSource, client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

// cachedUser is the cache wire shape. Embeddings are excluded from the
// public User JSON form, so the cache carries them explicitly.
type cachedUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Embedding []float64 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *CachedSource) List(ctx context.Context) ([]*models.User, error) {
	if c.redis == nil {
		return c.source.List(ctx)
	}

	raw, err := c.redis.Get(ctx, corpusCacheKey).Bytes()
	if err == nil {
		if users, decodeErr := decodeCorpus(raw); decodeErr == nil {
			return users, nil
		}
		// Corrupt cache entry: drop it and reload from the source.
		c.redis.Del(ctx, corpusCacheKey)
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "embedding corpus cache read failed", "error", err)
	}

	users, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, encodeErr := encodeCorpus(users); encodeErr == nil {
		if setErr := c.redis.Set(ctx, corpusCacheKey, encoded, c.ttl).Err(); setErr != nil {
			c.logger.WarnContext(ctx, "embedding corpus cache write failed", "error", setErr)
		}
	}
	return users, nil
}

// Invalidate drops the cached corpus. Called after user registration so new
// residents are matchable immediately.
func (c *CachedSource) Invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, corpusCacheKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "embedding corpus cache invalidation failed", "error", err)
	}
}

func encodeCorpus(users []*models.User) ([]byte, error) {
	cached := make([]cachedUser, 0, len(users))
	for _, u := range users {
		cached = append(cached, cachedUser{
			ID:        u.ID.String(),
			Name:      u.Name,
			Embedding: u.Embedding,
			CreatedAt: u.CreatedAt,
		})
	}
	return json.Marshal(cached)
}

func decodeCorpus(raw []byte) ([]*models.User, error) {
	var cached []cachedUser
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(cached))
	for _, cu := range cached {
		userID, err := id.ParseUserID(cu.ID)
		if err != nil {
			return nil, err
		}
		users = append(users, &models.User{
			ID:        userID,
			Name:      cu.Name,
			Embedding: cu.Embedding,
			CreatedAt: cu.CreatedAt,
		})
	}
	return users, nil
}
