package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flightmode/competition-system/models"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss сигнализирует, что конкурса нет в кеше.
var ErrCacheMiss = errors.New("competition not cached")

// CompetitionCache хранит карточки конкурсов в redis. Записи
// инвалидируются при каждой принятой заявке и каждой смене статуса, поэтому
// TTL держится коротким и служит только страховкой.
type CompetitionCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewCompetitionCache(client redis.UniversalClient, prefix string, ttl time.Duration) *CompetitionCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CompetitionCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *CompetitionCache) Get(ctx context.Context, id int) (*models.Competition, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var competition models.Competition
	if err := json.Unmarshal(data, &competition); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &competition, nil
}

func (c *CompetitionCache) Set(ctx context.Context, competition *models.Competition) error {
	data, err := json.Marshal(competition)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(competition.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *CompetitionCache) Invalidate(ctx context.Context, id int) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

func (c *CompetitionCache) key(id int) string {
	return fmt.Sprintf("%s:competition:%d", c.prefix, id)
}
