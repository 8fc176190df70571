package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"healthpulse/internal/model"

	"github.com/redis/go-redis/v9"
)

// AssessmentCache holds persisted assessments. They never change apart
// from deactivation, which evicts the entry.
type AssessmentCache interface {
	Set(ctx context.Context, a *model.Assessment) error
	Get(ctx context.Context, id string) (*model.Assessment, error)
	Delete(ctx context.Context, id string) error
}

type assessmentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAssessmentCache creates a new assessment cache
func NewAssessmentCache(client *redis.Client, ttl time.Duration) AssessmentCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &assessmentCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *assessmentCache) key(id string) string {
	return fmt.Sprintf("assessment:%s", id)
}

func (c *assessmentCache) Set(ctx context.Context, a *model.Assessment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(a.ID), data, c.ttl).Err()
}

func (c *assessmentCache) Get(ctx context.Context, id string) (*model.Assessment, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a model.Assessment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *assessmentCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
