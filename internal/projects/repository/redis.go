package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ocean-authoring/ocean-backend/internal/logging"
	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
)

const (
	projectKeyPrefix     = "doc:project:" // Project blob: doc:project:{id}
	userProjectSetPrefix = "doc:user:"    // Set of project IDs for an owner: doc:user:{owner}
	maxTxRetries         = 5
)

// RedisRepository stores each project as one JSON blob so reads are a
// consistent snapshot of the whole section sequence.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new RedisRepository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// Create stores a new project and indexes it under its owner.
func (r *RedisRepository) Create(ctx context.Context, p *domain.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.projectKey(p.ID), data, 0)
	pipe.SAdd(ctx, r.userSetKey(p.Owner), p.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get returns the project if it exists and belongs to owner.
func (r *RedisRepository) Get(ctx context.Context, owner, id string) (*domain.Project, error) {
	return r.load(ctx, r.client, owner, id)
}

// List returns the owner's projects, newest first.
func (r *RedisRepository) List(ctx context.Context, owner string) ([]domain.Project, error) {
	ids, err := r.client.SMembers(ctx, r.userSetKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	out := make([]domain.Project, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.projectKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	var stale []any
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var p domain.Project
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal project %s: %w", ids[i], err)
		}
		if p.Owner != owner {
			continue
		}
		out = append(out, p)
	}
	if len(stale) > 0 {
		if err := r.client.SRem(ctx, r.userSetKey(owner), stale...).Err(); err != nil {
			logging.NewLogger(ctx).LogWarnf("list_projects", "failed to prune %d stale ids for %s: %v", len(stale), owner, err)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ReplaceSections swaps the whole section sequence.
func (r *RedisRepository) ReplaceSections(ctx context.Context, owner, id string, sections []domain.Section, now time.Time) (*domain.Project, error) {
	return r.mutate(ctx, owner, id, func(p *domain.Project) error {
		p.Sections = sections
		p.Touch(now)
		return nil
	})
}

// UpdateSection applies fn to one section under an optimistic transaction,
// leaving sibling sections as stored.
func (r *RedisRepository) UpdateSection(ctx context.Context, owner, id string, index int, fn func(*domain.Section) error, now time.Time) (*domain.Project, error) {
	return r.mutate(ctx, owner, id, func(p *domain.Project) error {
		s, err := p.Section(index)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		p.Touch(now)
		return nil
	})
}

// Delete removes the project and its index entry.
func (r *RedisRepository) Delete(ctx context.Context, owner, id string) error {
	if _, err := r.Get(ctx, owner, id); err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.projectKey(id))
	pipe.SRem(ctx, r.userSetKey(owner), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) mutate(ctx context.Context, owner, id string, fn func(*domain.Project) error) (*domain.Project, error) {
	key := r.projectKey(id)
	var updated *domain.Project

	txf := func(tx *redis.Tx) error {
		p, err := r.load(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal project: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			updated = p
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("failed to update project %s: too much contention", id)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisRepository) load(ctx context.Context, c getter, owner, id string) (*domain.Project, error) {
	data, err := c.Get(ctx, r.projectKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	var p domain.Project
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	if p.Owner != owner {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *RedisRepository) projectKey(id string) string {
	return projectKeyPrefix + id
}

func (r *RedisRepository) userSetKey(owner string) string {
	return userProjectSetPrefix + owner
}
