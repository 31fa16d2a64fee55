package repository

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newTestProject(t *testing.T, owner, topic string, at time.Time) *domain.Project {
	t.Helper()
	p, err := domain.NewProject(owner, topic, "deck", at)
	require.NoError(t, err)
	return p
}

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRedisRepository_CreateGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedisRepository(client)
	ctx := context.Background()

	p := newTestProject(t, "u1", "Solar", t0)
	require.NoError(t, repo.Create(ctx, p))

	assert.True(t, mr.Exists("doc:project:"+p.ID))
	members, err := mr.Members("doc:user:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, members)

	got, err := repo.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = repo.Get(ctx, "u2", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.Get(ctx, "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisRepository_List(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedisRepository(client)
	ctx := context.Background()

	older := newTestProject(t, "u1", "Older", t0)
	newer := newTestProject(t, "u1", "Newer", t0.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, newTestProject(t, "u2", "Other", t0)))

	items, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Newer", items[0].Topic)
	assert.Equal(t, "Older", items[1].Topic)

	// a blob removed behind the index is skipped and pruned
	mr.Del("doc:project:" + older.ID)
	items, err = repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	members, err := mr.Members("doc:user:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{newer.ID}, members)

	empty, err := repo.List(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

// failingSRem makes every SREM fail so best-effort pruning can be observed.
type failingSRem struct{}

func (failingSRem) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failingSRem) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "srem" {
			return errors.New("srem unavailable")
		}
		return next(ctx, cmd)
	}
}

func (failingSRem) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisRepository_ListLogsFailedPrune(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedisRepository(client)
	ctx := context.Background()

	p := newTestProject(t, "u1", "Gone", t0)
	require.NoError(t, repo.Create(ctx, p))
	mr.Del("doc:project:" + p.ID)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	client.AddHook(failingSRem{})
	items, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Contains(t, buf.String(), "failed to prune 1 stale ids for u1")
	assert.Contains(t, buf.String(), "srem unavailable")
}

func TestRedisRepository_ReplaceSections(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRedisRepository(client)
	ctx := context.Background()

	p := newTestProject(t, "u1", "Solar", t0)
	require.NoError(t, repo.Create(ctx, p))

	later := t0.Add(time.Minute)
	stubs := []domain.Section{domain.NewSectionStub("A"), domain.NewSectionStub("B")}
	updated, err := repo.ReplaceSections(ctx, "u1", p.ID, stubs, later)
	require.NoError(t, err)
	assert.Len(t, updated.Sections, 2)
	assert.Equal(t, later, updated.LastModifiedAt)

	got, err := repo.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = repo.ReplaceSections(ctx, "u2", p.ID, stubs, later)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisRepository_UpdateSection(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRedisRepository(client)
	ctx := context.Background()

	p := newTestProject(t, "u1", "Solar", t0)
	require.NoError(t, repo.Create(ctx, p))
	_, err := repo.ReplaceSections(ctx, "u1", p.ID,
		[]domain.Section{domain.NewSectionStub("A"), domain.NewSectionStub("B")}, t0)
	require.NoError(t, err)

	later := t0.Add(2 * time.Minute)
	updated, err := repo.UpdateSection(ctx, "u1", p.ID, 1, func(s *domain.Section) error {
		s.ApplyGenerated("content for B")
		return nil
	}, later)
	require.NoError(t, err)
	assert.Equal(t, "content for B", updated.Sections[1].Content)
	assert.Empty(t, updated.Sections[0].Content)
	assert.Equal(t, later, updated.LastModifiedAt)

	boom := errors.New("rejected")
	_, err = repo.UpdateSection(ctx, "u1", p.ID, 0, func(s *domain.Section) error {
		s.ApplyGenerated("should not persist")
		return boom
	}, later.Add(time.Minute))
	assert.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Sections[0].Content)
	assert.Equal(t, later, got.LastModifiedAt)

	_, err = repo.UpdateSection(ctx, "u1", p.ID, 5, func(*domain.Section) error { return nil }, later)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedisRepository_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedisRepository(client)
	ctx := context.Background()

	p := newTestProject(t, "u1", "Solar", t0)
	require.NoError(t, repo.Create(ctx, p))

	assert.ErrorIs(t, repo.Delete(ctx, "u2", p.ID), domain.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "u1", p.ID))
	assert.False(t, mr.Exists("doc:project:"+p.ID))
	assert.ErrorIs(t, repo.Delete(ctx, "u1", p.ID), domain.ErrNotFound)

	require.NoError(t, repo.Ping(ctx))
}
