package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirphl/lead-manager/app/dto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (LeadCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewRedisLeadCache(rc, "test", time.Minute), mr
}

func sampleLeadDTO(id string) dto.LeadDTO {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return dto.LeadDTO{
		ID:          id,
		Name:        "Maria Silva",
		Email:       id + "@example.com",
		Type:        "resident",
		PhoneNumber: "(11) 9 9999-9999",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRedisLeadCache_Lead(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	ctx := context.Background()

	_, version, ok := cache.GetLead(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, CacheVersion(0), version)

	lead := sampleLeadDTO("a")
	cache.SetLead(ctx, lead, version)
	assert.True(t, mr.Exists("test:lead:a"))

	got, _, ok := cache.GetLead(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, lead, *got)

	ttl := mr.TTL("test:lead:a")
	assert.Equal(t, time.Minute, ttl)
}

func TestRedisLeadCache_List(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()

	_, version, ok := cache.GetLeadList(ctx)
	assert.False(t, ok)

	leads := []dto.LeadDTO{sampleLeadDTO("a"), sampleLeadDTO("b")}
	cache.SetLeadList(ctx, leads, version)

	got, _, ok := cache.GetLeadList(ctx)
	require.True(t, ok)
	assert.Equal(t, leads, got)

	cache.InvalidateList(ctx)
	_, _, ok = cache.GetLeadList(ctx)
	assert.False(t, ok)
}

func TestRedisLeadCache_InvalidateLead(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	ctx := context.Background()

	cache.SetLead(ctx, sampleLeadDTO("a"), 0)
	cache.SetLeadList(ctx, []dto.LeadDTO{sampleLeadDTO("a")}, 0)

	cache.InvalidateLead(ctx, "a")

	_, version, ok := cache.GetLead(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, CacheVersion(1), version)
	_, version, ok = cache.GetLeadList(ctx)
	assert.False(t, ok)
	assert.Equal(t, CacheVersion(1), version)
	assert.True(t, mr.TTL("test:lead:version:a") > 0)
}

func TestRedisLeadCache_FillAfterInvalidationIsDropped(t *testing.T) {
	ctx := context.Background()

	t.Run("Lead", func(t *testing.T) {
		cache, mr := newTestRedisCache(t)

		_, version, ok := cache.GetLead(ctx, "a")
		require.False(t, ok)

		cache.InvalidateLead(ctx, "a")
		cache.SetLead(ctx, sampleLeadDTO("a"), version)

		assert.False(t, mr.Exists("test:lead:a"))

		_, fresh, ok := cache.GetLead(ctx, "a")
		require.False(t, ok)
		cache.SetLead(ctx, sampleLeadDTO("a"), fresh)
		assert.True(t, mr.Exists("test:lead:a"))
	})

	t.Run("List", func(t *testing.T) {
		cache, mr := newTestRedisCache(t)

		_, version, ok := cache.GetLeadList(ctx)
		require.False(t, ok)

		cache.InvalidateList(ctx)
		cache.SetLeadList(ctx, []dto.LeadDTO{sampleLeadDTO("a")}, version)

		assert.False(t, mr.Exists("test:leads:all"))
	})

	t.Run("UnknownVersion", func(t *testing.T) {
		cache, mr := newTestRedisCache(t)

		cache.SetLead(ctx, sampleLeadDTO("a"), NoCacheVersion)
		assert.False(t, mr.Exists("test:lead:a"))
	})
}

func TestRedisLeadCache_CorruptEntryIsMiss(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	require.NoError(t, mr.Set("test:lead:a", "{not json"))

	_, _, ok := cache.GetLead(context.Background(), "a")
	assert.False(t, ok)
}

func TestRedisLeadCache_ServerDownIsMiss(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	mr.Close()

	ctx := context.Background()
	cache.SetLead(ctx, sampleLeadDTO("a"), 0)
	_, version, ok := cache.GetLead(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, NoCacheVersion, version)
}

func TestNoopLeadCache(t *testing.T) {
	cache := NewNoopLeadCache()
	ctx := context.Background()

	cache.SetLead(ctx, sampleLeadDTO("a"), 0)
	_, _, ok := cache.GetLead(ctx, "a")
	assert.False(t, ok)

	cache.SetLeadList(ctx, []dto.LeadDTO{sampleLeadDTO("a")}, 0)
	_, _, ok = cache.GetLeadList(ctx)
	assert.False(t, ok)
}
