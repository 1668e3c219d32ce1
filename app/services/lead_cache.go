package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/lead-manager/app/dto"
	"github.com/redis/go-redis/v9"
)

const (
	leadKeyPrefix        = "lead:"
	leadVersionKeyPrefix = "lead:version:"
	leadListKey          = "leads:all"
	leadListVersionKey   = "leads:version"
	defaultCacheTTL      = 5 * time.Minute
	versionKeyTTL        = 24 * time.Hour
)

// CacheVersion is the invalidation generation observed by a cache read.
// A fill is only stored while the generation is unchanged.
type CacheVersion int64

// NoCacheVersion marks a read whose generation is unknown; fills with it are dropped
const NoCacheVersion CacheVersion = -1

// setIfVersion stores ARGV[2] at KEYS[2] only while KEYS[1] still holds ARGV[1]
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// LeadCache is a read-through cache in front of lead lookups.
// Failures are logged and treated as misses; the store stays the source of truth.
type LeadCache interface {
	// GetLead returns the cached lead and the generation to pass to SetLead on a miss
	GetLead(ctx context.Context, id string) (*dto.LeadDTO, CacheVersion, bool)
	SetLead(ctx context.Context, lead dto.LeadDTO, version CacheVersion)
	GetLeadList(ctx context.Context) ([]dto.LeadDTO, CacheVersion, bool)
	SetLeadList(ctx context.Context, leads []dto.LeadDTO, version CacheVersion)
	// InvalidateLead drops the cached lead and the cached list
	InvalidateLead(ctx context.Context, id string)
	// InvalidateList drops only the cached list
	InvalidateList(ctx context.Context)
}

// RedisLeadCache stores JSON encoded leads in redis. Every invalidation bumps a
// generation key so a fill computed before the invalidation is discarded.
type RedisLeadCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLeadCache creates a redis backed lead cache
func NewRedisLeadCache(rc *redis.Client, prefix string, ttl time.Duration) LeadCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisLeadCache{rc: rc, prefix: prefix, ttl: ttl}
}

func (c *RedisLeadCache) key(k string) string {
	p := strings.TrimSpace(c.prefix)
	if p == "" {
		return k
	}
	return fmt.Sprintf("%s:%s", p, k)
}

// get reads a cached payload and its generation in one round trip
func (c *RedisLeadCache) get(ctx context.Context, dataKey, versionKey string) ([]byte, CacheVersion, bool) {
	vals, err := c.rc.MGet(ctx, c.key(dataKey), c.key(versionKey)).Result()
	if err != nil {
		log.Printf("lead cache: get %s failed: %v", dataKey, err)
		return nil, NoCacheVersion, false
	}

	version := parseCacheVersion(vals[1])
	raw, ok := vals[0].(string)
	if !ok {
		return nil, version, false
	}
	return []byte(raw), version, true
}

// set stores payload unless the generation moved since version was read
func (c *RedisLeadCache) set(ctx context.Context, dataKey, versionKey string, payload []byte, version CacheVersion) {
	if version < 0 {
		return
	}
	keys := []string{c.key(versionKey), c.key(dataKey)}
	args := []any{strconv.FormatInt(int64(version), 10), payload, c.ttl.Milliseconds()}
	if err := setIfVersion.Run(ctx, c.rc, keys, args...).Err(); err != nil {
		log.Printf("lead cache: set %s failed: %v", dataKey, err)
	}
}

func parseCacheVersion(v any) CacheVersion {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NoCacheVersion
	}
	return CacheVersion(n)
}

func (c *RedisLeadCache) GetLead(ctx context.Context, id string) (*dto.LeadDTO, CacheVersion, bool) {
	bs, version, ok := c.get(ctx, leadKeyPrefix+id, leadVersionKeyPrefix+id)
	if !ok {
		return nil, version, false
	}
	var out dto.LeadDTO
	if err := json.Unmarshal(bs, &out); err != nil {
		log.Printf("lead cache: decode %s failed: %v", id, err)
		return nil, version, false
	}
	return &out, version, true
}

func (c *RedisLeadCache) SetLead(ctx context.Context, lead dto.LeadDTO, version CacheVersion) {
	bs, err := json.Marshal(lead)
	if err != nil {
		log.Printf("lead cache: encode %s failed: %v", lead.ID, err)
		return
	}
	c.set(ctx, leadKeyPrefix+lead.ID, leadVersionKeyPrefix+lead.ID, bs, version)
}

func (c *RedisLeadCache) GetLeadList(ctx context.Context) ([]dto.LeadDTO, CacheVersion, bool) {
	bs, version, ok := c.get(ctx, leadListKey, leadListVersionKey)
	if !ok {
		return nil, version, false
	}
	var out []dto.LeadDTO
	if err := json.Unmarshal(bs, &out); err != nil {
		log.Printf("lead cache: decode list failed: %v", err)
		return nil, version, false
	}
	return out, version, true
}

func (c *RedisLeadCache) SetLeadList(ctx context.Context, leads []dto.LeadDTO, version CacheVersion) {
	bs, err := json.Marshal(leads)
	if err != nil {
		log.Printf("lead cache: encode list failed: %v", err)
		return
	}
	c.set(ctx, leadListKey, leadListVersionKey, bs, version)
}

func (c *RedisLeadCache) InvalidateLead(ctx context.Context, id string) {
	_, err := c.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.bump(ctx, pipe, leadVersionKeyPrefix+id, leadKeyPrefix+id)
		c.bump(ctx, pipe, leadListVersionKey, leadListKey)
		return nil
	})
	if err != nil {
		log.Printf("lead cache: invalidate %s failed: %v", id, err)
	}
}

func (c *RedisLeadCache) InvalidateList(ctx context.Context) {
	_, err := c.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.bump(ctx, pipe, leadListVersionKey, leadListKey)
		return nil
	})
	if err != nil {
		log.Printf("lead cache: invalidate list failed: %v", err)
	}
}

// bump advances the generation and drops the cached payload
func (c *RedisLeadCache) bump(ctx context.Context, pipe redis.Pipeliner, versionKey, dataKey string) {
	pipe.Incr(ctx, c.key(versionKey))
	pipe.Expire(ctx, c.key(versionKey), versionKeyTTL)
	pipe.Del(ctx, c.key(dataKey))
}

// NoopLeadCache is used when caching is disabled
type NoopLeadCache struct{}

func NewNoopLeadCache() LeadCache {
	return NoopLeadCache{}
}

func (NoopLeadCache) GetLead(context.Context, string) (*dto.LeadDTO, CacheVersion, bool) {
	return nil, NoCacheVersion, false
}
func (NoopLeadCache) SetLead(context.Context, dto.LeadDTO, CacheVersion) {}
func (NoopLeadCache) GetLeadList(context.Context) ([]dto.LeadDTO, CacheVersion, bool) {
	return nil, NoCacheVersion, false
}
func (NoopLeadCache) SetLeadList(context.Context, []dto.LeadDTO, CacheVersion) {}
func (NoopLeadCache) InvalidateLead(context.Context, string)                   {}
func (NoopLeadCache) InvalidateList(context.Context)                           {}
