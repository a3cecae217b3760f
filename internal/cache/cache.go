// Package cache implements the TTL-bound key→JSON store backing provider
// search and episode-list caches (spec §2, §4.2, §6).
package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache stores arbitrary JSON payloads under opaque keys with a TTL.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	// GenerateKey builds a stable key for a (provider, operation, params) tuple.
	GenerateKey(provider, operation string, params map[string]string) string
}

// RedisCache implements Cache on top of Redis/Valkey.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// MemoryCache implements Cache with an in-process map, used when Redis is
// unavailable.
type MemoryCache struct {
	data map[string]cacheItem
	mu   sync.RWMutex
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// NewRedisCache creates a new Redis cache instance.
func NewRedisCache(addr string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisCache{
		client: rdb,
		ctx:    context.Background(),
	}
}

// NewMemoryCache creates a new in-memory cache instance and starts its
// expiry sweep.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		data: make(map[string]cacheItem),
	}

	go c.cleanup()

	return c
}

func (r *RedisCache) Get(key string) ([]byte, error) {
	val, err := r.client.Get(r.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return []byte(val), nil
}

func (r *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	return r.client.Set(r.ctx, key, value, ttl).Err()
}

func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, key).Err()
}

func (r *RedisCache) GenerateKey(provider, operation string, params map[string]string) string {
	return generateCacheKey(provider, operation, params)
}

func (m *MemoryCache) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, exists := m.data[key]
	if !exists {
		return nil, nil
	}

	if time.Now().After(item.expiresAt) {
		return nil, nil
	}

	return item.value, nil
}

func (m *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = cacheItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryCache) GenerateKey(provider, operation string, params map[string]string) string {
	return generateCacheKey(provider, operation, params)
}

// cleanup sweeps expired entries hourly, matching the TTL-sweep cadence
// spec §6 requires for cache entries and OAuth states.
func (m *MemoryCache) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		now := time.Now()
		for key, item := range m.data {
			if now.After(item.expiresAt) {
				delete(m.data, key)
			}
		}
		m.mu.Unlock()
	}
}

func generateCacheKey(provider, operation string, params map[string]string) string {
	paramBytes, _ := json.Marshal(params)
	paramHash := fmt.Sprintf("%x", md5.Sum(paramBytes))

	return fmt.Sprintf("%s:%s:%s", provider, operation, paramHash)
}

// New creates a cache instance, trying Redis/Valkey first and falling back
// to an in-memory store if it cannot be reached within 2s.
func New(redisAddr string, redisDB int, log Logger) Cache {
	redisCache := NewRedisCache(redisAddr, redisDB)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := redisCache.client.Ping(ctx).Err(); err != nil {
		log.Warnf("redis unavailable (%v), falling back to memory cache", err)
		return NewMemoryCache()
	}

	log.Infof("connected to redis/valkey at %s", redisAddr)
	return redisCache
}

// Logger is the minimal logging surface New needs; satisfied by pkg/logger.
type Logger interface {
	Warnf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}
