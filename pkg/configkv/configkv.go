// Package configkv exposes typed accessors over the config_kv table for
// the runtime-tunable values spec §6 calls out: TMDB key, provider
// cookies, and cache TTLs. Values set here take precedence over the
// environment-loaded pkg/config defaults once present, without requiring
// a redeploy.
package configkv

import (
	"strconv"
	"time"

	"github.com/danmaku-hub/aggregator/internal/storage"
)

const (
	KeyTMDBAPIKey = "tmdb_api_key"
)

func cookieKey(provider string) string {
	return "provider_cookie_" + provider
}

func cacheTTLKey(name string) string {
	return "cache_ttl_" + name
}

type Store struct {
	db *storage.DB
}

func New(db *storage.DB) *Store {
	return &Store{db: db}
}

func (s *Store) TMDBAPIKey(fallback string) string {
	if v, ok, err := s.db.GetConfigValue(KeyTMDBAPIKey); err == nil && ok {
		return v
	}
	return fallback
}

func (s *Store) SetTMDBAPIKey(key string) error {
	return s.db.SetConfigValue(KeyTMDBAPIKey, key)
}

func (s *Store) ProviderCookie(provider, fallback string) string {
	if v, ok, err := s.db.GetConfigValue(cookieKey(provider)); err == nil && ok {
		return v
	}
	return fallback
}

func (s *Store) SetProviderCookie(provider, cookie string) error {
	return s.db.SetConfigValue(cookieKey(provider), cookie)
}

func (s *Store) CacheTTL(name string, fallback time.Duration) time.Duration {
	v, ok, err := s.db.GetConfigValue(cacheTTLKey(name))
	if err != nil || !ok {
		return fallback
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func (s *Store) SetCacheTTL(name string, ttl time.Duration) error {
	return s.db.SetConfigValue(cacheTTLKey(name), strconv.Itoa(int(ttl.Seconds())))
}
