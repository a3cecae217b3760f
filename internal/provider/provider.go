// Package provider defines the adapter contract every site scraper
// implements, plus the shared RateLimiter and SessionStore building
// blocks described by spec §4.1. Concrete adapters live in sibling
// packages (bilibili, tencent, iqiyi, youku, mgtv, gamer).
package provider

import (
	"context"
	"sync"
	"time"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

// Adapter is the uniform contract a site scraper implements (spec §4.1).
type Adapter interface {
	// Name is the provider identifier used as (provider, media_id) and
	// (provider, provider_episode_id) keys throughout the system.
	Name() string

	// Search finds candidate media for keyword. episodeHint, when > 0,
	// is a hint some adapters use to disambiguate multi-season listings;
	// it never changes the contract of the returned results.
	Search(ctx context.Context, keyword string, episodeHint int) ([]domain.ProviderSearchInfo, error)

	// GetEpisodes returns the ordered, 1-based-contiguous episode list
	// for mediaID. targetIndex, when > 0, lets an adapter short-circuit
	// discovery, but the returned indices must stay consistent with the
	// full list. dbMediaKind, when domain.MediaKindMovie, is used by the
	// caller (not the adapter) to truncate to the first episode.
	GetEpisodes(ctx context.Context, mediaID string, targetIndex int, dbMediaKind domain.MediaKind) ([]domain.ProviderEpisodeInfo, error)

	// GetComments fetches and normalizes all danmaku for
	// providerEpisodeID, invoking progress periodically as segments are
	// consumed.
	GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error)

	// Close releases pooled HTTP/session state.
	Close() error
}

// RateLimiter enforces a minimum inter-request interval per adapter,
// serializing concurrent callers within one adapter while leaving
// adapters independent of each other (spec §4.1, §5).
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	if minInterval <= 0 {
		minInterval = 500 * time.Millisecond
	}
	return &RateLimiter{minInterval: minInterval}
}

// Wait blocks, if necessary, until minInterval has elapsed since the
// previous call returned, then reserves the current instant as "last".
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.last.IsZero() {
		elapsed := time.Since(r.last)
		if wait := r.minInterval - elapsed; wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	r.last = time.Now()
	return nil
}

// SessionStore manages a lazily-acquired, refreshable session credential
// (typically a cookie string) for adapters that sit behind a login wall
// (spec §4.1: "Session lifecycle").
type SessionStore struct {
	mu        sync.Mutex
	value     string
	acquireFn func(ctx context.Context) (string, error)
	persistFn func(value string) error
}

// NewSessionStore builds a store that calls acquire to bootstrap or
// refresh the credential, and persist (optional) to write it to the
// config KV on every successful (re)acquisition.
func NewSessionStore(acquire func(ctx context.Context) (string, error), persist func(value string) error) *SessionStore {
	return &SessionStore{acquireFn: acquire, persistFn: persist}
}

// Get returns the current credential, lazily acquiring it on first use.
func (s *SessionStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value != "" {
		return s.value, nil
	}
	return s.refreshLocked(ctx)
}

// Refresh forces re-acquisition, e.g. after an expiry signal was
// detected, and persists the result. Callers must refresh at most once
// per failed request and retry exactly once, per spec §4.1.
func (s *SessionStore) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *SessionStore) refreshLocked(ctx context.Context) (string, error) {
	v, err := s.acquireFn(ctx)
	if err != nil {
		return "", err
	}
	s.value = v
	if s.persistFn != nil {
		_ = s.persistFn(v)
	}
	return v, nil
}
