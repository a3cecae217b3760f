// Package gamer implements the Bahamut Anime Gamer provider adapter:
// login-wall cookie refresh and simplified/traditional Chinese title
// conversion (spec §4.1.6).
package gamer

import (
	"context"
	"net/http"
	"time"

	"github.com/danmaku-hub/aggregator/internal/httpx"
	"github.com/danmaku-hub/aggregator/internal/provider"
	"github.com/danmaku-hub/aggregator/pkg/logger"
)

const (
	searchURL     = "https://ani.gamer.com.tw/search.php"
	videoPageURL  = "https://ani.gamer.com.tw/animeVideo.php"
	tokenURL      = "https://ani.gamer.com.tw/ajax/token.php"
	danmakuAPIURL = "https://ani.gamer.com.tw/ajax/danmuGet.php"

	loginWallSentinel = "登入"
)

// CookieStore is the minimal config-KV surface this adapter needs,
// satisfied by pkg/configkv.Store. Declared locally so this package
// doesn't depend on the storage/config stack directly (same decoupling
// rationale as internal/cache.Logger).
type CookieStore interface {
	ProviderCookie(provider, fallback string) string
	SetProviderCookie(provider, cookie string) error
}

type Adapter struct {
	client  *httpx.Client
	limiter *provider.RateLimiter
	kv      CookieStore
}

func New(kv CookieStore) *Adapter {
	return &Adapter{
		client:  httpx.NewClient(httpx.DefaultAdapterTimeout),
		limiter: provider.NewRateLimiter(500 * time.Millisecond),
		kv:      kv,
	}
}

func (a *Adapter) Name() string { return "gamer" }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) cookie() string {
	return a.kv.ProviderCookie(a.Name(), "")
}

// refreshCookie hits /ajax/token.php for a fresh session cookie and
// persists it to the config KV (spec §4.1.6).
func (a *Adapter) refreshCookie(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)
	if c := a.cookie(); c != "" {
		req.Header.Set("Cookie", c)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var cookie string
	for _, c := range resp.Cookies() {
		cookie += c.Name + "=" + c.Value + "; "
	}
	if cookie == "" {
		return "", errNoRefreshedCookie
	}

	if err := a.kv.SetProviderCookie(a.Name(), cookie); err != nil {
		logger.Warnf("gamer: persist refreshed cookie: %v", err)
	}
	return cookie, nil
}

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
