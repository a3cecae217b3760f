// Package youku implements the Youku provider adapter: two-step MD5
// danmaku signing, cna/_m_h5_tk session cookies, and JSONP response
// unwrapping (spec §4.1.4).
package youku

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danmaku-hub/aggregator/internal/httpx"
	"github.com/danmaku-hub/aggregator/internal/provider"
)

const (
	searchURL      = "https://search.youku.com/api/search/video"
	mmstatURL      = "https://log.mmstat.com/eg.js"
	warmupURL      = "https://acs.youku.com/h5/mtop.youku.play.ups.appinfo.get/1.0/"
	danmakuAPIURL  = "https://acs.youku.com/h5/mopen.youku.danmu.list/1.0/"
	danmakuAppKey  = "24679788"
	danmakuSignKey = "MkmC9SoIw6xCkSKHhJ7b5D2r51kBiREr"
)

type Adapter struct {
	client  *httpx.Client
	limiter *provider.RateLimiter

	session *provider.SessionStore
}

func New() *Adapter {
	a := &Adapter{
		client:  httpx.NewClient(httpx.DefaultAdapterTimeout),
		limiter: provider.NewRateLimiter(500 * time.Millisecond),
	}
	a.session = provider.NewSessionStore(a.acquireSession, nil)
	return a
}

func (a *Adapter) Name() string { return "youku" }

func (a *Adapter) Close() error { return nil }

// acquireSession bootstraps the cna (mmstat tracker) and _m_h5_tk
// (warm-up API call) cookies required to sign danmaku requests (spec
// §4.1.4 "Session"), serialized as "cna|tk" for the string-valued
// SessionStore.
func (a *Adapter) acquireSession(ctx context.Context) (string, error) {
	cna, err := a.fetchCNA(ctx)
	if err != nil {
		return "", err
	}
	tk, err := a.fetchToken(ctx)
	if err != nil {
		return "", err
	}
	return cna + "|" + tk, nil
}

func splitSession(session string) (cna, tk string) {
	parts := strings.SplitN(session, "|", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

func (a *Adapter) fetchCNA(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mmstatURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "cna" {
			return c.Value, nil
		}
	}
	return "", errNoCNA
}

func (a *Adapter) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, warmupURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "_m_h5_tk" {
			return c.Value, nil
		}
	}
	return "", errNoToken
}

// tkPrefix is the substring of _m_h5_tk before its first underscore,
// used as the outer-signature key material (spec §4.1.4).
func tkPrefix(tk string) string {
	if idx := strings.Index(tk, "_"); idx >= 0 {
		return tk[:idx]
	}
	return tk
}

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
