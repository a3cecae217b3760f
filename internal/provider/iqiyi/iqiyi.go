// Package iqiyi implements the iQiyi provider adapter: mobile-HTML
// scraped base info and zlib-compressed XML comment segments (spec
// §4.1.3).
package iqiyi

import (
	"time"

	"github.com/danmaku-hub/aggregator/internal/httpx"
	"github.com/danmaku-hub/aggregator/internal/provider"
)

const (
	searchURL     = "https://search.video.iqiyi.com/o"
	mobilePageURL = "https://m.iqiyi.com"
	commentBaseURL = "http://cmts.iqiyi.com/bullet"
)

type Adapter struct {
	client  *httpx.Client
	limiter *provider.RateLimiter
}

func New() *Adapter {
	return &Adapter{
		client:  httpx.NewClient(httpx.DefaultAdapterTimeout),
		limiter: provider.NewRateLimiter(500 * time.Millisecond),
	}
}

func (a *Adapter) Name() string { return "iqiyi" }

func (a *Adapter) Close() error { return nil }

const browserUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
