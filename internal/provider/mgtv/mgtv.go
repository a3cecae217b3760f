// Package mgtv implements the MGTV provider adapter: a two-strategy CDN
// comment fetch with fallback (spec §4.1.5).
package mgtv

import (
	"time"

	"github.com/danmaku-hub/aggregator/internal/httpx"
	"github.com/danmaku-hub/aggregator/internal/provider"
)

const (
	searchURL       = "https://mobileso.bz.mgtv.com/pc/search"
	videoInfoURL    = "https://pcweb.api.mgtv.com/video/info"
	getCtlBarrageURL = "https://galaxy.bz.mgtv.com/getctlbarrage"
	opBarrageURL    = "https://galaxy.bz.mgtv.com/opbarrage"
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

func (a *Adapter) Name() string { return "mgtv" }

func (a *Adapter) Close() error { return nil }

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
