// Package tencent implements the Tencent Video provider adapter:
// page-context-paginated episode discovery and indexed barrage segment
// retrieval (spec §4.1.2).
package tencent

import (
	"time"

	"github.com/danmaku-hub/aggregator/internal/httpx"
	"github.com/danmaku-hub/aggregator/internal/provider"
)

const (
	pageServerURL   = "https://pbaccess.video.qq.com/trpc.universal_backend_service.page_server_rpc.PageServer/GetPageData"
	barrageBaseURL  = "https://dm.video.qq.com/barrage/base"
	barrageSegURL   = "https://dm.video.qq.com/barrage/segment"
	defaultPageSize = 30
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

func (a *Adapter) Name() string { return "tencent" }

func (a *Adapter) Close() error { return nil }

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
