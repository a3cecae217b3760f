// Package bilibili implements the Bilibili provider adapter: WBI-signed
// requests, buvid3 session bootstrap, and protobuf-encoded danmaku
// segment decoding (spec §4.1.1, the representative hard case).
package bilibili

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danmaku-hub/aggregator/internal/httpx"
	"github.com/danmaku-hub/aggregator/internal/provider"
	"github.com/danmaku-hub/aggregator/pkg/logger"
)

const (
	navURL        = "https://api.bilibili.com/x/web-interface/nav"
	homepageURL   = "https://www.bilibili.com/"
	getBuvidURL   = "https://api.bilibili.com/x/frontend/finger/spi"
	searchTypeURL = "https://api.bilibili.com/x/web-interface/wbi/search/type"
	pgcListURL    = "https://api.bilibili.com/pgc/view/web/season"
	viewURL       = "https://api.bilibili.com/x/web-interface/view"
)

type Adapter struct {
	client  *httpx.Client
	limiter *provider.RateLimiter
	wbi     *wbiKeyCache
	buvid3  string
}

func New() *Adapter {
	a := &Adapter{
		client:  httpx.NewClient(httpx.DefaultAdapterTimeout),
		limiter: provider.NewRateLimiter(500 * time.Millisecond),
	}
	a.wbi = newWBIKeyCache(a.fetchWBIKeys)
	return a
}

func (a *Adapter) Name() string { return "bilibili" }

func (a *Adapter) Close() error { return nil }

// ensureBuvid3 lazily acquires the buvid3 cookie, first via the
// browser-facing homepage and falling back to the dedicated API (spec
// §4.1.1 "Session").
func (a *Adapter) ensureBuvid3(ctx context.Context) (string, error) {
	if a.buvid3 != "" {
		return a.buvid3, nil
	}

	if cookie, err := a.buvid3FromHomepage(ctx); err == nil && cookie != "" {
		a.buvid3 = cookie
		return cookie, nil
	}

	cookie, err := a.buvid3FromAPI(ctx)
	if err != nil {
		return "", fmt.Errorf("bilibili: acquire buvid3: %w", err)
	}
	a.buvid3 = cookie
	return cookie, nil
}

func (a *Adapter) buvid3FromHomepage(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, homepageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Referer", "")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "buvid3" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("bilibili: buvid3 not set by homepage response")
}

func (a *Adapter) buvid3FromAPI(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getBuvidURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		Data struct {
			B3 string `json:"b_3"`
		} `json:"data"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return "", err
	}
	if body.Data.B3 == "" {
		return "", fmt.Errorf("bilibili: empty b_3 in getbuvid response")
	}
	return body.Data.B3, nil
}

// fetchWBIKeys retrieves img_url/sub_url from the nav endpoint and
// derives img_key/sub_key from their filenames (spec §4.1.1). A failure
// here forces a buvid3 refresh on the next session use.
func (a *Adapter) fetchWBIKeys() (imgKey, subKey string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), httpx.DefaultAdapterTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, navURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		a.buvid3 = ""
		return "", "", err
	}
	defer resp.Body.Close()

	var body struct {
		Data struct {
			WbiImg struct {
				ImgURL string `json:"img_url"`
				SubURL string `json:"sub_url"`
			} `json:"wbi_img"`
		} `json:"data"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		a.buvid3 = ""
		return "", "", err
	}

	imgKey = keyFromURL(body.Data.WbiImg.ImgURL)
	subKey = keyFromURL(body.Data.WbiImg.SubURL)
	if imgKey == "" || subKey == "" {
		a.buvid3 = ""
		return "", "", fmt.Errorf("bilibili: missing wbi img/sub key")
	}
	return imgKey, subKey, nil
}

func keyFromURL(u string) string {
	slash := -1
	dot := -1
	for i := len(u) - 1; i >= 0; i-- {
		if u[i] == '.' && dot == -1 {
			dot = i
		}
		if u[i] == '/' {
			slash = i
			break
		}
	}
	if slash == -1 || dot == -1 || dot < slash {
		return ""
	}
	return u[slash+1 : dot]
}

func (a *Adapter) signedGet(ctx context.Context, endpoint string, params map[string]string) (*http.Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	mixinKey, err := a.wbi.mixinKeyValue()
	if err != nil {
		return nil, err
	}

	query := signWBI(params, mixinKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	if buvid3, err := a.ensureBuvid3(ctx); err == nil {
		req.AddCookie(&http.Cookie{Name: "buvid3", Value: buvid3})
	} else {
		logger.Warnf("bilibili: buvid3 unavailable: %v", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusForbidden {
		a.wbi.invalidate()
	}
	return resp, nil
}

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
