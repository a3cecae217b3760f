package gamer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
)

var errNoRefreshedCookie = errors.New("gamer: token.php response set no cookie")

// fetchVideoEndpoint issues a GET to a video-facing endpoint, retrying
// exactly once through a cookie refresh if the login-wall sentinel is
// present in an otherwise-200 response (spec §4.1.6). A failed refresh
// (including one that sets no new cookie) is returned as an error.
func (a *Adapter) fetchVideoEndpoint(ctx context.Context, url string) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := a.doGet(ctx, url)
	if err != nil {
		return nil, err
	}
	if !bytes.Contains(body, []byte(loginWallSentinel)) {
		return body, nil
	}

	if _, err := a.refreshCookie(ctx); err != nil {
		return nil, err // refresh failed: fatal session error for this request
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return a.doGet(ctx, url)
}

func (a *Adapter) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	if c := a.cookie(); c != "" {
		req.Header.Set("Cookie", c)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
