package youku

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

type danmakuItem struct {
	Content string `json:"content"`
	Playat  int    `json:"playat"` // milliseconds
	Propertis struct {
		Color int `json:"color"`
		Pos   int `json:"pos"`
	} `json:"propertis"`
}

type danmakuSegmentResult struct {
	Result []danmakuItem `json:"result"`
}

// GetComments fetches floor(duration/60)+1 segments sequentially for a
// "vid,duration_seconds" episode id, each request signed per the
// two-step MD5 scheme of spec §4.1.4.
func (a *Adapter) GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	vid, durationSeconds, err := splitVidDuration(providerEpisodeID)
	if err != nil {
		return nil, err
	}

	totalSegments := durationSeconds/60 + 1

	var out []domain.NormalizedComment
	for mat := 1; mat <= totalSegments; mat++ {
		items, err := a.fetchSegment(ctx, vid, mat)
		if err != nil {
			continue // per-segment failure skipped, not fatal (spec §7)
		}
		for _, item := range items {
			out = append(out, toNormalizedComment(item))
		}
		if progress != nil {
			progress(100*mat/totalSegments, fmt.Sprintf("fetched segment %d/%d", mat, totalSegments))
		}
	}
	return out, nil
}

func splitVidDuration(providerEpisodeID string) (vid string, durationSeconds int, err error) {
	parts := strings.SplitN(providerEpisodeID, ",", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("youku: malformed episode id %q", providerEpisodeID)
	}
	durationSeconds, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, err
	}
	return parts[0], durationSeconds, nil
}

func toNormalizedComment(item danmakuItem) domain.NormalizedComment {
	seconds := float64(item.Playat) / 1000
	mode := 1
	switch item.Propertis.Pos {
	case 2:
		mode = 5
	case 3:
		mode = 4
	}
	color := item.Propertis.Color
	if color == 0 {
		color = 16777215
	}
	return domain.NormalizedComment{
		CID: fmt.Sprintf("%d_%s", item.Playat, item.Content),
		P:   fmt.Sprintf("%.3f,%d,%d,[youku]", seconds, mode, color),
		M:   item.Content,
		T:   seconds,
	}
}

func (a *Adapter) fetchSegment(ctx context.Context, vid string, mat int) ([]danmakuItem, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	session, err := a.session.Get(ctx)
	if err != nil {
		return nil, err
	}
	cna, tk := splitSession(session)

	ctime := time.Now().Unix()
	msgEnc, err := buildSignedMsg(cna, vid, mat, ctime)
	if err != nil {
		return nil, err
	}

	t := time.Now().UnixMilli()
	dataPayload := fmt.Sprintf(`{"msg":%q}`, msgEnc)
	sign := outerSignature(tk, t, danmakuAppKey, dataPayload)

	url := fmt.Sprintf("%s?appKey=%s&t=%d&sign=%s&data=%s", danmakuAPIURL, danmakuAppKey, t, sign, dataPayload)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.AddCookie(&http.Cookie{Name: "cna", Value: cna})
	req.AddCookie(&http.Cookie{Name: "_m_h5_tk", Value: tk})

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var result danmakuSegmentResult
	if err := unwrapDoubleEncodedResult(body, &result); err != nil {
		return nil, fmt.Errorf("youku: decode segment %d: %w", mat, err)
	}
	return result.Result, nil
}
