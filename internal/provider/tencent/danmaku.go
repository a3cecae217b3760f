package tencent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

type segmentIndexEntry struct {
	SegmentName string `json:"segment_name"`
}

type barrageBaseResponse struct {
	SegmentIndex map[string]segmentIndexEntry `json:"segment_index"`
}

type barrageItem struct {
	ID            string `json:"id"`
	Content       string `json:"content"`
	TimeOffset    string `json:"time_offset"`
	ContentStyle  struct {
		Color    string `json:"color"`
		Position int    `json:"position"`
	} `json:"content_style"`
}

type barrageSegmentResponse struct {
	BarrageList []barrageItem `json:"barrage_list"`
}

// GetComments fetches the segment index for a vid, then walks segments
// in ascending key order, collecting barrage_list entries (spec §4.1.2).
func (a *Adapter) GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	vid := providerEpisodeID

	index, err := a.fetchSegmentIndex(ctx, vid)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []domain.NormalizedComment
	for i, key := range keys {
		items, err := a.fetchSegment(ctx, vid, index[key].SegmentName)
		if err != nil {
			continue // per-segment failure skipped, not fatal (spec §7)
		}
		for _, item := range items {
			out = append(out, toNormalizedComment(item))
		}
		if progress != nil {
			progress(100*(i+1)/len(keys), fmt.Sprintf("fetched segment %d/%d", i+1, len(keys)))
		}
	}
	return out, nil
}

func toNormalizedComment(item barrageItem) domain.NormalizedComment {
	mode := 1
	if item.ContentStyle.Position == 2 {
		mode = 5
	} else if item.ContentStyle.Position == 3 {
		mode = 4
	}
	color := item.ContentStyle.Color
	if color == "" {
		color = "16777215"
	}

	var seconds float64
	fmt.Sscanf(item.TimeOffset, "%f", &seconds)
	seconds /= 1000

	return domain.NormalizedComment{
		CID: item.ID,
		P:   fmt.Sprintf("%.3f,%d,%s,[tencent]", seconds, mode, color),
		M:   item.Content,
		T:   seconds,
	}
}

func (a *Adapter) fetchSegmentIndex(ctx context.Context, vid string) (map[string]segmentIndexEntry, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s", barrageBaseURL, vid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body barrageBaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("tencent: decode segment index: %w", err)
	}
	return body.SegmentIndex, nil
}

func (a *Adapter) fetchSegment(ctx context.Context, vid, segmentName string) ([]barrageItem, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/%s", barrageSegURL, vid, segmentName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var body barrageSegmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("tencent: decode segment: %w", err)
	}
	return body.BarrageList, nil
}
