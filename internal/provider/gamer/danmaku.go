package gamer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

type danmakuItem struct {
	Text     string `json:"text"`
	Time     int    `json:"time"` // tenths of a second
	Color    string `json:"color"`
	Position int    `json:"position"`
	UserID   string `json:"userid"`
}

// GetComments fetches the danmaku list for an episode sn, retrying once
// through a cookie refresh if the login wall is hit (spec §4.1.6).
func (a *Adapter) GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	body, err := a.fetchVideoEndpoint(ctx, fmt.Sprintf("%s?sn=%s", danmakuAPIURL, providerEpisodeID))
	if err != nil {
		return nil, err
	}

	var items []danmakuItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("gamer: decode danmaku response: %w", err)
	}

	out := make([]domain.NormalizedComment, 0, len(items))
	for _, item := range items {
		seconds := float64(item.Time) / 10
		mode := 1
		switch item.Position {
		case 1:
			mode = 5
		case 2:
			mode = 4
		}
		color := item.Color
		if color == "" {
			color = "ffffff"
		}
		out = append(out, domain.NormalizedComment{
			CID: fmt.Sprintf("%s_%d", item.UserID, item.Time),
			P:   fmt.Sprintf("%.3f,%d,%s,[gamer]", seconds, mode, color),
			M:   traditionalToSimplified(item.Text),
			T:   seconds,
		})
	}

	if progress != nil {
		progress(100, fmt.Sprintf("fetched %d comments", len(out)))
	}
	return out, nil
}
