// Package tmdb is the TMDB metadata client used by the auto-map
// scheduled job (spec §4.5.1). It wraps internal/httpx the same way
// every provider adapter does.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/danmaku-hub/aggregator/internal/httpx"
)

const baseURL = "https://api.themoviedb.org/3"

type Client struct {
	client *httpx.Client
	apiKey string
}

func New(apiKey string) *Client {
	return &Client{
		client: httpx.NewClient(httpx.DefaultJobTimeout),
		apiKey: apiKey,
	}
}

type EpisodeGroupsResponse struct {
	Results []EpisodeGroup `json:"results"`
}

type EpisodeGroup struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GroupCount int    `json:"group_count"`
}

type EpisodeGroupDetail struct {
	ID     string               `json:"id"`
	Name   string               `json:"name"`
	Groups []EpisodeGroupSeason `json:"groups"`
}

type EpisodeGroupSeason struct {
	Name     string         `json:"name"`
	Order    int            `json:"order"`
	Episodes []GroupEpisode `json:"episodes"`
}

type GroupEpisode struct {
	ID            int `json:"id"`
	EpisodeNumber int `json:"episode_number"`
	SeasonNumber  int `json:"season_number"`
	Order         int `json:"order"`
}

type TVDetail struct {
	ID                int               `json:"id"`
	Name              string            `json:"name"`
	AlternativeTitles AlternativeTitles `json:"alternative_titles"`
}

type AlternativeTitles struct {
	Results []AlternativeTitle `json:"results"`
}

type AlternativeTitle struct {
	ISO3166_1 string `json:"iso_3166_1"`
	Title     string `json:"title"`
	Type      string `json:"type"`
}

func (c *Client) get(ctx context.Context, path string, query string, out interface{}) error {
	url := fmt.Sprintf("%s%s?api_key=%s", baseURL, path, c.apiKey)
	if query != "" {
		url += "&" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("tmdb: read response %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb: decode %s: %w", path, err)
	}
	return nil
}

// EpisodeGroups fetches the episode-group list for tmdbID.
func (c *Client) EpisodeGroups(ctx context.Context, tmdbID string) ([]EpisodeGroup, error) {
	var out EpisodeGroupsResponse
	if err := c.get(ctx, fmt.Sprintf("/tv/%s/episode_groups", tmdbID), "", &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// EpisodeGroupDetail fetches the ordered custom seasons for groupID.
func (c *Client) EpisodeGroupDetail(ctx context.Context, groupID string) (*EpisodeGroupDetail, error) {
	var out EpisodeGroupDetail
	if err := c.get(ctx, fmt.Sprintf("/tv/episode_group/%s", groupID), "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TVDetailWithAlternativeTitles fetches the show's alternative_titles.
func (c *Client) TVDetailWithAlternativeTitles(ctx context.Context, tmdbID string) (*TVDetail, error) {
	var out TVDetail
	if err := c.get(ctx, fmt.Sprintf("/tv/%s", tmdbID), "append_to_response=alternative_titles", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
