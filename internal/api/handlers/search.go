package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

type episodeInfo struct {
	EpisodeID    int64  `json:"episodeId"`
	EpisodeTitle string `json:"episodeTitle"`
}

type animeInfo struct {
	AnimeID         int64         `json:"animeId"`
	BangumiID       string        `json:"bangumiId"`
	AnimeTitle      string        `json:"animeTitle"`
	Type            string        `json:"type"`
	TypeDescription string        `json:"typeDescription"`
	ImageURL        string        `json:"imageUrl"`
	StartDate       string        `json:"startDate"`
	EpisodeCount    int           `json:"episodeCount"`
	Episodes        []episodeInfo `json:"episodes,omitempty"`
}

// HandleSearchEpisodes implements `GET /search/episodes?anime=<title>&episode=<n?>`.
func (h *Handler) HandleSearchEpisodes(c *gin.Context) {
	title := firstNonEmpty(c.Query("anime"), c.Query("keyword"))
	if title == "" {
		fail(c, 422, "anime title is required")
		return
	}
	h.search(c, title, true)
}

// HandleSearchAnime implements `GET /search/anime?(keyword|anime)=…`.
func (h *Handler) HandleSearchAnime(c *gin.Context) {
	title := firstNonEmpty(c.Query("keyword"), c.Query("anime"))
	if title == "" {
		fail(c, 422, "keyword is required")
		return
	}
	h.search(c, title, false)
}

func (h *Handler) search(c *gin.Context, title string, withEpisodes bool) {
	works, err := h.svc.DB.SearchWorksByTitle(title)
	if err != nil {
		fail(c, 500, err.Error())
		return
	}

	animes := make([]animeInfo, 0, len(works))
	for _, work := range works {
		info, err := h.buildAnimeInfo(work, withEpisodes)
		if err != nil {
			continue
		}
		animes = append(animes, info)
	}

	jsonOK(c, gin.H{
		"hasMore": false,
		"animes":  animes,
	})
}

func (h *Handler) buildAnimeInfo(work domain.Work, withEpisodes bool) (animeInfo, error) {
	meta, err := h.svc.DB.GetWorkMetadata(work.ID)
	bangumiID := ""
	if err == nil {
		bangumiID = meta.BangumiID
	}

	info := animeInfo{
		AnimeID:         work.ID,
		BangumiID:       bangumiID,
		AnimeTitle:      work.Title,
		Type:            toDandanType(work.Kind),
		TypeDescription: episodeTypeDescription[string(work.Kind)],
		ImageURL:        work.PosterURL,
		StartDate:       work.CreatedAt.Format("2006-01-02"),
	}

	episodes, err := h.episodesForWork(work.ID)
	if err != nil {
		return info, nil // a Work with no importable source still lists, with zero episodes
	}
	info.EpisodeCount = len(episodes)
	if withEpisodes {
		info.Episodes = episodes
	}
	return info, nil
}

// episodesForWork returns the episode list from the Work's favorited
// Source, falling back to its first Source if none is favorited.
func (h *Handler) episodesForWork(workID int64) ([]episodeInfo, error) {
	sources, err := h.svc.DB.SourcesForWork(workID)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, domain.ErrNotFound
	}

	chosen := sources[0]
	for _, s := range sources {
		if s.Favorited {
			chosen = s
			break
		}
	}

	episodes, err := h.svc.DB.EpisodesForSource(chosen.ID)
	if err != nil {
		return nil, err
	}

	out := make([]episodeInfo, 0, len(episodes))
	for _, ep := range episodes {
		title := ep.Title
		if title == "" {
			title = "第" + strconv.Itoa(ep.Index) + "话"
		}
		out = append(out, episodeInfo{EpisodeID: ep.ID, EpisodeTitle: title})
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
