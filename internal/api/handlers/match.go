package handlers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xrash/smetrics"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

const maxBatchMatchItems = 32

type matchRequest struct {
	FileName string `json:"fileName"`
}

type matchItem struct {
	EpisodeID       int64  `json:"episodeId"`
	AnimeID         int64  `json:"animeId"`
	AnimeTitle      string `json:"animeTitle"`
	EpisodeTitle    string `json:"episodeTitle"`
	Type            string `json:"type"`
	TypeDescription string `json:"typeDescription"`
}

type matchResponse struct {
	IsMatched bool        `json:"isMatched"`
	Matches   []matchItem `json:"matches,omitempty"`
}

// HandleMatch implements `POST /match` (spec §6 step 2): parse the
// filename through the regex cascade, find candidate episodes, and
// report a single match only when every candidate resolves to the same
// Work.
func (h *Handler) HandleMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, 400, "invalid request body")
		return
	}

	resp, err := h.matchFileName(req.FileName)
	if err != nil {
		fail(c, 500, err.Error())
		return
	}
	jsonOK(c, gin.H{"isMatched": resp.IsMatched, "matches": resp.Matches})
}

// HandleMatchBatch implements `POST /match/batch` (≤32 items).
func (h *Handler) HandleMatchBatch(c *gin.Context) {
	var req []matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, 400, "invalid request body")
		return
	}
	if len(req) > maxBatchMatchItems {
		fail(c, 400, "batch size exceeds the maximum of 32")
		return
	}

	responses := make([]matchResponse, 0, len(req))
	for _, item := range req {
		resp, err := h.matchFileName(item.FileName)
		if err != nil {
			resp = matchResponse{IsMatched: false}
		}
		responses = append(responses, resp)
	}
	jsonOK(c, gin.H{"results": responses})
}

var (
	bracketGroupDashPattern = regexp.MustCompile(`^\[([^\]]+)\]\s*(.+?)\s*-\s*(\d+)`)
	titleDashPattern        = regexp.MustCompile(`^(.+?)\s*-\s*(\d+)`)
	bracketGroupNumPattern  = regexp.MustCompile(`^\[([^\]]+)\]\s*(.+?)\s+(\d+)`)
	titleNumPattern         = regexp.MustCompile(`^(.+?)\s+(\d+)`)

	bracketTagPattern    = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	fileExtensionPattern = regexp.MustCompile(`\.\w{2,4}$`)
)

// parseFileName implements spec §6 step 2's regex cascade: `[group]
// title - NN`, `title - NN`, `[group] title NN`, `title NN`; falling
// back to treating the whole (cleaned) name as a movie's episode 1.
func parseFileName(fileName string) (title string, episode int, isMovie bool) {
	name := fileExtensionPattern.ReplaceAllString(fileName, "")

	for _, pattern := range []*regexp.Regexp{bracketGroupDashPattern, titleDashPattern, bracketGroupNumPattern, titleNumPattern} {
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		ep, err := strconv.Atoi(m[len(m)-1])
		if err != nil {
			continue
		}
		rawTitle := m[len(m)-2]
		return cleanMatchTitle(rawTitle), ep, false
	}

	return cleanMatchTitle(bracketTagPattern.ReplaceAllString(name, "")), 1, true
}

func cleanMatchTitle(title string) string {
	title = bracketTagPattern.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func (h *Handler) matchFileName(fileName string) (matchResponse, error) {
	title, episode, isMovie := parseFileName(fileName)
	if title == "" {
		return matchResponse{IsMatched: false}, nil
	}

	works, err := h.svc.DB.SearchWorksByTitle(title)
	if err != nil {
		return matchResponse{}, err
	}

	var candidates []matchItem
	var workIDs = make(map[int64]bool)

	for _, work := range works {
		if isMovie != (work.Kind == domain.MediaKindMovie) {
			continue
		}
		if smetrics.JaroWinkler(title, work.Title, 0.7, 4) < 0.6 {
			continue
		}

		episodes, err := h.episodesForWorkIndex(work.ID, episode)
		if err != nil {
			continue
		}
		for _, ep := range episodes {
			candidates = append(candidates, matchItem{
				EpisodeID:       ep.EpisodeID,
				AnimeID:         work.ID,
				AnimeTitle:      work.Title,
				EpisodeTitle:    ep.EpisodeTitle,
				Type:            toDandanType(work.Kind),
				TypeDescription: episodeTypeDescription[string(work.Kind)],
			})
			workIDs[work.ID] = true
		}
	}

	if len(candidates) == 0 {
		return matchResponse{IsMatched: false}, nil
	}
	if len(workIDs) == 1 {
		return matchResponse{IsMatched: true, Matches: candidates[:1]}, nil
	}
	return matchResponse{IsMatched: false, Matches: candidates}, nil
}

// episodesForWorkIndex returns the single episode at 1-based index
// from the Work's favorited/first Source, if any.
func (h *Handler) episodesForWorkIndex(workID int64, index int) ([]episodeInfo, error) {
	all, err := h.episodesForWork(workID)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(all) {
		return nil, domain.ErrNotFound
	}
	return all[index-1 : index], nil
}
