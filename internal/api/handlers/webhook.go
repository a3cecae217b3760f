package handlers

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/matcher"
)

// embyNotification mirrors the subset of Emby's webhook-plugin payload
// this ingress cares about.
type embyNotification struct {
	Event string `json:"Event"`
	Item  struct {
		Type              string            `json:"Type"`
		Name              string            `json:"Name"`
		SeriesName        string            `json:"SeriesName"`
		ParentIndexNumber int               `json:"ParentIndexNumber"`
		IndexNumber       int               `json:"IndexNumber"`
		ProviderIDs       map[string]string `json:"ProviderIds"`
	} `json:"Item"`
}

// jellyfinNotification mirrors Jellyfin's webhook-plugin payload shape,
// which flattens item fields onto the top-level object instead of
// nesting them under "Item" the way Emby does.
type jellyfinNotification struct {
	NotificationType string `json:"NotificationType"`
	ItemType         string `json:"ItemType"`
	Name             string `json:"Name"`
	SeriesName       string `json:"SeriesName"`
	SeasonNumber     int    `json:"SeasonNumber"`
	EpisodeNumber    int    `json:"EpisodeNumber"`
}

// HandleWebhook implements `POST /webhook/{type}?api_key=…` (spec §6):
// only new-item events for episodes/movies are dispatched; everything
// else is acknowledged and dropped.
func (h *Handler) HandleWebhook(c *gin.Context) {
	if err := h.svc.DB.ValidateToken(c.Query("api_key")); err != nil {
		fail(c, 403, "invalid or expired api key")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, 400, "unreadable body")
		return
	}

	var payload *matcher.WebhookPayload
	switch c.Param("type") {
	case "emby":
		payload, err = parseEmbyWebhook(body)
	case "jellyfin":
		payload, err = parseJellyfinWebhook(body)
	default:
		fail(c, 404, "unknown webhook type")
		return
	}
	if err != nil {
		fail(c, 400, err.Error())
		return
	}
	if payload == nil {
		// not a new-item event, or not an episode/movie: acknowledge and drop.
		jsonOK(c, gin.H{})
		return
	}

	taskID, err := h.svc.Matcher.Dispatch(c.Request.Context(), *payload)
	if err != nil {
		fail(c, 500, err.Error())
		return
	}
	jsonOK(c, gin.H{"taskId": taskID})
}

func parseEmbyWebhook(body []byte) (*matcher.WebhookPayload, error) {
	var n embyNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, err
	}
	if n.Event != "item.added" {
		return nil, nil
	}

	kind, ok := webhookItemKind(n.Item.Type)
	if !ok {
		return nil, nil
	}

	title := n.Item.SeriesName
	season := n.Item.ParentIndexNumber
	episode := n.Item.IndexNumber
	if kind == domain.MediaKindMovie {
		title = n.Item.Name
		season = 1
		episode = 1
	}

	return &matcher.WebhookPayload{
		Title:   title,
		Kind:    kind,
		Season:  season,
		Episode: episode,
		ExternalIDs: domain.WorkMetadata{
			TmdbID: n.Item.ProviderIDs["Tmdb"],
		},
	}, nil
}

func parseJellyfinWebhook(body []byte) (*matcher.WebhookPayload, error) {
	var n jellyfinNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, err
	}
	if n.NotificationType != "ItemAdded" {
		return nil, nil
	}

	kind, ok := webhookItemKind(n.ItemType)
	if !ok {
		return nil, nil
	}

	title := n.SeriesName
	season := n.SeasonNumber
	episode := n.EpisodeNumber
	if kind == domain.MediaKindMovie {
		title = n.Name
		season = 1
		episode = 1
	}

	return &matcher.WebhookPayload{
		Title:   title,
		Kind:    kind,
		Season:  season,
		Episode: episode,
	}, nil
}

func webhookItemKind(itemType string) (domain.MediaKind, bool) {
	switch itemType {
	case "Episode":
		return domain.MediaKindTVSeries, true
	case "Movie":
		return domain.MediaKindMovie, true
	default:
		return "", false
	}
}
