// Package handlers implements the gin handler functions for the
// compatibility playback API (spec §6), grounded on the teacher's
// APIHandler struct-wraps-a-service shape in api_handler.go.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danmaku-hub/aggregator/internal/api"
	"github.com/danmaku-hub/aggregator/internal/domain"
)

type Handler struct {
	svc *api.Service
}

func New(svc *api.Service) *Handler {
	return &Handler{svc: svc}
}

// episodeTypeDescription maps a MediaKind to the human label dandanplay
// clients display next to typeDescription.
var episodeTypeDescription = map[string]string{
	"tv_series": "TV动画",
	"movie":     "剧场版",
	"ova":       "OVA",
	"other":     "其他",
}

// dandanType maps a MediaKind to the wire value dandanplay-compatible
// clients expect for "type" (spec §6; original source's dandan_api.py
// applies this same type_mapping before every response). Unknown kinds
// pass through unchanged rather than panicking on a missing map entry.
var dandanType = map[string]string{
	"tv_series": "tvseries",
	"movie":     "movie",
	"ova":       "ova",
	"other":     "other",
}

func toDandanType(kind domain.MediaKind) string {
	if t, ok := dandanType[string(kind)]; ok {
		return t
	}
	return string(kind)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success":      false,
		"errorCode":    status,
		"errorMessage": message,
	})
}

func jsonOK(c *gin.Context, body gin.H) {
	body["success"] = true
	body["errorCode"] = 0
	c.JSON(http.StatusOK, body)
}
