package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

// HandleBangumi implements `GET /bangumi/{id}` (spec §6): id is either
// "A<int>" (internal work id prefixed), a bare integer (internal work
// id), or an external bangumi id resolved via work_metadata.
func (h *Handler) HandleBangumi(c *gin.Context) {
	raw := c.Param("id")

	work, err := h.resolveBangumiID(raw)
	if err == domain.ErrNotFound {
		fail(c, 404, "no such work")
		return
	}
	if err != nil {
		fail(c, 400, err.Error())
		return
	}

	info, err := h.buildAnimeInfo(*work, true)
	if err != nil {
		fail(c, 500, err.Error())
		return
	}

	jsonOK(c, gin.H{"bangumi": info})
}

func (h *Handler) resolveBangumiID(raw string) (*domain.Work, error) {
	if strings.HasPrefix(raw, "A") {
		id, err := strconv.ParseInt(strings.TrimPrefix(raw, "A"), 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidMediaID
		}
		return h.svc.DB.GetWork(id)
	}

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return h.svc.DB.GetWork(id)
	}

	return h.svc.DB.GetWorkByBangumiID(raw)
}
