package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

type commentInfo struct {
	CID string `json:"cid"`
	P   string `json:"p"`
	M   string `json:"m"`
}

// HandleComment implements `GET /comment/{episode_id}` -> {count, comments}.
func (h *Handler) HandleComment(c *gin.Context) {
	episodeID, err := strconv.ParseInt(c.Param("episode_id"), 10, 64)
	if err != nil {
		fail(c, 400, "invalid episode id")
		return
	}

	comments, err := h.svc.DB.CommentsForEpisode(episodeID)
	if err != nil {
		fail(c, 500, err.Error())
		return
	}

	out := make([]commentInfo, 0, len(comments))
	for _, cm := range comments {
		out = append(out, commentInfo{CID: cm.CID, P: cm.P, M: cm.M})
	}

	c.JSON(200, gin.H{
		"count":    len(out),
		"comments": out,
	})
}
