package api

import (
	"github.com/gin-gonic/gin"

	"github.com/danmaku-hub/aggregator/internal/api/handlers"
)

// SetupRoutes mirrors the teacher's SetupRoutes(router, service) shape:
// CORS first, then every compat endpoint mounted three times per spec
// §6 — unguarded at the root and under /api/v2 (player-compatibility
// aliases), and token-gated under /api/{token} for direct API use. See
// DESIGN.md for why root and /api/v2 stay ungated.
func SetupRoutes(router *gin.Engine, svc *Service) {
	router.Use(cors())

	h := handlers.New(svc)

	mount := func(group gin.IRoutes) {
		group.GET("/search/episodes", h.HandleSearchEpisodes)
		group.GET("/search/anime", h.HandleSearchAnime)
		group.POST("/match", h.HandleMatch)
		group.POST("/match/batch", h.HandleMatchBatch)
		group.GET("/bangumi/:id", h.HandleBangumi)
		group.GET("/comment/:episode_id", h.HandleComment)
	}

	mount(router.Group("/"))
	mount(router.Group("/api/v2"))

	tokenGroup := router.Group("/api/:token", TokenGate(svc.DB))
	mount(tokenGroup)

	router.POST("/webhook/:type", h.HandleWebhook)
}
