// Package api implements the compatibility playback API and webhook
// ingress of spec §6: dandanplay-style search/match/bangumi/comment
// endpoints, duplicated at "/" and "/api/v2/", plus a token-gated
// "/api/{token}/" mount, grounded on the teacher's gin-based
// SetupRoutes/APIHandler layering in routes.go/api_handler.go.
package api

import (
	"github.com/danmaku-hub/aggregator/internal/matcher"
	"github.com/danmaku-hub/aggregator/internal/storage"
	"github.com/danmaku-hub/aggregator/internal/taskqueue"
)

// Service aggregates everything the compatibility API handlers need,
// mirroring the teacher's APIService as the one object routes.go wires
// into every handler.
type Service struct {
	DB      *storage.DB
	Matcher *matcher.Dispatcher
	Tasks   *taskqueue.Engine
}

func NewService(db *storage.DB, m *matcher.Dispatcher, tasks *taskqueue.Engine) *Service {
	return &Service{DB: db, Matcher: m, Tasks: tasks}
}
