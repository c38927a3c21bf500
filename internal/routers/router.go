package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"codesync/internal/api"
	"codesync/internal/coordinator"
	"codesync/internal/metrics"
	"codesync/internal/utils"
)

// New builds the full HTTP surface. allowedOrigins drives both the CORS
// policy and the websocket upgrader's origin check; empty allows everything.
func New(log *utils.Logger, coord *coordinator.Coordinator, allowedOrigins []string) http.Handler {
	h := api.NewHandlers(log, coord, allowedOrigins)

	corsOrigins := allowedOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))
	r.Use(metrics.Middleware)

	r.Get("/api/v1/healthz", h.Health)
	r.Get("/api/v1/status", h.Status)
	r.Get("/api/v1/rooms/{roomId}", h.GetRoomStatus)
	r.Get("/api/v1/webrtc/config", h.GetWebRTCConfig)

	r.Get("/ws", h.CollabWS)

	r.Handle("/metrics", metrics.Handler())

	return r
}
