package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/resistance-backend/internal/hub"
	"github.com/DoyleJ11/resistance-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Options struct {
	ClientBuffer int
	Logger       *zap.Logger
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/options", ListOptions)
	r.Route("/matches", func(r chi.Router) {
		r.Post("/", CreateMatch(h, log.Named("http")))
		r.Get("/{code}", GetMatch(h))
		r.Delete("/{code}", DeleteMatch(h))
	})
	r.Get("/ws", ws.Handler(h, ws.Options{ClientBuffer: opts.ClientBuffer, Logger: log.Named("ws")}))
	return r
}
