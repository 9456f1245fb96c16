// Package httptransport is the thin HTTP layer: handlers decode requests,
// delegate to domain services, and encode responses. No business logic lives
// here.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Registrar is one endpoint group wiring itself onto the router.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter assembles the public surface from the endpoint groups.
func NewRouter(log zerolog.Logger, groups ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, g := range groups {
		g.Register(r)
	}
	return r
}
