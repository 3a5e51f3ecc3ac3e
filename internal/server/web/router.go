package web

import (
	"net/http"

	"github.com/dmitrijs2005/userdir/internal/server/routes"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts table on a chi router with the standard middleware
// stack. It fails when an action in table has no handler.
func NewRouter(table routes.Table, h *Handler) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(methodOverride)

	if err := table.Mount(r, h.Actions()); err != nil {
		return nil, err
	}
	r.NotFound(h.notFound)
	return r, nil
}
