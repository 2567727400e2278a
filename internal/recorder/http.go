package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultListLimit = 20

// HTTP is the read-side query surface: recent sessions with their full nested
// lap/sector history, a single session by id, a live event websocket and the
// metrics endpoint. It never writes to the store.
type HTTP struct {
	server *http.Server
	logger Logger

	port  uint16
	store SessionStore
	hub   *LiveHub
}

func NewHTTP(port uint16, store SessionStore, hub *LiveHub, logger Logger) *HTTP {
	return &HTTP{
		port:   port,
		store:  store,
		hub:    hub,
		logger: logger,
	}
}

func (h *HTTP) Listen() error {
	h.logger.Infof("HTTP server listening on port: %d", h.port)

	h.server = &http.Server{
		Handler: h.Router(),
		Addr:    fmt.Sprintf(":%d", h.port),
	}

	go func() {
		err := h.server.ListenAndServe()

		if err == http.ErrServerClosed {
			return
		} else if err != nil {
			h.logger.WithError(err).Errorf("Could not start HTTP server")
		}
	}()

	return nil
}

func (h *HTTP) Close() error {
	if h.server == nil {
		return nil
	}

	return h.server.Shutdown(context.Background())
}

func (h *HTTP) Router() http.Handler {
	router := chi.NewRouter()
	router.Get("/sessions", h.ListSessions)
	router.Get("/sessions/{id}", h.GetSession)
	router.Get("/live", h.hub.Serve)
	router.Mount("/metrics", promhttp.Handler())
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.logger.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

func (h *HTTP) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit

	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)

		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}

		limit = parsed
	}

	sessions, err := h.store.ListRecentSessions(r.Context(), limit)

	if err != nil {
		h.logger.WithError(err).Errorf("Could not list recent sessions")
		http.Error(w, "could not list sessions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, sessions)
}

func (h *HTTP) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(r.Context(), chi.URLParam(r, "id"))

	if err != nil {
		http.NotFound(w, r)
		return
	}

	h.writeJSON(w, session)
}

func (h *HTTP) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Errorf("Could not encode response")
	}
}
