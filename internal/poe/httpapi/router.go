// Package httpapi exposes a small read-only HTTP surface next to the
// MCP stdio server, mainly for dashboards and liveness probes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/exilecraft/poe-crafting-server/internal/poe/engine"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// Server holds the HTTP server dependencies
type Server struct {
	data   *engine.DataContext
	router chi.Router
}

// New creates a new API server
func New(data *engine.DataContext) *Server {
	s := &Server{
		data:   data,
		router: chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/prices", s.handleSearchPrices)
		r.Get("/prices/{name}", s.handleGetPrice)
		r.Get("/snapshots", s.handleGetSnapshots)
	})

	s.router.Get("/health", s.handleHealth)
}

// handleHealth reports liveness and the active snapshot.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"snapshot": s.data.Info(),
	})
}

// handleSearchPrices fuzzy-searches priced items.
func (s *Server) handleSearchPrices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	items, err := s.data.SearchItems(query, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"total_count": len(items),
	})
}

// handleGetPrice prices a single item by exact name, falling back to the
// best fuzzy match.
func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, err := s.data.PriceCheck(name, 1, false)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleGetSnapshots lists stored snapshots and the active one.
func (s *Server) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.data.ListSnapshots()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"active":    s.data.Info(),
		"snapshots": summaries,
	})
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps the typed domain errors onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	if poe.NotFound(err) {
		message := err.Error()
		if hint := poe.HintOf(err); hint != "" {
			message += " " + hint
		}
		respondError(w, http.StatusNotFound, message)
		return
	}

	var ve *poe.ValidationError
	if errors.As(err, &ve) {
		respondError(w, http.StatusBadRequest, ve.Message)
		return
	}

	respondError(w, http.StatusInternalServerError, err.Error())
}
