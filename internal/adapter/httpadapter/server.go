package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/address-geocoder/internal/domain"
)

// maxBatchAddresses caps POST /v1/geocode/batch.
const maxBatchAddresses = 100

// GeocodingService is the subset of geocoding.Service the API exposes.
type GeocodingService interface {
	Resolve(ctx context.Context, address string) (domain.Coordinate, bool)
	ResolveMany(ctx context.Context, addresses []string) []domain.Resolution
	Suggest(ctx context.Context, query string, limit int) []domain.Suggestion
	ClearCache(ctx context.Context)
}

// Server exposes the geocoding API plus health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	geocoder   GeocodingService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /v1 geocoding routes and the
// /healthz, /readyz and /metrics routes.
func NewServer(addr string, geocoder GeocodingService, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		geocoder: geocoder,
		logger:   logger,
	}

	mux.HandleFunc("GET /v1/geocode", s.handleGeocode)
	mux.HandleFunc("POST /v1/geocode/batch", s.handleGeocodeBatch)
	mux.HandleFunc("GET /v1/suggest", s.handleSuggest)
	mux.HandleFunc("DELETE /v1/cache", s.handleClearCache)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if strings.TrimSpace(address) == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	res := domain.Resolution{Address: address}
	if coord, ok := s.geocoder.Resolve(r.Context(), address); ok {
		res.Coordinate = &coord
	}
	writeJSON(w, http.StatusOK, res)
}

type batchRequest struct {
	Addresses []string `json:"addresses"`
}

func (s *Server) handleGeocodeBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Addresses) > maxBatchAddresses {
		writeError(w, http.StatusBadRequest, "too many addresses (max "+strconv.Itoa(maxBatchAddresses)+")")
		return
	}

	results := s.geocoder.ResolveMany(r.Context(), body.Addresses)
	if results == nil {
		results = []domain.Resolution{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	suggestions := s.geocoder.Suggest(r.Context(), q.Get("q"), limit)
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.geocoder.ClearCache(r.Context())
	s.logger.Info("geocode cache cleared via api")
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
