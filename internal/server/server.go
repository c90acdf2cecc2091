// Package server exposes the combiner over a small JSON/PNG HTTP API.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiesman99/squarestitch/internal/combiner"
	"github.com/kiesman99/squarestitch/pkg/geo"
)

// Server handles the combine API endpoints.
type Server struct {
	tilesDir  string
	version   string
	startTime time.Time
	logger    *log.Logger
}

// NewServer creates a server reading tiles from tilesDir.
func NewServer(tilesDir, version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		tilesDir:  tilesDir,
		version:   version,
		startTime: time.Now(),
		logger:    logger,
	}
}

// Router builds the chi router with all API routes mounted under /api/v1.
func (s *Server) Router(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))

	// CORS middleware for API access
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.GetHealth)
		r.Get("/worlds", s.GetWorlds)
		r.Post("/combine", s.CreateCombinedImage)
	})

	// Legacy health endpoint without the /api/v1 prefix
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}

// HealthResponse is the body of the health check endpoint.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
	Version   string    `json:"version"`
}

// WorldsResponse lists the world directories available for combining.
type WorldsResponse struct {
	Worlds []string `json:"worlds"`
}

// CombineRequest is the body of the combine endpoint.
type CombineRequest struct {
	World string `json:"world"`
	Zoom  int    `json:"zoom"`

	// Area restricts the render to [x1, y1, x2, y2] in world block
	// coordinates.
	Area *[4]int `json:"area,omitempty"`

	// Crop is "auto" or "WIDTHxHEIGHT".
	Crop string `json:"crop,omitempty"`

	// GridStep enables the coordinate grid overlay at the given block
	// interval.
	GridStep int `json:"grid_step,omitempty"`

	// Style is a style document; omitted fields keep their defaults.
	Style   json.RawMessage `json:"style,omitempty"`
	TileExt string          `json:"tile_ext,omitempty"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// GetHealth implements the health check endpoint.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Version:   s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("encoding health response", "err", err)
	}
}

// GetWorlds lists the worlds found under the tiles directory.
func (s *Server) GetWorlds(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	c, err := combiner.New(s.tilesDir, combiner.Config{Logger: s.logger})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "TILES_DIR_ERROR", err.Error(), requestID)
		return
	}
	worlds, err := c.Worlds()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "TILES_DIR_ERROR", err.Error(), requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(WorldsResponse{Worlds: worlds}); err != nil {
		s.logger.Error("encoding worlds response", "err", err)
	}
}

// CreateCombinedImage implements the main combine endpoint, returning the
// stitched map as a PNG.
func (s *Server) CreateCombinedImage(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	var body CombineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON in request body", requestID)
		return
	}
	if body.World == "" {
		s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "world is required", requestID)
		return
	}

	cfg := combiner.Config{
		GridStep: body.GridStep,
		Logger:   s.logger,
	}
	if len(body.Style) > 0 {
		style, err := combiner.LoadStyle(string(body.Style))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), requestID)
			return
		}
		cfg.Style = style
	}
	c, err := combiner.New(s.tilesDir, cfg)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "TILES_DIR_ERROR", err.Error(), requestID)
		return
	}

	req := combiner.Request{
		World:   body.World,
		Zoom:    body.Zoom,
		TileExt: body.TileExt,
	}
	if body.Area != nil {
		a := body.Area
		req.Area = &geo.Rect{X1: a[0], Y1: a[1], X2: a[2], Y2: a[3]}
	}
	if body.Crop != "" {
		crop, err := combiner.ParseCrop(body.Crop)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), requestID)
			return
		}
		req.Crop = &crop
	}

	m, err := c.Combine(r.Context(), req)
	if err != nil {
		s.handleCombineError(w, err, requestID)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, m.Image); err != nil {
		s.writeError(w, http.StatusInternalServerError, "ENCODING_ERROR",
			fmt.Sprintf("encoding image: %v", err), requestID)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-World-Zero", fmt.Sprintf("%d,%d", m.WorldZero.X, m.WorldZero.Y))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error("writing image response", "err", err)
	}
}

// handleCombineError maps combiner errors onto HTTP status codes.
func (s *Server) handleCombineError(w http.ResponseWriter, err error, requestID string) {
	var cfgErr *combiner.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", cfgErr.Error(), requestID)
	case errors.Is(err, combiner.ErrNoTiles):
		s.writeError(w, http.StatusNotFound, "NO_TILES", err.Error(), requestID)
	case errors.Is(err, combiner.ErrCancelled):
		s.writeError(w, http.StatusRequestTimeout, "CANCELLED", err.Error(), requestID)
	default:
		s.logger.Error("combine failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", requestID)
	}
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, errorCode, message, requestID string) {
	response := ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("encoding error response", "err", err)
	}
}
