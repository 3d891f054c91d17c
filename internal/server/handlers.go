package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/piper-ml/piper/internal/mood"
	"github.com/piper-ml/piper/internal/shared"
	"github.com/piper-ml/piper/internal/tasks"
)

// Version is the service version reported by the root endpoint.
const Version = "0.1.0"

// App holds the dependencies for the service's HTTP handlers: the pipeline
// engine (with its classifier loaded at startup) and the configuration the
// export path comes from.
type App struct {
	engine *tasks.MoodEngine
	config *shared.Config
	logger *log.Logger
}

// NewApp creates the handler set for a loaded engine.
func NewApp(engine *tasks.MoodEngine, config *shared.Config, logger *log.Logger) *App {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &App{engine: engine, config: config, logger: logger}
}

// NewRouter assembles the service router: request logging middleware plus
// the three inbound operations and the root banner.
func (a *App) NewRouter() *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestLogger(a.logger))
	router.Handle(http.MethodPost, "/recommendations", http.HandlerFunc(a.Recommendations))
	router.Handle(http.MethodPost, "/export/top-tracks-features", http.HandlerFunc(a.ExportTopTracks))
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(a.Health))
	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.Root))
	return router
}

// RecommendationsRequest is the inbound payload for mood recommendations.
type RecommendationsRequest struct {
	Mood        string `json:"mood"`
	AccessToken string `json:"access_token"`
	Limit       int    `json:"limit"`
}

// RecommendationsResponse carries the ordered playlist of track ids.
type RecommendationsResponse struct {
	TrackIDs []string `json:"trackIds"`
}

// ExportRequest is the inbound payload for feature exports.
type ExportRequest struct {
	AccessToken string `json:"access_token"`
	Limit       int    `json:"limit"`
	TimeRange   string `json:"time_range"`
}

// Recommendations handles POST /recommendations.
func (a *App) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, fmt.Errorf("%w: malformed JSON body", shared.ErrInvalidInput))
		return
	}

	m, err := mood.ParseMood(req.Mood)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if req.AccessToken == "" {
		a.writeError(w, fmt.Errorf("%w: access_token", shared.ErrMissingArgument))
		return
	}
	if req.Limit == 0 {
		req.Limit = 20
	}
	if req.Limit < 1 || req.Limit > 50 {
		a.writeError(w, fmt.Errorf("%w: limit must be between 1 and 50", shared.ErrInvalidInput))
		return
	}

	trackIDs, err := a.engine.Recommend(r.Context(), req.AccessToken, m, req.Limit)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, RecommendationsResponse{TrackIDs: trackIDs})
}

// ExportTopTracks handles POST /export/top-tracks-features.
func (a *App) ExportTopTracks(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, fmt.Errorf("%w: malformed JSON body", shared.ErrInvalidInput))
		return
	}

	if req.AccessToken == "" {
		a.writeError(w, fmt.Errorf("%w: access_token", shared.ErrMissingArgument))
		return
	}
	if req.Limit == 0 {
		req.Limit = 50
	}
	if req.Limit < 1 || req.Limit > 50 {
		a.writeError(w, fmt.Errorf("%w: limit must be between 1 and 50", shared.ErrInvalidInput))
		return
	}
	switch req.TimeRange {
	case "":
		req.TimeRange = "medium_term"
	case "short_term", "medium_term", "long_term":
	default:
		a.writeError(w, fmt.Errorf("%w: unknown time_range %q", shared.ErrInvalidInput, req.TimeRange))
		return
	}

	result, err := a.engine.Export(r.Context(), req.AccessToken, tasks.ExportOpts{
		Limit:     req.Limit,
		TimeRange: req.TimeRange,
		Path:      a.config.Export.CSVPath,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, result)
}

// Health handles GET /health. The process refuses to start without the
// classifier artifacts, so a reachable server implies a loaded model.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Root handles GET / with a service banner.
func (a *App) Root(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{
		"message": "piper mood service",
		"version": Version,
	})
}

func (a *App) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps a pipeline error to its outward status and a FastAPI-style
// detail payload.
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := shared.StatusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "status", status, "error", err)
	} else {
		a.logger.Warn("request rejected", "status", status, "error", err)
	}
	a.writeJSON(w, status, map[string]string{"detail": err.Error()})
}
