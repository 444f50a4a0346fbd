package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/artifact-triage/internal/application/analysis"
	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
	"github.com/bryanwahyu/artifact-triage/internal/middleware"
)

type Router struct {
	svc *appanalysis.Service
}

func NewRouter(svc *appanalysis.Service) http.Handler {
	r := &Router{svc: svc}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/analysis", r.wrap(r.handleStartAnalysis))
		rt.Get("/analysis/latest", r.wrap(r.handleLatest))
		rt.Get("/analysis/{id}", r.wrap(r.handleStatus))
		rt.Get("/analysis/{id}/errors", r.wrap(r.handleSessionErrors))
		rt.Get("/summary", r.wrap(r.handleSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, domain.ErrSessionNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrArtifactUnreadable):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

// POST /v1/{tenant}/analysis
// Body: {"artifact_path": "...", "analysis_type": "comprehensive",
//        "priority": "normal", "agents": ["file_analysis", ...],
//        "operator_id": "..."}
func (r *Router) handleStartAnalysis(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	var body struct {
		ArtifactPath string   `json:"artifact_path"`
		AnalysisType string   `json:"analysis_type"`
		Priority     string   `json:"priority"`
		Agents       []string `json:"agents"`
		OperatorID   string   `json:"operator_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}

	if err := middleware.ValidateArtifactPath(body.ArtifactPath); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	if err := middleware.ValidateAnalysisType(body.AnalysisType); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	if err := middleware.ValidatePriority(body.Priority); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	if err := middleware.ValidateAgents(body.Agents); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	// Start persists the session and launches the pipeline in the background;
	// the caller gets the initial snapshot right away and polls from there.
	view, err := r.svc.Start(req.Context(), appanalysis.StartCommand{
		TenantID:         tenant,
		OperatorID:       middleware.SanitizeString(body.OperatorID),
		ArtifactPath:     body.ArtifactPath,
		AnalysisType:     body.AnalysisType,
		Priority:         body.Priority,
		AgentPreferences: body.Agents,
	})
	if err != nil {
		return err
	}
	middleware.IncrementSessions()
	fmt.Printf("analysis started: tenant=%s session=%s artifact=%s\n",
		tenant, view.SessionID, body.ArtifactPath)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	return json.NewEncoder(w).Encode(map[string]any{
		"session_id":     view.SessionID,
		"initial_status": view,
	})
}

// GET /v1/{tenant}/analysis/{id}
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	view, err := r.svc.Status(req.Context(), tenant, domain.SessionID(id))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(view)
}

// GET /v1/{tenant}/analysis/{id}/errors?limit=20
func (r *Router) handleSessionErrors(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.svc.SessionErrors(req.Context(), tenant, domain.SessionID(id), limit)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/analysis/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.svc.Latest(req.Context(), tenant, limit)
	if err != nil {
		return err
	}

	views := make([]domain.SessionView, 0, len(list))
	for _, s := range list {
		views = append(views, domain.NewSessionView(s))
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(views)
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	days = middleware.ValidateDays(days)

	summary, err := r.svc.Summary(req.Context(), tenant, days)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(summary)
}
