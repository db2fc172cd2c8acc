package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/quantumlab/internal/sim"
	"github.com/cwbudde/quantumlab/internal/store"
)

// Server exposes lab runs as HTTP jobs: create a run, poll its status,
// fetch the full trial history (the feed external plotting consumes) and
// stream progress over SSE.
type Server struct {
	jobManager  *JobManager
	addr        string
	server      *http.Server
	resultStore store.Store
	traceDir    string
}

// NewServer creates a new HTTP server. resultStore may be nil, in which
// case completed runs are kept in memory only; traceDir likewise.
func NewServer(addr string, resultStore store.Store, traceDir string) *Server {
	return &Server{
		jobManager:  NewJobManager(),
		addr:        addr,
		resultStore: resultStore,
		traceDir:    traceDir,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	handler := s.loggingMiddleware(s.corsMiddleware(mux))

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "quantumlab",
		"jobs":    len(s.jobManager.ListJobs()),
	})
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	switch {
	case len(parts) == 1 || parts[1] == "status":
		s.handleGetJobStatus(w, r, jobID)
	case parts[1] == "trials":
		s.handleGetTrials(w, r, jobID)
	case parts[1] == "best":
		s.handleGetBest(w, r, jobID)
	case parts[1] == "stream":
		s.handleJobStream(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// applyDefaults fills unset job parameters with the demo defaults.
func applyDefaults(config *JobConfig) {
	if config.Mode == "" {
		config.Mode = "spsa"
	}
	if config.Qubits == 0 {
		config.Qubits = 1
	}
	if config.Shots == 0 {
		config.Shots = 500
	}
	if config.Steps == 0 {
		config.Steps = 40
	}
	if config.GridPoints == 0 {
		config.GridPoints = 90
	}
	if config.PopSize == 0 {
		config.PopSize = 30
	}
	if config.A == 0 {
		config.A = 0.6
	}
	if config.C == 0 {
		config.C = 0.2
	}
}

// validateConfig rejects configurations before a job (and its RNG) is
// ever created.
func validateConfig(config JobConfig) error {
	if config.Qubits < 1 || config.Qubits > sim.MaxQubits {
		return fmt.Errorf("qubits must be in [1,%d], got %d", sim.MaxQubits, config.Qubits)
	}
	if config.Noise < 0 || config.Noise > 1 {
		return fmt.Errorf("noise must be in [0,1], got %g", config.Noise)
	}
	if config.Shots <= 0 {
		return fmt.Errorf("shots must be positive, got %d", config.Shots)
	}

	switch config.Mode {
	case "grid":
		if config.Qubits != 1 {
			return fmt.Errorf("grid mode supports a single qubit, got %d", config.Qubits)
		}
		if config.GridPoints <= 1 {
			return fmt.Errorf("gridPoints must be > 1, got %d", config.GridPoints)
		}
	case "spsa":
		if config.Steps <= 0 {
			return fmt.Errorf("steps must be positive, got %d", config.Steps)
		}
		if config.A <= 0 || config.C <= 0 {
			return fmt.Errorf("gain constants must be positive, got a=%g c=%g", config.A, config.C)
		}
	case "mayfly":
		if config.Steps <= 0 {
			return fmt.Errorf("steps must be positive, got %d", config.Steps)
		}
		if config.PopSize <= 0 {
			return fmt.Errorf("popSize must be positive, got %d", config.PopSize)
		}
	default:
		return fmt.Errorf("unknown mode: %s", config.Mode)
	}

	return nil
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var config JobConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	applyDefaults(&config)
	if err := validateConfig(config); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(config)

	go runJob(context.Background(), s.jobManager, s.resultStore, s.traceDir, job.ID)

	snap, _ := s.jobManager.SnapshotJob(job.ID)
	writeJSON(w, http.StatusCreated, snap)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.SnapshotJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	response := map[string]interface{}{
		"id":         job.ID,
		"state":      job.State,
		"config":     job.Config,
		"bestThetas": job.BestThetas,
		"bestEnergy": job.BestEnergy,
		"bestStep":   job.BestStep,
		"trialCount": job.TrialCount,
		"elapsed":    elapsed.Seconds(),
		"startTime":  job.StartTime,
		"endTime":    job.EndTime,
		"error":      job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetTrials handles GET /api/v1/jobs/:id/trials.
// Returns the full trial history in insertion order; external plotting
// reads step/energy and step/theta[0] from here.
func (s *Server) handleGetTrials(w http.ResponseWriter, r *http.Request, jobID string) {
	trials, exists := s.jobManager.GetTrials(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, trials)
}

// handleGetBest handles GET /api/v1/jobs/:id/best
func (s *Server) handleGetBest(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.SnapshotJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if job.BestEnergy == nil {
		http.Error(w, "No results yet", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobId":      job.ID,
		"bestThetas": job.BestThetas,
		"bestEnergy": *job.BestEnergy,
		"bestStep":   job.BestStep,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
