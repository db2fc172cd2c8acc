package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestServer_CreateJob(t *testing.T) {
	s := NewServer(":8080", nil, "")

	config := JobConfig{
		Mode:   "spsa",
		Qubits: 1,
		Steps:  10,
		Shots:  200,
		Noise:  0.05,
		Seed:   42,
		A:      0.6,
		C:      0.2,
	}

	body, _ := json.Marshal(config)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	// State should be pending or running (since worker starts immediately)
	if job.State != StatePending && job.State != StateRunning && job.State != StateCompleted {
		t.Errorf("Unexpected job state %s", job.State)
	}
}

func TestServer_CreateJob_Defaults(t *testing.T) {
	s := NewServer(":8080", nil, "")

	// Empty body config: everything filled from defaults
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader("{}"))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if job.Config.Mode != "spsa" {
		t.Errorf("Default mode should be spsa, got %s", job.Config.Mode)
	}
	if job.Config.Shots != 500 || job.Config.Steps != 40 {
		t.Errorf("Defaults not applied: shots=%d steps=%d", job.Config.Shots, job.Config.Steps)
	}
}

func TestServer_CreateJob_Validation(t *testing.T) {
	s := NewServer(":8080", nil, "")

	cases := []struct {
		name string
		body string
	}{
		{"too many qubits", `{"mode":"spsa","qubits":5}`},
		{"negative noise", `{"mode":"spsa","qubits":1,"noise":-0.1}`},
		{"noise above one", `{"mode":"spsa","qubits":1,"noise":1.5}`},
		{"multi-qubit grid", `{"mode":"grid","qubits":2}`},
		{"unknown mode", `{"mode":"quantum-annealing","qubits":1}`},
		{"negative shots", `{"mode":"spsa","qubits":1,"shots":-5}`},
		{"invalid json", `{"mode":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			s.handleCreateJob(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}

	if len(s.jobManager.ListJobs()) != 0 {
		t.Error("Rejected requests should not create jobs")
	}
}

func TestServer_ListJobs(t *testing.T) {
	s := NewServer(":8080", nil, "")

	s.jobManager.CreateJob(JobConfig{Mode: "spsa", Qubits: 1})
	s.jobManager.CreateJob(JobConfig{Mode: "grid", Qubits: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()

	s.handleListJobs(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var jobs []Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestServer_GetJobStatus(t *testing.T) {
	s := NewServer(":8080", nil, "")

	job := s.jobManager.CreateJob(JobConfig{Mode: "spsa", Qubits: 1, Steps: 10})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/status", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobStatus(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["id"] != job.ID {
		t.Error("Response should contain job ID")
	}

	if response["state"] != string(StatePending) {
		t.Errorf("Expected pending state, got %v", response["state"])
	}
}

func TestServer_GetJobStatus_NotFound(t *testing.T) {
	s := NewServer(":8080", nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/status", nil)
	w := httptest.NewRecorder()

	s.handleGetJobStatus(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_GetTrialsAndBest(t *testing.T) {
	s := NewServer(":8080", nil, "")

	job := s.jobManager.CreateJob(JobConfig{
		Mode:       "grid",
		Qubits:     1,
		Shots:      200,
		Noise:      0.05,
		Seed:       42,
		GridPoints: 30,
	})

	// Run job synchronously and wait for completion
	if err := runJob(context.Background(), s.jobManager, nil, "", job.ID); err != nil {
		t.Fatalf("Job failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/trials", job.ID), nil)
	w := httptest.NewRecorder()
	s.handleGetTrials(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var trials []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&trials); err != nil {
		t.Fatalf("Failed to decode trials: %v", err)
	}
	if len(trials) != 30 {
		t.Errorf("Expected 30 trials, got %d", len(trials))
	}

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/best", job.ID), nil)
	w = httptest.NewRecorder()
	s.handleGetBest(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var best map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&best); err != nil {
		t.Fatalf("Failed to decode best: %v", err)
	}
	if best["bestEnergy"].(float64) >= -0.6 {
		t.Errorf("Expected a low best energy, got %v", best["bestEnergy"])
	}
}

func TestServer_GetBest_NoResults(t *testing.T) {
	s := NewServer(":8080", nil, "")

	job := s.jobManager.CreateJob(JobConfig{Mode: "spsa", Qubits: 1})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/best", job.ID), nil)
	w := httptest.NewRecorder()
	s.handleGetBest(w, req, job.ID)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 before any trial, got %d", w.Code)
	}
}

func TestServer_Routing(t *testing.T) {
	s := NewServer(":8080", nil, "")

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	srv := httptest.NewServer(s.corsMiddleware(mux))
	defer srv.Close()

	// Index
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("Index request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from index, got %d", resp.StatusCode)
	}

	// Unknown subresource
	resp, err = http.Get(srv.URL + "/api/v1/jobs/some-id/nonsense")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown subresource, got %d", resp.StatusCode)
	}

	// Method not allowed
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/jobs", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}

	// CORS preflight
	req, _ = http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/jobs", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Preflight failed: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header should be set")
	}
}

func TestServer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	s := NewServer("localhost:0", nil, "")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	srv := httptest.NewServer(s.corsMiddleware(mux))
	defer srv.Close()

	// Create job
	body := `{"mode":"spsa","qubits":1,"steps":15,"shots":200,"noise":0.05,"seed":7,"a":0.6,"c":0.2}`
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Create request failed: %v", err)
	}
	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode job: %v", err)
	}
	resp.Body.Close()

	// Poll until the job reaches a terminal state
	deadline := time.Now().Add(10 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("Job did not finish in time")
		}

		resp, err := http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/status")
		if err != nil {
			t.Fatalf("Status request failed: %v", err)
		}
		var status map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("Failed to decode status: %v", err)
		}
		resp.Body.Close()

		state := status["state"].(string)
		if state == string(StateFailed) {
			t.Fatalf("Job failed: %v", status["error"])
		}
		if state == string(StateCompleted) {
			if status["trialCount"].(float64) != 15 {
				t.Errorf("Expected 15 trials, got %v", status["trialCount"])
			}
			break
		}

		time.Sleep(50 * time.Millisecond)
	}
}
