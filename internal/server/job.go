package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/quantumlab/internal/lab"
	"github.com/cwbudde/quantumlab/internal/store"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// JobConfig is an alias to avoid duplication with store.RunConfig
type JobConfig = store.RunConfig

// Job represents one experiment run. Each job owns an entirely
// independent lab (its own ledger and random stream); nothing is shared
// between concurrently running jobs.
type Job struct {
	ID         string     `json:"id"`
	State      JobState   `json:"state"`
	Config     JobConfig  `json:"config"`
	BestThetas []float64  `json:"bestThetas,omitempty"`
	BestEnergy *float64   `json:"bestEnergy,omitempty"`
	BestStep   int        `json:"bestStep,omitempty"`
	TrialCount int        `json:"trialCount"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Error      string     `json:"error,omitempty"`

	// trials mirrors the run's ledger for the /trials endpoint. Kept out
	// of the JSON job representation; it can be large.
	trials []lab.Trial
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given configuration
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job
}

// GetJob retrieves a job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	return job, exists
}

// GetTrials returns a copy of the job's trial history.
func (jm *JobManager) GetTrials(id string) ([]lab.Trial, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	trials := make([]lab.Trial, len(job.trials))
	copy(trials, job.trials)
	return trials, true
}

// SnapshotJob returns a copy of the job's public state, safe to read
// while the worker keeps updating the original.
func (jm *JobManager) SnapshotJob(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	snap := *job
	snap.trials = nil
	return snap, true
}

// ListJobs returns copies of all jobs
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		snap := *job
		snap.trials = nil
		jobs = append(jobs, snap)
	}
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// snapshotEvent captures a job's current progress under the manager's
// lock, for broadcasting.
func (jm *JobManager) snapshotEvent(jobID string) ProgressEvent {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	event := ProgressEvent{JobID: jobID, Timestamp: time.Now()}
	job, exists := jm.jobs[jobID]
	if !exists {
		return event
	}
	event.State = job.State
	event.Trials = job.TrialCount
	event.BestEnergy = job.BestEnergy
	event.BestStep = job.BestStep
	return event
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			snap := *job
			snap.trials = nil
			runningJobs = append(runningJobs, snap)
		}
	}
	return runningJobs
}
