package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/quantumlab/internal/lab"
	"github.com/cwbudde/quantumlab/internal/opt"
	"github.com/cwbudde/quantumlab/internal/store"
)

// runJob executes an experiment job in the background. Each job gets its
// own lab seeded from the job config, so concurrent jobs never share a
// random stream or a ledger. If resultStore is not nil, the final result
// and the full trial trace are persisted under the job ID.
func runJob(ctx context.Context, jm *JobManager, resultStore store.Store, traceDir string, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	cfg := job.Config
	slog.Info("Starting job", "job_id", jobID, "mode", cfg.Mode, "qubits", cfg.Qubits, "seed", cfg.Seed)

	l := lab.New(cfg.Seed)

	var trace *store.TraceWriter
	if traceDir != "" {
		trace, err = store.NewTraceWriter(traceDir, jobID, false)
		if err != nil {
			markJobFailed(jm, jobID, fmt.Errorf("failed to open trace: %w", err))
			return err
		}
		defer trace.Close()
	}

	// The hook runs on the job goroutine; the ledger stays single-owner
	// and only the Job copy is shared under the manager's lock.
	l.OnTrial = func(trial lab.Trial) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.trials = append(j.trials, trial)
			j.TrialCount = len(j.trials)
			if j.BestEnergy == nil || trial.Energy < *j.BestEnergy {
				energy := trial.Energy
				j.BestEnergy = &energy
				j.BestThetas = trial.Thetas
				j.BestStep = trial.Step
			}
		})
		if trace != nil {
			if err := trace.Write(trial); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "step", trial.Step, "error", err)
			}
		}
	}

	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	start := time.Now()

	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	var best lab.Trial
	switch cfg.Mode {
	case "grid":
		best, err = l.GridSearch(cfg.Shots, cfg.Noise, cfg.GridPoints)
	case "spsa":
		best, err = opt.NewSPSA(cfg.Steps, cfg.A, cfg.C).Run(l, cfg.Qubits, cfg.Shots, cfg.Noise)
	case "mayfly":
		best, err = opt.NewMayfly(cfg.Steps, cfg.PopSize).Run(l, cfg.Qubits, cfg.Shots, cfg.Noise)
	default:
		err = fmt.Errorf("unknown mode: %s", cfg.Mode)
	}

	close(progressDone)

	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	elapsed := time.Since(start)

	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"best_energy", best.Energy,
		"best_step", best.Step,
		"trials", l.Ledger().Len(),
	)

	if trace != nil {
		if err := trace.Flush(); err != nil {
			slog.Warn("Failed to flush trace", "job_id", jobID, "error", err)
		}
	}

	if resultStore != nil {
		result := store.NewResult(jobID, best.Thetas, best.Energy, best.Step, l.Ledger().Len(), cfg)
		if err := resultStore.SaveResult(jobID, result); err != nil {
			slog.Warn("Failed to persist result", "job_id", jobID, "error", err)
		}
	}

	jm.broadcaster.Broadcast(jm.snapshotEvent(jobID))
	return nil
}

// monitorProgress periodically broadcasts progress events while the
// optimization is running.
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, exists := jm.GetJob(jobID); !exists {
				return
			}
			jm.broadcaster.Broadcast(jm.snapshotEvent(jobID))
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	jm.broadcaster.Broadcast(jm.snapshotEvent(jobID))
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	jm.broadcaster.Broadcast(jm.snapshotEvent(jobID))
	slog.Info("Job cancelled", "job_id", jobID)
}
