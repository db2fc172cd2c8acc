package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/quantumlab/internal/lab"
	"github.com/cwbudde/quantumlab/internal/opt"
	"github.com/cwbudde/quantumlab/internal/sim"
	"github.com/cwbudde/quantumlab/internal/store"
	"github.com/spf13/cobra"
)

var (
	runMode    string
	qubits     int
	steps      int
	shots      int
	noise      float64
	seed       int64
	gainA      float64
	gainC      float64
	gridPoints int
	popSize    int
	dataDir    string
	tailCount  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single experiment locally",
	Long: `Runs a grid search, SPSA descent or mayfly swarm against the simulated
register and prints the best angles found. With --data-dir the result and
the full trial trace are persisted for later inspection.`,
	RunE: runExperiment,
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "spsa", "Optimization mode: grid, spsa, mayfly")
	runCmd.Flags().IntVar(&qubits, "qubits", 1, "Number of qubits in the register")
	runCmd.Flags().IntVar(&steps, "steps", 40, "Optimizer iterations")
	runCmd.Flags().IntVar(&shots, "shots", 500, "Measurement shots per evaluation")
	runCmd.Flags().Float64Var(&noise, "noise", 0.05, "Per-qubit bit-flip probability")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	runCmd.Flags().Float64Var(&gainA, "a", 0.6, "SPSA step gain")
	runCmd.Flags().Float64Var(&gainC, "c", 0.2, "SPSA perturbation gain")
	runCmd.Flags().IntVar(&gridPoints, "grid-points", 90, "Grid resolution (grid mode)")
	runCmd.Flags().IntVar(&popSize, "pop", 30, "Population size (mayfly mode)")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "", "Persist result and trace under this directory")
	runCmd.Flags().IntVar(&tailCount, "tail", 5, "Trials to print at the end (0 = none)")

	rootCmd.AddCommand(runCmd)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	if qubits < 1 || qubits > sim.MaxQubits {
		return fmt.Errorf("qubits must be in [1,%d], got %d", sim.MaxQubits, qubits)
	}
	if runMode == "grid" && qubits != 1 {
		return fmt.Errorf("grid mode supports a single qubit, got %d", qubits)
	}

	slog.Info("Starting experiment", "mode", runMode, "qubits", qubits, "shots", shots, "noise", noise, "seed", seed)

	l := lab.New(seed)

	runID := time.Now().UTC().Format("20060102-150405")
	var trace *store.TraceWriter
	if dataDir != "" {
		var err error
		trace, err = store.NewTraceWriter(dataDir, runID, false)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer trace.Close()

		l.OnTrial = func(trial lab.Trial) {
			if err := trace.Write(trial); err != nil {
				slog.Warn("Failed to write trace entry", "step", trial.Step, "error", err)
			}
		}
	}

	start := time.Now()

	var best lab.Trial
	var err error
	switch runMode {
	case "grid":
		best, err = l.GridSearch(shots, noise, gridPoints)
	case "spsa":
		best, err = opt.NewSPSA(steps, gainA, gainC).Run(l, qubits, shots, noise)
	case "mayfly":
		best, err = opt.NewMayfly(steps, popSize).Run(l, qubits, shots, noise)
	default:
		return fmt.Errorf("unknown mode: %s", runMode)
	}
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	ledger := l.Ledger()

	slog.Info("Experiment complete",
		"elapsed", elapsed,
		"trials", ledger.Len(),
		"best_energy", best.Energy,
		"best_step", best.Step,
	)

	fmt.Printf("Best energy %.4f at step %d (thetas %v)\n", best.Energy, best.Step, formatThetas(best.Thetas))

	if tailCount > 0 {
		fmt.Println("\nLast trials:")
		for _, trial := range ledger.Tail(tailCount) {
			fmt.Printf("  step %3d  E=%+.4f  thetas=%s  %s\n", trial.Step, trial.Energy, formatThetas(trial.Thetas), trial.Note)
		}
	}

	summary := ledger.Summarize()
	fmt.Printf("\nTrials: %d  mean E: %+.4f  stddev: %.4f  best E: %+.4f\n",
		summary.Count, summary.MeanEnergy, summary.StdDev, summary.BestEnergy)

	if dataDir != "" {
		if err := trace.Flush(); err != nil {
			slog.Warn("Failed to flush trace", "error", err)
		}

		cfg := store.RunConfig{
			Mode:       runMode,
			Qubits:     qubits,
			Steps:      steps,
			Shots:      shots,
			Noise:      noise,
			Seed:       seed,
			A:          gainA,
			C:          gainC,
			GridPoints: gridPoints,
			PopSize:    popSize,
		}

		resultStore, err := store.NewFSStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to create result store: %w", err)
		}
		result := store.NewResult(runID, best.Thetas, best.Energy, best.Step, ledger.Len(), cfg)
		if err := resultStore.SaveResult(runID, result); err != nil {
			return fmt.Errorf("failed to persist result: %w", err)
		}

		fmt.Printf("\nSaved run %s under %s\n", runID, resultStore.RunDir(runID))
	}

	return nil
}

func formatThetas(thetas []float64) string {
	s := "["
	for i, theta := range thetas {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.4f", theta)
	}
	return s + "]"
}
