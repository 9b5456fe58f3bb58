package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/multibody/internal/experiment"
	"github.com/san-kum/multibody/internal/sim"
	"github.com/san-kum/multibody/internal/storage"
	"github.com/san-kum/multibody/internal/viz"
)

func newRunCmd() *cobra.Command {
	var (
		flags  configFlags
		noSave bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			exp := experiment.New(cfg, experiment.NewRegistry(), logger)
			if err := exp.Setup(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			logger.Infow("running", "model", cfg.Model, "dofs", exp.Skeleton().NumDofs(),
				"integrator", cfg.Integrator, "controller", cfg.Controller)
			start := time.Now()
			result, err := exp.Run(ctx)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			if asJSON {
				return storage.ExportJSON(os.Stdout, cfg, result)
			}

			fmt.Printf("completed in %v\n", elapsed)
			if !noSave {
				st := storage.New(dataDir)
				if err := st.Init(); err != nil {
					return err
				}
				runID, err := st.Save(cfg, result)
				if err != nil {
					return err
				}
				fmt.Printf("run id: %s\n", runID)
			}
			printResult(result)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not archive the run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the run as JSON to stdout instead")
	return cmd
}

func printResult(result *sim.Result) {
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nDOF\tq\tv")
	final := result.Final()
	n := len(result.DofNames)
	for i, name := range result.DofNames {
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\n", name, final[i], final[n+i])
	}
	w.Flush()

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
}

func newLiveCmd() *cobra.Command {
	var (
		flags configFlags
		fps   int
	)
	cmd := &cobra.Command{
		Use:   "live [model]",
		Short: "watch a simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			// log lines would tear the full-screen view
			exp := experiment.New(cfg, experiment.NewRegistry(), nil)
			if err := exp.Setup(); err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return viz.RunLive(ctx, exp, fps)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&fps, "fps", 30, "frame rate")
	return cmd
}

func newEnsembleCmd() *cobra.Command {
	var (
		flags   configFlags
		runs    int
		workers int
		perturb float64
		tol     float64
	)
	cmd := &cobra.Command{
		Use:   "ensemble [model]",
		Short: "run cloned skeletons concurrently and compare them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("runs") || cfg.Ensemble.Runs == 0 {
				cfg.Ensemble.Runs = runs
			}
			if cmd.Flags().Changed("workers") {
				cfg.Ensemble.Workers = workers
			}
			if cmd.Flags().Changed("perturb") {
				cfg.Ensemble.Perturb = perturb
			}

			exp := experiment.New(cfg, experiment.NewRegistry(), logger)
			if err := exp.Setup(); err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			start := time.Now()
			results, runErr := exp.RunEnsemble(ctx)
			fmt.Printf("%d runs completed in %v\n", len(results), time.Since(start))

			printEnsemble(results)
			if runErr != nil {
				return runErr
			}
			if err := sim.CheckAgreement(results, tol); err != nil {
				fmt.Printf("\nruns disagree beyond %g: %v\n", tol, err)
				return nil
			}
			fmt.Printf("\nall runs agree within %g\n", tol)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&runs, "runs", 4, "number of runs")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = one per CPU)")
	cmd.Flags().Float64Var(&perturb, "perturb", 0, "std dev of initial position noise")
	cmd.Flags().Float64Var(&tol, "tol", 1e-9, "agreement tolerance")
	return cmd
}

func printEnsemble(results []*sim.Result) {
	if len(results) == 0 {
		return
	}
	ref := results[0].Final()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTEPS\tENERGY DRIFT\tMAX |Δ| vs run 0")
	for i, r := range results {
		if r == nil {
			fmt.Fprintf(w, "%d\t-\t-\t-\n", i)
			continue
		}
		dev := 0.0
		for j, x := range r.Final() {
			if j < len(ref) {
				dev = math.Max(dev, math.Abs(x-ref[j]))
			}
		}
		fmt.Fprintf(w, "%d\t%d\t%.3e\t%.3e\n", i, r.StepsTaken, r.EnergyDrift, dev)
	}
	w.Flush()
}
