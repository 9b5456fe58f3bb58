package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/san-kum/multibody/internal/analysis"
	"github.com/san-kum/multibody/internal/automation"
	"github.com/san-kum/multibody/internal/experiment"
	"github.com/san-kum/multibody/internal/export"
	"github.com/san-kum/multibody/internal/optim"
	"github.com/san-kum/multibody/internal/storage"
	"github.com/san-kum/multibody/internal/viz"
)

// dofIndex accepts a DOF name or index.
func dofIndex(names []string, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || i >= len(names) {
		return 0, errors.Errorf("unknown dof %q (have %v)", s, names)
	}
	return i, nil
}

func newAnalyzeCmd() *cobra.Command {
	var (
		dof   string
		level float64
	)
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and phase-space analysis of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traj, err := storage.New(dataDir).LoadStates(args[0])
			if err != nil {
				return err
			}
			if len(traj.Times) < 4 {
				return errors.New("not enough samples")
			}
			n := len(traj.DofNames)
			dt := traj.Times[1] - traj.Times[0]

			fmt.Printf("analysis: %s (%d samples, every %gs)\n\n", args[0], len(traj.Times), dt)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOF\tDOMINANT HZ\tCROSSINGS\tPERIOD")
			for i, name := range traj.DofNames {
				freq, err := analysis.DominantFrequency(viz.Column(traj.States, i), dt)
				if err != nil {
					return err
				}
				crossings, err := analysis.Section(traj.States, traj.Times, n, i, level)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%.4f\t%d\t%.4f\n", name, freq, len(crossings), analysis.Period(crossings))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			idx, err := dofIndex(traj.DofNames, dof)
			if err != nil {
				return err
			}
			_, amps, err := analysis.Spectrum(viz.Column(traj.States, idx), dt)
			if err != nil {
				return err
			}
			fmt.Println()
			fmt.Println(viz.PlotSeries(amps[:max(len(amps)/4, 2)], "amplitude spectrum ("+traj.DofNames[idx]+")", 80, 12))

			pts, err := analysis.Portrait(traj.States, n, idx)
			if err != nil {
				return err
			}
			qs, vs := make([]float64, len(pts)), make([]float64, len(pts))
			for i, p := range pts {
				qs[i], vs[i] = p.Q, p.V
			}
			fmt.Printf("\nphase portrait (%s: q →, v ↑)\n", traj.DofNames[idx])
			fmt.Print(viz.PhasePortrait(qs, vs, 60, 15).String())
			return nil
		},
	}
	cmd.Flags().StringVar(&dof, "dof", "0", "dof name or index for the spectrum and portrait")
	cmd.Flags().Float64Var(&level, "level", 0, "section level for crossing detection")
	return cmd
}

func newLyapunovCmd() *cobra.Command {
	var (
		flags configFlags
		d0    float64
	)
	cmd := &cobra.Command{
		Use:   "lyapunov [model]",
		Short: "estimate the largest Lyapunov exponent",
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
			lambda, err := analysis.LyapunovExponent(ctx, exp.Skeleton(), exp.Wire, d0, cfg.Dt, cfg.Duration)
			if err != nil {
				return err
			}
			verdict := "regular"
			if lambda > 0.01 {
				verdict = "chaotic"
			}
			fmt.Printf("%s: λ = %.5f 1/s (%s)\n", cfg.Model, lambda, verdict)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&d0, "d0", 1e-8, "initial separation")
	return cmd
}

// parseRange reads lo:hi:n into n evenly spaced values, or a single value.
func parseRange(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "range %q", s)
		}
		vals[i] = v
	}
	switch len(vals) {
	case 1:
		return vals, nil
	case 3:
		n := int(vals[2])
		if n < 2 || float64(n) != vals[2] {
			return nil, errors.Errorf("range %q: count must be an integer of at least 2", s)
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = vals[0] + (vals[1]-vals[0])*float64(i)/float64(n-1)
		}
		return out, nil
	}
	return nil, errors.Errorf("range %q: expected v or lo:hi:n", s)
}

func newSweepCmd() *cobra.Command {
	var (
		flags   configFlags
		vary    map[string]string
		metric  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "grid search over model parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(vary) == 0 {
				return errors.New("nothing to vary; use --vary name=lo:hi:n")
			}
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			values := make(map[string][]float64, len(vary))
			for k, v := range vary {
				if values[k], err = parseRange(v); err != nil {
					return err
				}
			}

			g := optim.NewGridSearch(values)
			g.SetWorkers(workers)
			g.SetLogger(logger)
			logger.Infow("sweeping", "model", cfg.Model, "points", g.Size(), "metric", metric)

			ctx, cancel := signalContext()
			defer cancel()
			points, best, err := g.Search(ctx, cfg, experiment.NewRegistry(), metric)
			if err != nil && points == nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "PARAMS\t%s\n", strings.ToUpper(metric))
			for _, p := range points {
				if p.Err != nil {
					fmt.Fprintf(w, "%v\terror: %v\n", p.Params, p.Err)
					continue
				}
				fmt.Fprintf(w, "%v\t%.6g\n", p.Params, p.Value)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if best != nil {
				fmt.Printf("\nbest: %v (%s = %.6g)\n", best.Params, metric, best.Value)
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringToStringVar(&vary, "vary", nil, "parameter ranges, name=lo:hi:n or name=v")
	cmd.Flags().StringVar(&metric, "metric", optim.EnergyDrift, "metric to minimize")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = unlimited)")
	return cmd
}

func newScenarioCmd() *cobra.Command {
	var noSave bool
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			r := &automation.Runner{Registry: experiment.NewRegistry(), Logger: logger}
			if !noSave {
				r.Store = storage.New(dataDir)
			}

			ctx, cancel := signalContext()
			defer cancel()
			results, err := r.Run(ctx, s)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tRUN\tSTEPS\tENERGY DRIFT\tBOUNDED")
			for _, res := range results {
				members := res.Members
				if members == nil {
					members = append(members, res.Result)
				}
				bounded, _ := automation.Bounded(members, 1e6)
				fmt.Fprintf(w, "%s\t%s\t%d\t%.3e\t%d/%d\n", res.Name, res.RunID, res.Result.StepsTaken,
					res.Result.EnergyDrift, bounded, len(members))
			}
			if ferr := w.Flush(); ferr != nil && err == nil {
				err = ferr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store results")
	return cmd
}

func newSVGCmd() *cobra.Command {
	var (
		out   string
		dof   string
		phase bool
	)
	cmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "export a run's trajectory as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traj, err := storage.New(dataDir).LoadStates(args[0])
			if err != nil {
				return err
			}
			n := len(traj.DofNames)

			var series []export.Series
			if phase {
				idx, err := dofIndex(traj.DofNames, dof)
				if err != nil {
					return err
				}
				series = append(series, export.Series{
					Label: traj.DofNames[idx] + " phase",
					X:     viz.Column(traj.States, idx),
					Y:     viz.Column(traj.States, n+idx),
				})
			} else {
				for i, name := range traj.DofNames {
					series = append(series, export.Series{Label: name, X: traj.Times, Y: viz.Column(traj.States, i)})
				}
			}
			svg, err := export.TrajectoryToSVG(series, 800, 400)
			if err != nil {
				return err
			}
			return export.WriteFile(out, os.Stdout, svg)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().StringVar(&dof, "dof", "0", "dof for the phase portrait")
	cmd.Flags().BoolVar(&phase, "phase", false, "plot v against q instead of q against time")
	return cmd
}

func newSnapshotCmd() *cobra.Command {
	var (
		flags      configFlags
		out        string
		yaw, pitch float64
	)
	cmd := &cobra.Command{
		Use:   "snapshot [model]",
		Short: "render a model's configuration as SVG",
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
			cam := viz.NewCamera()
			cam.Orbit(yaw, pitch)
			svg := export.CanvasToSVG(viz.Frame(exp.Skeleton(), cam, 80, 40), 4, "#00ff00")
			return export.WriteFile(out, os.Stdout, svg)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().Float64Var(&yaw, "yaw", 0, "camera yaw in radians")
	cmd.Flags().Float64Var(&pitch, "pitch", 0, "camera pitch in radians")
	return cmd
}
