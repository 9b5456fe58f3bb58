package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/multibody/internal/config"
	"github.com/san-kum/multibody/internal/sim"
	"github.com/san-kum/multibody/internal/storage"
	"github.com/san-kum/multibody/internal/viz"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMODEL\tINTEGRATOR\tCONTROLLER\tDOFS\tSTEPS\tTIMESTAMP")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.Model, r.Integrator, r.Controller, len(r.DofNames), r.Steps,
					r.Timestamp.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func newPlotCmd() *cobra.Command {
	var (
		velocities bool
		w, h       int
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			traj, err := st.LoadStates(args[0])
			if err != nil {
				return err
			}
			if len(traj.States) == 0 {
				fmt.Println("no data")
				return nil
			}

			fmt.Printf("%s (%s, dt=%g, %d samples)\n\n", meta.Model, meta.Integrator, meta.Dt, len(traj.Times))
			part := viz.Positions
			if velocities {
				part = viz.Velocities
			}
			fmt.Print(viz.PlotDofs(traj.DofNames, traj.States, part, w, h))
			return nil
		},
	}
	cmd.Flags().BoolVar(&velocities, "velocities", false, "plot velocities instead of positions")
	cmd.Flags().IntVar(&w, "width", 80, "chart width")
	cmd.Flags().IntVar(&h, "height", 10, "chart height")
	return cmd
}

func newExportJSONCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			traj, err := st.LoadStates(args[0])
			if err != nil {
				return err
			}

			cfg := &config.Config{
				Model:      meta.Model,
				Integrator: meta.Integrator,
				Controller: meta.Controller,
				Dt:         meta.Dt,
				Duration:   meta.Duration,
				Seed:       meta.Seed,
				Params:     meta.Params,
			}
			result := &sim.Result{
				DofNames:    traj.DofNames,
				States:      traj.States,
				Times:       traj.Times,
				StepsTaken:  meta.Steps,
				EnergyDrift: meta.EnergyDrift,
				Metrics:     meta.Metrics,
			}
			// the first stored row carries no control
			if len(traj.Controls) > 1 {
				result.Controls = traj.Controls[1:]
			}

			if out == "" {
				return storage.ExportJSON(os.Stdout, cfg, result)
			}
			if err := storage.ExportJSONFile(out, cfg, result); err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}
