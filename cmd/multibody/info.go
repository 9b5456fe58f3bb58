package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/multibody/internal/config"
	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/experiment"
	"github.com/san-kum/multibody/internal/models"
)

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := experiment.NewRegistry().ListModels()
			if len(args) > 0 {
				names = args
			}
			for _, model := range names {
				presets := config.ListPresets(model)
				if len(presets) == 0 {
					continue
				}
				fmt.Printf("%s:\n", model)
				for _, p := range presets {
					cfg := config.GetPreset(model, p)
					fmt.Printf("  %-12s %s, %s, dt=%g, %gs\n", p, cfg.Integrator, controllerName(cfg), cfg.Dt, cfg.Duration)
				}
			}
			return nil
		},
	}
}

func controllerName(cfg *config.Config) string {
	if cfg.Controller == "" {
		return "none"
	}
	return cfg.Controller
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "list models, integrators and controllers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := experiment.NewRegistry()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPARAMETERS")
			for _, name := range reg.ListModels() {
				m, err := reg.GetModel(name)
				if err != nil {
					return err
				}
				values := models.ParamValues(m)
				line := ""
				for i, k := range models.ParamNames(m) {
					if i > 0 {
						line += " "
					}
					line += fmt.Sprintf("%s=%g", k, values[k])
				}
				fmt.Fprintf(w, "%s\t%s\n", name, line)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Printf("\nintegrators: %v\n", reg.ListIntegrators())
			fmt.Printf("controllers: %v\n", reg.ListControllers())
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	var (
		flags      configFlags
		showMatrix bool
	)
	cmd := &cobra.Command{
		Use:   "inspect [model]",
		Short: "print a model's bodies, joints and DOFs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			m, err := experiment.NewRegistry().GetModel(cfg.Model)
			if err != nil {
				return err
			}
			if err := models.ApplyParams(m, cfg.Params); err != nil {
				return err
			}
			skel, err := m.Build(dynamics.WithTimeStep(cfg.Dt), dynamics.WithLogger(logger.Named(m.Name())))
			if err != nil {
				return errors.Wrapf(err, "build %s", m.Name())
			}
			if err := skel.CheckIndexingConsistency(); err != nil {
				return err
			}
			printSkeleton(skel)
			if showMatrix {
				fmt.Printf("\nmass matrix:\n%v\n", mat.Formatted(skel.MassMatrix(), mat.Prefix(""), mat.Squeeze()))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&showMatrix, "mass-matrix", false, "print the joint-space mass matrix")
	return cmd
}

func printSkeleton(skel *dynamics.Skeleton) {
	fmt.Printf("%s: %d trees, %d bodies, %d DOFs, mass %.3f kg\n",
		skel.Name(), skel.NumTrees(), skel.NumBodies(), skel.NumDofs(), skel.Mass())
	com := skel.COM()
	fmt.Printf("COM (%.3f, %.3f, %.3f)\n\n", com[0], com[1], com[2])

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODY\tPARENT\tJOINT\tMODE\tDOFS\tMASS")
	for _, b := range skel.Bodies() {
		parent := "-"
		if p := b.Parent(); p != nil {
			parent = p.Name()
		}
		j := b.ParentJoint()
		dofs := ""
		for i := 0; i < j.NumDofs(); i++ {
			if i > 0 {
				dofs += ","
			}
			dofs += j.DofName(i)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%.3f\n", b.Name(), parent, j.Name(), j.ActuatorMode(), dofs, b.Mass())
	}
	w.Flush()
}

func newConfigCmd() *cobra.Command {
	var (
		flags configFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "config [model]",
		Short: "write the resolved run configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			if err := config.Save(out, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "multibody.yaml", "output file")
	return cmd
}
