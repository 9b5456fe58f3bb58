package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/multibody/internal/config"
	"github.com/san-kum/multibody/internal/logging"
)

var (
	dataDir string
	verbose bool
	logger  *zap.SugaredLogger
)

// configFlags are the run settings shared by run, live and ensemble. Flags
// that were set explicitly override the config file or preset.
type configFlags struct {
	configFile  string
	preset      string
	dt          float64
	duration    float64
	seed        int64
	integrator  string
	controller  string
	kp, ki, kd  float64
	targets     []float64
	params      map[string]string
	positions   []float64
	velocities  []float64
	gravity     []float64
	limits      bool
	restitution float64
	recordEvery int
}

func (f *configFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", "", "config file path (yaml)")
	fs.StringVar(&f.preset, "preset", "", "use preset configuration")
	fs.Float64Var(&f.dt, "dt", config.DefaultDt, "timestep")
	fs.Float64Var(&f.duration, "time", config.DefaultDuration, "duration")
	fs.Int64Var(&f.seed, "seed", 0, "random seed")
	fs.StringVar(&f.integrator, "integrator", "semi_implicit_euler", "integrator")
	fs.StringVar(&f.controller, "controller", "none", "controller")
	fs.Float64Var(&f.kp, "kp", config.DefaultKp, "proportional gain")
	fs.Float64Var(&f.ki, "ki", config.DefaultKi, "integral gain")
	fs.Float64Var(&f.kd, "kd", config.DefaultKd, "derivative gain")
	fs.Float64SliceVar(&f.targets, "target", nil, "target positions per DOF")
	fs.StringToStringVarP(&f.params, "param", "p", nil, "model parameters, e.g. -p theta=1.2,mass=2")
	fs.Float64SliceVar(&f.positions, "q0", nil, "initial positions per DOF")
	fs.Float64SliceVar(&f.velocities, "v0", nil, "initial velocities per DOF")
	fs.Float64SliceVar(&f.gravity, "gravity", nil, "gravity vector x,y,z")
	fs.BoolVar(&f.limits, "limits", false, "enforce joint position limits")
	fs.Float64Var(&f.restitution, "restitution", 0, "restitution at joint limits")
	fs.IntVar(&f.recordEvery, "record-every", 1, "record every n-th step")
}

// resolve builds the run config: defaults, then preset, then config file,
// then explicit flags. args[0], when given, names the model.
func (f *configFlags) resolve(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	model := cfg.Model
	if len(args) > 0 {
		model = args[0]
	}

	if f.preset != "" {
		p := config.GetPreset(model, f.preset)
		if p == nil {
			return nil, errors.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets(model))
		}
		cfg = p
	}
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load config")
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Model = model
	}

	changed := cmd.Flags().Changed
	if changed("dt") {
		cfg.Dt = f.dt
	}
	if changed("time") {
		cfg.Duration = f.duration
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("integrator") {
		cfg.Integrator = f.integrator
	}
	if changed("controller") {
		cfg.Controller = f.controller
	}
	if changed("kp") {
		cfg.ControllerParams.Kp = f.kp
	}
	if changed("ki") {
		cfg.ControllerParams.Ki = f.ki
	}
	if changed("kd") {
		cfg.ControllerParams.Kd = f.kd
	}
	if changed("target") {
		cfg.ControllerParams.Targets = f.targets
	}
	if changed("q0") {
		cfg.InitState.Positions = f.positions
	}
	if changed("v0") {
		cfg.InitState.Velocities = f.velocities
	}
	if changed("gravity") {
		cfg.Gravity = f.gravity
	}
	if changed("limits") {
		cfg.Limits.Enabled = f.limits
	}
	if changed("restitution") {
		cfg.Limits.Restitution = f.restitution
	}
	if changed("record-every") {
		cfg.RecordEvery = f.recordEvery
	}
	if len(f.params) > 0 && cfg.Params == nil {
		cfg.Params = make(map[string]float64)
	}
	for k, v := range f.params {
		val, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s", k)
		}
		cfg.Params[k] = val
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "multibody",
		Short:         "articulated rigid-body simulation lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger = logging.NewDebugLogger("multibody")
			} else {
				logger = logging.NewLogger("multibody")
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".multibody", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newRunCmd(),
		newLiveCmd(),
		newEnsembleCmd(),
		newListCmd(),
		newPlotCmd(),
		newExportJSONCmd(),
		newPresetsCmd(),
		newModelsCmd(),
		newInspectCmd(),
		newConfigCmd(),
		newAnalyzeCmd(),
		newLyapunovCmd(),
		newSweepCmd(),
		newScenarioCmd(),
		newSVGCmd(),
		newSnapshotCmd(),
	)

	err := rootCmd.Execute()
	if logger != nil {
		if err != nil {
			logger.Error(err)
		}
		_ = logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}
