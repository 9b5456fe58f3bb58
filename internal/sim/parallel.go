package sim

import (
	"context"
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/multibody/internal/dynamics"
	"github.com/san-kum/multibody/internal/logging"
)

// Build wires the simulator for one ensemble member around its own copy of
// the base skeleton.
type Build func(run int, skel *dynamics.Skeleton) (*Simulator, error)

// Ensemble runs several independent copies of a skeleton concurrently.
// Members never share a skeleton.
type Ensemble struct {
	base    *dynamics.Skeleton
	build   Build
	numRuns int
	workers int
	logger  *zap.SugaredLogger
}

func NewEnsemble(base *dynamics.Skeleton, numRuns int, build Build) *Ensemble {
	return &Ensemble{
		base:    base,
		build:   build,
		numRuns: numRuns,
		workers: runtime.GOMAXPROCS(0),
		logger:  logging.NewNop(),
	}
}

// SetWorkers bounds how many members run at once; n < 1 means no bound.
func (e *Ensemble) SetWorkers(n int)               { e.workers = n }
func (e *Ensemble) SetLogger(l *zap.SugaredLogger) { e.logger = l }

// Run simulates every member with cfg.Seed offset by its run index. Each
// member starts from the base skeleton's current positions and velocities.
// Failed members leave a nil or partial result; their errors are combined.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if e.numRuns < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "ensemble needs at least one run, got %d", e.numRuns)
	}
	snap := e.base.Configuration()
	start := dynamics.Configuration{Positions: snap.Positions, Velocities: snap.Velocities}

	sims := make([]*Simulator, e.numRuns)
	for i := range sims {
		skel := e.base.Clone(fmt.Sprintf("%s#%d", e.base.Name(), i))
		if err := skel.SetConfiguration(start); err != nil {
			return nil, errors.Wrapf(err, "run %d", i)
		}
		s, err := e.build(i, skel)
		if err != nil {
			return nil, errors.Wrapf(err, "build run %d", i)
		}
		sims[i] = s
	}

	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	g, gctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for i := range sims {
		i := i
		g.Go(func() error {
			runCfg := cfg
			runCfg.Seed = cfg.Seed + int64(i)
			res, err := sims[i].Run(gctx, runCfg)
			results[i] = res
			if err != nil {
				errs[i] = errors.Wrapf(err, "run %d", i)
				e.logger.Warnw("ensemble member failed", "run", i, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, multierr.Combine(errs...)
}

// CheckAgreement reports every result whose final state differs from the
// first one by more than tol in any component.
func CheckAgreement(results []*Result, tol float64) error {
	if len(results) < 2 {
		return nil
	}
	ref := results[0].Final()
	var err error
	for i, r := range results[1:] {
		got := r.Final()
		if len(got) != len(ref) || !floats.EqualApprox(got, ref, tol) {
			err = multierr.Append(err, errors.Wrapf(ErrDiverged, "run %d", i+1))
		}
	}
	return err
}
