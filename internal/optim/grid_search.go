// Package optim searches model parameters for the run that minimizes a
// metric.
package optim

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/multibody/internal/config"
	"github.com/san-kum/multibody/internal/experiment"
)

var ErrUnknownMetric = errors.New("unknown metric")

// EnergyDrift names the relative energy drift of a run. Any other name is
// looked up in the run's metrics.
const EnergyDrift = "energy_drift"

// Point is one evaluated grid point.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// GridSearch evaluates every combination of the given parameter values.
type GridSearch struct {
	names   []string
	values  map[string][]float64
	workers int
	logger  *zap.SugaredLogger
}

func NewGridSearch(values map[string][]float64) *GridSearch {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	return &GridSearch{names: names, values: values, logger: zap.NewNop().Sugar()}
}

func (g *GridSearch) SetWorkers(n int)               { g.workers = n }
func (g *GridSearch) SetLogger(l *zap.SugaredLogger) { g.logger = l }

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, k := range g.names {
		n *= len(g.values[k])
	}
	return n
}

func (g *GridSearch) combinations() []map[string]float64 {
	out := []map[string]float64{{}}
	for _, k := range g.names {
		var next []map[string]float64
		for _, prev := range out {
			for _, v := range g.values[k] {
				p := make(map[string]float64, len(prev)+1)
				for pk, pv := range prev {
					p[pk] = pv
				}
				p[k] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}

// Search runs base once per grid point with the point's values laid over
// base.Params. A point whose run fails keeps its error and a +Inf value; the
// search itself fails only when ctx is cancelled. Points come back in grid
// order with the best one returned separately.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, registry *experiment.Registry, metric string) ([]Point, *Point, error) {
	combos := g.combinations()
	points := make([]Point, len(combos))

	eg, ctx := errgroup.WithContext(ctx)
	if g.workers > 0 {
		eg.SetLimit(g.workers)
	}
	var mu sync.Mutex
	done := 0
	for i, params := range combos {
		i, params := i, params
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := evaluate(ctx, base, registry, params, metric)
			if errors.Is(err, context.Canceled) {
				return err
			}
			points[i] = Point{Params: params, Value: v, Err: err}

			mu.Lock()
			done++
			g.logger.Debugw("grid point", "done", done, "of", len(combos), "params", params, "value", v, "err", err)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var best *Point
	for i := range points {
		if points[i].Err == nil && (best == nil || points[i].Value < best.Value) {
			best = &points[i]
		}
	}
	if best == nil {
		return points, nil, errors.New("no grid point completed")
	}
	return points, best, nil
}

func evaluate(ctx context.Context, base *config.Config, registry *experiment.Registry, params map[string]float64, metric string) (float64, error) {
	cfg := base.Clone()
	if cfg.Params == nil {
		cfg.Params = make(map[string]float64, len(params))
	}
	for k, v := range params {
		cfg.Params[k] = v
	}

	exp := experiment.New(cfg, registry, nil)
	if err := exp.Setup(); err != nil {
		return math.Inf(1), err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return math.Inf(1), err
	}
	if metric == EnergyDrift {
		return result.EnergyDrift, nil
	}
	v, ok := result.Metrics[metric]
	if !ok {
		return math.Inf(1), errors.Wrapf(ErrUnknownMetric, "%q", metric)
	}
	return v, nil
}
