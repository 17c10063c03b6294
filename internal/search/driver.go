// Package search implements the parallel, level-wise beam-search model
// lattice driver (SPEC_FULL.md §4.8/§4.10): given a seed model, it
// repeatedly generates neighbours, evaluates them concurrently on a
// work-stealing pool, keeps the top-width models by statistic, and
// iterates up to maxLevels, emitting progress events along the way.
package search

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gitrdm/gorecon/internal/parallel"
	"github.com/gitrdm/gorecon/pkg/ra"
)

// Direction selects whether the search refines from the independence
// model toward the saturated model (Ascending) or coarsens in the
// opposite direction (Descending). Only Ascending's neighbour operator
// ("add one variable to one relation") is implemented by
// ra.GenerateNeighbors; Descending is accepted by Config for interface
// completeness but currently runs the same ascending operator, since no
// coarsening generator exists yet (see DESIGN.md Open Question).
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Config parameterizes one search run.
type Config struct {
	Width      int
	MaxLevels  int
	Statistic  ra.Statistic
	Filter     ra.Filter
	Direction  Direction
	Workers    int
	Progress   ra.ProgressFunc
	ShouldStop func() bool
	Logger     *zap.SugaredLogger
}

// Driver runs a beam search over the model lattice implied by a fixed
// VariableList and normalized input table.
type Driver struct {
	vl     *ra.VariableList
	table  *ra.ContingencyTable
	n      float64
	cfg    Config
	pool   *parallel.WorkerPool
	logger *zap.SugaredLogger
}

// New returns a Driver over vl/table (table must already be sorted and
// normalized) with total sample size n, using the given configuration.
func New(vl *ra.VariableList, table *ra.ContingencyTable, n float64, cfg Config) *Driver {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Width <= 0 {
		cfg.Width = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver{
		vl:     vl,
		table:  table,
		n:      n,
		cfg:    cfg,
		pool:   parallel.NewWorkerPool(cfg.Workers),
		logger: logger,
	}
}

// Close releases the driver's worker pool. Call once the driver is no
// longer needed.
func (d *Driver) Close() {
	d.pool.Shutdown()
}

type taskResult struct {
	model Model
	value float64
	err   error
}

// Model is re-exported so callers of this package don't need to import
// pkg/ra directly just to hold onto search results.
type Model = ra.Model

// Result is the outcome of a completed search.
type Result struct {
	Best              Model
	BestStatisticName string
	BestValue         float64
	TotalEvaluated    int
}

// Run executes the beam search starting from seed, emitting progress
// events via cfg.Progress and stopping early if cfg.ShouldStop returns
// true between levels.
func (d *Driver) Run(ctx context.Context, seed Model) (Result, error) {
	frontier := []Model{seed}
	best := seed
	bestValue, err := d.statisticOf(seed)
	if err != nil {
		return Result{}, err
	}
	evaluated := 0

	d.emit(ra.SearchStarted{
		TotalLevels:   d.cfg.MaxLevels,
		StatisticName: d.cfg.Statistic.String(),
		Timestamp:     nowFunc(),
	})

	for level := 1; level <= d.cfg.MaxLevels; level++ {
		candidates := d.generateCandidates(frontier)
		if len(candidates) == 0 {
			break
		}

		results, allFailed := d.evaluateLevel(ctx, candidates)
		evaluated += len(results)
		if allFailed {
			d.logger.Warnw("search level: every candidate failed", "level", level)
			break
		}

		sort.SliceStable(results, func(i, j int) bool {
			return results[i].value < results[j].value
		})

		newFrontier := make([]Model, 0, d.cfg.Width)
		for _, r := range results {
			if r.err != nil {
				continue
			}
			newFrontier = append(newFrontier, r.model)
			if len(newFrontier) == d.cfg.Width {
				break
			}
		}
		if len(newFrontier) == 0 {
			break
		}
		if results[0].err == nil && results[0].value < bestValue {
			best = results[0].model
			bestValue = results[0].value
		}

		d.emit(ra.SearchLevel{
			CurrentLevel:         level,
			TotalLevels:          d.cfg.MaxLevels,
			TotalModelsEvaluated: evaluated,
			BestModelName:        best.PrintName(d.vl),
			BestStatistic:        bestValue,
			StatisticName:        d.cfg.Statistic.String(),
			Timestamp:            nowFunc(),
		})

		if modelsEqual(newFrontier, frontier) {
			break
		}
		frontier = newFrontier

		if d.cfg.ShouldStop != nil && d.cfg.ShouldStop() {
			break
		}
	}

	d.emit(ra.SearchComplete{
		TotalModelsEvaluated: evaluated,
		BestModelName:        best.PrintName(d.vl),
		BestStatistic:        bestValue,
		StatisticName:        d.cfg.Statistic.String(),
		Timestamp:            nowFunc(),
	})

	return Result{
		Best:              best,
		BestStatisticName: d.cfg.Statistic.String(),
		BestValue:         bestValue,
		TotalEvaluated:    evaluated,
	}, nil
}

func (d *Driver) statisticOf(m Model) (float64, error) {
	vb := ra.NewVBManager(d.vl, d.table, d.n)
	st, err := vb.ComputeStats(m)
	if err != nil {
		return 0, err
	}
	return d.cfg.Statistic.Value(st), nil
}

func (d *Driver) generateCandidates(frontier []Model) []Model {
	seen := map[string]bool{}
	var out []Model
	for _, m := range frontier {
		for _, n := range ra.GenerateNeighbors(d.vl, m, d.cfg.Filter) {
			name := n.PrintName(d.vl)
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, n)
		}
	}
	return out
}

// evaluateLevel dispatches one task per candidate onto the work-stealing
// pool. Each task owns its own VBManager (no shared mutable projection
// cache across goroutines) and writes only to its pre-assigned slot of
// results, so no cross-task synchronization is needed beyond the join.
// errgroup.Group joins the level's fan-out: a task's error is reported
// back through the group without cancelling its siblings, and the level
// as a whole only aborts if every task failed.
func (d *Driver) evaluateLevel(ctx context.Context, candidates []Model) ([]taskResult, bool) {
	results := make([]taskResult, len(candidates))
	g := new(errgroup.Group)

	for i, m := range candidates {
		i, m := i, m
		g.Go(func() error {
			done := make(chan struct{})
			submitErr := d.pool.Submit(ctx, func() {
				defer close(done)
				vb := ra.NewVBManager(d.vl, d.table, d.n)
				st, err := vb.ComputeStats(m)
				if err != nil {
					results[i] = taskResult{model: m, err: err}
					return
				}
				results[i] = taskResult{model: m, value: d.cfg.Statistic.Value(st)}
			})
			if submitErr != nil {
				results[i] = taskResult{model: m, err: submitErr}
				return submitErr
			}
			<-done
			return results[i].err
		})
	}

	if err := g.Wait(); err != nil {
		d.logger.Debugw("search level: at least one candidate failed", "error", err)
	}

	allFailed := true
	for _, r := range results {
		if r.err == nil {
			allFailed = false
			break
		}
	}
	return results, allFailed
}

func (d *Driver) emit(event interface{}) {
	if d.cfg.Progress != nil {
		d.cfg.Progress(event)
	}
}

func modelsEqual(a, b []Model) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// nowFunc is a seam for deterministic progress-event timestamps in
// tests.
var nowFunc = time.Now
