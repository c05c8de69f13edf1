package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	county "github.com/khslmr/covid-county-corr"
	"github.com/khslmr/covid-county-corr/sources"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Inputs are the decoded rows of every source, as handed over by the file readers.
type Inputs struct {
	FIPS         []sources.FIPSRow
	Population   []sources.PopulationRow
	LandArea     []sources.LandAreaRow
	Unemployment []sources.UnemploymentRow
	Income       []sources.IncomeRow
	GDP          []sources.GDPRow
	Education    []sources.EducationRow
	Legislature  []sources.LegislatureRow
	Races        []sources.Race
	Tmax         []sources.TmaxRow
	Locations    []sources.LocationRow
	Cases        sources.CovidSeries
	Deaths       sources.CovidSeries
}

// Result is the unified table and what each source reported along the way, in merge order.
type Result struct {
	Registry *county.Registry
	Unified  *county.Unified
	Reports  []*sources.Report
}

// Err joins the record errors of every source.
func (r *Result) Err() error {
	var errs []error
	for _, rep := range r.Reports {
		if e := rep.Err(); e != nil {
			errs = append(errs, e)
		}
	}

	return errors.Join(errs...)
}

type runner struct {
	logger  *zap.Logger
	metrics *Metrics
}

type Opt func(r *runner)

func WithLogger(logger *zap.Logger) Opt {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Opt {
	return func(r *runner) {
		r.metrics = m
	}
}

// columns computed after the merge; the inputs listed in dropAfter are not kept
var derived = []struct {
	name string
	fn   county.DeriveFunc
}{
	{"popl_density", county.Log10Div(sources.ColPopulation, "land_area")},
	{"prcnt_poverty", county.Div("n_poverty", sources.ColPopulation)},
	{"per_capita_gdp", county.Div("gdp", sources.ColPopulation)},
}

var dropAfter = []string{"n_poverty", "gdp", sources.TmaxAlt}

type adapter func(reg *county.Registry) (county.Source, *sources.Report, error)

// Run reconciles every source onto the registry built from in.FIPS: population first (it supplies the weights),
// then the remaining sources in parallel, merged in a fixed order, then the derived columns.
// A configuration error aborts the run; record errors are only reported.
func Run(ctx context.Context, cfg *Config, in *Inputs, opts ...Opt) (*Result, error) {
	r := &runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	if cfg == nil {
		cfg = DefaultConfig()
	}

	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	var (
		overrides   county.Overrides
		dropped     []int
		caseBounds  []time.Time
		deathBounds []time.Time
		e           error
	)
	if overrides, e = cfg.Overrides(); e != nil {
		return nil, e
	}

	if dropped, e = cfg.DroppedIDs(); e != nil {
		return nil, e
	}

	if caseBounds, e = cfg.CaseBoundaries(); e != nil {
		return nil, e
	}

	if deathBounds, e = cfg.DeathBoundaries(); e != nil {
		return nil, e
	}

	var rows []county.RegistryRow
	if rows, e = sources.FIPS(in.FIPS); e != nil {
		return nil, e
	}

	var names *county.Registry
	if names, e = county.Build(rows, overrides); e != nil {
		return nil, e
	}

	pop, popRep, e := r.run("population", func(reg *county.Registry) (county.Source, *sources.Report, error) {
		return sources.Population(reg, in.Population)
	}, names)
	if e != nil {
		return nil, e
	}

	var reg *county.Registry
	if reg, e = county.Build(sources.Weighted(rows, overrides, pop.Table, sources.ColPopulation), overrides); e != nil {
		return nil, e
	}

	for _, id := range dropped {
		if e := reg.Drop(id); e != nil {
			return nil, e
		}
	}

	r.logger.Info("registry built", zap.Int("entities", reg.Len()), zap.Int("dropped", len(dropped)))

	adapters := []struct {
		name string
		fn   adapter
	}{
		{"land_area", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.LandArea(reg, in.LandArea)
		}},
		{"unemployment", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.Unemployment(reg, in.Unemployment, cfg.Unemployment)
		}},
		{"income", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.Income(reg, in.Income)
		}},
		{"gdp", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.GDP(reg, in.GDP)
		}},
		{"education", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.Education(reg, in.Education)
		}},
		{"legislature", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.Legislature(reg, in.Legislature)
		}},
		{"election", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.Election(reg, in.Races, cfg.Election.Overrides)
		}},
		{"regions", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.Regions(reg, sources.DefaultRegions)
		}},
		{"temperature", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.Temperature(reg, in.Tmax, in.Locations, cfg.Temperature.Year)
		}},
		{"covid", func(reg *county.Registry) (county.Source, *sources.Report, error) {
			return sources.Covid(reg, in.Cases, in.Deaths, caseBounds, deathBounds)
		}},
	}

	srcs := make([]county.Source, len(adapters)+1)
	reps := make([]*sources.Report, len(adapters)+1)
	srcs[0], reps[0] = pop, popRep

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Run.Workers)
	for ind, a := range adapters {
		g.Go(func() error {
			if ex := gctx.Err(); ex != nil {
				return ex
			}

			src, rep, ex := r.run(a.name, a.fn, reg)
			if ex != nil {
				return ex
			}

			srcs[ind+1], reps[ind+1] = src, rep

			return nil
		})
	}

	if e := g.Wait(); e != nil {
		return nil, e
	}

	var u *county.Unified
	if u, e = county.Merge(reg, srcs, county.MergeLogger(r.logger)); e != nil {
		return nil, e
	}

	for _, src := range srcs {
		r.metrics.AddDropped(src.Table.Name(), len(u.Dropped(src.Table.Name())))
	}

	if e := derive(u); e != nil {
		return nil, e
	}

	r.metrics.SetRows(u.Len())
	r.logger.Info("unified table complete", zap.Int("rows", u.Len()), zap.Int("columns", len(u.Columns())))

	return &Result{Registry: reg, Unified: u, Reports: reps}, nil
}

func (r *runner) run(name string, fn adapter, reg *county.Registry) (county.Source, *sources.Report, error) {
	start := time.Now()
	src, rep, e := fn(reg)
	r.metrics.ObserveSource(name, time.Since(start))
	if e != nil {
		return county.Source{}, nil, fmt.Errorf("%s: %w", name, e)
	}

	failed, skipped := len(rep.Errors), len(rep.Skipped)
	r.metrics.AddRecords(name, "error", failed)
	r.metrics.AddRecords(name, "skipped", skipped)
	r.metrics.AddRecords(name, "ok", max(rep.Records-failed-skipped, 0))

	log := r.logger.With(zap.String("source", name))
	for _, ex := range rep.Errors {
		log.Debug("record not placed", zap.Error(ex))
	}

	if failed > 0 {
		log.Warn("source has record errors", zap.Int("errors", failed))
	}

	log.Info("source normalized", zap.Int("records", rep.Records), zap.Int("entities", src.Table.Len()),
		zap.Int("skipped", skipped), zap.Duration("elapsed", time.Since(start)))

	return src, rep, nil
}

// derive adds the per-capita and density columns, converts the binned covid counts to shares of the
// population (cases_prcnt_1, ...) and removes the intermediate columns.
func derive(u *county.Unified) error {
	for _, d := range derived {
		if e := u.Derive(d.name, d.fn); e != nil {
			return e
		}
	}

	drop := slices.Clone(dropAfter)
	for _, col := range u.Columns() {
		family, ok := covidFamily(col)
		if !ok {
			continue
		}

		name := family + "_prcnt_" + strings.TrimPrefix(col, family+"_")
		if e := u.Derive(name, county.Div(col, sources.ColPopulation)); e != nil {
			return e
		}

		drop = append(drop, col)
	}

	return u.DropColumns(drop...)
}

func covidFamily(col string) (string, bool) {
	for _, f := range []string{"cases", "deaths"} {
		if strings.HasPrefix(col, f+"_") && !strings.HasPrefix(col, f+"_prcnt_") {
			return f, true
		}
	}

	return "", false
}
