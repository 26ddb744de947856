package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"flowlower/internal/diag"
	"flowlower/internal/lower"
	"flowlower/internal/observ"
	"flowlower/internal/project"
	"flowlower/internal/source"
	"flowlower/internal/trace"
)

// DefaultMaxDiagnostics bounds each unit's bag when Options leaves it unset.
const DefaultMaxDiagnostics = 100

// Options configures LowerUnits.
type Options struct {
	Strict         bool
	KeepAccessors  bool
	Jobs           int // <= 0 means GOMAXPROCS
	MaxDiagnostics int
	// Backup, when set, receives a registry snapshot of every unit before
	// it is lowered. A unit whose backup fails is not lowered.
	Backup   *BackupStore
	Progress ProgressSink
	// Timings appends an ObsTimings diagnostic to every unit's bag.
	Timings bool
	// DryRun checks the whole graph first, then lowers copies of the graph
	// and registry. Units keep their loaded form and Backup is not used.
	DryRun bool
}

// UnitResult holds the outcome for one unit file.
type UnitResult struct {
	Path       string
	Unit       *project.Unit // nil when loading failed
	Bag        *diag.Bag
	Lower      *lower.Result // nil unless lowering succeeded
	BackupPath string
	Timing     observ.Report
	Err        error
}

// Failed reports whether the unit produced an error or error diagnostics.
func (r *UnitResult) Failed() bool {
	return r.Err != nil || (r.Bag != nil && r.Bag.HasErrors())
}

// LowerUnits loads and lowers every unit in paths concurrently. Units are
// independent: one failing unit does not stop the others, its error is
// kept in its UnitResult. The returned error is non-nil only when ctx was
// cancelled. Results are in paths order.
func LowerUnits(ctx context.Context, paths []string, opts Options) ([]UnitResult, error) {
	results := make([]UnitResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	maxDiag := opts.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = DefaultMaxDiagnostics
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "lower-units", trace.ParentSpan(ctx))
	span.WithExtra("units", strconv.Itoa(len(paths))).WithExtra("jobs", strconv.Itoa(jobs))
	ctx = trace.WithSpan(ctx, span)

	for _, path := range paths {
		emit(opts.Progress, Event{File: path, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = lowerUnit(gctx, path, maxDiag, opts)
			if errors.Is(results[i].Err, context.Canceled) || errors.Is(results[i].Err, context.DeadlineExceeded) {
				return results[i].Err
			}
			return nil
		})
	}

	err := g.Wait()
	failed := 0
	for i := range results {
		if results[i].Path == "" {
			results[i].Path = paths[i]
		}
		if results[i].Failed() {
			failed++
		}
	}
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	span.WithExtra("failed", strconv.Itoa(failed)).End(detail)
	return results, err
}

func lowerUnit(ctx context.Context, path string, maxDiag int, opts Options) UnitResult {
	res := UnitResult{Path: path, Bag: diag.NewBag(maxDiag)}
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag})
	timer := observ.NewTimer()
	started := time.Now()

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeUnit, "unit:"+path, trace.ParentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)

	fail := func(stage Stage, err error) UnitResult {
		res.Err = err
		res.Timing = timer.Report()
		if opts.Timings {
			appendTimingDiagnostic(res.Bag, path, res.Timing)
		}
		emit(opts.Progress, Event{File: path, Stage: stage, Status: StatusError, Err: err, Elapsed: time.Since(started)})
		span.End(err.Error())
		return res
	}

	emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusWorking})
	idx := timer.Begin(string(StageLoad))
	unit, err := project.LoadUnit(path, reporter)
	timer.End(idx, "")
	if err != nil {
		if !errors.Is(err, project.ErrInvalidUnit) {
			diag.ReportError(reporter, diag.ProjLoadError, source.UnitLoc(path), err.Error()).Emit()
		}
		return fail(StageLoad, err)
	}
	res.Unit = unit
	span.WithExtra("digest", unit.Digest.Short())

	graph, reg := unit.Graph, unit.Registry
	if opts.DryRun {
		if err := checkUnit(reporter, unit); err != nil {
			return fail(StageLoad, err)
		}
		graph, reg = graph.Clone(), reg.Clone()
	}

	if opts.Backup != nil && !opts.DryRun {
		emit(opts.Progress, Event{File: path, Stage: StageBackup, Status: StatusWorking})
		idx = timer.Begin(string(StageBackup))
		res.BackupPath, err = opts.Backup.Put(unit, unit.Registry)
		timer.End(idx, res.BackupPath)
		if err != nil {
			err = fmt.Errorf("backup %s: %w", unit.Name, err)
			diag.ReportError(reporter, diag.ProjBackupFailed, source.UnitLoc(unit.Name), err.Error()).Emit()
			return fail(StageBackup, err)
		}
	}

	emit(opts.Progress, Event{File: path, Stage: StageLower, Status: StatusWorking})
	idx = timer.Begin(string(StageLower))
	lres, err := lower.Run(ctx, graph, reg, lower.Options{
		Unit:          unit.Name,
		Strict:        opts.Strict,
		KeepAccessors: opts.KeepAccessors,
		Reporter:      reporter,
	})
	note := ""
	if lres != nil {
		note = fmt.Sprintf("%d rewritten", lres.Rewritten)
	}
	timer.End(idx, note)
	if err != nil {
		return fail(StageLower, err)
	}
	res.Lower = lres

	res.Timing = timer.Report()
	if opts.Timings {
		appendTimingDiagnostic(res.Bag, path, res.Timing)
	}
	status := StatusDone
	if res.Bag.HasErrors() {
		status = StatusError
	}
	emit(opts.Progress, Event{File: path, Stage: StageLower, Status: status, Elapsed: time.Since(started)})
	span.End("")
	return res
}
