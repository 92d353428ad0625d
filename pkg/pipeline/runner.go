package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dabble/pkg/builder"
	"github.com/matzehuels/dabble/pkg/buildinfo"
	"github.com/matzehuels/dabble/pkg/cache"
	"github.com/matzehuels/dabble/pkg/engine"
	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/history"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache, history and logger - it
// doesn't store build results. Every run gets its own structure engine, so
// multiple goroutines can safely use the same Runner with different
// options.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger
	History *history.Store // optional
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// System is a built simulation cell held in memory.
type System struct {
	builder.Result
	eng *engine.Engine
}

// Save writes the kept atoms of the system to path.
func (s *System) Save(path string) error {
	return s.eng.Save(s.Handle, path)
}

// Structure returns a copy of the system.
func (s *System) Structure() (*structure.Structure, error) {
	return s.eng.Snapshot(s.Handle)
}

// Release frees the system.
func (s *System) Release() {
	s.eng.Release(s.Handle)
}

// Build assembles the system without writing it. The caller must Release
// the returned system.
func (r *Runner) Build(ctx context.Context, opts Options) (*System, error) {
	r.applyLogger(&opts)
	cfg, err := opts.Config()
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	eng := engine.New(opts.Logger)
	b := builder.New(eng, eng, r.Cache, r.Keyer, opts.Logger)
	res, err := b.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &System{Result: *res, eng: eng}, nil
}

// Write validates the options and the output, builds the system and
// writes it. The output path, its format and the overwrite rule are
// checked before the build starts. When the build succeeds but the write
// fails, the partial result is returned along with the error.
func (r *Runner) Write(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	started := time.Now()
	result, err := r.write(ctx, &opts)
	if r.History != nil {
		r.record(ctx, opts, started, result, err)
	}
	return result, err
}

func (r *Runner) write(ctx context.Context, opts *Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	topos, _ := derrors.SplitFileList(opts.ExtraTopos)
	params, _ := derrors.SplitFileList(opts.ExtraParams)
	result := &Result{Output: opts.Output, ExtraTopos: topos, ExtraParams: params}

	// Stage 1: Build
	buildStart := time.Now()
	sys, err := r.Build(ctx, *opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	defer sys.Release()
	result.Report = sys.Report
	result.Stats.BuildTime = time.Since(buildStart)

	// Stage 2: Write
	writeStart := time.Now()
	if err := sys.Save(opts.Output); err != nil {
		return result, fmt.Errorf("write: %w", err)
	}
	result.Stats.WriteTime = time.Since(writeStart)

	r.Logger.Info("wrote system",
		"output", opts.Output,
		"atoms", sys.Report.Atoms,
		"duration", result.Stats.WriteTime)
	if len(topos)+len(params) > 0 {
		r.Logger.Info("extra force field files", "topologies", topos, "parameters", params)
	}
	return result, nil
}

// record stores the outcome of a Write in the history. Failures to record
// are logged, never returned.
func (r *Runner) record(ctx context.Context, opts Options, started time.Time, result *Result, buildErr error) {
	rec := history.Record{
		StartedAt: started,
		Duration:  time.Since(started),
		Status:    history.StatusOK,
		Version:   buildinfo.Short(),
		Solute:    opts.Solute,
		Membrane:  opts.Membrane,
		Output:    opts.Output,
	}
	if raw, err := json.Marshal(opts); err == nil {
		rec.Options = raw
	}
	if result != nil {
		rep := result.Report
		rec.ID = rep.BuildID
		rec.Box = [3]float64(rep.Box)
		rec.Atoms = rep.Atoms
		rec.Waters = rep.Waters
		rec.Cations = rep.Ions.Cations
		rec.Anions = rep.Ions.Anions
		rec.FinalCharge = rep.FinalCharge
		rec.ExtraFiles = append(append([]string(nil), result.ExtraTopos...), result.ExtraParams...)
	}
	if buildErr != nil {
		rec.Status = history.StatusFailed
		rec.Error = derrors.UserMessage(buildErr)
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("failed-%d", started.UnixNano())
	}
	if err := r.History.Add(ctx, rec); err != nil {
		r.Logger.Warn("could not record build", "error", err)
	}
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	var err error
	if r.History != nil {
		err = r.History.Close()
	}
	if r.Cache != nil {
		if cerr := r.Cache.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
