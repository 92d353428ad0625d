package builder

import (
	"context"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dabble/pkg/cache"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/observability"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Builder runs builds against a structure engine.
//
// A Builder holds no per-build state. Each call to Build gets its own
// [Context], so one Builder may run several builds one after another.
type Builder struct {
	Engine    Engine
	Analytics Analytics
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
}

// New creates a builder. A nil cache disables patch caching, a nil keyer
// uses cache.DefaultKeyer and a nil logger discards output.
func New(eng Engine, an Analytics, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Builder {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Builder{Engine: eng, Analytics: an, Cache: c, Keyer: keyer, Logger: logger}
}

// Result is a finished build. The caller owns Handle and releases it once
// the system is written.
type Result struct {
	Handle structure.Handle
	Box    geom.Vec3
	Report Report
}

// Report collects the diagnostics of a build. None of the counts affect
// whether a build succeeds.
type Report struct {
	BuildID     string
	Orientation string
	WaterOnly   bool

	Extents     Extents
	Box         geom.Vec3
	PatchSize   geom.Vec3
	TileFactors [3]int
	Water       WaterFill

	Trimmed         int // atoms outside the solvent envelope
	BoundaryTrimmed int // atoms of residues sticking out of the box
	Clashes         ClashReport

	InitialLipids map[string]int // lipid molecules by residue name
	FinalLipids   map[string]int

	SoluteCharge float64
	SystemCharge float64
	Ions         IonPlan
	FinalCharge  float64

	Waters   int
	Atoms    int
	Duration time.Duration
}

// Build assembles the system described by cfg.
//
// The configuration is checked before any structure is loaded. All
// intermediate structures are released when Build returns, whether it
// succeeds or not.
func (b *Builder) Build(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c, err := NewContext(b.Engine, cfg.ScratchDir, *cfg.Seed, cfg.KeepScratch, b.Logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.Close(); err != nil {
			b.Logger.Warn("could not remove scratch directory", "path", c.Scratch, "error", err)
		}
	}()

	rep := Report{BuildID: c.ID, Orientation: cfg.Orientation.Name()}
	stages := []struct {
		name string
		run  func() error
	}{
		{"load", func() error { return b.load(c, cfg, &rep) }},
		{"orient", func() error { return b.orient(c, cfg) }},
		{"size", func() error { return b.size(c, cfg, &rep) }},
		{"tile", func() error { return b.tile(ctx, c, cfg, &rep) }},
		{"compose", func() error { return b.compose(c) }},
		{"solvate", func() error {
			fill, err := b.addWater(ctx, c, cfg)
			rep.Water = fill
			return err
		}},
		{"trim", func() error { return b.trim(ctx, c, cfg, &rep) }},
		{"clash", func() error { return b.clash(ctx, c, cfg, &rep) }},
		{"charge", func() error { return b.charge(c, &rep) }},
		{"ions", func() error { return b.ions(ctx, c, cfg, &rep) }},
	}
	for _, s := range stages {
		if err := b.stage(ctx, s.name, s.run); err != nil {
			return nil, err
		}
	}

	h, err := c.detach("combined")
	if err != nil {
		return nil, err
	}
	rep.Duration = time.Since(start)
	b.Logger.Info("built system",
		"atoms", rep.Atoms,
		"waters", rep.Waters,
		"charge", rep.FinalCharge,
		"duration", rep.Duration)
	return &Result{Handle: h, Box: c.Box, Report: rep}, nil
}

// stage runs fn as the named build stage and reports it to the build
// hooks.
func (b *Builder) stage(ctx context.Context, name string, fn func() error) error {
	hooks := observability.Build()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	err := fn()
	hooks.OnStageComplete(ctx, name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (b *Builder) load(c *Context, cfg Config, rep *Report) error {
	sol, err := b.Engine.Load(cfg.Solute)
	if err != nil {
		return err
	}
	c.put("solute", sol)
	if err := c.SetSolute(sol); err != nil {
		return err
	}

	mem, err := b.Engine.Load(cfg.Membrane)
	if err != nil {
		return err
	}
	c.put("membrane", mem)
	lipids, err := b.Engine.Select(mem, cfg.LipidSel)
	if err != nil {
		return err
	}
	c.WaterOnly = len(lipids) == 0
	rep.WaterOnly = c.WaterOnly
	if c.WaterOnly {
		b.Logger.Info("no lipid in patch, building a solvent-only system")
	}
	return nil
}

func (b *Builder) orient(c *Context, cfg Config) error {
	sol, err := c.mustHandle("solute")
	if err != nil {
		return err
	}
	oriented, err := cfg.Orientation.orient(b, c, sol)
	if err != nil {
		return err
	}
	c.put("solute", oriented)
	return nil
}

func (b *Builder) size(c *Context, cfg Config, rep *Report) error {
	sol, err := c.mustHandle("solute")
	if err != nil {
		return err
	}
	ext, err := b.CellSize(c, sol, "")
	if err != nil {
		return err
	}
	box := BoxSize(ext, cfg.XYBuffer, cfg.WaterBuffer)
	if cfg.BoxX > 0 {
		box[0] = cfg.BoxX
	}
	if cfg.BoxY > 0 {
		box[1] = cfg.BoxY
	}
	c.Box = box
	rep.Extents, rep.Box = ext, box

	b.Logger.Info("computed box",
		"x", box[0], "y", box[1], "z", box[2],
		"solute_x", ext.SoluteX, "solute_y", ext.SoluteY,
		"tm_x", ext.TMX, "tm_y", ext.TMY, "full_z", ext.FullZ)
	return nil
}

func (b *Builder) tile(ctx context.Context, c *Context, cfg Config, rep *Report) error {
	mem, err := c.mustHandle("membrane")
	if err != nil {
		return err
	}
	if rep.PatchSize, err = b.Analytics.Dimensions(mem); err != nil {
		return err
	}
	tiled, n, err := b.Tile(ctx, c, mem, cfg.Membrane, c.Box, c.WaterOnly)
	if err != nil {
		return err
	}
	c.put("tiled_membrane", tiled)
	c.release("membrane")
	rep.TileFactors = n
	b.Logger.Info("tiled solvent patch",
		"patch_x", rep.PatchSize[0], "patch_y", rep.PatchSize[1], "patch_z", rep.PatchSize[2],
		"x", n[0], "y", n[1], "z", n[2])
	return b.Engine.Center(tiled, true)
}

func (b *Builder) trim(ctx context.Context, c *Context, cfg Config, rep *Report) error {
	h, err := c.mustHandle("combined")
	if err != nil {
		return err
	}
	if rep.Trimmed, err = b.Trim(ctx, c, h, cfg.WaterBuffer); err != nil {
		return err
	}
	b.Logger.Info("trimmed solvent", "atoms", rep.Trimmed)
	if !c.WaterOnly {
		if rep.BoundaryTrimmed, err = b.trimBoundary(ctx, c, h, cfg.LipidSel); err != nil {
			return err
		}
		b.Logger.Info("trimmed residues outside the box", "atoms", rep.BoundaryTrimmed)
	}
	return b.Engine.SetCell(h, c.Box)
}

func (b *Builder) clash(ctx context.Context, c *Context, cfg Config, rep *Report) error {
	if c.WaterOnly {
		return nil
	}
	h, err := c.mustHandle("combined")
	if err != nil {
		return err
	}
	if rep.InitialLipids, err = b.lipidComposition(h, cfg.LipidSel); err != nil {
		return err
	}
	logComposition(b.Logger, "initial membrane composition", rep.InitialLipids)
	if rep.Clashes, err = b.ResolveClashes(ctx, c, h, cfg); err != nil {
		return err
	}
	if rep.FinalLipids, err = b.lipidComposition(h, cfg.LipidSel); err != nil {
		return err
	}
	logComposition(b.Logger, "final membrane composition", rep.FinalLipids)
	return nil
}

func (b *Builder) charge(c *Context, rep *Report) error {
	h, err := c.mustHandle("combined")
	if err != nil {
		return err
	}
	if rep.SoluteCharge, err = b.Analytics.NetCharge(h, sel.And(sel.IsKept(), c.Solute())); err != nil {
		return err
	}
	if rep.SystemCharge, err = b.Analytics.SystemNetCharge(h); err != nil {
		return err
	}
	b.Logger.Info("net charge", "solute", math.Round(rep.SoluteCharge), "system", math.Round(rep.SystemCharge))
	return nil
}

func (b *Builder) ions(ctx context.Context, c *Context, cfg Config, rep *Report) error {
	h, err := c.mustHandle("combined")
	if err != nil {
		return err
	}
	if rep.Ions, err = b.PlaceIons(ctx, c, h, cfg); err != nil {
		return err
	}
	if rep.FinalCharge, err = b.Analytics.SystemNetCharge(h); err != nil {
		return err
	}
	if rep.Waters, err = b.countWaters(h, cfg.WaterResName); err != nil {
		return err
	}
	ids, err := b.Engine.Select(h, sel.IsKept())
	rep.Atoms = len(ids)
	return err
}

// lipidComposition counts kept lipid molecules by residue name.
func (b *Builder) lipidComposition(h structure.Handle, lipid sel.Expr) (map[string]int, error) {
	ids, err := b.Engine.Select(h, sel.And(sel.IsKept(), lipid))
	if err != nil {
		return nil, err
	}
	atoms, err := b.Engine.Atoms(h, ids)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	out := make(map[string]int)
	for i := range atoms {
		if !seen[atoms[i].Residue] {
			seen[atoms[i].Residue] = true
			out[atoms[i].ResName]++
		}
	}
	return out, nil
}

func (b *Builder) countWaters(h structure.Handle, waterRes string) (int, error) {
	ids, err := b.Engine.Select(h, sel.And(sel.IsKept(), sel.Is(sel.ResName, waterRes), sel.Is(sel.Element, "O")))
	return len(ids), err
}

func logComposition(logger *log.Logger, msg string, counts map[string]int) {
	kv := make([]any, 0, 2*len(counts))
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		kv = append(kv, name, counts[name])
	}
	logger.Info(msg, kv...)
}
