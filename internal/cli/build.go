package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dabble/pkg/observability"
	"github.com/matzehuels/dabble/pkg/pipeline"
)

// buildFlags holds the flag values of the build command. Flags are bound
// to a scratch Options and copied onto the configuration only when set,
// so an options file supplies everything not given on the command line.
type buildFlags struct {
	config      string
	opts        pipeline.Options
	saltConc    float64
	seed        uint64
	cache       cacheFlags
	metricsFile string
	noHistory   bool
	quiet       bool
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "build [solute]",
		Short: "Build a solvated or membrane-embedded system",
		Long: `Build a simulation system around a solute.

The solute is oriented, inserted into a tiled copy of the membrane or water
patch, padded with water, trimmed to the box, cleared of clashes and
neutralized with ions. Options may come from a TOML, YAML or JSON file given
with --config; flags override the file.`,
		Example: `  # POPC bilayer with defaults
  dabble build receptor.pdb -o system.pdb

  # Protein in a water box with 0.15 M KCl
  dabble build enzyme.pdb -o box.pdb.gz -M TIP3 --cation K

  # Align to an OPM reference and keep scratch files
  dabble build -c build.toml --opm-pdb 4dkl_opm.pdb --keep-scratch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd, args)
			if err != nil {
				return err
			}
			return c.runBuild(cmd.Context(), opts, f)
		},
	}

	f.register(cmd)
	return cmd
}

// register binds the build flags to cmd.
func (f *buildFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	o := &f.opts
	fl.StringVarP(&f.config, "config", "c", "", "options file (.toml, .yaml or .json)")
	fl.StringVarP(&o.Solute, "solute", "i", "", "solute structure file")
	fl.StringVarP(&o.Output, "output", "o", "", "output structure file (.pdb or .json, optionally .gz/.zst)")
	fl.StringVarP(&o.Membrane, "membrane", "M", pipeline.DefaultMembrane, "membrane patch file or preset name")
	fl.StringVar(&o.DataDir, "data-dir", "", "directory holding preset patches (default: $DABBLE_DATA)")
	fl.StringVar(&o.LipidSel, "lipid-sel", "", "selection of lipid atoms (default: known lipid residues)")
	fl.StringVar(&o.LipidFriendlySel, "lipid-friendly-sel", "", "solute atoms lipids may approach")
	fl.StringVar(&o.ClashLipids, "clash-lipids", "", "ring-bearing lipids to check at the periodic boundary")
	fl.Float64VarP(&o.XYBuf, "xy-buf", "m", pipeline.DefaultXYBuffer, "in-plane padding around the solute (Å)")
	fl.Float64VarP(&o.WatBuffer, "wat-buffer", "w", pipeline.DefaultWaterBuffer, "water padding along the membrane normal (Å)")
	fl.Float64Var(&o.BoxX, "box-x", 0, "explicit box size along x (Å)")
	fl.Float64Var(&o.BoxY, "box-y", 0, "explicit box size along y (Å)")
	fl.Float64VarP(&f.saltConc, "salt-conc", "s", pipeline.DefaultSaltConc, "salt concentration (M)")
	fl.StringVar(&o.Cation, "cation", pipeline.DefaultCation, "cation species (Na or K)")
	fl.IntVar(&o.NetCharge, "net-charge", 0, "target net charge of the system")
	fl.StringVar(&o.WaterResName, "water-resname", pipeline.DefaultWaterResName, "residue name of convertible waters")
	fl.Uint64Var(&f.seed, "seed", pipeline.DefaultSeed, "random seed for ion placement")
	fl.Float64Var(&o.ZMove, "z-move", 0, "move the solute along z (Å)")
	fl.Float64Var(&o.ZRotation, "z-rotation", 0, "rotate the solute about z (degrees)")
	fl.StringVar(&o.OPMPDB, "opm-pdb", "", "reference structure to align the solute to")
	fl.StringVar(&o.OPMAlign, "opm-align", "", "reference atoms used for alignment (default: backbone)")
	fl.BoolVar(&o.Overwrite, "overwrite", false, "replace an existing output file")
	fl.StringVar(&o.ExtraTopos, "extra-topos", "", "comma-separated extra topology files")
	fl.StringVar(&o.ExtraParams, "extra-params", "", "comma-separated extra parameter files")
	fl.StringVar(&o.ScratchDir, "scratch-dir", "", "parent of the build scratch directory")
	fl.BoolVar(&o.KeepScratch, "keep-scratch", false, "keep intermediate files")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics of the build to this file")
	fl.BoolVar(&f.noHistory, "no-history", false, "do not record the build in the history")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "show a spinner instead of log output")
	f.cache.register(cmd)
}

// options merges the options file, the positional solute and the flags
// that were set explicitly.
func (f *buildFlags) options(cmd *cobra.Command, args []string) (pipeline.Options, error) {
	var o pipeline.Options
	if f.config != "" {
		loaded, err := pipeline.LoadOptions(f.config)
		if err != nil {
			return o, err
		}
		o = loaded
	}

	fl := &f.opts
	overlay := map[string]func(){
		"solute":             func() { o.Solute = fl.Solute },
		"output":             func() { o.Output = fl.Output },
		"membrane":           func() { o.Membrane = fl.Membrane },
		"data-dir":           func() { o.DataDir = fl.DataDir },
		"lipid-sel":          func() { o.LipidSel = fl.LipidSel },
		"lipid-friendly-sel": func() { o.LipidFriendlySel = fl.LipidFriendlySel },
		"clash-lipids":       func() { o.ClashLipids = fl.ClashLipids },
		"xy-buf":             func() { o.XYBuf = fl.XYBuf },
		"wat-buffer":         func() { o.WatBuffer = fl.WatBuffer },
		"box-x":              func() { o.BoxX = fl.BoxX },
		"box-y":              func() { o.BoxY = fl.BoxY },
		"salt-conc":          func() { c := f.saltConc; o.SaltConc = &c },
		"cation":             func() { o.Cation = fl.Cation },
		"net-charge":         func() { o.NetCharge = fl.NetCharge },
		"water-resname":      func() { o.WaterResName = fl.WaterResName },
		"seed":               func() { s := f.seed; o.Seed = &s },
		"z-move":             func() { o.ZMove = fl.ZMove },
		"z-rotation":         func() { o.ZRotation = fl.ZRotation },
		"opm-pdb":            func() { o.OPMPDB = fl.OPMPDB },
		"opm-align":          func() { o.OPMAlign = fl.OPMAlign },
		"overwrite":          func() { o.Overwrite = fl.Overwrite },
		"extra-topos":        func() { o.ExtraTopos = fl.ExtraTopos },
		"extra-params":       func() { o.ExtraParams = fl.ExtraParams },
		"scratch-dir":        func() { o.ScratchDir = fl.ScratchDir },
		"keep-scratch":       func() { o.KeepScratch = fl.KeepScratch },
	}
	for name, apply := range overlay {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}

	if len(args) == 1 {
		if cmd.Flags().Changed("solute") {
			return o, fmt.Errorf("solute given both as argument and --solute")
		}
		o.Solute = args[0]
	}
	return o, nil
}

// runBuild builds and writes the system and prints a summary.
func (c *CLI) runBuild(ctx context.Context, opts pipeline.Options, f buildFlags) error {
	var metrics *observability.PrometheusHooks
	if f.metricsFile != "" {
		metrics = observability.NewPrometheusHooks()
		observability.SetBuildHooks(metrics)
		observability.SetCacheHooks(metrics)
		defer observability.Reset()
	}

	var spinner *Spinner
	if f.quiet {
		c.SetLogLevel(log.WarnLevel)
		spinner = newSpinnerWithContext(ctx, os.Stderr, "Building")
		observability.SetBuildHooks(stageHooks{BuildHooks: observability.Build(), spinner: spinner})
		defer observability.Reset()
		spinner.Start()
	}

	runner, err := c.newRunner(ctx, f.cache, f.noHistory)
	if err != nil {
		if spinner != nil {
			spinner.Stop()
		}
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	res, err := runner.Write(ctx, opts)
	if spinner != nil {
		if err != nil {
			spinner.StopWithError("Build failed")
		} else {
			spinner.Stop()
		}
	}
	if err != nil {
		return err
	}
	prog.done("Built system")

	printBuildSummary(res)
	if metrics != nil {
		if err := metrics.WriteTextfile(f.metricsFile); err != nil {
			printWarning("could not write metrics: %v", err)
		} else {
			printDetail("metrics written to %s", f.metricsFile)
		}
	}
	return nil
}
