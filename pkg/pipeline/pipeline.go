// Package pipeline turns user options into a written simulation system.
//
// This package sits between the CLI (or any other front end) and the
// builder core. It owns everything the core deliberately does not know
// about: option files, preset names, textual selections, the output file,
// the tiled-patch cache and the build history.
//
// # Architecture
//
// A run has three stages:
//
//  1. Validate: apply defaults, check input files, output path and format
//  2. Build: translate Options into a [builder.Config] and assemble the system
//  3. Write: save the kept atoms to the output file and record the build
//
// The output is checked before anything is built, so a mistyped extension
// or an existing file fails fast instead of after a long build.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Solute:   "receptor.pdb",
//	    Output:   "system.pdb",
//	    Membrane: "DEFAULT",
//	}
//	result, err := runner.Write(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report.Box)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dabble/pkg/builder"
	derrors "github.com/matzehuels/dabble/pkg/errors"
	sio "github.com/matzehuels/dabble/pkg/io"
	"github.com/matzehuels/dabble/pkg/presets"
	"github.com/matzehuels/dabble/pkg/sel"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and config files
// =============================================================================

const (
	// DefaultMembrane is the patch used when none is given.
	DefaultMembrane = presets.Default

	// DefaultXYBuffer is the in-plane padding around the solute in Å.
	DefaultXYBuffer = builder.DefaultXYBuffer

	// DefaultWaterBuffer is the padding along the membrane normal in Å.
	DefaultWaterBuffer = builder.DefaultWaterBuffer

	// DefaultSaltConc is the molar salt concentration.
	DefaultSaltConc = builder.DefaultSaltConc

	// DefaultCation is the cation species.
	DefaultCation = builder.DefaultCation

	// DefaultWaterResName is the residue name of convertible waters.
	DefaultWaterResName = builder.DefaultWaterResName

	// DefaultSeed seeds ion placement.
	DefaultSeed = builder.DefaultSeed
)

// =============================================================================
// Options - Build Configuration
// =============================================================================

// Options is the flat build configuration read from files and flags.
// Selections are given as text and parsed during validation.
type Options struct {
	// Inputs
	Solute   string `toml:"solute" yaml:"solute" json:"solute"`
	Output   string `toml:"output" yaml:"output" json:"output"`
	Membrane string `toml:"membrane" yaml:"membrane" json:"membrane,omitempty"` // preset name or path
	DataDir  string `toml:"data_dir" yaml:"data_dir" json:"data_dir,omitempty"`

	// Selections
	LipidSel         string `toml:"lipid_sel" yaml:"lipid_sel" json:"lipid_sel,omitempty"`
	LipidFriendlySel string `toml:"lipid_friendly_sel" yaml:"lipid_friendly_sel" json:"lipid_friendly_sel,omitempty"`
	ClashLipids      string `toml:"clash_lipids" yaml:"clash_lipids" json:"clash_lipids,omitempty"`

	// Box
	XYBuf     float64 `toml:"xy_buf" yaml:"xy_buf" json:"xy_buf,omitempty"`
	WatBuffer float64 `toml:"wat_buffer" yaml:"wat_buffer" json:"wat_buffer,omitempty"`
	BoxX      float64 `toml:"box_x" yaml:"box_x" json:"box_x,omitempty"`
	BoxY      float64 `toml:"box_y" yaml:"box_y" json:"box_y,omitempty"`

	// Ions. A nil SaltConc means DefaultSaltConc; zero adds no salt. A nil
	// Seed means DefaultSeed; zero is a valid seed.
	SaltConc     *float64 `toml:"salt_conc" yaml:"salt_conc" json:"salt_conc,omitempty"`
	Cation       string   `toml:"cation" yaml:"cation" json:"cation,omitempty"`
	NetCharge    int      `toml:"net_charge" yaml:"net_charge" json:"net_charge,omitempty"`
	WaterResName string   `toml:"water_resname" yaml:"water_resname" json:"water_resname,omitempty"`
	Seed         *uint64  `toml:"seed" yaml:"seed" json:"seed,omitempty"`

	// Orientation
	ZMove     float64 `toml:"z_move" yaml:"z_move" json:"z_move,omitempty"`
	ZRotation float64 `toml:"z_rotation" yaml:"z_rotation" json:"z_rotation,omitempty"`
	OPMPDB    string  `toml:"opm_pdb" yaml:"opm_pdb" json:"opm_pdb,omitempty"`
	OPMAlign  string  `toml:"opm_align" yaml:"opm_align" json:"opm_align,omitempty"`

	// Output
	Overwrite   bool   `toml:"overwrite" yaml:"overwrite" json:"overwrite,omitempty"`
	ExtraTopos  string `toml:"extra_topos" yaml:"extra_topos" json:"extra_topos,omitempty"`    // comma-separated
	ExtraParams string `toml:"extra_params" yaml:"extra_params" json:"extra_params,omitempty"` // comma-separated

	// Scratch
	ScratchDir  string `toml:"scratch_dir" yaml:"scratch_dir" json:"scratch_dir,omitempty"`
	KeepScratch bool   `toml:"keep_scratch" yaml:"keep_scratch" json:"keep_scratch,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `toml:"-" yaml:"-" json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Output is the written structure file.
	Output string

	// ExtraTopos and ExtraParams are the checked extra file lists.
	ExtraTopos  []string
	ExtraParams []string

	// Report is the builder's diagnostic report.
	Report builder.Report

	// Stats contains timing information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	BuildTime time.Duration
	WriteTime time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateOutputFormat checks that path has a supported structure file
// extension.
func ValidateOutputFormat(path string) error {
	if _, _, err := sio.DetectFormat(path); err != nil {
		return derrors.Wrap(derrors.ErrCodeInvalidFormat, err, "output %s", path)
	}
	return nil
}

// ParseSelection parses an optional selection option. Empty text yields a
// nil expression.
func ParseSelection(name, text string) (sel.Expr, error) {
	if text == "" {
		return nil, nil
	}
	x, err := sel.Parse(text)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInvalidSelection, err, "%s", name)
	}
	return x, nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	if err := o.ValidateForWrite(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForBuild checks the options a build needs and sets their
// defaults. The output is not looked at.
func (o *Options) ValidateForBuild() error {
	o.SetBuildDefaults()

	cation, err := derrors.ValidateCation(o.Cation)
	if err != nil {
		return err
	}
	o.Cation = cation

	if o.Solute == "" {
		return derrors.New(derrors.ErrCodeInvalidInput, "solute is required")
	}
	if err := derrors.ValidateInputFile(o.Solute); err != nil {
		return err
	}
	if o.OPMPDB != "" {
		if err := derrors.ValidateInputFile(o.OPMPDB); err != nil {
			return err
		}
	}
	for name, v := range map[string]float64{
		"xy_buf":    o.XYBuf,
		"box_x":     o.BoxX,
		"box_y":     o.BoxY,
		"salt_conc": *o.SaltConc,
	} {
		if err := derrors.ValidateNonNegative(name, v); err != nil {
			return err
		}
	}
	if o.WatBuffer <= 0 {
		return derrors.New(derrors.ErrCodeMissingBuffer, "wat_buffer must be positive, got %v", o.WatBuffer)
	}
	return nil
}

// SetBuildDefaults fills unset build options.
func (o *Options) SetBuildDefaults() {
	if o.Membrane == "" {
		o.Membrane = DefaultMembrane
	}
	if o.XYBuf == 0 {
		o.XYBuf = DefaultXYBuffer
	}
	if o.WatBuffer == 0 {
		o.WatBuffer = DefaultWaterBuffer
	}
	if o.SaltConc == nil {
		c := DefaultSaltConc
		o.SaltConc = &c
	}
	if o.Cation == "" {
		o.Cation = DefaultCation
	}
	if o.WaterResName == "" {
		o.WaterResName = DefaultWaterResName
	}
	if o.Seed == nil {
		seed := DefaultSeed
		o.Seed = &seed
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForWrite checks the output path, its format and the overwrite
// rule, and the extra file lists.
func (o *Options) ValidateForWrite() error {
	if o.Output == "" {
		return derrors.New(derrors.ErrCodeInvalidInput, "output is required")
	}
	if err := ValidateOutputFormat(o.Output); err != nil {
		return err
	}
	if err := derrors.ValidateOutputFile(o.Output, o.Overwrite); err != nil {
		return err
	}
	if _, err := derrors.SplitFileList(o.ExtraTopos); err != nil {
		return err
	}
	_, err := derrors.SplitFileList(o.ExtraParams)
	return err
}

// Config translates validated options into a builder configuration,
// resolving presets and parsing selections.
func (o *Options) Config() (builder.Config, error) {
	if err := o.ValidateForBuild(); err != nil {
		return builder.Config{}, err
	}
	membrane, err := presets.Resolve(o.Membrane, o.DataDir)
	if err != nil {
		return builder.Config{}, err
	}
	water, err := presets.Resolve(presets.TIP3, o.DataDir)
	if err != nil {
		return builder.Config{}, err
	}

	cfg := builder.Config{
		Solute:       o.Solute,
		Membrane:     membrane,
		Water:        water,
		XYBuffer:     o.XYBuf,
		WaterBuffer:  o.WatBuffer,
		BoxX:         o.BoxX,
		BoxY:         o.BoxY,
		SaltConc:     *o.SaltConc,
		Cation:       o.Cation,
		NetCharge:    o.NetCharge,
		WaterResName: o.WaterResName,
		Seed:         o.Seed,
		ScratchDir:   o.ScratchDir,
		KeepScratch:  o.KeepScratch,
	}
	for _, s := range []struct {
		name string
		text string
		dst  *sel.Expr
	}{
		{"lipid_sel", o.LipidSel, &cfg.LipidSel},
		{"lipid_friendly_sel", o.LipidFriendlySel, &cfg.LipidFriendlySel},
		{"clash_lipids", o.ClashLipids, &cfg.ClashLipids},
	} {
		if *s.dst, err = ParseSelection(s.name, s.text); err != nil {
			return builder.Config{}, err
		}
	}
	refSel, err := ParseSelection("opm_align", o.OPMAlign)
	if err != nil {
		return builder.Config{}, err
	}
	cfg.Orientation, err = builder.NewOrientation(builder.OrientOptions{
		ZMove:        o.ZMove,
		ZRotation:    o.ZRotation,
		Reference:    o.OPMPDB,
		ReferenceSel: refSel,
	})
	if err != nil {
		return builder.Config{}, err
	}
	return cfg, nil
}
