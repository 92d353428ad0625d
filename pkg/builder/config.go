package builder

import (
	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/sel"
)

// Default values shared by the CLI and configuration files.
const (
	DefaultXYBuffer     = 17.5
	DefaultWaterBuffer  = 10.0
	DefaultSaltConc     = 0.150
	DefaultCation       = "Na"
	DefaultWaterResName = "TIP3"
	DefaultSeed         = uint64(2015)
)

// Anion is the only anion species placed.
const Anion = "Cl"

// Config describes one build.
type Config struct {
	// Solute is the path of the solute structure.
	Solute string

	// Membrane is the path of the solvent or membrane patch.
	Membrane string

	// Water is the path of the pure water patch used to fill gaps above
	// and below the solute.
	Water string

	// LipidSel selects lipid atoms. Nil means [sel.Lipid].
	LipidSel sel.Expr

	// LipidFriendlySel selects solute atoms lipids may approach closely.
	LipidFriendlySel sel.Expr

	// ClashLipids selects the ring-bearing lipid type checked for clashes
	// at the periodic boundary. Nil disables the boundary stage.
	ClashLipids sel.Expr

	XYBuffer    float64 // in-plane padding
	WaterBuffer float64 // padding along the membrane normal; must be > 0
	BoxX, BoxY  float64 // explicit in-plane box size; 0 means computed

	SaltConc     float64
	Cation       string
	NetCharge    int
	WaterResName string
	Seed         *uint64 // nil means DefaultSeed; zero is a valid seed

	// Orientation positions the solute. Nil means [AutoCenter].
	Orientation Orientation

	// ScratchDir is the parent of the per-build scratch directory.
	// Empty means the system temp directory.
	ScratchDir  string
	KeepScratch bool
}

// normalize validates c and fills defaults. The cation is checked first so
// an invalid species fails before anything is loaded.
func (c Config) normalize() (Config, error) {
	cation := c.Cation
	if cation == "" {
		cation = DefaultCation
	}
	canon, err := derrors.ValidateCation(cation)
	if err != nil {
		return c, err
	}
	c.Cation = canon

	if c.Solute == "" {
		return c, derrors.New(derrors.ErrCodeInvalidInput, "solute is required")
	}
	if c.Membrane == "" {
		return c, derrors.New(derrors.ErrCodeInvalidInput, "membrane patch is required")
	}
	for name, v := range map[string]float64{
		"xy_buf":    c.XYBuffer,
		"box_x":     c.BoxX,
		"box_y":     c.BoxY,
		"salt_conc": c.SaltConc,
	} {
		if err := derrors.ValidateNonNegative(name, v); err != nil {
			return c, err
		}
	}

	if c.LipidSel == nil {
		c.LipidSel = sel.Lipid()
	}
	if c.WaterResName == "" {
		c.WaterResName = DefaultWaterResName
	}
	if c.Seed == nil {
		seed := DefaultSeed
		c.Seed = &seed
	}
	if c.Orientation == nil {
		c.Orientation = AutoCenter{}
	}
	return c, nil
}
