package builder

import (
	"context"

	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/observability"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// IonIsolation is the minimum distance between a converted water and any
// kept non-water atom.
const IonIsolation = 5.0

// ionSpecies maps an ion element to its atom naming and charge.
var ionSpecies = map[string]struct {
	ident  structure.Identity
	charge float64
}{
	"Na": {structure.Identity{Element: "Na", Name: "NA", ResName: "NA"}, 1},
	"K":  {structure.Identity{Element: "K", Name: "K", ResName: "K"}, 1},
	"Cl": {structure.Identity{Element: "Cl", Name: "CL", ResName: "CL"}, -1},
}

// IonPlan is the ion conversion plan and its outcome.
type IonPlan struct {
	structure.IonCounts

	Renamed int   // loose cations renamed to the chosen species
	Sites   []int // converted water oxygens, in placement order
}

// Placed returns the number of conversions performed.
func (p IonPlan) Placed() int { return len(p.Sites) }

// PlaceIons converts waters of h into ions until the salt concentration
// and net charge of cfg are reached.
//
// Loose cations already present are renamed to the chosen species first.
// Each conversion picks a random kept water oxygen that is at least
// IonIsolation away from every kept non-water atom, so ions placed earlier
// push later ones away.
func (b *Builder) PlaceIons(ctx context.Context, c *Context, h structure.Handle, cfg Config) (IonPlan, error) {
	var plan IonPlan
	if _, err := derrors.ValidateCation(cfg.Cation); err != nil {
		return plan, err
	}

	renamed, err := b.normalizeCations(h, cfg.Cation)
	if err != nil {
		return plan, err
	}
	plan.Renamed = renamed

	counts, err := b.Analytics.IonsNeeded(h, structure.IonRequest{
		Conc:         cfg.SaltConc,
		Cation:       cfg.Cation,
		Anion:        Anion,
		WaterResName: cfg.WaterResName,
		NetCharge:    cfg.NetCharge,
	})
	if err != nil {
		return plan, err
	}
	plan.IonCounts = counts
	b.Logger.Info("solvent composition",
		"waters", counts.Waters,
		cfg.Cation, counts.ExistingCations+counts.Cations,
		"cation_molar", counts.CationConc,
		Anion, counts.ExistingAnions+counts.Anions,
		"anion_molar", counts.AnionConc)

	for _, step := range []struct {
		species string
		n       int
	}{{cfg.Cation, counts.Cations}, {Anion, counts.Anions}} {
		for range step.n {
			id, err := b.convertibleWater(c, h, cfg.WaterResName)
			if err != nil {
				return plan, err
			}
			if err := b.convertWater(h, id, step.species, cfg.WaterResName); err != nil {
				return plan, err
			}
			plan.Sites = append(plan.Sites, id)
		}
		observability.Build().OnIonsPlaced(ctx, step.species, step.n)
	}
	b.Logger.Info("converted waters to ions", cfg.Cation, counts.Cations, Anion, counts.Anions)
	return plan, nil
}

// normalizeCations renames kept single-atom Na and K residues to the
// naming of cation.
func (b *Builder) normalizeCations(h structure.Handle, cation string) (int, error) {
	loose := sel.And(sel.IsKept(), sel.Is(sel.Element, derrors.Cations...))
	ids, err := b.Engine.Select(h, sel.And(sel.IsKept(), sel.SameResidueAs(loose)))
	if err != nil {
		return 0, err
	}
	atoms, err := b.Engine.Atoms(h, ids)
	if err != nil {
		return 0, err
	}
	size := make(map[int]int)
	for i := range atoms {
		size[atoms[i].Residue]++
	}

	want := ionSpecies[cation]
	n := 0
	for i := range atoms {
		a := &atoms[i]
		if size[a.Residue] != 1 || (a.Element != "Na" && a.Element != "K") {
			continue
		}
		if a.Element == want.ident.Element && a.Name == want.ident.Name && a.ResName == want.ident.ResName {
			continue
		}
		if err := b.Engine.SetIdentity(h, a.Index, want.ident, want.charge); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		b.Logger.Info("renamed existing cations", "count", n, "species", cation)
	}
	return n, nil
}

// convertibleWater draws a random water oxygen eligible for conversion.
func (b *Builder) convertibleWater(c *Context, h structure.Handle, waterRes string) (int, error) {
	water := sel.Is(sel.ResName, waterRes)
	ids, err := b.Engine.Select(h, sel.And(
		sel.IsKept(),
		sel.Heavy(),
		water,
		sel.Not(sel.WithinOf(IonIsolation, sel.And(sel.IsKept(), sel.Not(water)))),
	))
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, derrors.New(derrors.ErrCodeNoConvertibleWater,
			"no %s water is %.1f Å away from other molecules", waterRes, IonIsolation)
	}
	return ids[c.rng.IntN(len(ids))], nil
}

// convertWater turns the water oxygen id into an ion of species and drops
// the hydrogens of its residue.
func (b *Builder) convertWater(h structure.Handle, id int, species, waterRes string) error {
	ion, ok := ionSpecies[species]
	if !ok {
		return derrors.New(derrors.ErrCodeInvalidCation, "unsupported ion %q", species)
	}
	atoms, err := b.Engine.Atoms(h, []int{id})
	if err != nil {
		return err
	}
	a := atoms[0]
	if a.Element != "O" || a.ResName != waterRes {
		return derrors.New(derrors.ErrCodeNotWaterOxygen,
			"atom %d is %s %s, not a %s water oxygen", id, a.ResName, a.Name, waterRes)
	}
	if err := b.Engine.SetIdentity(h, id, ion.ident, ion.charge); err != nil {
		return err
	}
	hs, err := b.Engine.Select(h, sel.And(sel.IsInt(sel.Residue, a.Residue), sel.Hydrogen()))
	if err != nil {
		return err
	}
	_, err = b.Engine.SetKeep(h, hs, false)
	return err
}
