package builder

import (
	"context"

	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/observability"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Clash distances in Ångström.
const (
	ClashDistance          = 1.75
	BoundaryClashDistance  = 1.0
	SideChainClashDistance = 1.25
)

// BoundaryFraction is the share of each in-plane box side, split over both
// faces, that counts as the periodic boundary region.
const BoundaryFraction = 0.1

// ClashReport counts the atoms removed by each clash stage.
type ClashReport struct {
	Solvent   int // solvent touching the solute
	Lipid     int // lipids touching the solute
	Ring      int // lipids threading aromatic side chains
	Boundary  int // lipids clashing across the periodic boundary
	SideChain int // ring lipids caught in solute side chains at the boundary
}

// Total returns the number of atoms removed by all stages.
func (r ClashReport) Total() int {
	return r.Solvent + r.Lipid + r.Ring + r.Boundary + r.SideChain
}

type clashStage struct {
	name  string
	count *int
	sel   sel.Expr
}

// ResolveClashes removes solvent and lipid residues that overlap the
// solute. The stages run in a fixed order since each assumes the overlaps
// found by the previous ones are gone:
//
//  1. non-lipid solvent within ClashDistance of solute heavy atoms
//  2. lipids within ClashDistance of solute heavy atoms outside the
//     lipid-friendly region
//  3. lipids within ClashDistance of aromatic side chains
//  4. with ClashLipids set, lipids near the periodic boundary clashing
//     with ring lipids, and ring lipids caught in solute side chains there
//
// Distances are periodic once the cell is set.
func (b *Builder) ResolveClashes(ctx context.Context, c *Context, h structure.Handle, cfg Config) (ClashReport, error) {
	var r ClashReport
	solute := c.Solute()
	lipid := cfg.LipidSel
	kept := func(x ...sel.Expr) sel.Expr {
		return sel.And(append([]sel.Expr{sel.IsKept(), sel.Heavy()}, x...)...)
	}
	mobile := func(x ...sel.Expr) sel.Expr {
		return sel.And(append([]sel.Expr{sel.Heavy(), sel.Not(solute)}, x...)...)
	}

	contact := kept(solute)
	if cfg.LipidFriendlySel != nil {
		contact = kept(solute, sel.Not(cfg.LipidFriendlySel))
	}
	rings := kept(solute, sel.Is(sel.ResName, sel.RingNames...), sel.Not(sel.Backbone()))

	stages := []clashStage{
		{"clash.solvent", &r.Solvent, mobile(sel.Not(lipid), sel.WithinOf(ClashDistance, kept(solute)))},
		{"clash.lipid", &r.Lipid, mobile(lipid, sel.WithinOf(ClashDistance, contact))},
		{"clash.ring", &r.Ring, mobile(lipid, sel.WithinOf(ClashDistance, rings))},
	}

	if cfg.ClashLipids != nil {
		edge := sel.Or(
			sel.AbsCmp(geom.X, sel.Greater, c.Box[0]*(1-BoundaryFraction)/2),
			sel.AbsCmp(geom.Y, sel.Greater, c.Box[1]*(1-BoundaryFraction)/2),
		)
		pointy := sel.And(lipid, sel.Not(cfg.ClashLipids), edge)
		ring := sel.And(cfg.ClashLipids, edge)
		sideChains := kept(solute, sel.Protein(), sel.Not(sel.Backbone()))
		stages = append(stages,
			clashStage{"clash.boundary", &r.Boundary, sel.Or(
				mobile(pointy, sel.WithinOf(BoundaryClashDistance, kept(ring))),
				mobile(ring, sel.WithinOf(BoundaryClashDistance, kept(pointy))),
			)},
			clashStage{"clash.sidechain", &r.SideChain, mobile(ring, sel.WithinOf(SideChainClashDistance, sideChains))},
		)
	}

	for _, s := range stages {
		n, err := b.removeResidues(h, s.sel)
		if err != nil {
			return r, err
		}
		*s.count = n
		observability.Build().OnAtomsRemoved(ctx, s.name, n)
		b.Logger.Debug("removed clashing residues", "stage", s.name, "atoms", n)
	}

	b.Logger.Info("removed clashing atoms",
		"total", r.Total(),
		"solute", r.Solvent+r.Lipid,
		"rings", r.Ring,
		"boundary", r.Boundary,
		"sidechains", r.SideChain)
	return r, nil
}
