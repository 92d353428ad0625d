// Package builder assembles solvated and membrane-embedded simulation
// cells.
//
// A build takes a solute structure and a pre-equilibrated solvent patch
// (water, or water plus a lipid bilayer) and produces one periodic system:
//
//  1. Orient: move the solute by a manual offset, align it onto a
//     reference structure, or center it automatically ([Orientation]).
//  2. Size: derive the periodic box from the solute extents and the
//     configured buffers ([BoxSize]).
//  3. Tile: replicate the patch until it covers the box ([TileFactors]).
//  4. Compose: merge the centered patch with the solute and add water
//     slabs above and below when the patch is too thin.
//  5. Trim: drop solvent outside the box envelope and set the cell.
//  6. Clash: remove solvent and lipids overlapping the solute, in a fixed
//     order (membrane systems only).
//  7. Ions: convert isolated waters into ions until the salt
//     concentration and net charge targets are met.
//
// # Structure Engine
//
// The builder never touches atoms directly. All structure access goes
// through the [Engine] and [Analytics] interfaces; pkg/engine provides the
// in-memory implementation used by the CLI. Atoms are never deleted during
// a build. Stages only clear keep marks, and unmarked atoms are dropped
// when the final structure is saved.
//
// # Usage
//
//	eng := engine.New(logger)
//	b := builder.New(eng, eng, nil, nil, logger)
//	res, err := b.Build(ctx, builder.Config{
//	    Solute:      "protein.pdb",
//	    Membrane:    "popc.pdb",
//	    Water:       "tip3.pdb",
//	    XYBuffer:    17.5,
//	    WaterBuffer: 10,
//	    SaltConc:    0.150,
//	    Cation:      "Na",
//	})
//	if err != nil {
//	    return err
//	}
//	defer eng.Release(res.Handle)
//	err = eng.Save(res.Handle, "system.pdb")
package builder
