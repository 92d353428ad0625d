// Package pkg provides the core libraries for Dabble, a builder for solvated
// and membrane-embedded molecular simulation systems.
//
// # Overview
//
// Dabble inserts a solute (usually a protein) into a pre-equilibrated lipid
// bilayer or water patch. The patch is tiled to cover the solute, padded
// with water along the membrane normal, trimmed to a periodic box, cleared
// of atoms that clash with the solute and finally salted and neutralized.
// The pkg directory is organized into these areas:
//
//  1. [builder] - The build stages and their context
//  2. [engine], [structure], [sel], [geom] - Atoms, selections and geometry
//  3. [io], [presets] - Structure files and named patches
//  4. [pipeline] - Options, validation and the runner used by the CLI
//  5. [cache], [history], [observability] - Supporting infrastructure
//
// # Architecture
//
// The data flow through a build:
//
//	Solute file + patch file (or preset)
//	         ↓
//	    [pipeline] package (validate options, resolve presets)
//	         ↓
//	    [builder] package (orient → size → tile → compose → trim → clash → ions)
//	         ↓
//	    [engine] package (handles, selections, transforms)
//	         ↓
//	    PDB/JSON output
//
// # Quick Start
//
// Build a membrane system with defaults:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/dabble/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, err := runner.Write(context.Background(), pipeline.Options{
//	    Solute: "receptor.pdb",
//	    Output: "system.pdb",
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Report.Box, res.Report.Atoms)
//
// # Main Packages
//
// [builder] - The build itself. Each stage works on named structure handles
// held by a [builder.Context] and marks atoms for removal rather than
// deleting them. Clash removal runs as an ordered list of selection stages.
//
// [engine] - In-memory structure engine. Selections are evaluated with a
// cell-list grid so distance queries stay linear in the number of atoms,
// using minimum-image distances once a periodic cell is set.
//
// [sel] - Selection expressions. The builder composes them from typed
// constructors; a small text parser serves configuration strings.
//
// [presets] - Named patches resolved against a data directory. The water
// box is generated when no equilibrated box is installed.
//
// [cache] - Tiled patches keyed by patch content and tile factors, stored
// on disk for the CLI or in Redis when shared between machines.
//
// [history] - Every build run through the CLI is recorded in SQLite.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/builder/...    # Specific package
//
// [builder]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/builder
// [builder.Context]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/builder#Context
// [engine]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/engine
// [structure]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/structure
// [sel]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/sel
// [geom]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/geom
// [io]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/io
// [presets]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/presets
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/cache
// [history]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/history
// [observability]: https://pkg.go.dev/github.com/matzehuels/dabble/pkg/observability
package pkg
