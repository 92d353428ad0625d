// Package presets resolves named membrane patches.
//
// A membrane option is either a path to a structure file or one of the
// preset names below. Presets are looked up in a data directory; the water
// preset falls back to a generated lattice when no file is installed, so a
// solvent-only build never needs external data.
package presets

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/dabble/pkg/cache"
	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	sio "github.com/matzehuels/dabble/pkg/io"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Preset names.
const (
	Default = "DEFAULT"
	POPC    = "POPC"
	TIP3    = "TIP3"
)

// DataDirEnv names the environment variable consulted when no data
// directory is configured.
const DataDirEnv = "DABBLE_DATA"

// Preset describes a named patch.
type Preset struct {
	Name        string
	Description string
	Stem        string // file name without extension inside the data directory
	Water       bool   // solvent-only patch
	Alias       string // preset this name resolves to
	generate    func() *structure.Structure
}

var all = []Preset{
	{Name: Default, Description: "POPC bilayer in TIP3 water", Alias: POPC},
	{Name: POPC, Description: "POPC bilayer in TIP3 water", Stem: "popc"},
	{Name: TIP3, Description: "TIP3 water box", Stem: "tip3pbox", Water: true, generate: WaterLattice},
}

// extensions are tried in order for every preset stem.
var extensions = []string{".pdb", ".pdb.gz", ".pdb.zst", ".json", ".json.gz", ".json.zst"}

// All returns the known presets in display order.
func All() []Preset { return slices.Clone(all) }

// Lookup returns the preset with the given name, following aliases.
// Names are case-insensitive.
func Lookup(name string) (Preset, bool) {
	for _, p := range all {
		if strings.EqualFold(p.Name, name) {
			if p.Alias != "" {
				return Lookup(p.Alias)
			}
			return p, true
		}
	}
	return Preset{}, false
}

// DataDir returns dir, or the directory named by DABBLE_DATA when dir is
// empty.
func DataDir(dir string) string {
	if dir != "" {
		return dir
	}
	return os.Getenv(DataDirEnv)
}

// Find returns the installed file for p in dir, if any.
func (p Preset) Find(dir string) (string, bool) {
	if dir == "" || p.Stem == "" {
		return "", false
	}
	for _, ext := range extensions {
		path := filepath.Join(dir, p.Stem+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Generated reports whether p can be produced without a data file.
func (p Preset) Generated() bool { return p.generate != nil }

// Resolve maps a membrane option to a structure file path.
//
// Existing files are returned as is. Preset names are looked up in the
// data directory and, for generated presets, materialized under the user
// cache directory. Anything else is an ErrCodeUnknownPreset error when it
// looks like a bare name and ErrCodeFileNotFound otherwise.
func Resolve(membrane, dataDir string) (string, error) {
	if membrane == "" {
		return "", derrors.New(derrors.ErrCodeInvalidInput, "membrane is required")
	}
	if info, err := os.Stat(membrane); err == nil && !info.IsDir() {
		return membrane, nil
	}

	p, ok := Lookup(membrane)
	if !ok {
		if strings.ContainsAny(membrane, `./\`) {
			return "", derrors.New(derrors.ErrCodeFileNotFound, "membrane file %s does not exist", membrane)
		}
		return "", derrors.New(derrors.ErrCodeUnknownPreset, "unknown membrane preset %q (must be a file or one of %s)", membrane, strings.Join(Names(), ", "))
	}

	dir := DataDir(dataDir)
	if path, ok := p.Find(dir); ok {
		return path, nil
	}
	if !p.Generated() {
		return "", derrors.New(derrors.ErrCodeFileNotFound, "preset %s is not installed in %q; set --data-dir or %s", p.Name, dir, DataDirEnv)
	}
	return materialize(p)
}

// Names returns the preset names.
func Names() []string {
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	return names
}

// materialize writes a generated preset to the user cache directory once
// and returns its path.
func materialize(p Preset) (string, error) {
	base, err := cache.DefaultDir()
	if err != nil {
		return "", fmt.Errorf("locate cache directory: %w", err)
	}
	return materializeIn(p, filepath.Join(base, "presets"))
}

func materializeIn(p Preset, dir string) (string, error) {
	path := filepath.Join(dir, strings.ToLower(p.Name)+".json.zst")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create preset directory: %w", err)
	}
	data, err := sio.Encode(p.generate())
	if err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write preset %s: %w", p.Name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("install preset %s: %w", p.Name, err)
	}
	return path, nil
}

// Water lattice geometry.
const (
	LatticeSize    = 8
	LatticeSpacing = 3.1
)

// WaterLattice returns a periodic cubic lattice of TIP3 waters with the
// bulk density of water. It is a stand-in for an equilibrated box: the
// builder only needs a clash-free solvent patch to tile.
func WaterLattice() *structure.Structure {
	s := &structure.Structure{
		Title: "TIP3 water lattice",
		Cell:  geom.Vec3{LatticeSize * LatticeSpacing, LatticeSize * LatticeSpacing, LatticeSize * LatticeSpacing},
	}
	resid := 1
	for i := range LatticeSize {
		for j := range LatticeSize {
			for k := range LatticeSize {
				o := geom.Vec3{float64(i), float64(j), float64(k)}.Scale(LatticeSpacing).Add(geom.Vec3{0.5, 0.5, 0.5}.Scale(LatticeSpacing))
				s.Atoms = append(s.Atoms,
					water("OH2", "O", resid, o),
					water("H1", "H", resid, o.Add(geom.Vec3{0, 0.757, 0.586})),
					water("H2", "H", resid, o.Add(geom.Vec3{0, -0.757, 0.586})),
				)
				resid++
			}
		}
	}
	s.Finalize()
	return s
}

func water(name, elem string, resid int, pos geom.Vec3) structure.Atom {
	return structure.Atom{
		Name: name, ResName: "TIP3", ResID: resid, Chain: "W", Segment: "WAT",
		Element: elem, Pos: pos,
	}
}
