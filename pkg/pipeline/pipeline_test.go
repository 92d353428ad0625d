package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/dabble/pkg/builder"
	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/history"
	sio "github.com/matzehuels/dabble/pkg/io"
	"github.com/matzehuels/dabble/pkg/presets"
	"github.com/matzehuels/dabble/pkg/structure"
)

// writeSolute writes a small charged solute and returns its path.
func writeSolute(t *testing.T, dir string) string {
	t.Helper()
	s := &structure.Structure{}
	for i, p := range []geom.Vec3{{3, 0, 0}, {-3, 0, 0}, {0, 3, 0}, {0, -3, 0}, {0, 0, 3}, {0, 0, -3}} {
		s.Atoms = append(s.Atoms, structure.Atom{
			Name: "CA", ResName: "ALA", ResID: i + 1, Chain: "A", Element: "C", Pos: p,
		})
	}
	s.Atoms = append(s.Atoms, structure.Atom{
		Name: "NZ", ResName: "LYS", ResID: 7, Chain: "A", Element: "N",
	})
	s.Finalize()
	path := filepath.Join(dir, "solute.pdb")
	if err := sio.Export(s, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"system.pdb", false},
		{"system.PDB", false},
		{"system.json.zst", false},
		{"system.pdb.gz", false},
		{"system.mae", true},
		{"system.psf", true},
		{"system", true},
	}
	for _, tt := range tests {
		err := ValidateOutputFormat(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateOutputFormat(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if err != nil && !derrors.Is(err, derrors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateOutputFormat(%q) code = %s", tt.path, derrors.GetCode(err))
		}
	}
}

func TestParseSelection(t *testing.T) {
	if x, err := ParseSelection("lipid_sel", ""); x != nil || err != nil {
		t.Errorf("empty selection = %v, %v", x, err)
	}
	if x, err := ParseSelection("lipid_sel", "resname POPC and not element H"); x == nil || err != nil {
		t.Errorf("valid selection = %v, %v", x, err)
	}
	_, err := ParseSelection("clash_lipids", "resname (")
	if !derrors.Is(err, derrors.ErrCodeInvalidSelection) || !strings.Contains(err.Error(), "clash_lipids") {
		t.Errorf("invalid selection error = %v", err)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	dir := t.TempDir()
	solute := writeSolute(t, dir)

	opts := Options{Solute: solute, Output: filepath.Join(dir, "out.pdb"), Cation: "k"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Membrane != DefaultMembrane || opts.XYBuf != DefaultXYBuffer || opts.WatBuffer != DefaultWaterBuffer {
		t.Errorf("box defaults: %q %v %v", opts.Membrane, opts.XYBuf, opts.WatBuffer)
	}
	if *opts.SaltConc != DefaultSaltConc || *opts.Seed != DefaultSeed || opts.WaterResName != DefaultWaterResName {
		t.Errorf("ion defaults: %v %v %q", *opts.SaltConc, *opts.Seed, opts.WaterResName)
	}
	if opts.Cation != "K" {
		t.Errorf("cation = %q, want canonical K", opts.Cation)
	}
	if opts.Logger == nil {
		t.Error("logger not defaulted")
	}

	// Idempotent: a file appearing after validation is not rechecked.
	touch(t, opts.Output)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call = %v", err)
	}

	zero := 0.0
	noSalt := Options{Solute: solute, Output: filepath.Join(dir, "nosalt.pdb"), SaltConc: &zero}
	if err := noSalt.ValidateAndSetDefaults(); err != nil || *noSalt.SaltConc != 0 {
		t.Errorf("explicit zero salt = %v, %v", *noSalt.SaltConc, err)
	}

	zeroSeed := uint64(0)
	seeded := Options{Solute: solute, Output: filepath.Join(dir, "seed0.pdb"), Seed: &zeroSeed}
	if err := seeded.ValidateAndSetDefaults(); err != nil || *seeded.Seed != 0 {
		t.Errorf("explicit zero seed = %v, %v", *seeded.Seed, err)
	}
}

func TestValidateErrors(t *testing.T) {
	dir := t.TempDir()
	solute := writeSolute(t, dir)
	existing := touch(t, filepath.Join(dir, "exists.pdb"))
	topo := touch(t, filepath.Join(dir, "lig.str"))
	out := filepath.Join(dir, "out.pdb")

	tests := []struct {
		name string
		opts Options
		code derrors.Code
	}{
		{"no solute", Options{Output: out}, derrors.ErrCodeInvalidInput},
		{"missing solute", Options{Solute: filepath.Join(dir, "nope.pdb"), Output: out}, derrors.ErrCodeFileNotFound},
		{"bad cation", Options{Solute: solute, Output: out, Cation: "Br"}, derrors.ErrCodeInvalidCation},
		{"negative buffer", Options{Solute: solute, Output: out, XYBuf: -1}, derrors.ErrCodeInvalidInput},
		{"negative water buffer", Options{Solute: solute, Output: out, WatBuffer: -1}, derrors.ErrCodeMissingBuffer},
		{"no output", Options{Solute: solute}, derrors.ErrCodeInvalidInput},
		{"bad output format", Options{Solute: solute, Output: filepath.Join(dir, "out.mae")}, derrors.ErrCodeInvalidFormat},
		{"output exists", Options{Solute: solute, Output: existing}, derrors.ErrCodeFileExists},
		{"output dir missing", Options{Solute: solute, Output: filepath.Join(dir, "no", "out.pdb")}, derrors.ErrCodeInvalidPath},
		{"missing extra file", Options{Solute: solute, Output: out, ExtraTopos: topo + ",missing.str"}, derrors.ErrCodeFileNotFound},
		{"missing reference", Options{Solute: solute, Output: out, OPMPDB: filepath.Join(dir, "opm.pdb")}, derrors.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !derrors.Is(err, tt.code) {
				t.Errorf("ValidateAndSetDefaults() = %v, want %s", err, tt.code)
			}
		})
	}

	ok := Options{Solute: solute, Output: existing, Overwrite: true, ExtraTopos: topo + ", "}
	if err := ok.ValidateAndSetDefaults(); err != nil {
		t.Errorf("overwrite allowed: %v", err)
	}
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	solute := writeSolute(t, dir)
	data := t.TempDir()
	popc := touch(t, filepath.Join(data, "popc.pdb"))
	tip3 := touch(t, filepath.Join(data, "tip3pbox.pdb"))
	ref := touch(t, filepath.Join(dir, "opm.pdb"))

	opts := Options{
		Solute:      solute,
		DataDir:     data,
		LipidSel:    "resname POPC",
		ClashLipids: "resname CHL1",
		OPMPDB:      ref,
		OPMAlign:    "name CA",
		BoxX:        80,
		NetCharge:   -1,
	}
	cfg, err := opts.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Membrane != popc || cfg.Water != tip3 {
		t.Errorf("membrane %q, water %q", cfg.Membrane, cfg.Water)
	}
	if cfg.LipidSel == nil || cfg.ClashLipids == nil || cfg.LipidFriendlySel != nil {
		t.Errorf("selections: %v / %v / %v", cfg.LipidSel, cfg.ClashLipids, cfg.LipidFriendlySel)
	}
	align, ok := cfg.Orientation.(builder.Align)
	if !ok || align.Reference != ref || align.ReferenceSel == nil {
		t.Errorf("orientation = %#v", cfg.Orientation)
	}
	if cfg.BoxX != 80 || cfg.NetCharge != -1 || cfg.SaltConc != DefaultSaltConc {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Seed == nil || *cfg.Seed != DefaultSeed {
		t.Errorf("default seed = %v", cfg.Seed)
	}

	zeroSeed := uint64(0)
	seeded := Options{Solute: solute, DataDir: data, Seed: &zeroSeed}
	if cfg, err := seeded.Config(); err != nil || cfg.Seed == nil || *cfg.Seed != 0 {
		t.Errorf("explicit zero seed = %v, %v", cfg.Seed, err)
	}

	opts.ZMove = 5
	if _, err := opts.Config(); !derrors.Is(err, derrors.ErrCodeConflictingOrientation) {
		t.Errorf("reference with offset = %v", err)
	}

	bad := Options{Solute: solute, DataDir: data, LipidFriendlySel: "name and"}
	if _, err := bad.Config(); !derrors.Is(err, derrors.ErrCodeInvalidSelection) {
		t.Errorf("bad selection = %v", err)
	}
	unknown := Options{Solute: solute, DataDir: data, Membrane: "DOPC"}
	if _, err := unknown.Config(); !derrors.Is(err, derrors.ErrCodeUnknownPreset) {
		t.Errorf("unknown preset = %v", err)
	}
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"build.toml": `solute = "protein.pdb"
output = "out/system.pdb"
membrane = "DEFAULT"
xy_buf = 20.0
salt_conc = 0.0
cation = "K"
extra_topos = "a.str, b.str"
`,
		"build.yaml": `solute: protein.pdb
output: out/system.pdb
membrane: DEFAULT
xy_buf: 20
salt_conc: 0
cation: K
extra_topos: a.str, b.str
`,
		"build.json": `{"solute": "protein.pdb", "output": "out/system.pdb", "membrane": "DEFAULT",
"xy_buf": 20, "salt_conc": 0, "cation": "K", "extra_topos": "a.str, b.str"}`,
	}
	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			o, err := LoadOptions(path)
			if err != nil {
				t.Fatal(err)
			}
			if o.Solute != filepath.Join(dir, "protein.pdb") || o.Output != filepath.Join(dir, "out", "system.pdb") {
				t.Errorf("paths not resolved: %q %q", o.Solute, o.Output)
			}
			if o.Membrane != "DEFAULT" || o.XYBuf != 20 || o.Cation != "K" {
				t.Errorf("options = %+v", o)
			}
			if o.SaltConc == nil || *o.SaltConc != 0 {
				t.Errorf("salt_conc = %v, want explicit zero", o.SaltConc)
			}
			want := filepath.Join(dir, "a.str") + "," + filepath.Join(dir, "b.str")
			if o.ExtraTopos != want {
				t.Errorf("extra_topos = %q, want %q", o.ExtraTopos, want)
			}
		})
	}

	for name, body := range map[string]string{
		"typo.toml": "solutee = \"x.pdb\"\n",
		"typo.yaml": "solutee: x.pdb\n",
		"typo.json": `{"solutee": "x.pdb"}`,
	} {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte(body), 0o644)
		if _, err := LoadOptions(path); !derrors.Is(err, derrors.ErrCodeInvalidInput) {
			t.Errorf("LoadOptions(%s) = %v, want invalid input", name, err)
		}
	}
	if _, err := LoadOptions(touch(t, filepath.Join(dir, "build.ini"))); !derrors.Is(err, derrors.ErrCodeInvalidFormat) {
		t.Errorf("ini file = %v", err)
	}
	if _, err := LoadOptions(filepath.Join(dir, "missing.toml")); !derrors.Is(err, derrors.ErrCodeFileNotFound) {
		t.Errorf("missing file = %v", err)
	}
}

func TestRunnerWrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	data := t.TempDir()
	if err := sio.Export(presets.WaterLattice(), filepath.Join(data, "tip3pbox.pdb")); err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(nil, nil, nil)
	r.History = store
	defer r.Close()

	opts := Options{
		Solute:     writeSolute(t, dir),
		Output:     filepath.Join(dir, "system.json.gz"),
		Membrane:   presets.TIP3,
		DataDir:    data,
		ScratchDir: t.TempDir(),
	}
	res, err := r.Write(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Report.WaterOnly || res.Report.Ions.Placed() == 0 {
		t.Errorf("report = %+v", res.Report)
	}
	s, err := sio.Import(opts.Output)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != res.Report.Atoms {
		t.Errorf("wrote %d atoms, report says %d", s.Len(), res.Report.Atoms)
	}
	if s.Cell != res.Report.Box {
		t.Errorf("cell = %v, box = %v", s.Cell, res.Report.Box)
	}

	// The output exists now, so the second run fails before building.
	if _, err := r.Write(ctx, opts); !derrors.Is(err, derrors.ErrCodeFileExists) {
		t.Fatalf("second Write = %v, want file exists", err)
	}

	recs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("history has %d records", len(recs))
	}
	var ok, failed int
	for _, rec := range recs {
		switch rec.Status {
		case history.StatusOK:
			ok++
			if rec.ID != res.Report.BuildID || rec.Atoms != res.Report.Atoms {
				t.Errorf("record = %+v", rec)
			}
		case history.StatusFailed:
			failed++
			if !strings.Contains(rec.Error, "already exists") {
				t.Errorf("failure message = %q", rec.Error)
			}
		}
	}
	if ok != 1 || failed != 1 {
		t.Errorf("ok %d, failed %d", ok, failed)
	}
}

func TestRunnerWriteSaveFails(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	data := t.TempDir()
	if err := sio.Export(presets.WaterLattice(), filepath.Join(data, "tip3pbox.pdb")); err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(nil, nil, nil)
	r.History = store
	defer r.Close()

	out := filepath.Join(dir, "out")
	if err := os.Mkdir(out, 0o755); err != nil {
		t.Fatal(err)
	}
	opts := Options{
		Solute:     writeSolute(t, dir),
		Output:     filepath.Join(out, "system.pdb"),
		Membrane:   presets.TIP3,
		DataDir:    data,
		ScratchDir: t.TempDir(),
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	// The output directory vanishes after validation, so only the write fails.
	if err := os.Remove(out); err != nil {
		t.Fatal(err)
	}

	res, err := r.Write(ctx, opts)
	if !derrors.Is(err, derrors.ErrCodeInvalidPath) {
		t.Fatalf("Write = %v, want invalid path", err)
	}
	if res == nil || res.Report.BuildID == "" {
		t.Fatalf("result = %+v, want the built report", res)
	}

	recs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("history has %d records", len(recs))
	}
	rec := recs[0]
	if rec.Status != history.StatusFailed || rec.ID != res.Report.BuildID {
		t.Errorf("record status %q id %q, want failed %q", rec.Status, rec.ID, res.Report.BuildID)
	}
	if rec.Atoms != res.Report.Atoms {
		t.Errorf("record atoms = %d, report says %d", rec.Atoms, res.Report.Atoms)
	}
}
