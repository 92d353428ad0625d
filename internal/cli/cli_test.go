package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dabble/pkg/cache"
	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/history"
	"github.com/matzehuels/dabble/pkg/pipeline"
	"github.com/matzehuels/dabble/pkg/presets"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/custom-cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestHistoryPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	path, err := historyPath()
	if err != nil {
		t.Fatalf("historyPath() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".local", "state", appName, historyFile); path != want {
		t.Errorf("historyPath() = %q, want %q", path, want)
	}

	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	path, err = historyPath()
	if err != nil {
		t.Fatalf("historyPath() error: %v", err)
	}
	if want := filepath.Join("/tmp/state", appName, historyFile); path != want {
		t.Errorf("historyPath() with XDG_STATE_HOME = %q, want %q", path, want)
	}
}

func TestRootCommand(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()

	subs := map[string][]string{
		"build":      nil,
		"presets":    nil,
		"cache":      {"list", "prune", "clear", "path"},
		"history":    {"list", "show", "prune"},
		"completion": nil,
	}
	for name, children := range subs {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
			continue
		}
		for _, child := range children {
			if sub, _, err := cmd.Find([]string{child}); err != nil || sub.Name() != child {
				t.Errorf("command %q has no %q subcommand", name, child)
			}
		}
	}
}

func parseBuildFlags(t *testing.T, args ...string) (*buildFlags, *cobra.Command) {
	t.Helper()
	var f buildFlags
	cmd := &cobra.Command{Use: "build"}
	f.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v): %v", args, err)
	}
	return &f, cmd
}

func TestBuildFlagsOverlay(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "build.toml")
	content := "solute = \"receptor.pdb\"\ncation = \"Na\"\nxy_buf = 12.0\nmembrane = \"TIP3\"\n"
	if err := os.WriteFile(config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, cmd := parseBuildFlags(t, "--config", config, "--cation", "K", "-o", "out.pdb", "--salt-conc", "0", "--seed", "0")
	opts, err := f.options(cmd, nil)
	if err != nil {
		t.Fatalf("options() error: %v", err)
	}

	if want := filepath.Join(dir, "receptor.pdb"); opts.Solute != want {
		t.Errorf("Solute = %q, want %q", opts.Solute, want)
	}
	if opts.Cation != "K" {
		t.Errorf("Cation = %q, want flag value K", opts.Cation)
	}
	if opts.XYBuf != 12 {
		t.Errorf("XYBuf = %v, want 12 from the file", opts.XYBuf)
	}
	if opts.Membrane != "TIP3" {
		t.Errorf("Membrane = %q, want TIP3 from the file", opts.Membrane)
	}
	if opts.Output != "out.pdb" {
		t.Errorf("Output = %q, want out.pdb", opts.Output)
	}
	if opts.SaltConc == nil || *opts.SaltConc != 0 {
		t.Errorf("SaltConc = %v, want explicit zero", opts.SaltConc)
	}
	if opts.Seed == nil || *opts.Seed != 0 {
		t.Errorf("Seed = %v, want explicit zero", opts.Seed)
	}
	if opts.WatBuffer != 0 {
		t.Errorf("WatBuffer = %v, want unset so defaults apply later", opts.WatBuffer)
	}
}

func TestBuildFlagsSoluteArgument(t *testing.T) {
	f, cmd := parseBuildFlags(t, "-o", "out.pdb")
	opts, err := f.options(cmd, []string{"protein.pdb"})
	if err != nil {
		t.Fatalf("options() error: %v", err)
	}
	if opts.Solute != "protein.pdb" {
		t.Errorf("Solute = %q, want protein.pdb", opts.Solute)
	}
	if opts.SaltConc != nil {
		t.Errorf("SaltConc = %v, want nil when the flag is not set", *opts.SaltConc)
	}
	if opts.Seed != nil {
		t.Errorf("Seed = %v, want nil when the flag is not set", *opts.Seed)
	}

	f, cmd = parseBuildFlags(t, "-i", "a.pdb")
	if _, err := f.options(cmd, []string{"b.pdb"}); err == nil {
		t.Error("expected error for solute given twice")
	}
}

func TestBuildFlagsBadConfig(t *testing.T) {
	f, cmd := parseBuildFlags(t, "--config", filepath.Join(t.TempDir(), "missing.toml"))
	_, err := f.options(cmd, nil)
	if !derrors.Is(err, derrors.ErrCodeFileNotFound) {
		t.Errorf("options() error = %v, want %s", err, derrors.ErrCodeFileNotFound)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{2048, "2.0 KiB"},
		{3 << 20, "3.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.n); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestCacheTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := cacheTable([]cache.EntryInfo{
		{Key: "patch:fresh", Size: 10, CreatedAt: now, ExpiresAt: now.Add(2 * time.Hour)},
		{Key: "patch:stale", Size: 10, CreatedAt: now, ExpiresAt: now.Add(-time.Hour)},
		{Key: "patch:forever", Size: 10, CreatedAt: now},
	}, now)

	for _, want := range []string{"patch:fresh", "2h0m0s", "expired", "never"} {
		if !strings.Contains(out, want) {
			t.Errorf("cache table missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRemoved(t *testing.T) {
	var res pipeline.Result
	if got := formatRemoved(res.Report); got != "none" {
		t.Errorf("formatRemoved(empty) = %q, want none", got)
	}
	res.Report.Trimmed = 12
	res.Report.Clashes.Boundary = 2
	res.Report.Clashes.SideChain = 1
	if got, want := formatRemoved(res.Report), "12 trimmed, 3 boundary clash"; got != want {
		t.Errorf("formatRemoved() = %q, want %q", got, want)
	}
}

func TestPresetRows(t *testing.T) {
	t.Setenv(presets.DataDirEnv, "")

	byName := func(rows []presetRow) map[string]presetRow {
		m := make(map[string]presetRow)
		for _, r := range rows {
			m[r.Name] = r
		}
		return m
	}

	rows := byName(presetRows(""))
	if r := rows[presets.POPC]; r.Available || r.Status != "not installed" || r.Kind != "membrane" {
		t.Errorf("POPC without data dir = %+v", r)
	}
	if r := rows[presets.TIP3]; !r.Available || r.Status != "generated" || r.Kind != "water" {
		t.Errorf("TIP3 without data dir = %+v", r)
	}

	dir := t.TempDir()
	popc := filepath.Join(dir, "popc.pdb")
	if err := os.WriteFile(popc, []byte("END\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rows = byName(presetRows(dir))
	if r := rows[presets.POPC]; !r.Available || r.Status != popc {
		t.Errorf("installed POPC = %+v", r)
	}
	if r := rows[presets.Default]; !r.Available || !strings.HasPrefix(r.Status, "→ "+presets.POPC) {
		t.Errorf("DEFAULT alias = %+v", r)
	}
}

func TestFindRecord(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), historyFile))
	if err != nil {
		t.Fatalf("history.Open() error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, id := range []string{"abcdef12-0000", "abcdff34-0000", "0123abcd-0000"} {
		rec := history.Record{ID: id, StartedAt: time.Now(), Status: history.StatusOK}
		if err := store.Add(ctx, rec); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	tests := []struct {
		id     string
		wantID string
		code   derrors.Code
	}{
		{id: "abcdef12-0000", wantID: "abcdef12-0000"},
		{id: "abcde", wantID: "abcdef12-0000"},
		{id: "0123", wantID: "0123abcd-0000"},
		{id: "abcd", code: derrors.ErrCodeAmbiguousInput},
		{id: "zzz", code: derrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rec, err := findRecord(cmd, store, tt.id)
			if tt.code != "" {
				if !derrors.Is(err, tt.code) {
					t.Fatalf("findRecord(%q) error = %v, want %s", tt.id, err, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("findRecord(%q) error: %v", tt.id, err)
			}
			if rec.ID != tt.wantID {
				t.Errorf("findRecord(%q) = %q, want %q", tt.id, rec.ID, tt.wantID)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0f8fad5b-d9cb-469f-a165-70867728950e"); got != "0f8fad5b" {
		t.Errorf("shortID(uuid) = %q", got)
	}
	if got := shortID("failed-1700000000"); got != "failed-1700000000" {
		t.Errorf("shortID(failed) = %q", got)
	}
}
