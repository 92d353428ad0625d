package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	derrors "github.com/matzehuels/dabble/pkg/errors"
)

// LoadOptions reads options from a TOML, YAML or JSON file, chosen by
// extension. Unknown keys are rejected so typos do not silently fall back
// to defaults.
func LoadOptions(path string) (Options, error) {
	var o Options
	data, err := os.ReadFile(path)
	if err != nil {
		return o, derrors.Wrap(derrors.ErrCodeFileNotFound, err, "read options %s", path)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &o)
		if err != nil {
			return o, derrors.Wrap(derrors.ErrCodeInvalidInput, err, "parse %s", path)
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return o, derrors.New(derrors.ErrCodeInvalidInput, "%s: unknown option %q", path, keys[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
			return o, derrors.Wrap(derrors.ErrCodeInvalidInput, err, "parse %s", path)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&o); err != nil {
			return o, derrors.Wrap(derrors.ErrCodeInvalidInput, err, "parse %s", path)
		}
	default:
		return o, derrors.New(derrors.ErrCodeInvalidFormat, "unsupported options file %s (must be .toml, .yaml or .json)", path)
	}
	o.resolvePaths(filepath.Dir(path))
	return o, nil
}

// resolvePaths makes relative file options relative to dir, the directory
// of the options file. Preset names are left alone.
func (o *Options) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	o.Solute = abs(o.Solute)
	o.Output = abs(o.Output)
	o.OPMPDB = abs(o.OPMPDB)
	if o.DataDir != "" {
		o.DataDir = abs(o.DataDir)
	}
	if o.ScratchDir != "" {
		o.ScratchDir = abs(o.ScratchDir)
	}
	if strings.ContainsAny(o.Membrane, `./\`) {
		o.Membrane = abs(o.Membrane)
	}
	o.ExtraTopos = absList(o.ExtraTopos, abs)
	o.ExtraParams = absList(o.ExtraParams, abs)
}

func absList(list string, abs func(string) string) string {
	if list == "" {
		return ""
	}
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = abs(strings.TrimSpace(p))
	}
	return strings.Join(parts, ",")
}
