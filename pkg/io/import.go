package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/structure"
)

// ReadJSON decodes a structure in the native JSON format:
//
//	{
//	  "title": "membrane",
//	  "cell": [60, 60, 95],
//	  "atoms": [{"name": "OH2", "resname": "TIP3", "resid": 1, ...}]
//	}
//
// Residue serials are reassigned from the atom order. ReadJSON does not
// close r.
func ReadJSON(r io.Reader) (*structure.Structure, error) {
	var data document
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	s := &structure.Structure{Title: data.Title, Atoms: make([]structure.Atom, len(data.Atoms))}
	if data.Cell != nil {
		s.Cell = *data.Cell
	}
	for i, a := range data.Atoms {
		if a.Name == "" {
			return nil, fmt.Errorf("atom %d: missing name", i)
		}
		s.Atoms[i] = structure.Atom{
			Serial:  i + 1,
			Name:    a.Name,
			ResName: a.ResName,
			ResID:   a.ResID,
			Chain:   a.Chain,
			Segment: a.Segment,
			Element: structure.CanonicalElement(a.Element),
			Pos:     geom.Vec3(a.Pos),
			Charge:  a.Charge,
			HetAtm:  a.HetAtm,
		}
	}
	s.Finalize()
	return s, nil
}

// Read decodes a structure of the given format and compression from r.
func Read(r io.Reader, f Format, c Compression) (*structure.Structure, error) {
	zr, done, err := decompress(r, c)
	if err != nil {
		return nil, err
	}
	defer done()

	switch f {
	case FormatPDB:
		return ReadPDB(zr)
	case FormatJSON:
		return ReadJSON(zr)
	}
	return nil, fmt.Errorf("unsupported structure format %q", f)
}

// Import reads the structure file at path, choosing the codec from its
// extension. Errors wrap the underlying cause with the path, so a missing
// file still satisfies errors.Is(err, fs.ErrNotExist).
func Import(path string) (*structure.Structure, error) {
	f, c, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	s, err := Read(file, f, c)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s, nil
}

// Decode is the inverse of [Encode].
func Decode(data []byte) (*structure.Structure, error) {
	return Read(bytes.NewReader(data), FormatJSON, CompressZstd)
}
