package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/dabble/pkg/structure"
)

type document struct {
	Title string      `json:"title,omitempty"`
	Cell  *[3]float64 `json:"cell,omitempty"`
	Atoms []atom      `json:"atoms"`
}

type atom struct {
	Name    string     `json:"name"`
	ResName string     `json:"resname"`
	ResID   int        `json:"resid"`
	Chain   string     `json:"chain,omitempty"`
	Segment string     `json:"segment,omitempty"`
	Element string     `json:"element,omitempty"`
	Pos     [3]float64 `json:"pos"`
	Charge  float64    `json:"charge,omitempty"`
	HetAtm  bool       `json:"hetatm,omitempty"`
}

// WriteJSON encodes kept atoms of s in the native JSON format.
// WriteJSON does not close w.
func WriteJSON(s *structure.Structure, w io.Writer) error {
	data := document{Title: s.Title, Atoms: make([]atom, 0, s.Kept())}
	if s.Periodic() {
		cell := [3]float64(s.Cell)
		data.Cell = &cell
	}
	for i := range s.Atoms {
		a := &s.Atoms[i]
		if !a.Keep {
			continue
		}
		data.Atoms = append(data.Atoms, atom{
			Name:    a.Name,
			ResName: a.ResName,
			ResID:   a.ResID,
			Chain:   a.Chain,
			Segment: a.Segment,
			Element: a.Element,
			Pos:     [3]float64(a.Pos),
			Charge:  a.Charge,
			HetAtm:  a.HetAtm,
		})
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Write encodes s in the given format and compression.
func Write(s *structure.Structure, w io.Writer, f Format, c Compression) error {
	zw, done, err := compress(w, c)
	if err != nil {
		return err
	}
	switch f {
	case FormatPDB:
		err = WritePDB(s, zw)
	case FormatJSON:
		err = WriteJSON(s, zw)
	default:
		err = fmt.Errorf("unsupported structure format %q", f)
	}
	if err != nil {
		return err
	}
	return done()
}

// Export writes the kept atoms of s to path, choosing the codec from its
// extension. An existing file is truncated.
func Export(s *structure.Structure, path string) error {
	f, c, err := DetectFormat(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(s, file, f, c); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// Encode serializes kept atoms as zstd-compressed JSON, the form used for
// cached artifacts.
func Encode(s *structure.Structure) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(s, &buf, FormatJSON, CompressZstd); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
