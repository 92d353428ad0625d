package io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/structure"
)

// ionElements maps ion residue names that do not spell their element.
var ionElements = map[string]string{
	"SOD": "Na",
	"POT": "K",
	"CLA": "Cl",
	"CAL": "Ca",
	"MG":  "Mg",
	"ZN":  "Zn",
	"NA":  "Na",
	"K":   "K",
	"CL":  "Cl",
}

// ReadPDB decodes ATOM, HETATM and CRYST1 records. Reading stops at the
// first END or ENDMDL record.
func ReadPDB(r io.Reader) (*structure.Structure, error) {
	s := &structure.Structure{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256), 1<<20)

	charged := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		rec := strings.TrimSpace(field(line, 0, 6))
		switch rec {
		case "TITLE", "HEADER":
			if s.Title == "" {
				s.Title = strings.TrimSpace(field(line, 10, 80))
			}
		case "CRYST1":
			cell, err := parseCryst(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			s.Cell = cell
		case "ATOM", "HETATM":
			a, hasCharge, err := parseAtom(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			a.HetAtm = rec == "HETATM"
			charged = charged || hasCharge
			s.Atoms = append(s.Atoms, a)
		case "END", "ENDMDL":
			goto done
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
done:
	s.Finalize()
	if !charged {
		AssignFormalCharges(s)
	}
	return s, nil
}

func parseCryst(line string) (geom.Vec3, error) {
	var cell geom.Vec3
	cols := [3][2]int{{6, 15}, {15, 24}, {24, 33}}
	for i, c := range cols {
		v, err := strconv.ParseFloat(strings.TrimSpace(field(line, c[0], c[1])), 64)
		if err != nil {
			return cell, fmt.Errorf("CRYST1: %w", err)
		}
		cell[i] = v
	}
	return cell, nil
}

func parseAtom(line string) (structure.Atom, bool, error) {
	var a structure.Atom
	if len(line) < 54 {
		return a, false, fmt.Errorf("atom record too short (%d columns)", len(line))
	}

	serial, _ := strconv.Atoi(strings.TrimSpace(field(line, 6, 11)))
	a.Serial = serial
	a.Name = strings.TrimSpace(field(line, 12, 16))
	a.ResName = strings.TrimSpace(field(line, 17, 21))
	a.Chain = strings.TrimSpace(field(line, 21, 22))
	resid, err := strconv.Atoi(strings.TrimSpace(field(line, 22, 26)))
	if err != nil {
		return a, false, fmt.Errorf("resid: %w", err)
	}
	a.ResID = resid

	for i, c := range [3][2]int{{30, 38}, {38, 46}, {46, 54}} {
		v, err := strconv.ParseFloat(strings.TrimSpace(field(line, c[0], c[1])), 64)
		if err != nil {
			return a, false, fmt.Errorf("coordinate %s: %w", geom.Axis(i), err)
		}
		a.Pos[i] = v
	}

	a.Segment = strings.TrimSpace(field(line, 72, 76))
	a.Element = structure.CanonicalElement(field(line, 76, 78))
	if a.Element == "" {
		a.Element = inferElement(a.Name, a.ResName)
	}

	hasCharge := false
	if q := strings.TrimSpace(field(line, 78, 80)); q != "" {
		v, err := parseCharge(q)
		if err != nil {
			return a, false, err
		}
		a.Charge = v
		hasCharge = true
	}
	return a, hasCharge, nil
}

// parseCharge reads the "2+" / "1-" charge column.
func parseCharge(q string) (float64, error) {
	sign := 1.0
	switch {
	case strings.HasSuffix(q, "+"):
		q = strings.TrimSuffix(q, "+")
	case strings.HasSuffix(q, "-"):
		q = strings.TrimSuffix(q, "-")
		sign = -1
	}
	if q == "" {
		return sign, nil
	}
	n, err := strconv.Atoi(q)
	if err != nil {
		return 0, fmt.Errorf("charge %q: %w", q, err)
	}
	return sign * float64(n), nil
}

func inferElement(name, resname string) string {
	if e, ok := ionElements[strings.ToUpper(resname)]; ok {
		return e
	}
	name = strings.TrimLeft(name, "0123456789")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1])
}

func field(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	return line[from:min(to, len(line))]
}

// WritePDB encodes kept atoms as PDB records. Serials and resids that
// overflow their columns wrap around.
func WritePDB(s *structure.Structure, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if s.Title != "" {
		fmt.Fprintf(bw, "TITLE     %s\n", s.Title)
	}
	if s.Periodic() {
		fmt.Fprintf(bw, "CRYST1%9.3f%9.3f%9.3f%7.2f%7.2f%7.2f P 1           1\n",
			s.Cell[0], s.Cell[1], s.Cell[2], 90.0, 90.0, 90.0)
	}

	serial := 0
	for i := range s.Atoms {
		a := &s.Atoms[i]
		if !a.Keep {
			continue
		}
		serial++
		rec := "ATOM  "
		if a.HetAtm {
			rec = "HETATM"
		}
		fmt.Fprintf(bw, "%s%5d %-4s %-4s%1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f      %-4s%2s%2s\n",
			rec, serial%100000, pdbName(a.Name), a.ResName, a.Chain, a.ResID%10000,
			a.Pos[0], a.Pos[1], a.Pos[2], 1.0, 0.0,
			a.Segment, strings.ToUpper(a.Element), formatCharge(a.Charge))
	}
	fmt.Fprintln(bw, "END")
	return bw.Flush()
}

// pdbName left-pads names shorter than four characters by one column so
// one-letter element symbols line up.
func pdbName(n string) string {
	if len(n) < 4 {
		return " " + n
	}
	return n
}

func formatCharge(q float64) string {
	n := int(q)
	if float64(n) != q || n == 0 {
		return ""
	}
	if n > 0 {
		return strconv.Itoa(n) + "+"
	}
	return strconv.Itoa(-n) + "-"
}
