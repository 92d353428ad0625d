// Package io reads and writes molecular structures.
//
// # Formats
//
// Two formats are supported, selected by file extension:
//
//   - .pdb: fixed-column Protein Data Bank records (ATOM, HETATM, CRYST1).
//     Formal charges are read from columns 79-80; when a file carries none,
//     residue-template formal charges are assigned (see [AssignFormalCharges]).
//   - .json: the native format, which preserves partial charges, segment
//     names and the periodic cell exactly.
//
// Either may be suffixed with .gz or .zst for gzip or zstd compression:
//
//	s, err := io.Import("membrane.pdb.gz")
//	err = io.Export(s, "system.json.zst")
//
// # Keep marks
//
// Writers only emit atoms whose Keep mark is set, renumbering serials from
// one. Readers mark every atom kept and assign residue serials with
// [structure.Structure.Finalize].
package io
