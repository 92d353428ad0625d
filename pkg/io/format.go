package io

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format is a structure file format.
type Format string

const (
	FormatPDB  Format = "pdb"
	FormatJSON Format = "json"
)

// Compression is a stream compression applied on top of a format.
type Compression string

const (
	CompressNone Compression = ""
	CompressGzip Compression = "gz"
	CompressZstd Compression = "zst"
)

// ValidFormats is the set of supported structure formats.
var ValidFormats = map[Format]bool{
	FormatPDB:  true,
	FormatJSON: true,
}

// DetectFormat derives format and compression from a file name such as
// "system.pdb" or "patch.json.zst".
func DetectFormat(path string) (Format, Compression, error) {
	name := strings.ToLower(filepath.Base(path))
	comp := CompressNone
	switch ext := filepath.Ext(name); ext {
	case ".gz":
		comp = CompressGzip
		name = strings.TrimSuffix(name, ext)
	case ".zst":
		comp = CompressZstd
		name = strings.TrimSuffix(name, ext)
	}

	f := Format(strings.TrimPrefix(filepath.Ext(name), "."))
	if !ValidFormats[f] {
		return "", "", fmt.Errorf("unsupported structure format %q (must be pdb or json, optionally .gz or .zst)", filepath.Base(path))
	}
	return f, comp, nil
}

// decompress wraps r according to c. The returned closer must be called.
func decompress(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case CompressGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case CompressZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	}
	return r, func() {}, nil
}

// compress wraps w according to c. The returned closer flushes the stream.
func compress(w io.Writer, c Compression) (io.Writer, func() error, error) {
	switch c {
	case CompressGzip:
		zw := gzip.NewWriter(w)
		return zw, zw.Close, nil
	case CompressZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zw, zw.Close, nil
	}
	return w, func() error { return nil }, nil
}
