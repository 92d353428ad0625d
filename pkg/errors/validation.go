package errors

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Cations lists the accepted cation species.
var Cations = []string{"Na", "K"}

// ValidatePath validates a user-supplied file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateInputFile checks that path is valid and names an existing regular file.
func ValidateInputFile(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Wrap(ErrCodeFileNotFound, err, "cannot read %s", path)
	}
	if info.IsDir() {
		return New(ErrCodeInvalidPath, "%s is a directory", path)
	}
	return nil
}

// ValidateOutputFile checks that path can be written: it must not exist
// unless overwrite is set, and its directory must exist.
func ValidateOutputFile(path string, overwrite bool) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return New(ErrCodeInvalidPath, "%s is a directory", path)
		}
		if !overwrite {
			return New(ErrCodeFileExists, "output file %s already exists; pass --overwrite to replace it", path)
		}
	}
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return New(ErrCodeInvalidPath, "output directory %s does not exist", dir)
	}
	return nil
}

// ValidateCation returns the canonical spelling of a cation species or an
// ErrCodeInvalidCation error.
func ValidateCation(c string) (string, error) {
	for _, ok := range Cations {
		if strings.EqualFold(c, ok) {
			return ok, nil
		}
	}
	return "", New(ErrCodeInvalidCation, "cation %q is not supported (must be one of %s)", c, strings.Join(Cations, ", "))
}

// ValidateNonNegative rejects negative, NaN or infinite values for the named option.
func ValidateNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return New(ErrCodeInvalidInput, "%s must be a non-negative number, got %v", name, v)
	}
	return nil
}

// SplitFileList splits a comma-separated list of paths, dropping blanks,
// and checks that every file exists.
func SplitFileList(list string) ([]string, error) {
	var out []string
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := ValidateInputFile(p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
