package errors

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "out.pdb", false},
		{"valid nested", "runs/a/system.pdb", false},
		{"valid absolute", "/tmp/system.pdb", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 5000)), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateOutputFile(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "exists.pdb")
	if err := os.WriteFile(existing, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		path      string
		overwrite bool
		code      Code
	}{
		{"new file", filepath.Join(dir, "new.pdb"), false, ""},
		{"existing without overwrite", existing, false, ErrCodeFileExists},
		{"existing with overwrite", existing, true, ""},
		{"missing directory", filepath.Join(dir, "nope", "x.pdb"), false, ErrCodeInvalidPath},
		{"directory", dir, true, ErrCodeInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFile(tt.path, tt.overwrite)
			if tt.code == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestValidateCation(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Na", "Na", true},
		{"NA", "Na", true},
		{"k", "K", true},
		{"Br", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateCation(tt.in)
			if tt.ok != (err == nil) {
				t.Fatalf("err = %v", err)
			}
			if err != nil && !Is(err, ErrCodeInvalidCation) {
				t.Errorf("wrong code: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	if err := ValidateNonNegative("salt_conc", 0.15); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateNonNegative("salt_conc", -1); !Is(err, ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestSplitFileList(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.rtf")
	b := filepath.Join(dir, "b.prm")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := SplitFileList(a + ", " + b + ",")
	if err != nil {
		t.Fatalf("SplitFileList: %v", err)
	}
	if want := []string{a, b}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if got, err := SplitFileList(""); err != nil || got != nil {
		t.Errorf("empty list = %v, %v", got, err)
	}

	if _, err := SplitFileList(a + "," + filepath.Join(dir, "missing")); !Is(err, ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidFormat,
		ErrCodeInvalidPath,
		ErrCodeInvalidCation,
		ErrCodeInvalidSelection,
		ErrCodeAmbiguousInput,
		ErrCodeFileExists,
		ErrCodeMissingBuffer,
		ErrCodeConflictingOrientation,
		ErrCodeNoConvertibleWater,
		ErrCodeNotWaterOxygen,
		ErrCodeMalformedInput,
		ErrCodeSoluteAlreadySet,
		ErrCodeFileNotFound,
		ErrCodeUnknownHandle,
		ErrCodeUnknownPreset,
		ErrCodeInternal,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
