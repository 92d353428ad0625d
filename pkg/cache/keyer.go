package cache

// Keyer derives cache keys for build artifacts.
type Keyer interface {
	// PatchKey identifies a patch replicated by the given tile factors.
	PatchKey(patchHash string, opts PatchKeyOpts) string
}

// PatchKeyOpts are the inputs besides the patch contents that determine a
// tiled patch.
type PatchKeyOpts struct {
	Factors [3]int `json:"factors"`
	Format  string `json:"format"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PatchKey returns "patch:<sha256>".
func (DefaultKeyer) PatchKey(patchHash string, opts PatchKeyOpts) string {
	return hashKey("patch", patchHash, opts)
}
