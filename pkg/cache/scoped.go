package cache

// ScopedKeyer wraps a Keyer with a prefix. Builds sharing one Redis
// instance use it to keep projects or users in separate namespaces:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "lab:gpcr:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PatchKey generates a prefixed key for tiled patch caching.
func (k *ScopedKeyer) PatchKey(patchHash string, opts PatchKeyOpts) string {
	return k.prefix + k.inner.PatchKey(patchHash, opts)
}
