package builder

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Context is the state of one build: the named structure handles, the box,
// the solute selection and the random source used for ion placement.
//
// A Context is used by a single goroutine. Close releases every handle it
// still owns.
type Context struct {
	ID        string
	Box       geom.Vec3
	WaterOnly bool
	Scratch   string

	eng         Engine
	logger      *log.Logger
	handles     map[string]structure.Handle
	solute      sel.Expr
	chains      []string
	rng         *rand.Rand
	keepScratch bool
}

// NewContext creates a build context and its scratch directory below
// root. An empty root means the system temp directory.
func NewContext(eng Engine, root string, seed uint64, keepScratch bool, logger *log.Logger) (*Context, error) {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if root == "" {
		root = os.TempDir()
	}
	id := uuid.NewString()
	dir := filepath.Join(root, "dabble-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInvalidPath, err, "create scratch directory")
	}
	return &Context{
		ID:          id,
		Scratch:     dir,
		eng:         eng,
		logger:      logger,
		handles:     make(map[string]structure.Handle),
		rng:         rand.New(rand.NewPCG(seed, seed^0xdeadbeef)),
		keepScratch: keepScratch,
	}, nil
}

// Handle returns the handle registered under name.
func (c *Context) Handle(name string) (structure.Handle, bool) {
	h, ok := c.handles[name]
	return h, ok
}

func (c *Context) mustHandle(name string) (structure.Handle, error) {
	h, ok := c.handles[name]
	if !ok {
		return 0, derrors.New(derrors.ErrCodeInternal, "no %q structure in build context", name)
	}
	return h, nil
}

// put registers h under name, releasing the handle previously held there.
func (c *Context) put(name string, h structure.Handle) {
	if old, ok := c.handles[name]; ok && old != h {
		c.release(name)
	}
	c.handles[name] = h
}

// release drops name and frees its handle unless another name still
// refers to it.
func (c *Context) release(name string) {
	h, ok := c.handles[name]
	if !ok {
		return
	}
	delete(c.handles, name)
	for _, other := range c.handles {
		if other == h {
			return
		}
	}
	c.eng.Release(h)
}

// detach removes name from the context without freeing its handle. The
// caller becomes the owner.
func (c *Context) detach(name string) (structure.Handle, error) {
	h, err := c.mustHandle(name)
	if err != nil {
		return 0, err
	}
	delete(c.handles, name)
	return h, nil
}

// Names returns the registered handle names, sorted.
func (c *Context) Names() []string {
	out := make([]string, 0, len(c.handles))
	for name := range c.handles {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// SetSolute builds the solute selection from the chain and residue ids of
// h. It may be called once per build.
func (c *Context) SetSolute(h structure.Handle) error {
	if c.solute != nil {
		return derrors.New(derrors.ErrCodeSoluteAlreadySet, "solute selection is already set")
	}
	ids, err := c.eng.Select(h, sel.All())
	if err != nil {
		return err
	}
	atoms, err := c.eng.Atoms(h, ids)
	if err != nil {
		return err
	}
	if len(atoms) == 0 {
		return derrors.New(derrors.ErrCodeMalformedInput, "solute has no atoms")
	}

	resids := make(map[string][]int)
	var chains []string
	for i := range atoms {
		ch := atoms[i].Chain
		if _, ok := resids[ch]; !ok {
			chains = append(chains, ch)
		}
		if !slices.Contains(resids[ch], atoms[i].ResID) {
			resids[ch] = append(resids[ch], atoms[i].ResID)
		}
	}
	slices.Sort(chains)

	terms := make([]sel.Expr, 0, len(chains))
	for _, ch := range chains {
		ids := resids[ch]
		slices.Sort(ids)
		terms = append(terms, sel.And(sel.Is(sel.Chain, ch), sel.IsInt(sel.ResID, ids...)))
	}
	c.solute = sel.Or(terms...)
	c.chains = chains
	c.logger.Debug("solute selection", "chains", len(chains), "atoms", len(atoms))
	return nil
}

// Solute returns the solute selection, or nil before SetSolute.
func (c *Context) Solute() sel.Expr { return c.solute }

// freeChain returns a chain identifier used neither by the solute nor by
// h.
func (c *Context) freeChain(h structure.Handle) (string, error) {
	used, err := c.eng.Chains(h)
	if err != nil {
		return "", err
	}
	used = append(used, c.chains...)
	for _, r := range "WXYZUVSTQRPONMLKJIHGFEDCBA0123456789" {
		if !slices.Contains(used, string(r)) {
			return string(r), nil
		}
	}
	for i := 0; ; i++ {
		ch := fmt.Sprintf("S%d", i)
		if !slices.Contains(used, ch) {
			return ch, nil
		}
	}
}

// scratchPath returns a path inside the scratch directory.
func (c *Context) scratchPath(name string) string {
	return filepath.Join(c.Scratch, name)
}

// Close releases all remaining handles and removes the scratch directory
// unless it is being kept.
func (c *Context) Close() error {
	for _, name := range c.Names() {
		c.release(name)
	}
	if c.keepScratch {
		c.logger.Info("kept scratch directory", "path", c.Scratch)
		return nil
	}
	return os.RemoveAll(c.Scratch)
}
