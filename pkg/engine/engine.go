package engine

import (
	"errors"
	"io"
	"io/fs"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/geom"
	sio "github.com/matzehuels/dabble/pkg/io"
	"github.com/matzehuels/dabble/pkg/sel"
	"github.com/matzehuels/dabble/pkg/structure"
)

// Engine holds structures addressed by handle. It is safe for concurrent
// use, although a single build drives it from one goroutine.
type Engine struct {
	Logger *log.Logger

	mu    sync.Mutex
	next  structure.Handle
	items map[structure.Handle]*structure.Structure
}

// New creates an empty engine. A nil logger discards output.
func New(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{Logger: logger, items: make(map[structure.Handle]*structure.Structure)}
}

// Adopt registers s and returns its handle. The engine takes ownership.
func (e *Engine) Adopt(s *structure.Structure) structure.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.items[e.next] = s
	return e.next
}

// Load reads a structure file into a new handle.
func (e *Engine) Load(path string) (structure.Handle, error) {
	if _, _, err := sio.DetectFormat(path); err != nil {
		return 0, derrors.Wrap(derrors.ErrCodeInvalidFormat, err, "load %s", path)
	}
	s, err := sio.Import(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, derrors.Wrap(derrors.ErrCodeFileNotFound, err, "load %s", path)
	}
	if err != nil {
		return 0, derrors.Wrap(derrors.ErrCodeMalformedInput, err, "load %s", path)
	}
	h := e.Adopt(s)
	e.Logger.Debug("loaded structure", "path", path, "atoms", s.Len(), "handle", h)
	return h, nil
}

// Save writes the kept atoms of h to path in the format implied by its
// extension.
func (e *Engine) Save(h structure.Handle, path string) error {
	s, err := e.get(h)
	if err != nil {
		return err
	}
	if _, _, err := sio.DetectFormat(path); err != nil {
		return derrors.Wrap(derrors.ErrCodeInvalidFormat, err, "save %s", path)
	}
	if err := sio.Export(s, path); err != nil {
		return derrors.Wrap(derrors.ErrCodeInvalidPath, err, "save %s", path)
	}
	e.Logger.Debug("saved structure", "path", path, "atoms", s.Kept(), "handle", h)
	return nil
}

// Release forgets h. Releasing an unknown handle is a no-op.
func (e *Engine) Release(h structure.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.items, h)
}

// Live returns the number of handles currently held.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// Snapshot returns a copy of the structure behind h.
func (e *Engine) Snapshot(h structure.Handle) (*structure.Structure, error) {
	s, err := e.get(h)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (e *Engine) get(h structure.Handle) (*structure.Structure, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.items[h]
	if !ok {
		return nil, derrors.New(derrors.ErrCodeUnknownHandle, "unknown structure handle %d", h)
	}
	return s, nil
}

// Select returns the sorted indices of atoms matching x.
func (e *Engine) Select(h structure.Handle, x sel.Expr) ([]int, error) {
	s, err := e.get(h)
	if err != nil {
		return nil, err
	}
	mask, err := newEvaluator(s).eval(x)
	if err != nil {
		return nil, err
	}
	var ids []int
	for i, ok := range mask {
		if ok {
			ids = append(ids, i)
		}
	}
	return ids, nil
}

// Count returns the number of atoms matching x.
func (e *Engine) Count(h structure.Handle, x sel.Expr) (int, error) {
	ids, err := e.Select(h, x)
	return len(ids), err
}

// Atoms returns copies of the atoms at ids.
func (e *Engine) Atoms(h structure.Handle, ids []int) ([]structure.Atom, error) {
	s, err := e.get(h)
	if err != nil {
		return nil, err
	}
	if err := checkIDs(s, ids); err != nil {
		return nil, err
	}
	out := make([]structure.Atom, len(ids))
	for i, id := range ids {
		out[i] = s.Atoms[id]
	}
	return out, nil
}

// Positions returns the coordinates of the atoms at ids.
func (e *Engine) Positions(h structure.Handle, ids []int) ([]geom.Vec3, error) {
	atoms, err := e.Atoms(h, ids)
	if err != nil {
		return nil, err
	}
	out := make([]geom.Vec3, len(atoms))
	for i := range atoms {
		out[i] = atoms[i].Pos
	}
	return out, nil
}

// Centroid returns the mean position of the atoms at ids.
func (e *Engine) Centroid(h structure.Handle, ids []int) (geom.Vec3, error) {
	pts, err := e.Positions(h, ids)
	if err != nil {
		return geom.Vec3{}, err
	}
	return geom.Centroid(pts), nil
}

// SetKeep sets the keep mark of the atoms at ids and reports how many
// marks changed.
func (e *Engine) SetKeep(h structure.Handle, ids []int, keep bool) (int, error) {
	s, err := e.get(h)
	if err != nil {
		return 0, err
	}
	if err := checkIDs(s, ids); err != nil {
		return 0, err
	}
	changed := 0
	for _, id := range ids {
		if s.Atoms[id].Keep != keep {
			s.Atoms[id].Keep = keep
			changed++
		}
	}
	return changed, nil
}

// SetIdentity renames one atom. The charge follows the new element when it
// is a monatomic ion.
func (e *Engine) SetIdentity(h structure.Handle, id int, ident structure.Identity, charge float64) error {
	s, err := e.get(h)
	if err != nil {
		return err
	}
	if err := checkIDs(s, []int{id}); err != nil {
		return err
	}
	a := &s.Atoms[id]
	a.Element = structure.CanonicalElement(ident.Element)
	a.Name = ident.Name
	a.ResName = ident.ResName
	a.Charge = charge
	return nil
}

// SetChain moves the atoms at ids to chain.
func (e *Engine) SetChain(h structure.Handle, ids []int, chain string) error {
	s, err := e.get(h)
	if err != nil {
		return err
	}
	if err := checkIDs(s, ids); err != nil {
		return err
	}
	for _, id := range ids {
		s.Atoms[id].Chain = chain
	}
	return nil
}

// Chains returns the distinct chain identifiers in h, sorted.
func (e *Engine) Chains(h structure.Handle) ([]string, error) {
	s, err := e.get(h)
	if err != nil {
		return nil, err
	}
	var out []string
	for i := range s.Atoms {
		if !slices.Contains(out, s.Atoms[i].Chain) {
			out = append(out, s.Atoms[i].Chain)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Translate moves the atoms at ids by v. A nil ids moves every atom.
func (e *Engine) Translate(h structure.Handle, ids []int, v geom.Vec3) error {
	return e.Transform(h, ids, geom.Translation(v))
}

// Transform applies t to the atoms at ids. A nil ids moves every atom.
func (e *Engine) Transform(h structure.Handle, ids []int, t geom.Transform) error {
	s, err := e.get(h)
	if err != nil {
		return err
	}
	if ids == nil {
		for i := range s.Atoms {
			s.Atoms[i].Pos = t.Apply(s.Atoms[i].Pos)
		}
		return nil
	}
	if err := checkIDs(s, ids); err != nil {
		return err
	}
	for _, id := range ids {
		s.Atoms[id].Pos = t.Apply(s.Atoms[id].Pos)
	}
	return nil
}

// Fit returns the rigid transform that best superimposes the atoms at ids
// onto the atoms refIDs of ref. The sets are paired in order.
func (e *Engine) Fit(h structure.Handle, ids []int, ref structure.Handle, refIDs []int) (geom.Transform, error) {
	mobile, err := e.Positions(h, ids)
	if err != nil {
		return geom.Transform{}, err
	}
	target, err := e.Positions(ref, refIDs)
	if err != nil {
		return geom.Transform{}, err
	}
	t, err := geom.Fit(mobile, target)
	if err != nil {
		return geom.Transform{}, derrors.Wrap(derrors.ErrCodeInvalidInput, err, "fit %d atoms onto %d", len(mobile), len(target))
	}
	return t, nil
}

// Center translates h so the centroid of its kept atoms sits at the
// origin. The z coordinate is left alone unless centerZ is set.
func (e *Engine) Center(h structure.Handle, centerZ bool) error {
	ids, err := e.Select(h, sel.IsKept())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	c, err := e.Centroid(h, ids)
	if err != nil {
		return err
	}
	if !centerZ {
		c[geom.Z] = 0
	}
	return e.Translate(h, nil, c.Scale(-1))
}

// Combine concatenates the structures of hs into a new handle. Keep marks
// carry over and residue serials stay unique. The result has no cell.
func (e *Engine) Combine(hs ...structure.Handle) (structure.Handle, error) {
	out := &structure.Structure{}
	for _, h := range hs {
		s, err := e.get(h)
		if err != nil {
			return 0, err
		}
		if out.Title == "" {
			out.Title = s.Title
		}
		out.Append(s)
	}
	return e.Adopt(out), nil
}

// SetCell sets the periodic cell of h.
func (e *Engine) SetCell(h structure.Handle, cell geom.Vec3) error {
	s, err := e.get(h)
	if err != nil {
		return err
	}
	s.Cell = cell
	return nil
}

func checkIDs(s *structure.Structure, ids []int) error {
	for _, id := range ids {
		if id < 0 || id >= len(s.Atoms) {
			return derrors.New(derrors.ErrCodeInternal, "atom index %d out of range [0, %d)", id, len(s.Atoms))
		}
	}
	return nil
}
