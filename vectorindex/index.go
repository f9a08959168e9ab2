// Package vectorindex implements the opaque vector-index collaborator
// consumed by the index server state machine: fixed-dimension float32
// vectors keyed by uint64 id, inserted, deleted, and searched by one of
// two interchangeable backends (flat exact scan, or an approximate
// coder/hnsw graph), selected at alloc time by the index server's "-t"
// flag and immutable for the database's lifetime, same as Dims and
// Method (§3's "Dimensionality D is immutable per database").
//
// Like kvstore, Index assumes single-owner, single-goroutine access: the
// index server's dispatch loop is its only caller.
package vectorindex

// Type selects the search backend.
type Type int

const (
	TypeHNSW Type = iota
	TypeFlat
)

func ParseType(s string) (Type, error) {
	switch s {
	case "", "hnsw":
		return TypeHNSW, nil
	case "flat":
		return TypeFlat, nil
	default:
		return 0, errUnknownType(s)
	}
}

func (t Type) String() string {
	switch t {
	case TypeHNSW:
		return "hnsw"
	case TypeFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// Index is the vector-index collaborator: New (alloc(type, method, dims)),
// Insert, Delete, Search, Size, Destroy, and an opaque Export/Import
// snapshot pair, matching the interface §6 describes.
type Index struct {
	typ     Type
	method  Method
	dims    int
	backend backend
	live    *liveSet

	// maxK bounds the "implementation-defined upper bound" §4.5 allows
	// SEARCH's k to be clamped to.
	maxK int
}

// DefaultMaxK is the search result cap applied when a caller requests
// more neighbors than this.
const DefaultMaxK = 10_000

// New allocates an empty index of the given type, method, and fixed
// dimensionality — the collaborator's alloc(type, method, dims).
func New(typ Type, method Method, dims int) (*Index, error) {
	if dims <= 0 {
		return nil, ErrInvalidDims(dims, dims)
	}
	dist := distanceFuncFor(method)

	var b backend
	switch typ {
	case TypeFlat:
		b = newFlatBackend(dist)
	case TypeHNSW:
		b = newHNSWBackend(dist)
	default:
		return nil, errUnknownType(typ.String())
	}

	return &Index{
		typ:     typ,
		method:  method,
		dims:    dims,
		backend: b,
		live:    newLiveSet(),
		maxK:    DefaultMaxK,
	}, nil
}

func (ix *Index) Type() Type      { return ix.typ }
func (ix *Index) Method() Method  { return ix.method }
func (ix *Index) Dims() int       { return ix.dims }

// CheckDims reports whether vec's length matches this index's fixed
// dimensionality, the check both INSERT and SEARCH must perform before
// touching the backend (§4.5, §8 boundary behavior).
func (ix *Index) CheckDims(vec []float32) error {
	if len(vec) != ix.dims {
		return ErrInvalidDims(len(vec), ix.dims)
	}
	return nil
}

// Insert adds (id, vec) to the index. Returns ErrDuplicate if id is
// already present, unchanged per §4.5.
func (ix *Index) Insert(id uint64, vec []float32) error {
	if err := ix.CheckDims(vec); err != nil {
		return err
	}
	if ix.live.contains(id) {
		return ErrDuplicate(id)
	}
	ix.backend.insert(id, vec)
	ix.live.add(id)
	return nil
}

// Delete removes id. Returns ErrNotFound if absent, unchanged per §4.5.
func (ix *Index) Delete(id uint64) error {
	if !ix.live.contains(id) {
		return ErrNotFound(id)
	}
	ix.backend.delete(id)
	ix.live.remove(id)
	return nil
}

// Search returns up to k nearest neighbors to vec, ordered by distance
// ascending, filtered against liveSet so a backend with lazily-deleted
// entries (hnsw) never resurfaces a deleted id.
func (ix *Index) Search(vec []float32, k int) ([]Hit, error) {
	if err := ix.CheckDims(vec); err != nil {
		return nil, err
	}
	if k > ix.maxK {
		k = ix.maxK
	}
	if k <= 0 {
		return nil, nil
	}

	// Ask the backend for extra candidates to absorb post-filtering of
	// tombstoned ids without starving the result below k.
	want := k
	if ix.typ == TypeHNSW {
		want = k * 2
		if want > ix.maxK {
			want = ix.maxK
		}
	}

	raw := ix.backend.search(vec, want)
	out := make([]Hit, 0, k)
	for _, h := range raw {
		if !ix.live.contains(h.ID) {
			continue
		}
		out = append(out, h)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// Size returns the number of live ids.
func (ix *Index) Size() uint64 { return ix.live.len() }

// Destroy releases the index's memory. Subsequent use of ix is
// undefined, matching the collaborator contract's destroy() call.
func (ix *Index) Destroy() {
	ix.backend = nil
	ix.live = nil
}

func errUnknownType(s string) *Error {
	return newError(CodeSystem, "unknown index type %q", s)
}
