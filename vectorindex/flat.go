package vectorindex

import "sort"

// flatBackend is a brute-force exact nearest-neighbor backend: every
// search scans every live vector. Correct by construction, at the cost
// of O(n) per search — the baseline the hnsw backend trades accuracy for
// speed against (§6's "-t flat" index type).
type flatBackend struct {
	dist    DistanceFunc
	vectors map[uint64][]float32
}

func newFlatBackend(dist DistanceFunc) *flatBackend {
	return &flatBackend{dist: dist, vectors: make(map[uint64][]float32)}
}

func (b *flatBackend) insert(id uint64, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	b.vectors[id] = stored
}

func (b *flatBackend) delete(id uint64) {
	delete(b.vectors, id)
}

func (b *flatBackend) len() int { return len(b.vectors) }

func (b *flatBackend) vector(id uint64) ([]float32, bool) {
	v, ok := b.vectors[id]
	return v, ok
}

// search returns the k nearest vectors to vec by full scan, exact at
// rank 1.
func (b *flatBackend) search(vec []float32, k int) []Hit {
	if k <= 0 || len(b.vectors) == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(b.vectors))
	for id, stored := range b.vectors {
		hits = append(hits, Hit{ID: id, Distance: b.dist(vec, stored)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}
