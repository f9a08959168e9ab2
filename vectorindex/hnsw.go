package vectorindex

import "github.com/coder/hnsw"

// hnswBackend wraps github.com/coder/hnsw's graph, the approximate
// nearest-neighbor structure behind the index server's "-t hnsw" (default)
// index type. Deletes are lazy on the graph's side, which is why Index
// consults liveSet as a post-filter rather than trusting the graph alone
// (§8: a deleted id must never resurface between checkpoints).
type hnswBackend struct {
	graph   *hnsw.Graph[uint64]
	dist    DistanceFunc
	vectors map[uint64][]float32
}

func newHNSWBackend(dist DistanceFunc) *hnswBackend {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.DistanceFunc(dist)
	return &hnswBackend{graph: g, dist: dist, vectors: make(map[uint64][]float32)}
}

func (b *hnswBackend) insert(id uint64, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	b.vectors[id] = stored
	b.graph.Add(hnsw.Node[uint64]{Key: id, Value: stored})
}

func (b *hnswBackend) delete(id uint64) {
	b.graph.Delete(id)
	delete(b.vectors, id)
}

func (b *hnswBackend) len() int { return len(b.vectors) }

func (b *hnswBackend) vector(id uint64) ([]float32, bool) {
	v, ok := b.vectors[id]
	return v, ok
}

// search asks the graph for up to k approximate neighbors. Candidates
// no longer present in b.vectors (stale graph entries the lazy delete
// hasn't compacted away yet) are dropped here; Index then applies its
// liveSet filter on top of what this returns.
func (b *hnswBackend) search(vec []float32, k int) []Hit {
	if k <= 0 {
		return nil
	}
	nodes := b.graph.Search(vec, k)
	hits := make([]Hit, 0, len(nodes))
	for _, n := range nodes {
		if stored, ok := b.vectors[n.Key]; ok {
			hits = append(hits, Hit{ID: n.Key, Distance: b.dist(vec, stored)})
		}
	}
	return hits
}
