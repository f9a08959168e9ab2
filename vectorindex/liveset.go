package vectorindex

import "github.com/RoaringBitmap/roaring/v2/roaring64"

// liveSet tracks which ids are currently present in the index. Index
// consults it, not the backends: it answers Insert's duplicate check,
// Delete's not-found check and Size, and Search uses it as a post-filter
// over every backend's results so a deleted id can never resurface from
// the graph between checkpoints (coder/hnsw compacts lazily, not on
// every Delete).
type liveSet struct {
	bm *roaring64.Bitmap
}

func newLiveSet() *liveSet {
	return &liveSet{bm: roaring64.New()}
}

func (s *liveSet) add(id uint64)      { s.bm.Add(id) }
func (s *liveSet) remove(id uint64)   { s.bm.Remove(id) }
func (s *liveSet) contains(id uint64) bool { return s.bm.Contains(id) }
func (s *liveSet) len() uint64        { return s.bm.GetCardinality() }
