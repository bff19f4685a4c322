package search

// Frontier is the six-bucket priority stack from route_segs' glist[6]:
// bucket 0 holds the cheapest points still to process, buckets 1-5 hold
// points found at successively higher cost tiers (forbidden-direction
// crossings, layer changes against the preferred orientation, and so on).
// When bucket 0 empties, every bucket shifts down one slot rather than
// re-sorting, which is what makes the frontier O(1) amortized per push
// and pop instead of needing a heap.
type Frontier struct {
	buckets [6]*Point
	pool    *Pool
}

// NewFrontier returns an empty Frontier backed by pool.
func NewFrontier(pool *Pool) *Frontier {
	return &Frontier{pool: pool}
}

// Push adds a point at the given tier (0 = cheapest, 5 = most expensive).
// Tiers outside [0,5] clamp to the nearest valid bucket.
func (f *Frontier) Push(x, y, layer, tier int) {
	if tier < 0 {
		tier = 0
	}
	if tier > 5 {
		tier = 5
	}
	pt := f.pool.Get(x, y, layer)
	pt.Next = f.buckets[tier]
	f.buckets[tier] = pt
}

// Pop removes and returns the next point to process, shifting buckets
// down when the lowest is empty. Reports false once every bucket is
// empty.
func (f *Frontier) Pop() (x, y, layer int, ok bool) {
	for f.buckets[0] == nil {
		empty := true
		for i := 0; i < 5; i++ {
			f.buckets[i] = f.buckets[i+1]
			if f.buckets[i] != nil {
				empty = false
			}
		}
		f.buckets[5] = nil
		if empty {
			return 0, 0, 0, false
		}
	}
	pt := f.buckets[0]
	f.buckets[0] = pt.Next
	x, y, layer = pt.X, pt.Y, pt.Layer
	f.pool.Put(pt)
	return x, y, layer, true
}

// Reset discards every queued point, returning them all to the pool.
func (f *Frontier) Reset() {
	for i := range f.buckets {
		f.pool.PutChain(f.buckets[i])
		f.buckets[i] = nil
	}
}

// Empty reports whether every bucket is empty.
func (f *Frontier) Empty() bool {
	for _, b := range f.buckets {
		if b != nil {
			return false
		}
	}
	return true
}
