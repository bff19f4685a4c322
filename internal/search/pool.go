// Package search implements the maze router: a six-bucket priority
// frontier over the routing grid, expanded one net at a time from its
// source taps toward its target taps. Grounded on
// original_source/qrouter.c's route_segs/next_route_setup/route_setup and
// original_source/point.c's POINT free-list allocator.
package search

import "github.com/lixenwraith/qrouter/internal/grid"

// Point is one frontier entry: a grid position plus the singly linked
// chain used by both the free list and the priority buckets. qrouter.c
// allocates these from a custom arena backed by mmap (point.c); Go has no
// portable anonymous-mmap primitive in the standard library, so Pool
// reuses a growable slice as the arena instead and keeps the same
// free-list discipline on top of it.
type Point struct {
	X, Y, Layer int
	Next        *Point
}

// Pool is a free-list allocator over arena blocks of Point values. Get
// and Put are the hot path of the search loop (potentially millions of
// calls per net), so both avoid any allocation once a block has been
// carved: Get only calls into the runtime allocator when the free list
// and the current block are both exhausted.
type Pool struct {
	free      *Point
	block     []Point
	blockSize int
	next      int
}

// NewPool returns a Pool that carves blockSize-Point arenas as needed.
func NewPool(blockSize int) *Pool {
	if blockSize <= 0 {
		blockSize = 4096
	}
	return &Pool{blockSize: blockSize}
}

// Get returns a Point with the given coordinates and a nil Next.
func (p *Pool) Get(x, y, layer int) *Point {
	if p.free != nil {
		pt := p.free
		p.free = pt.Next
		pt.X, pt.Y, pt.Layer, pt.Next = x, y, layer, nil
		return pt
	}
	if p.block == nil || p.next >= len(p.block) {
		p.block = make([]Point, p.blockSize)
		p.next = 0
	}
	pt := &p.block[p.next]
	p.next++
	pt.X, pt.Y, pt.Layer = x, y, layer
	return pt
}

// Put returns pt to the free list. pt.Next is overwritten; callers must
// not hold onto pt after calling Put.
func (p *Pool) Put(pt *Point) {
	pt.Next = p.free
	p.free = pt
}

// PutChain returns an entire singly linked chain to the free list in one
// call, used when discarding a whole bucket at once.
func (p *Pool) PutChain(head *Point) {
	if head == nil {
		return
	}
	tail := head
	for tail.Next != nil {
		tail = tail.Next
	}
	tail.Next = p.free
	p.free = head
}

// dirVector mirrors grid.dirVector for the six cardinal/vertical moves,
// duplicated here since search walks Points, not grid.Model cells.
func dirVector(d grid.Direction) (dx, dy, dl int) {
	switch d {
	case grid.DirN:
		return 0, 1, 0
	case grid.DirS:
		return 0, -1, 0
	case grid.DirE:
		return 1, 0, 0
	case grid.DirW:
		return -1, 0, 0
	case grid.DirU:
		return 0, 0, 1
	case grid.DirD:
		return 0, 0, -1
	default:
		return 0, 0, 0
	}
}
