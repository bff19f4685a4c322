package search

import (
	"math"

	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// tierConflict is the steepest frontier bucket: a move across a BLOCKED_*
// bit, only attempted at all when ForceRoutable is set. Moves in the
// other five check_order slots use their own index as the tier, so the
// layer's preferred direction is always tried before a layer change,
// which is tried before the off-preference directions.
const tierConflict = 5

// MaxCost is route_segs' MAXRT sentinel: a cost high enough that no real
// path could reach it, used to detect "no route found".
const MaxCost = 1 << 30

// Searcher runs one net's maze search over a grid.Model. A Searcher is
// reused across nets; Reset clears per-run state without reallocating the
// pool or frontier.
type Searcher struct {
	Model         *grid.Model
	Tech          *tech.Technology
	ForceRoutable bool
	MaxCost       int

	// NetNum is the net currently being searched for. Cells already owned
	// by this net (an earlier sub-route of the same net) are free to
	// cross; cells owned by any other net are a hard block unless
	// ForceRoutable is set, in which case they're crossable at the
	// steepest cost tier and recorded as a rip-up candidate.
	NetNum int

	// MaxLayer, when positive, limits expansion to layers below MaxLayer,
	// used by antenna repair routing to keep a fix route off metal that
	// would only make the violation worse. Zero means unrestricted.
	MaxLayer int

	// SegmentCost and ViaCost weight the two step kinds stepCost
	// distinguishes: a same-layer move and a layer change. Zero means use
	// the built-in defaults (1 and 10). Set from internal/config's "cost
	// segment"/"cost via" command.
	SegmentCost int
	ViaCost     int

	// OffsetCost and BlockCost add to a step's cost when it enters a
	// NodeInfo-flagged pin cell: OffsetCost is multiplied by the tap's
	// offset distance in microns, BlockCost is a flat addition for a pin
	// with only one reachable tap. Zero means neither term applies. Set
	// from internal/config's "cost offset"/"cost block" command.
	OffsetCost int
	BlockCost  int

	// ViaStack caps the number of consecutive U/D moves a path may take
	// through the same (x,y) column; a move that would exceed it is
	// skipped rather than expanded. Zero (or negative) means unbounded.
	// Set from internal/config's "via stack N" command.
	ViaStack int

	pool     *Pool
	frontier *Frontier
	// visited records every cell this Searcher has set Obs2 state on since
	// the last Reset, so Reset can undo exactly those cells without the
	// caller having to track them itself. A cell only needs recording once;
	// expand() and the Seed* methods check before appending.
	visited [][3]int
}

// NewSearcher returns a Searcher over m using t for per-layer routing
// preference and via cost.
func NewSearcher(m *grid.Model, t *tech.Technology) *Searcher {
	pool := NewPool(4096)
	return &Searcher{
		Model:    m,
		Tech:     t,
		MaxCost:  MaxCost,
		pool:     pool,
		frontier: NewFrontier(pool),
	}
}

// mark records (x,y,layer) as touched by this search run, the first time
// any Obs2 field there is set.
func (s *Searcher) mark(x, y, layer int) {
	s.visited = append(s.visited, [3]int{x, y, layer})
}

// Reset clears the Obs2 state of every grid cell this Searcher has touched
// since the last Reset and empties the frontier, so the next net starts
// clean. Safe to call on a Searcher that hasn't run yet.
func (s *Searcher) Reset() {
	s.frontier.Reset()
	for _, c := range s.visited {
		s.Model.Search(c[0], c[1], c[2]).Reset()
	}
	s.visited = s.visited[:0]
}

// SeedSource marks (x,y,layer) as a zero-cost source and enqueues it.
func (s *Searcher) SeedSource(x, y, layer int) {
	st := s.Model.Search(x, y, layer)
	st.Source = true
	st.CostValid = true
	st.Cost = 0
	s.mark(x, y, layer)
	s.frontier.Push(x, y, layer, 0)
}

// SeedTarget marks (x,y,layer) as a destination the search should report
// when first reached.
func (s *Searcher) SeedTarget(x, y, layer int) {
	s.mark(x, y, layer)
	s.Model.Search(x, y, layer).Target = true
}

// Result is the outcome of one Run: the cheapest target cell reached, or
// ok=false if the frontier emptied without reaching any target.
type Result struct {
	X, Y, Layer int
	Cost        uint32
	OK          bool
}

// Run drains the frontier, expanding each popped cell's neighbors in
// layer-orientation preference order, until every target cell reachable
// within MaxCost has been considered. It returns the lowest-cost target
// cell found. Grounded on qrouter.c's route_segs.
func (s *Searcher) Run() Result {
	maxCost := s.MaxCost
	best := Result{Cost: uint32(maxCost)}

	for {
		x, y, layer, ok := s.frontier.Pop()
		if !ok {
			break
		}
		st := s.Model.Search(x, y, layer)
		if st.Processed {
			continue
		}

		if st.Target {
			if st.Cost < best.Cost {
				best = Result{X: x, Y: y, Layer: layer, Cost: st.Cost, OK: true}
				if int(best.Cost) < maxCost {
					maxCost = int(best.Cost)
				}
			}
			st.Processed = true
			continue
		}

		if int(st.Cost) > maxCost {
			continue
		}
		st.Processed = true

		s.expand(x, y, layer, st)
	}
	return best
}

// checkOrder returns the six directions to try from (x,y,layer), ordered
// by the layer's preferred routing orientation: horizontal layers check
// east/west before north/south, vertical layers the reverse, and both
// check the adjacent layers (vias) before the cross-preference moves.
func (s *Searcher) checkOrder(layer int) [6]grid.Direction {
	l := s.Tech.LayerByNumber(layer)
	if l != nil && l.Orientation == tech.Vertical {
		return [6]grid.Direction{grid.DirN, grid.DirS, grid.DirU, grid.DirD, grid.DirE, grid.DirW}
	}
	return [6]grid.Direction{grid.DirE, grid.DirW, grid.DirU, grid.DirD, grid.DirN, grid.DirS}
}

// expand pushes every reachable neighbor of (x,y,layer) onto the frontier,
// biased by internal/mask's RMask overlay: a neighbor outside the net's
// preferred region costs more to enter, without being made unreachable, so
// a mask narrows the search without ever making a legal route impossible.
func (s *Searcher) expand(x, y, layer int, st *grid.SearchState) {
	w := s.Model.Obstruction(x, y, layer)
	order := s.checkOrder(layer)

	for i, dir := range order {
		dx, dy, dl := dirVector(dir)
		nx, ny, nl := x+dx, y+dy, layer+dl
		if !s.Model.InBounds(nx, ny, nl) {
			continue
		}
		if s.MaxLayer > 0 && nl >= s.MaxLayer {
			continue
		}

		viaRun := 0
		if dl != 0 {
			viaRun = st.ViaRun + 1
			if s.ViaStack > 0 && viaRun > s.ViaStack {
				continue
			}
		}

		neighbor := s.Model.Obstruction(nx, ny, nl)
		if neighbor.NoNet {
			continue
		}

		foreignNet := neighbor.Net != 0 && int(neighbor.Net) != s.NetNum
		if foreignNet && !s.ForceRoutable {
			continue
		}

		blocked := w.IsBlocked(dir)
		if blocked && !s.ForceRoutable {
			continue
		}

		step := s.stepCost(dir, layer, nl) + int(s.Model.Mask(nx, ny)) + s.pinExtraCost(nx, ny, nl)
		tier := i
		if blocked || foreignNet {
			tier = tierConflict
		}

		nst := s.Model.Search(nx, ny, nl)
		if nst.Processed {
			continue
		}
		newCost := uint32(step)
		if st.CostValid {
			newCost += st.Cost
		}
		if nst.CostValid && nst.Cost <= newCost {
			continue
		}
		if !nst.CostValid {
			s.mark(nx, ny, nl)
		}
		nst.CostValid = true
		nst.Cost = newCost
		nst.Pred = dir.Opposite()
		nst.ViaRun = viaRun
		if foreignNet {
			nst.SpoilerNet = neighbor.Net
		}
		s.frontier.Push(nx, ny, nl, tier)
	}
}

// pinExtraCost adds the OffsetCost/BlockCost terms of the step-cost model
// for entering (x,y,layer): OffsetCost × the tap's recorded offset distance
// when NodeInfo flags it an offset tap, plus a flat BlockCost when the
// owning node has only one reachable tap. Grounded on qrouter.c's
// route_segs cost accumulation for OFFSET_TAP and single-tap pins.
func (s *Searcher) pinExtraCost(x, y, layer int) int {
	if s.OffsetCost <= 0 && s.BlockCost <= 0 {
		return 0
	}
	ni := s.Model.NodeInfoAt(x, y, layer)
	if ni == nil {
		return 0
	}
	cost := 0
	if s.OffsetCost > 0 && ni.OffsetAxis != grid.AxisNone {
		cost += int(math.Round(float64(s.OffsetCost) * math.Abs(ni.Offset)))
	}
	if s.BlockCost > 0 {
		node := ni.NodeLoc
		if node == nil {
			node = ni.NodeSav
		}
		if node != nil && len(node.Taps) == 1 {
			cost += s.BlockCost
		}
	}
	return cost
}

// stepCost is the incremental cost of moving from layer to nlayer in
// direction dir: a via costs substantially more than a same-layer step,
// since layer changes are a scarcer resource than track length.
func (s *Searcher) stepCost(dir grid.Direction, layer, nlayer int) int {
	if dir == grid.DirU || dir == grid.DirD {
		if s.ViaCost > 0 {
			return s.ViaCost
		}
		return 10
	}
	if s.SegmentCost > 0 {
		return s.SegmentCost
	}
	return 1
}

// TraceBack walks Pred directions from (x,y,layer) back to the first
// Source cell it encounters, returning the path source-to-target along with
// the source cell itself, since a multi-tap seed means the caller can't
// otherwise tell which of several seeded sources the path actually starts
// from. Grounded on qrouter.c's routing of the best point back through
// route_segs.
func (s *Searcher) TraceBack(x, y, layer int) (path []grid.Direction, srcX, srcY, srcLayer int) {
	for {
		st := s.Model.Search(x, y, layer)
		if st.Source {
			break
		}
		d := st.Pred
		if d == grid.DirNone {
			break
		}
		path = append(path, d.Opposite())
		dx, dy, dl := dirVector(d)
		x, y, layer = x+dx, y+dy, layer+dl
	}
	// path currently runs target->source; reverse it.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, x, y, layer
}
