package route

import (
	"math"

	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
)

// dirVector returns the (dx, dy, dlayer) step for a Direction. Duplicated
// from the grid package, same reasoning as the search package's copy: this
// package walks its own coordinate triples rather than grid.Model state.
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

// buildSegments turns a source-to-target direction path into the wire and
// via segments of one Route, merging consecutive same-layer steps taken in
// the same direction into a single wire segment instead of emitting one
// segment per grid step. Grounded on qrouter.c's route_segs commit step,
// which walks the same predecessor chain down to SEG records. The first and
// last segment are marked ST_OFFSET_START/ST_OFFSET_END and stamped with the
// stub/offset distance when the path starts or ends inside a pin NodeInfo
// flagged that way, so SPECIALNETS writeback has a data source.
func buildSegments(m *grid.Model, startX, startY, startLayer int, path []grid.Direction) []design.Segment {
	var segs []design.Segment
	x, y, layer := startX, startY, startLayer
	segX, segY := x, y
	segDir := grid.DirNone

	flush := func() {
		if segDir == grid.DirNone || (segX == x && segY == y) {
			segDir = grid.DirNone
			return
		}
		segs = append(segs, design.Segment{
			Layer: layer,
			X1:    segX, Y1: segY,
			X2: x, Y2: y,
			Type: design.SegWire,
		})
		segDir = grid.DirNone
	}

	for _, d := range path {
		dx, dy, dl := dirVector(d)
		if dl != 0 {
			flush()
			lo := layer
			if dl < 0 {
				lo = layer - 1
			}
			segs = append(segs, design.Segment{
				Layer: lo,
				X1:    x, Y1: y,
				X2: x, Y2: y,
				Type: design.SegVia,
			})
			layer += dl
			segX, segY = x, y
			continue
		}
		if segDir != grid.DirNone && segDir != d {
			flush()
			segX, segY = x, y
		}
		segDir = d
		x += dx
		y += dy
	}
	flush()

	segs = markTerminus(segs, m, startX, startY, startLayer, true)
	segs = markTerminus(segs, m, x, y, layer, false)
	return segs
}

// offsetTap reads the stub or offset distance NodeInfo recorded for
// (x,y,layer), in microns, and whether the pin is flagged either way at all.
func offsetTap(m *grid.Model, x, y, layer int) (dist float64, ok bool) {
	if m == nil {
		return 0, false
	}
	ni := m.NodeInfoAt(x, y, layer)
	if ni == nil {
		return 0, false
	}
	if ni.StubAxis != grid.AxisNone {
		return math.Abs(ni.Stub), true
	}
	if ni.OffsetAxis != grid.AxisNone {
		return math.Abs(ni.Offset), true
	}
	return 0, false
}

// markTerminus marks the wire segment touching (x,y,layer) — the path's
// source end when isStart, its target end otherwise — with
// ST_OFFSET_START/ST_OFFSET_END and the distance offsetTap reports,
// synthesizing a zero-length wire segment there first if the commit walk
// didn't already leave a wire touching that point (e.g. the path enters the
// pin directly through a via). Grounded on qrouter.c's route_segs terminal
// handling of STUBROUTE/OFFSET_TAP pins.
func markTerminus(segs []design.Segment, m *grid.Model, x, y, layer int, isStart bool) []design.Segment {
	dist, ok := offsetTap(m, x, y, layer)
	if !ok {
		return segs
	}
	flag := design.SegOffsetEnd
	if isStart {
		flag = design.SegOffsetStart
	}

	if len(segs) > 0 {
		idx := len(segs) - 1
		if isStart {
			idx = 0
		}
		seg := &segs[idx]
		touches := seg.Layer == layer && ((seg.X1 == x && seg.Y1 == y) || (seg.X2 == x && seg.Y2 == y))
		if touches && seg.Type.Has(design.SegWire) {
			seg.Type |= flag
			seg.OffsetDist = dist
			return segs
		}
	}

	stub := design.Segment{Layer: layer, X1: x, Y1: y, X2: x, Y2: y, Type: design.SegWire | flag, OffsetDist: dist}
	if isStart {
		return append([]design.Segment{stub}, segs...)
	}
	return append(segs, stub)
}

// walkSegment calls fn for every grid cell a segment covers: every point
// along a wire's run, or both layer endpoints of a via.
func walkSegment(seg design.Segment, fn func(x, y, layer int)) {
	if seg.Type.Has(design.SegVia) {
		fn(seg.X1, seg.Y1, seg.Layer)
		fn(seg.X1, seg.Y1, seg.Layer+1)
		return
	}
	dx := sign(seg.X2 - seg.X1)
	dy := sign(seg.Y2 - seg.Y1)
	x, y := seg.X1, seg.Y1
	fn(x, y, seg.Layer)
	for x != seg.X2 || y != seg.Y2 {
		x += dx
		y += dy
		fn(x, y, seg.Layer)
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// commitRoute marks every cell rt covers as owned by net on the grid.
func commitRoute(m *grid.Model, net *design.Net, rt *design.Route) {
	for _, seg := range rt.Segments {
		walkSegment(seg, func(x, y, layer int) {
			w := m.Obstruction(x, y, layer)
			w.Net = int32(net.NetNum)
			w.Routed = true
		})
	}
}

// uncommitRoute clears net's ownership from every cell rt covers, leaving
// blockage/offset/stub markers from obstruction analysis untouched.
func uncommitRoute(m *grid.Model, rt *design.Route) {
	for _, seg := range rt.Segments {
		walkSegment(seg, func(x, y, layer int) {
			w := m.Obstruction(x, y, layer)
			w.Net = 0
			w.Routed = false
		})
	}
}
