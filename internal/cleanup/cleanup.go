// Package cleanup inspects a net's routes after the routing stages finish
// and rewrites a narrow set of post-route defects: a via placed needlessly
// close to another via of the same net, and a via-wire-via sandwich at a
// route's end that is pure redundancy. Neither problem is visible to the
// maze search itself — both only show up once every route of a net is
// compared against its neighbors — so this runs as a separate pass over
// the finished route set rather than as a search-time rule.
package cleanup

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/route"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// Run inspects every route of net for the two defects this package fixes,
// rewrites segments in place where found, and re-derives Start/End on every
// route it touched so antenna analysis and delay writeback never see a
// stale endpoint reference.
func Run(net *design.Net, m *grid.Model, t *tech.Technology) {
	touched := make(map[*design.Route]bool)
	for _, rt := range net.Routes {
		if fixAdjacentVias(net, rt, t) {
			touched[rt] = true
		}
		if fixRedundantVia(m, rt) {
			touched[rt] = true
		}
	}
	for rt := range touched {
		route.SetConnections(net, rt, m)
	}
}

// needBlock reports, per axis, whether two vias of bottomLayer's layer pair
// placed one grid track apart would violate via-to-via spacing — derived
// from the layer's preferred via width against its track pitch. A layer
// whose via comfortably fits within one pitch needs no adjacent-via check
// at all, so callers skip it entirely.
func needBlock(t *tech.Technology, bottomLayer int) (blockX, blockY bool) {
	lo := t.LayerByNumber(bottomLayer)
	hi := t.LayerByNumber(bottomLayer + 1)
	if lo == nil || hi == nil {
		return false, false
	}
	v := lo.ViaFor(hi)
	if v == nil {
		return false, false
	}
	spacing := lo.SpacingFor(v.WidthX[0])
	blockX = v.WidthX[0]+spacing > lo.PitchX
	blockY = v.WidthY[0]+spacing > lo.PitchY
	return blockX, blockY
}

// viaAt returns the position of rt's leading (head) or trailing via
// segment, if that end is a via.
func viaAt(rt *design.Route, head bool) (x, y, layer int, ok bool) {
	if len(rt.Segments) == 0 {
		return 0, 0, 0, false
	}
	seg := rt.Segments[0]
	if !head {
		seg = rt.Segments[len(rt.Segments)-1]
	}
	if !seg.Type.Has(design.SegVia) {
		return 0, 0, 0, false
	}
	return seg.X1, seg.Y1, seg.Layer, true
}

// fixAdjacentVias checks both ends of rt against every other route of net
// for a too-close via pair, rewriting rt's end in place when found.
func fixAdjacentVias(net *design.Net, rt *design.Route, t *tech.Technology) bool {
	changed := false
	if x, y, layer, ok := viaAt(rt, true); ok {
		if fixEnd(net, rt, t, true, x, y, layer) {
			changed = true
		}
	}
	if x, y, layer, ok := viaAt(rt, false); ok {
		if fixEnd(net, rt, t, false, x, y, layer) {
			changed = true
		}
	}
	return changed
}

func fixEnd(net *design.Net, rt *design.Route, t *tech.Technology, head bool, x, y, layer int) bool {
	blockX, blockY := needBlock(t, layer)
	if !blockX && !blockY {
		return false
	}
	for _, other := range net.Routes {
		if other == rt {
			continue
		}
		for _, otherHead := range [2]bool{true, false} {
			nx, ny, nLayer, ok := viaAt(other, otherHead)
			if !ok {
				continue
			}
			dx, dy := nx-x, ny-y
			onX := dy == 0 && absInt(dx) == 1 && blockX
			onY := dx == 0 && absInt(dy) == 1 && blockY
			if !onX && !onY {
				continue
			}
			return rewriteVia(rt, head, x, y, layer, nx, ny, nLayer)
		}
	}
	return false
}

// rewriteVia replaces rt's head/tail via at (x,y,layer) given a too-close
// neighbor via at (nx,ny,nLayer). Same layer pair: the via is redundant —
// the route can reach the neighbor's position directly on the shared upper
// metal, so the via becomes a one-track wire extending to (nx,ny). Different
// layer pairs: the vias can't merge, so a tie wire is inserted on whichever
// layer the two layer pairs share, reported as a special-net rectangle at
// write-out.
func rewriteVia(rt *design.Route, head bool, x, y, layer, nx, ny, nLayer int) bool {
	idx := 0
	if !head {
		idx = len(rt.Segments) - 1
	}
	if layer == nLayer {
		rt.Segments[idx] = design.Segment{
			Layer: layer + 1,
			X1:    x, Y1: y, X2: nx, Y2: ny,
			Type: design.SegWire,
		}
		return true
	}
	shared, ok := sharedLayer(layer, nLayer)
	if !ok {
		return false
	}
	tie := design.Segment{
		Layer: shared,
		X1:    x, Y1: y, X2: nx, Y2: ny,
		Type: design.SegWire | design.SegSpecial,
	}
	if head {
		rt.Segments = append([]design.Segment{tie}, rt.Segments...)
	} else {
		rt.Segments = append(rt.Segments, tie)
	}
	return true
}

// sharedLayer returns the metal layer two via layer pairs (a,a+1) and
// (b,b+1) have in common, if their ranges are adjacent.
func sharedLayer(a, b int) (int, bool) {
	switch {
	case a+1 == b:
		return a + 1, true
	case b+1 == a:
		return b + 1, true
	default:
		return 0, false
	}
}

// fixRedundantVia looks for a via-wire-via sandwich at either end of rt
// where the wire is exactly one track and the grid already carries rt's
// net on both layers the wire could occupy, meaning one of the two vias
// buys nothing. It removes the outer via and leaves the wire as rt's new
// end segment.
//
// A via removed this way may have been the attachment point another
// route's Start/End pointed at; this package doesn't splice that route's
// geometry onto rt; it relies on the caller's re-run of route.SetConnections
// to re-resolve every touched route's endpoints from the rewritten
// geometry, which is what the source description calls for rather than
// hand-maintained pointer surgery.
func fixRedundantVia(m *grid.Model, rt *design.Route) bool {
	if len(rt.Segments) < 3 {
		return false
	}
	if tryCollapse(m, rt, true) {
		return true
	}
	return tryCollapse(m, rt, false)
}

func tryCollapse(m *grid.Model, rt *design.Route, head bool) bool {
	var outer, wire, inner design.Segment
	if head {
		outer, wire, inner = rt.Segments[0], rt.Segments[1], rt.Segments[2]
	} else {
		n := len(rt.Segments)
		outer, wire, inner = rt.Segments[n-1], rt.Segments[n-2], rt.Segments[n-3]
	}
	if !outer.Type.Has(design.SegVia) || !inner.Type.Has(design.SegVia) || wire.Type.Has(design.SegVia) {
		return false
	}
	if !isOneTrack(wire) {
		return false
	}
	if !sameNetBothLayers(m, wire) {
		return false
	}
	if head {
		rt.Segments = rt.Segments[1:]
	} else {
		n := len(rt.Segments)
		rt.Segments = rt.Segments[:n-1]
	}
	return true
}

func isOneTrack(w design.Segment) bool {
	dx := absInt(w.X2 - w.X1)
	dy := absInt(w.Y2 - w.Y1)
	return (dx == 1 && dy == 0) || (dx == 0 && dy == 1)
}

func sameNetBothLayers(m *grid.Model, w design.Segment) bool {
	lo := m.Obstruction(w.X1, w.Y1, w.Layer).Net
	hi := m.Obstruction(w.X1, w.Y1, w.Layer+1).Net
	return lo != 0 && lo == hi
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
