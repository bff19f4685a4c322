package route

import (
	"iter"

	"github.com/lixenwraith/qrouter/internal/design"
)

// Walk yields rt's segments start-to-end (forward) or end-to-start with
// each segment's endpoints swapped (!forward). Antenna analysis needs to
// read a route in both directions depending on which end it attaches to a
// node; rather than reversing the route's segment slice in place and
// restoring it afterward, Walk produces the reversed view as synthetic
// segment values without ever mutating rt.
func Walk(rt *design.Route, forward bool) iter.Seq[*design.Segment] {
	return func(yield func(*design.Segment) bool) {
		if forward {
			for i := range rt.Segments {
				if !yield(&rt.Segments[i]) {
					return
				}
			}
			return
		}
		for i := len(rt.Segments) - 1; i >= 0; i-- {
			seg := rt.Segments[i]
			seg.X1, seg.Y1, seg.X2, seg.Y2 = seg.X2, seg.Y2, seg.X1, seg.Y1
			if !yield(&seg) {
				return
			}
		}
	}
}

// Cells returns every grid cell rt occupies, in segment order, expanding
// wires into one point per grid step and vias into their bottom and top
// layer points.
func Cells(rt *design.Route) []design.Point {
	var out []design.Point
	for _, seg := range rt.Segments {
		walkSegment(seg, func(x, y, layer int) {
			out = append(out, design.Point{X: x, Y: y, Layer: layer})
		})
	}
	return out
}
