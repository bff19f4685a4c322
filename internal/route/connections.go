package route

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
)

// SetConnections scans rt's first and last segment and sets rt.Start/rt.End
// to whatever each endpoint lands on: a tap of one of net's own nodes, a
// cell already covered by another of net's routes, or neither. It must be
// re-run on any route whose segment list changes after it was first built —
// cleanup's via/wire rewrites and any future segment edit both leave Start/
// End stale until this runs again, and antenna analysis and delay writeback
// both walk these references assuming they're current.
//
// m is accepted for parity with the rest of this package's grid-aware
// functions but isn't consulted: ownership at an endpoint is already
// recorded in net's own Nodes/Routes lists, which is cheaper to search than
// re-deriving it from grid cell state.
func SetConnections(net *design.Net, rt *design.Route, m *grid.Model) {
	if len(rt.Segments) == 0 {
		rt.Start = design.RouteEnd{Kind: design.EndNone}
		rt.End = design.RouteEnd{Kind: design.EndNone}
		return
	}
	first := rt.Segments[0]
	last := rt.Segments[len(rt.Segments)-1]
	rt.Start = endpointRef(net, rt, first.X1, first.Y1, first.Layer)
	rt.End = endpointRef(net, rt, last.X2, last.Y2, last.Layer)
}

func endpointRef(net *design.Net, self *design.Route, x, y, layer int) design.RouteEnd {
	for i, node := range net.Nodes {
		for _, tap := range node.Taps {
			if tap.GridX == x && tap.GridY == y && tap.Layer == layer {
				return design.RouteEnd{Kind: design.EndNode, NodeIdx: i}
			}
		}
	}
	for i, other := range net.Routes {
		if other == self {
			continue
		}
		found := false
		for _, seg := range other.Segments {
			walkSegment(seg, func(cx, cy, cl int) {
				if cx == x && cy == y && cl == layer {
					found = true
				}
			})
		}
		if found {
			return design.RouteEnd{Kind: design.EndRoute, RouteIdx: i}
		}
	}
	return design.RouteEnd{Kind: design.EndNone}
}
