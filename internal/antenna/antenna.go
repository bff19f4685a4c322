// Package antenna finds and repairs plasma-induced gate-oxide damage risk:
// metal left connected to a gate through intermediate manufacturing steps
// accumulates charge proportional to its area, and a layer whose
// accumulated-area-to-gate-area ratio exceeds its process limit can punch
// through the oxide before the rest of the device (and its protecting
// diodes, if any) are even wired up. Grounded on original_source/antenna.c.
package antenna

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/route"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// NetNum is the reserved net number given to every unconnected gate pin
// matching the antenna-cell pattern: free metal tabs held in reserve as
// fix-route targets. Mirrors antenna.c's ANTENNA_NET.
const NetNum = -2

// Violation is one gate pin whose accumulated metal area on Layer exceeds
// its process antenna ratio, along with every node antenna.Check walked to
// reach that total — the subgraph Fix treats as a single unit to reroute.
type Violation struct {
	Net    *design.Net
	Node   *design.Node
	Layer  int
	Ratio  float64
	Nodes  []*design.Node
}

type visitState uint8

const (
	notVisited visitState = iota
	seen
	processed
	isAnchor
)

// Check walks every signal net's routed nodes, layer by layer from the
// bottom of the stack, and reports every node whose connected metal on a
// layer outruns that layer's antenna ratio before reaching either a gate
// input with non-zero gate area on the other end or a protection diode.
// m is accepted for parity with the rest of the component dispatch table
// (internal/router calls every stage with the same (design, grid, tech)
// triple) but isn't consulted: every fact the walk needs — segment layer,
// node/route connectivity, gate area — already lives on the design/route
// values themselves. Grounded on antenna.c's find_layer_antenna_violations.
func Check(d *design.Design, m *grid.Model, t *tech.Technology) []Violation {
	var out []Violation
	for i := range t.Layers {
		layer := &t.Layers[i]
		if layer.AntennaMethod == tech.AntennaNone || layer.AntennaRatio <= 0 {
			continue
		}
		for _, net := range d.Nets {
			if net.Use != design.UseSignal || net.NetNum == NetNum || len(net.Routes) == 0 {
				continue
			}
			out = append(out, checkNet(net, layer, layer.Number, t)...)
		}
	}
	return out
}

func checkNet(net *design.Net, layer *tech.Layer, layerNum int, t *tech.Technology) []Violation {
	pos := make(map[*design.Node]int, len(net.Nodes))
	for i, n := range net.Nodes {
		pos[n] = i
	}
	visited := make([]visitState, len(net.Nodes))
	var out []Violation

	for _, node := range net.Nodes {
		p := pos[node]
		if visited[p] >= processed {
			continue
		}
		if nodeGateArea(node) == 0 {
			visited[p] = isAnchor
			continue
		}
		visited[p] = seen

		for _, rt := range net.Routes {
			rt.Flags &^= design.RouteVisited
		}

		w := &subgraphWalk{net: net, layer: layerNum, method: layer.AntennaMethod, t: t, visited: visited, pos: pos}
		metalArea := w.walkNode(node)

		gateArea, anchored := subgraphGateArea(net, visited, pos)
		anchored = anchored || w.anchored
		if !anchored && gateArea > 0 {
			ratio := metalArea / gateArea
			if ratio > layer.AntennaRatio {
				out = append(out, Violation{
					Net:   net,
					Node:  node,
					Layer: layerNum,
					Ratio: ratio,
					Nodes: subgraphNodes(net, visited, pos),
				})
			}
		}

		for _, other := range net.Nodes {
			if visited[pos[other]] == seen {
				visited[pos[other]] = processed
			}
		}
	}
	return out
}

// subgraphGateArea sums the gate area of every node this walk marked seen,
// and reports anchored if any of them has zero gate area. A zero-area node
// the walk reaches (a protection diode) is marked isAnchor rather than seen,
// so the walk itself records that case in subgraphWalk.anchored.
func subgraphGateArea(net *design.Net, visited []visitState, pos map[*design.Node]int) (area float64, anchored bool) {
	for _, n := range net.Nodes {
		if visited[pos[n]] != seen {
			continue
		}
		a := nodeGateArea(n)
		if a == 0 {
			return 0, true
		}
		area += a
	}
	return area, false
}

func subgraphNodes(net *design.Net, visited []visitState, pos map[*design.Node]int) []*design.Node {
	var out []*design.Node
	for _, n := range net.Nodes {
		if visited[pos[n]] == seen {
			out = append(out, n)
		}
	}
	return out
}

func nodeGateArea(n *design.Node) float64 {
	if n.Gate == nil || n.PinIndex < 0 || n.PinIndex >= len(n.Gate.Macro.PinGateArea) {
		return 0
	}
	return n.Gate.Macro.PinGateArea[n.PinIndex]
}

// subgraphWalk accumulates one layer's antenna area over one node's
// connected routes, stopping at any segment above the checked layer and
// at any node it reaches whose own gate area terminates the subgraph.
type subgraphWalk struct {
	net     *design.Net
	layer   int
	method  tech.AntennaMethod
	t       *tech.Technology
	visited []visitState
	pos     map[*design.Node]int
	// anchored is set when the walk reaches a zero-gate-area node, which
	// exempts the whole subgraph from the ratio check.
	anchored bool
}

func (w *subgraphWalk) walkNode(node *design.Node) float64 {
	area := 0.0
	for i, rt := range w.net.Routes {
		if rt.HasFlag(design.RouteVisited) {
			continue
		}
		if rt.Start.Kind == design.EndNode && w.net.Nodes[rt.Start.NodeIdx] == node {
			area += w.walkRoute(rt, i, 0, 1)
		} else if rt.End.Kind == design.EndNode && w.net.Nodes[rt.End.NodeIdx] == node {
			cells := route.Cells(rt)
			area += w.walkRoute(rt, i, len(cells)-1, -1)
		}
	}
	return area
}

// walkRoute accumulates rt's own area from startIdx in direction dir
// (+1 forward, -1 backward) over rt's flattened cell list, stopping at the
// first cell whose layer exceeds the one being checked, at a mid-route
// T-junction from another unvisited route, or by falling off rt's end into
// whatever that end connects to. Uses a flattened cell walk rather than the
// original's in-place segment-list reversal (see route.Walk/route.Cells),
// since Go route.Route values are shared and must not be mutated to be
// read backwards.
func (w *subgraphWalk) walkRoute(rt *design.Route, routeIdx, startIdx, dir int) float64 {
	if rt.HasFlag(design.RouteVisited) {
		return 0
	}
	rt.Flags |= design.RouteVisited

	cells := route.Cells(rt)
	area := 0.0
	i := startIdx
	for i >= 0 && i < len(cells) {
		if cells[i].Layer > w.layer {
			break
		}
		if ni := i + dir; ni >= 0 && ni < len(cells) {
			next := cells[ni]
			if next.Layer == cells[i].Layer {
				if w.method.Cumulative() || cells[i].Layer == w.layer {
					area += w.stepArea(cells[i], next)
				}
			}
		}
		area += w.attachAt(routeIdx, cells[i])
		i += dir
	}

	if i >= 0 && i < len(cells) {
		return area // stopped short of rt's end: a layer bound cut the walk off
	}

	var end design.RouteEnd
	if dir > 0 {
		end = rt.End
	} else {
		end = rt.Start
	}
	switch end.Kind {
	case design.EndNode:
		node := w.net.Nodes[end.NodeIdx]
		if nodeGateArea(node) == 0 {
			w.visited[w.pos[node]] = isAnchor
			w.anchored = true
			return area
		}
		if w.visited[w.pos[node]] == notVisited {
			w.visited[w.pos[node]] = seen
			area += w.walkNode(node)
		}
	case design.EndRoute:
		other := w.net.Routes[end.RouteIdx]
		if !other.HasFlag(design.RouteVisited) {
			last := cells[i-dir]
			oc := route.Cells(other)
			if idx, ok := findCell(oc, last); ok {
				area += w.walkRoute(other, end.RouteIdx, idx, 1)
				area += w.walkRoute(other, end.RouteIdx, idx, -1)
			}
		}
	}
	return area
}

// attachAt looks for any unvisited route whose own Start or End references
// routeIdx and whose attach cell is exactly cell — a T-junction landing
// mid-route rather than at rt's own endpoint — and folds its area in too.
func (w *subgraphWalk) attachAt(routeIdx int, cell design.Point) float64 {
	area := 0.0
	for j, rt2 := range w.net.Routes {
		if rt2.HasFlag(design.RouteVisited) {
			continue
		}
		if rt2.Start.Kind == design.EndRoute && rt2.Start.RouteIdx == routeIdx {
			cells2 := route.Cells(rt2)
			if len(cells2) > 0 && cells2[0] == cell {
				area += w.walkRoute(rt2, j, 0, 1)
			}
		} else if rt2.End.Kind == design.EndRoute && rt2.End.RouteIdx == routeIdx {
			cells2 := route.Cells(rt2)
			if n := len(cells2); n > 0 && cells2[n-1] == cell {
				area += w.walkRoute(rt2, j, n-1, -1)
			}
		}
	}
	return area
}

func findCell(cells []design.Point, p design.Point) (int, bool) {
	for i, c := range cells {
		if c == p {
			return i, true
		}
	}
	return 0, false
}

func (w *subgraphWalk) stepArea(a, b design.Point) float64 {
	layer := w.t.LayerByNumber(a.Layer)
	if layer == nil {
		return 0
	}
	length := layer.PitchX
	if a.X == b.X {
		length = layer.PitchY
	}
	if w.method.SideArea() {
		return layer.Thickness * 2 * (length + layer.Width)
	}
	return length * layer.Width
}
