// Package design holds the placed-netlist data model: macros, instances,
// nodes, nets, routes and segments. Loading these from a DEF/LEF-equivalent
// file is an external concern; this package only defines the in-memory
// shapes the router core operates on.
package design

import "github.com/bits-and-blooms/bitset"

// Point is an integer grid-space point, optionally extended with a layer.
// Mirrors original_source/qrouter.h's POINT.
type Point struct {
	X, Y, Layer int
}

// DPoint is a tap/extension point carrying both physical (micron) and grid
// coordinates, mirroring qrouter.h's DPOINT.
type DPoint struct {
	Layer       int
	X, Y        float64 // microns
	GridX, GridY int
}

// Rect is an axis-aligned rectangle in microns on a single layer, used for
// both pin taps and obstructions (qrouter.h's DSEG).
type Rect struct {
	Layer          int
	X1, Y1, X2, Y2 float64
}

// Width returns the rectangle's X extent.
func (r Rect) Width() float64 { return r.X2 - r.X1 }

// Height returns the rectangle's Y extent.
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// PinDirection is the logical direction of a gate pin.
type PinDirection uint8

const (
	PinInput PinDirection = iota
	PinOutput
	PinOther
)

// Orientation is one of the eight placement orientations a placement tool
// may assign an instance: four rotations, each with an optional mirror.
type Orientation uint8

const (
	OrientN Orientation = iota
	OrientFN
	OrientS
	OrientFS
	OrientE
	OrientFE
	OrientW
	OrientFW
)

// Transform maps a point in macro-local microns to absolute microns given
// this orientation, the instance's placement origin, and the macro's
// width/height (needed to pivot the mirrored/rotated orientations about the
// instance's own bounding box rather than the origin).
func (o Orientation) Transform(x, y, placedX, placedY, w, h float64) (float64, float64) {
	switch o {
	case OrientN:
		return placedX + x, placedY + y
	case OrientFN:
		return placedX + (w - x), placedY + y
	case OrientS:
		return placedX + (w - x), placedY + (h - y)
	case OrientFS:
		return placedX + x, placedY + (h - y)
	case OrientE:
		return placedX + (h - y), placedY + x
	case OrientFE:
		return placedX + y, placedY + x
	case OrientW:
		return placedX + (h - y), placedY + (w - x)
	case OrientFW:
		return placedX + y, placedY + (w - x)
	default:
		return placedX + x, placedY + y
	}
}

// GateMacro is a standard-cell template: pin tap geometry and obstructions,
// shared by every placed instance of the cell (qrouter.h's GATE used as a
// macro record).
type GateMacro struct {
	Name           string
	Width, Height  float64
	PinNames       []string
	PinTaps        [][]Rect // PinTaps[i] = tap rectangles for PinNames[i]
	PinDirections  []PinDirection
	PinGateArea    []float64 // per-pin antenna gate area; 0 means a diode anchor
	Obstructions   []Rect
}

// PinIndex returns the index of pinName, or -1.
func (g *GateMacro) PinIndex(pinName string) int {
	for i, n := range g.PinNames {
		if n == pinName {
			return i
		}
	}
	return -1
}

// GateInstance is a placed macro: qrouter.h's GATE used as an instance
// record, with placement-adjusted geometry precomputed.
type GateInstance struct {
	Name        string
	Macro       *GateMacro
	PlacedX     float64
	PlacedY     float64
	Orient      Orientation
	PinNetNum   []int     // net number connected to each pin, parallel to Macro.PinNames
	PinNode     []*Node   // node record for each pin
	PinTaps     [][]Rect  // placement-adjusted tap rectangles, parallel to Macro.PinTaps
	Obstructions []Rect   // placement-adjusted obstruction list
}

// AdjustGeometry fills PinTaps and Obstructions from the macro template
// under this instance's placement and orientation. Must be called once
// after Macro, PlacedX, PlacedY and Orient are set.
func (gi *GateInstance) AdjustGeometry() {
	m := gi.Macro
	gi.PinTaps = make([][]Rect, len(m.PinTaps))
	for i, taps := range m.PinTaps {
		out := make([]Rect, len(taps))
		for j, t := range taps {
			x1, y1 := gi.Orient.Transform(t.X1, t.Y1, gi.PlacedX, gi.PlacedY, m.Width, m.Height)
			x2, y2 := gi.Orient.Transform(t.X2, t.Y2, gi.PlacedX, gi.PlacedY, m.Width, m.Height)
			out[j] = Rect{Layer: t.Layer, X1: min(x1, x2), Y1: min(y1, y2), X2: max(x1, x2), Y2: max(y1, y2)}
		}
		gi.PinTaps[i] = out
	}
	gi.Obstructions = make([]Rect, len(m.Obstructions))
	for j, t := range m.Obstructions {
		x1, y1 := gi.Orient.Transform(t.X1, t.Y1, gi.PlacedX, gi.PlacedY, m.Width, m.Height)
		x2, y2 := gi.Orient.Transform(t.X2, t.Y2, gi.PlacedX, gi.PlacedY, m.Width, m.Height)
		gi.Obstructions[j] = Rect{Layer: t.Layer, X1: min(x1, x2), Y1: min(y1, y2), X2: max(x1, x2), Y2: max(y1, y2)}
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Node is one terminal of a net — qrouter.h's NODE.
type Node struct {
	Net       *Net
	Index     int // ordering within its net
	Taps      []DPoint
	Extend    []DPoint // halo-extension points
	NumTaps   int      // count of reachable taps
	BranchX   int
	BranchY   int
	Gate      *GateInstance // owning instance, for antenna gate-area lookup
	PinIndex  int           // index into Gate.Macro.PinNames
}

// NetFlags mirror qrouter.h's NET flag bits.
type NetFlags uint8

const (
	NetPending NetFlags = 1 << iota
	NetCritical
	NetIgnored
	NetStub
	NetVerticalTrunk
)

// PinUse is the electrical use of a net (qrouter.h's implicit DEF USE).
type PinUse uint8

const (
	UseSignal PinUse = iota
	UsePower
	UseGround
	UseClock
)

// NetStatus is the stage-orchestrator lifecycle state for a net: a flat
// enum rather than a hierarchical state machine, since a net only ever
// moves forward through three sequential batch passes.
type NetStatus uint8

const (
	NetStatusPending NetStatus = iota
	NetStatusRouted
	NetStatusFailed
	NetStatusAbandoned
)

// Net is a single electrical net to be routed — qrouter.h's NET.
type Net struct {
	NetNum   int
	Name     string
	Nodes    []*Node
	Flags    NetFlags
	Use      PinUse
	Order    int // assigned by the routing strategy
	XMin, YMin, XMax, YMax int // bounding box in grid coordinates
	TrunkX, TrunkY int
	// NoRipup tracks net numbers this net may not rip up again, indexed by
	// net number, to stop the second stage from cycling the same pair of
	// colliding nets back and forth forever.
	NoRipup *bitset.BitSet
	Routes   []*Route
	Status   NetStatus
}

func (n *Net) HasFlag(f NetFlags) bool { return n.Flags&f != 0 }

// SetFlag sets one or more NetFlags bits.
func (n *Net) SetFlag(f NetFlags) { n.Flags |= f }

// ClearFlag clears one or more NetFlags bits.
func (n *Net) ClearFlag(f NetFlags) { n.Flags &^= f }

// Forbids reports whether net num is on n's no-ripup list.
func (n *Net) Forbids(num int) bool {
	return n.NoRipup != nil && n.NoRipup.Test(uint(num))
}

// Forbid adds net num to n's no-ripup list, allocating it on first use.
func (n *Net) Forbid(num int) {
	if n.NoRipup == nil {
		n.NoRipup = bitset.New(64)
	}
	n.NoRipup.Set(uint(num))
}

// SegType mirrors qrouter.h's ST_* segment type bits.
type SegType uint8

const (
	SegWire SegType = 1 << iota
	SegVia
	SegOffsetStart
	SegOffsetEnd
	SegSpecial
	SegMinMetal
)

func (s SegType) Has(f SegType) bool { return s&f != 0 }

// Segment is one wire or via within a route — qrouter.h's SEG.
type Segment struct {
	Layer          int
	X1, Y1, X2, Y2 int
	Type           SegType
	// OffsetDist carries the SPECIALNETS-reportable offset or stub
	// distance in microns when Type has SegOffsetStart/SegOffsetEnd set.
	OffsetDist float64
}

// RouteEndKind distinguishes a route endpoint that terminates on a Node
// from one that T-junctions into another Route.
type RouteEndKind uint8

const (
	EndNone RouteEndKind = iota
	EndNode
	EndRoute
)

// RouteEnd is a stable-index reference into a net's own Nodes/Routes
// slices, never a raw pointer: rip-up and recompute can reallocate or
// reorder those slices, which would dangle a pointer but leaves an index
// into the owning net's own slice valid.
type RouteEnd struct {
	Kind    RouteEndKind
	NodeIdx int // index into Net.Nodes, valid when Kind == EndNode
	RouteIdx int // index into Net.Routes, valid when Kind == EndRoute
}

// RouteFlags mirror qrouter.h's RT_* bits.
type RouteFlags uint8

const (
	RouteOutput RouteFlags = 1 << iota
	RouteStub
	RouteVisited
	RouteRip
)

// Route is an ordered list of segments forming one tree-branch of a net —
// qrouter.h's ROUTE, using RouteEnd indices instead of pointer unions.
type Route struct {
	NetNum   int
	Segments []Segment
	Start    RouteEnd
	End      RouteEnd
	Flags    RouteFlags
}

func (r *Route) HasFlag(f RouteFlags) bool { return r.Flags&f != 0 }
