// Package grid owns the three-dimensional routing grid: the coordinate
// system and the flat Obs/Obs2/ObsInfo/NodeInfo/RMask arrays. Every other
// component reasons about the grid only through this package's accessors,
// never through raw slice indexing, so the layout documented here can
// change without disturbing callers.
package grid

import "github.com/lixenwraith/qrouter/internal/design"

// Direction is a cardinal/vertical move, or "none" for an unset predecessor.
// Mirrors qrouter.h's NORTH/SOUTH/EAST/WEST/UP/DOWN plus PR_PRED_NONE.
type Direction int8

const (
	DirNone Direction = iota
	DirN
	DirS
	DirE
	DirW
	DirU
	DirD
)

// Opposite returns the reverse direction, used when mirroring BLOCKED bits
// onto a neighbor cell.
func (d Direction) Opposite() Direction {
	switch d {
	case DirN:
		return DirS
	case DirS:
		return DirN
	case DirE:
		return DirW
	case DirW:
		return DirE
	case DirU:
		return DirD
	case DirD:
		return DirU
	default:
		return DirNone
	}
}

// ObsWord is one Obs[] cell: qrouter.h packs net number, NO_NET, ROUTED_NET,
// STUBROUTE, OFFSET_TAP and six BLOCKED_* bits into a single u_int. We keep
// the same information as a small struct instead of a bitfield; O(1)
// per-cell access only requires flat-array storage, not bit-identical
// packing.
type ObsWord struct {
	Net         int32 // 0 means unassigned; matches qrouter's "net number" field
	NoNet       bool
	Routed      bool
	Stub        bool // STUBROUTE: pin needs a stub
	Offset      bool // OFFSET_TAP: pin reachable with lateral offset
	Blocked     [6]bool // indexed by Direction-1 (N,S,E,W,U,D)
	ObstructDir Direction // nearest-obstruction direction when partially blocked; DirNone otherwise
}

func blockedIdx(d Direction) int { return int(d) - 1 }

// IsBlocked reports whether entry from direction d is forbidden.
func (w *ObsWord) IsBlocked(d Direction) bool {
	if d == DirNone {
		return false
	}
	return w.Blocked[blockedIdx(d)]
}

// SetBlocked marks direction d as blocked.
func (w *ObsWord) SetBlocked(d Direction) {
	if d == DirNone {
		return
	}
	w.Blocked[blockedIdx(d)] = true
}

// PinObstruct reports whether this cell carries a stub or offset marker
// (qrouter.h's PINOBSTRUCTMASK).
func (w *ObsWord) PinObstruct() bool { return w.Stub || w.Offset }

// SearchState is one Obs2[] cell: per-search working memory, reset before
// each net's maze search and discarded afterward.
type SearchState struct {
	Cost       uint32
	SpoilerNet int32
	CostValid  bool
	Processed  bool
	OnStack    bool
	Source     bool
	Target     bool
	Conflict   bool
	Pred       Direction
	// ViaRun counts the consecutive U/D moves that led into this cell,
	// reset to 0 by any same-layer move; expand() uses it to enforce
	// StackedContacts.
	ViaRun int
}

// Reset clears search state back to zero, preserving nothing.
func (s *SearchState) Reset() { *s = SearchState{} }

// Axis distinguishes a stub/offset's orientation, mirroring the NI_STUB_NS
// / NI_STUB_EW (and OFFSET equivalents) bit pairs in qrouter.h.
type Axis uint8

const (
	AxisNone Axis = iota
	AxisNS
	AxisEW
)

// NodeInfoEntry is one Nodeinfo[] cell (pin-bearing layers only).
type NodeInfoEntry struct {
	NodeLoc *design.Node // current owner; may be cleared for power/ground nets
	NodeSav *design.Node // original mapping, preserved even if NodeLoc is cleared
	Stub     float64     // signed stub length in microns; sign gives direction along StubAxis
	StubAxis Axis
	Offset     float64 // signed tap offset in microns
	OffsetAxis Axis
	NoViaX bool // NI_NO_VIAX: via in X orientation prohibited here
	NoViaY bool // NI_NO_VIAY
	ViaX   bool // NI_VIA_X: placed via is oriented horizontally
	ViaY   bool // NI_VIA_Y
}

const maxNetsBits = 22 // MAX_NETNUMS in qrouter.h, kept as documentation only

// Model owns the allocated grid arrays and the coordinate mapping for one
// design.
type Model struct {
	NumLayers            int
	NumChannelsX, NumChannelsY int
	PitchX, PitchY       float64
	Xlb, Ylb             float64
	Pinlayers            int // set by obstruct package after C2 completes

	Obs       []ObsWord       // len == NumLayers*NumChannelsX*NumChannelsY
	Obs2      []SearchState   // same shape, reinitialized per net routing attempt
	ObsInfo   []float32       // same shape; freed after C2, before C4 (see ReleaseObsInfo)
	NodeInfo  []NodeInfoEntry // shape NumLayers(<=Pinlayers)*NumChannelsX*NumChannelsY, allocated lazily
	RMask     []byte          // NumChannelsX*NumChannelsY, no layer dimension
}

// New allocates Obs, Obs2, ObsInfo and RMask for a grid of the given shape.
// NodeInfo is allocated separately once Pinlayers is known (see
// AllocateNodeInfo) since the highest pin-bearing layer isn't known until
// obstruction analysis has examined every node's taps.
func New(numLayers, nx, ny int, pitchX, pitchY, xlb, ylb float64) *Model {
	size := numLayers * nx * ny
	return &Model{
		NumLayers:    numLayers,
		NumChannelsX: nx,
		NumChannelsY: ny,
		PitchX:       pitchX,
		PitchY:       pitchY,
		Xlb:          xlb,
		Ylb:          ylb,
		Obs:          make([]ObsWord, size),
		Obs2:         make([]SearchState, size),
		ObsInfo:      make([]float32, size),
		RMask:        make([]byte, nx*ny),
	}
}

// AllocateNodeInfo allocates the NodeInfo array sized to Pinlayers (set by
// the obstruct package once C2 has determined the highest layer bearing any
// pin). Must be called before obstruct writes any NodeInfo entries.
func (m *Model) AllocateNodeInfo(pinlayers int) {
	m.Pinlayers = pinlayers
	size := (pinlayers + 1) * m.NumChannelsX * m.NumChannelsY
	m.NodeInfo = make([]NodeInfoEntry, size)
}

// ReleaseObsInfo frees the ObsInfo array: it is only needed while
// obstruction analysis is computing clearance distances, and would
// otherwise sit unused for the rest of a routing run.
func (m *Model) ReleaseObsInfo() { m.ObsInfo = nil }

func (m *Model) idx(x, y, layer int) int {
	return layer*m.NumChannelsX*m.NumChannelsY + y*m.NumChannelsX + x
}

func (m *Model) idx2D(x, y int) int { return y*m.NumChannelsX + x }

// InBounds reports whether (x,y,layer) is a valid grid cell.
func (m *Model) InBounds(x, y, layer int) bool {
	return x >= 0 && x < m.NumChannelsX && y >= 0 && y < m.NumChannelsY &&
		layer >= 0 && layer < m.NumLayers
}

// Obstruction returns a pointer to the Obs[] entry at (x,y,layer).
func (m *Model) Obstruction(x, y, layer int) *ObsWord { return &m.Obs[m.idx(x, y, layer)] }

// Search returns a pointer to the Obs2[] entry at (x,y,layer).
func (m *Model) Search(x, y, layer int) *SearchState { return &m.Obs2[m.idx(x, y, layer)] }

// Info returns a pointer to the ObsInfo[] entry at (x,y,layer), or nil if
// already released.
func (m *Model) Info(x, y, layer int) *float32 {
	if m.ObsInfo == nil {
		return nil
	}
	return &m.ObsInfo[m.idx(x, y, layer)]
}

// NodeInfoAt returns a pointer to the NodeInfo[] entry at (x,y,layer), or
// nil if layer > Pinlayers or NodeInfo hasn't been allocated yet.
func (m *Model) NodeInfoAt(x, y, layer int) *NodeInfoEntry {
	if m.NodeInfo == nil || layer > m.Pinlayers {
		return nil
	}
	return &m.NodeInfo[m.idx(x, y, layer)]
}

// Mask returns the RMask[] value at (x,y).
func (m *Model) Mask(x, y int) byte { return m.RMask[m.idx2D(x, y)] }

// SetMask sets the RMask[] value at (x,y).
func (m *Model) SetMask(x, y int, v byte) { m.RMask[m.idx2D(x, y)] = v }

// FillMask sets every RMask[] cell to value (mask.c's fillMask).
func (m *Model) FillMask(value byte) {
	for i := range m.RMask {
		m.RMask[i] = value
	}
}

// GridOf converts a physical (micron) point to grid coordinates.
func (m *Model) GridOf(xMicrons, yMicrons float64) (x, y int) {
	x = int((xMicrons - m.Xlb) / m.PitchX)
	y = int((yMicrons - m.Ylb) / m.PitchY)
	return
}

// PhysOf converts a grid point back to physical (micron) coordinates.
func (m *Model) PhysOf(x, y int) (xu, yu float64) {
	return m.Xlb + float64(x)*m.PitchX, m.Ylb + float64(y)*m.PitchY
}

// dirVector returns the (dx, dy, dlayer) step for a Direction.
func dirVector(d Direction) (dx, dy, dl int) {
	switch d {
	case DirN:
		return 0, 1, 0
	case DirS:
		return 0, -1, 0
	case DirE:
		return 1, 0, 0
	case DirW:
		return -1, 0, 0
	case DirU:
		return 0, 0, 1
	case DirD:
		return 0, 0, -1
	default:
		return 0, 0, 0
	}
}

// BlockRoute sets the BLOCKED_dir bit on the neighbor reached by moving dir
// from (x,y,layer), and its mirror on (x,y,layer) itself, so that the
// search can reject the move from either endpoint. No-op if the neighbor is
// out of bounds or already NO_NET.
func (m *Model) BlockRoute(x, y, layer int, dir Direction) {
	dx, dy, dl := dirVector(dir)
	nx, ny, nl := x+dx, y+dy, layer+dl
	if !m.InBounds(nx, ny, nl) {
		return
	}
	neighbor := m.Obstruction(nx, ny, nl)
	if neighbor.NoNet {
		return
	}
	neighbor.SetBlocked(dir.Opposite())
	m.Obstruction(x, y, layer).SetBlocked(dir)
}
