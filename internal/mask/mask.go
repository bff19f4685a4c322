// Package mask builds the per-pass RMask[] overlay that narrows the maze
// search's working area around a net's likely route, so wide-open grids
// don't force an exhaustive search on every net. Grounded on
// original_source/mask.c.
package mask

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
)

// Mode selects which mask-construction strategy createMask uses.
type Mode uint8

const (
	ModeAuto Mode = iota // trunk+branch for 2-node nets, bounding box for other small nets, trunk+branch otherwise
	ModeBbox
	ModeTrunk
)

// boundingBoxThreshold is the grid-cell area below which a bounding-box
// mask is cheap enough to prefer over trunk-and-branch construction, per
// mask.c's "(1) multi-node routes that are in a small enough area, just
// mask the bounding box" optimization note.
const boundingBoxThreshold = 64

// Build fills m's RMask with the search-priority overlay for net: cells at
// value 0 are the most promising, increasing up to halo where the net gets
// no preference at all. slack widens the zero-cost band around the ideal
// line; halo caps how far the preference gradient extends before every
// remaining cell is equally fair game.
func Build(m *grid.Model, net *design.Net, mode Mode, slack, halo byte) {
	if mode == ModeAuto {
		mode = chooseMode(net)
	}
	if mode == ModeBbox {
		buildBboxMask(m, net, halo)
	} else {
		buildTrunkMask(m, net, slack, halo)
	}
	clearTapPoints(m, net)
}

func chooseMode(net *design.Net) Mode {
	if len(net.Nodes) == 2 {
		return ModeTrunk
	}
	area := (net.XMax - net.XMin + 1) * (net.YMax - net.YMin + 1)
	if area <= boundingBoxThreshold {
		return ModeBbox
	}
	return ModeTrunk
}

// buildBboxMask limits the search to the net's bounding box, growing the
// preference gradient outward by one track per pass, up to halo. Grounded
// on mask.c's createBboxMask.
func buildBboxMask(m *grid.Model, net *design.Net, halo byte) {
	m.FillMask(halo)

	for x := net.XMin; x <= net.XMax; x++ {
		for y := net.YMin; y <= net.YMax; y++ {
			if x < 0 || x >= m.NumChannelsX || y < 0 || y >= m.NumChannelsY {
				continue
			}
			m.SetMask(x, y, 0)
		}
	}

	for i := 1; i <= int(halo); i++ {
		gx1, gx2 := net.XMin-i, net.XMax+i
		if gx1 >= 0 && gx1 < m.NumChannelsX {
			setColumnBand(m, gx1, net.YMin-i, net.YMax+i, byte(i))
		}
		if gx2 >= 0 && gx2 < m.NumChannelsX {
			setColumnBand(m, gx2, net.YMin-i, net.YMax+i, byte(i))
		}
		gy1, gy2 := net.YMin-i, net.YMax+i
		if gy1 >= 0 && gy1 < m.NumChannelsY {
			setRowBand(m, gy1, net.XMin-i, net.XMax+i, byte(i))
		}
		if gy2 >= 0 && gy2 < m.NumChannelsY {
			setRowBand(m, gy2, net.XMin-i, net.XMax+i, byte(i))
		}
	}
}

func setColumnBand(m *grid.Model, x, y1, y2 int, v byte) {
	for y := y1; y <= y2; y++ {
		if y < 0 || y >= m.NumChannelsY {
			continue
		}
		m.SetMask(x, y, v)
	}
}

func setRowBand(m *grid.Model, y, x1, x2 int, v byte) {
	for x := x1; x <= x2; x++ {
		if x < 0 || x >= m.NumChannelsX {
			continue
		}
		m.SetMask(x, y, v)
	}
}

// buildTrunkMask lays a zero-cost trunk line, with per-node branch stems
// dropping to each tap,
// plus any cross-connections between branches that sit closer to each
// other than to the trunk. A horizontal trunk runs along the row that
// analyzeCongestion picks; a vertical trunk runs along net.TrunkX as given,
// with no congestion scan over columns. Grounded on mask.c's createMask.
func buildTrunkMask(m *grid.Model, net *design.Net, slack, halo byte) {
	m.FillMask(halo)

	horizontal := !net.HasFlag(design.NetVerticalTrunk) || len(net.Nodes) == 2
	vertical := net.HasFlag(design.NetVerticalTrunk) || len(net.Nodes) == 2

	ycent, xcent := net.TrunkY, net.TrunkX
	if horizontal {
		ycent = analyzeCongestion(m, net.TrunkY, net.YMin, net.YMax, net.XMin, net.XMax)
		fillHorizontalTrunk(m, net.XMin, net.XMax, ycent, slack, halo)
	}
	if vertical {
		fillVerticalTrunk(m, net.YMin, net.YMax, xcent, slack, halo)
	}

	for _, n := range net.Nodes {
		if horizontal {
			createVBranchMask(m, n.BranchX, n.BranchY, ycent, slack, halo)
		}
		if vertical {
			createHBranchMask(m, n.BranchY, n.BranchX, xcent, slack, halo)
		}
	}

	addCrossConnections(m, net, horizontal, vertical, xcent, ycent, slack, halo)
}

// analyzeCongestion scores each candidate row for the horizontal trunk by
// counting routed/blocked/pin-obstructed cells plus distance from the
// node-derived center, and returns the lowest-scoring row. Grounded on
// mask.c's analyzeCongestion.
func analyzeCongestion(m *grid.Model, ycent, ymin, ymax, xmin, xmax int) int {
	if ymin > ymax {
		return ycent
	}
	best, bestScore := ycent, -1
	for y := ymin; y <= ymax; y++ {
		score := abs(ycent-y) * m.NumLayers
		for x := xmin; x <= xmax; x++ {
			for l := 0; l < m.NumLayers; l++ {
				if !m.InBounds(x, y, l) {
					continue
				}
				w := m.Obstruction(x, y, l)
				if w.Routed {
					score++
				}
				if w.NoNet {
					score++
				}
				if w.PinObstruct() {
					score++
				}
			}
		}
		if bestScore < 0 || score < bestScore {
			bestScore = score
			best = y
		}
	}
	return best
}

func fillHorizontalTrunk(m *grid.Model, xmin, xmax, ycent int, slack, halo byte) {
	if xmin > xmax {
		xmin, xmax = 0, m.NumChannelsX-1
	}
	for x := xmin - int(slack); x <= xmax+int(slack); x++ {
		if x < 0 || x >= m.NumChannelsX {
			continue
		}
		for y := ycent - int(slack); y <= ycent+int(slack); y++ {
			if y < 0 || y >= m.NumChannelsY {
				continue
			}
			m.SetMask(x, y, 0)
		}
	}
	for i := 1; i < int(halo); i++ {
		gy1, gy2 := ycent-int(slack)-i, ycent+int(slack)+i
		for x := xmin - int(slack) - i; x <= xmax+int(slack)+i; x++ {
			if x < 0 || x >= m.NumChannelsX {
				continue
			}
			if gy1 >= 0 {
				m.SetMask(x, gy1, byte(i))
			}
			if gy2 < m.NumChannelsY {
				m.SetMask(x, gy2, byte(i))
			}
		}
	}
}

func fillVerticalTrunk(m *grid.Model, ymin, ymax, xcent int, slack, halo byte) {
	if ymin > ymax {
		ymin, ymax = 0, m.NumChannelsY-1
	}
	for x := xcent - int(slack); x <= xcent+int(slack); x++ {
		if x < 0 || x >= m.NumChannelsX {
			continue
		}
		for y := ymin - int(slack); y <= ymax+int(slack); y++ {
			if y < 0 || y >= m.NumChannelsY {
				continue
			}
			m.SetMask(x, y, 0)
		}
	}
	for i := 1; i < int(halo); i++ {
		gx1, gx2 := xcent-int(slack)-i, xcent+int(slack)+i
		for y := ymin - int(slack) - i; y <= ymax+int(slack)+i; y++ {
			if y < 0 || y >= m.NumChannelsY {
				continue
			}
			if gx1 >= 0 {
				m.SetMask(gx1, y, byte(i))
			}
			if gx2 < m.NumChannelsX {
				m.SetMask(gx2, y, byte(i))
			}
		}
	}
}

// createVBranchMask lays a zero-cost vertical stem at column x between
// rows y1 and y2, with the gradient widening outward up to halo.
func createVBranchMask(m *grid.Model, x, y1, y2 int, slack, halo byte) {
	gx1, gx2 := x-int(slack), x+int(slack)
	gy1, gy2 := y1, y2
	if gy1 > gy2 {
		gy1, gy2 = gy2-int(slack), gy1+int(slack)
	} else {
		gy1, gy2 = gy1-int(slack), gy2+int(slack)
	}
	gx1, gx2 = clamp(gx1, 0, m.NumChannelsX-1), clamp(gx2, 0, m.NumChannelsX-1)
	gy1, gy2 = clamp(gy1, 0, m.NumChannelsY-1), clamp(gy2, 0, m.NumChannelsY-1)

	for x := gx1; x <= gx2; x++ {
		for y := gy1; y <= gy2; y++ {
			m.SetMask(x, y, 0)
		}
	}
	for v := 1; v < int(halo); v++ {
		if gx1 > 0 {
			gx1--
		}
		if gx2 < m.NumChannelsX-1 {
			gx2++
		}
		if y1 > y2 {
			if gy1 < m.NumChannelsY-1 {
				gy1++
			}
			if gy2 < m.NumChannelsY-1 {
				gy2++
			}
		} else {
			if gy1 > 0 {
				gy1--
			}
			if gy2 > 0 {
				gy2--
			}
		}
		for x := gx1; x <= gx2; x++ {
			for y := gy1; y <= gy2; y++ {
				if m.Mask(x, y) > byte(v) {
					m.SetMask(x, y, byte(v))
				}
			}
		}
	}
}

// createHBranchMask is createVBranchMask's horizontal-stem counterpart.
func createHBranchMask(m *grid.Model, y, x1, x2 int, slack, halo byte) {
	gy1, gy2 := y-int(slack), y+int(slack)
	gx1, gx2 := x1, x2
	if gx1 > gx2 {
		gx1, gx2 = gx2-int(slack), gx1+int(slack)
	} else {
		gx1, gx2 = gx1-int(slack), gx2+int(slack)
	}
	gx1, gx2 = clamp(gx1, 0, m.NumChannelsX-1), clamp(gx2, 0, m.NumChannelsX-1)
	gy1, gy2 = clamp(gy1, 0, m.NumChannelsY-1), clamp(gy2, 0, m.NumChannelsY-1)

	for x := gx1; x <= gx2; x++ {
		for y := gy1; y <= gy2; y++ {
			m.SetMask(x, y, 0)
		}
	}
	for v := 1; v < int(halo); v++ {
		if gy1 > 0 {
			gy1--
		}
		if gy2 < m.NumChannelsY-1 {
			gy2++
		}
		if x1 > x2 {
			if gx1 < m.NumChannelsX-1 {
				gx1++
			}
			if gx2 < m.NumChannelsX-1 {
				gx2++
			}
		} else {
			if gx1 > 0 {
				gx1--
			}
			if gx2 > 0 {
				gx2--
			}
		}
		for x := gx1; x <= gx2; x++ {
			for y := gy1; y <= gy2; y++ {
				if m.Mask(x, y) > byte(v) {
					m.SetMask(x, y, byte(v))
				}
			}
		}
	}
}

// addCrossConnections looks for branch pairs on the same side of the trunk
// that sit closer to each other than either does to the trunk, and masks a
// direct connection between them instead of forcing both through the
// trunk. Grounded on mask.c's createMask cross-connection pass.
func addCrossConnections(m *grid.Model, net *design.Net, horizontal, vertical bool, xcent, ycent int, slack, halo byte) {
	nodes := net.Nodes
	if horizontal {
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				n1, n2 := nodes[i], nodes[j]
				if !sameSide(n1.BranchY, n2.BranchY, ycent) {
					continue
				}
				dx := abs(n2.BranchX - n1.BranchX)
				gy1, gy2 := abs(n1.BranchY-ycent), abs(n2.BranchY-ycent)
				if dx < gy1 && dx < gy2 {
					if gy1 < gy2 {
						createHBranchMask(m, n1.BranchY, n2.BranchX, n1.BranchX, slack, halo)
					} else {
						createHBranchMask(m, n2.BranchY, n2.BranchX, n1.BranchX, slack, halo)
					}
				}
			}
		}
	}
	if vertical {
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				n1, n2 := nodes[i], nodes[j]
				if !sameSide(n1.BranchX, n2.BranchX, xcent) {
					continue
				}
				dy := abs(n2.BranchY - n1.BranchY)
				gx1, gx2 := abs(n1.BranchX-xcent), abs(n2.BranchX-xcent)
				if dy < gx1 && dy < gx2 {
					if gx1 < gx2 {
						createVBranchMask(m, n1.BranchX, n2.BranchY, n1.BranchY, slack, halo)
					} else {
						createVBranchMask(m, n2.BranchX, n2.BranchY, n1.BranchY, slack, halo)
					}
				}
			}
		}
	}
}

func sameSide(a, b, center int) bool {
	return (a > center && b > center) || (a < center && b < center)
}

// clearTapPoints always leaves a zero-cost cell at every tap and
// extension point, regardless of how the trunk/branch gradient landed,
// since the search must never be discouraged from reaching an actual
// connection point.
func clearTapPoints(m *grid.Model, net *design.Net) {
	for _, n := range net.Nodes {
		for _, tap := range n.Taps {
			if tap.GridX >= 0 && tap.GridX < m.NumChannelsX && tap.GridY >= 0 && tap.GridY < m.NumChannelsY {
				m.SetMask(tap.GridX, tap.GridY, 0)
			}
		}
		for _, ext := range n.Extend {
			if ext.GridX >= 0 && ext.GridX < m.NumChannelsX && ext.GridY >= 0 && ext.GridY < m.NumChannelsY {
				m.SetMask(ext.GridX, ext.GridY, 0)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
