package obstruct

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// adjustStubLengths finalizes the stub length recorded by
// obstructInsideNodes. A stub only needs to be as long as half a via's
// width plus the layer's minimum spacing, so a via dropped at the grid
// point clears the tap edge; if a neighboring obstruction is closer than
// that, the via in that orientation is disallowed here rather than
// leaving a DRC violation on the board. Grounded on node.c's
// adjust_stub_lengths.
func adjustStubLengths(m *grid.Model, t *tech.Technology, d *design.Design) {
	for l := 0; l <= m.Pinlayers; l++ {
		layer := t.LayerByNumber(l)
		if layer == nil {
			continue
		}
		via := layer.ViaFor(layer)
		halfViaX, halfViaY := 0.0, 0.0
		if via != nil {
			halfViaX = via.WidthX[0] / 2
			halfViaY = via.WidthY[0] / 2
		}
		spacing := layer.SpacingFor(layer.Width)

		for gy := 0; gy < m.NumChannelsY; gy++ {
			for gx := 0; gx < m.NumChannelsX; gx++ {
				ni := m.NodeInfoAt(gx, gy, l)
				if ni == nil || ni.StubAxis == grid.AxisNone {
					continue
				}
				switch ni.StubAxis {
				case grid.AxisEW:
					needed := halfViaX + spacing
					if clearance(m, gx, gy, l, grid.DirE) < needed ||
						clearance(m, gx, gy, l, grid.DirW) < needed {
						ni.NoViaX = true
					}
					ni.Stub = needed
				case grid.AxisNS:
					needed := halfViaY + spacing
					if clearance(m, gx, gy, l, grid.DirN) < needed ||
						clearance(m, gx, gy, l, grid.DirS) < needed {
						ni.NoViaY = true
					}
					ni.Stub = needed
				}
			}
		}
	}
}

// clearance looks only at the adjacent cell in direction dir: it returns 0
// when that cell is NO_NET or blocked toward this cell, and otherwise one
// grid pitch in microns (m.PitchX), which is also the result off the grid's
// edge.
func clearance(m *grid.Model, gx, gy, layer int, dir grid.Direction) float64 {
	dx, dy, _ := dirOffset(dir)
	nx, ny := gx+dx, gy+dy
	if !m.InBounds(nx, ny, layer) {
		return m.PitchX
	}
	n := m.Obstruction(nx, ny, layer)
	if n.NoNet || n.IsBlocked(dir.Opposite()) {
		return 0
	}
	return m.PitchX
}

func dirOffset(d grid.Direction) (dx, dy, dl int) {
	switch d {
	case grid.DirN:
		return 0, 1, 0
	case grid.DirS:
		return 0, -1, 0
	case grid.DirE:
		return 1, 0, 0
	case grid.DirW:
		return -1, 0, 0
	default:
		return 0, 0, 0
	}
}
