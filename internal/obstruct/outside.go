package obstruct

import (
	"math"

	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// obstructOutsideNodes handles the halo immediately around a pin's tap
// geometry: grid positions that are too close to the tap to carry an
// unrelated route, but are not themselves covered by the tap. These get
// the NodeInfo offset fields set instead of a plain NO_NET, so the search
// can still terminate here by routing in on a lateral offset rather than
// being excluded outright. Grounded on node.c's
// create_obstructions_outside_nodes.
func obstructOutsideNodes(m *grid.Model, t *tech.Technology, d *design.Design) {
	for _, inst := range d.Instances {
		for i, taps := range inst.PinTaps {
			netNum := inst.PinNetNum[i]
			if netNum == 0 {
				continue
			}
			node := inst.PinNode[i]
			if node == nil {
				continue
			}
			layerIdx := -1
			if len(taps) > 0 {
				layerIdx = taps[0].Layer
			}
			l := t.LayerByNumber(layerIdx)
			if l == nil {
				continue
			}
			halo := l.SpacingFor(l.Width)
			for _, rect := range taps {
				haloTap(m, node, rect, halo)
			}
		}
	}
}

func haloTap(m *grid.Model, node *design.Node, rect design.Rect, halo float64) {
	gx1, gy1 := m.GridOf(rect.X1-halo, rect.Y1-halo)
	gx2, gy2 := m.GridOf(rect.X2+halo, rect.Y2+halo)
	gx1, gy1 = clampGrid(gx1, m.NumChannelsX), clampGrid(gy1, m.NumChannelsY)
	gx2, gy2 = clampGrid(gx2, m.NumChannelsX), clampGrid(gy2, m.NumChannelsY)

	for gy := gy1; gy <= gy2; gy++ {
		for gx := gx1; gx <= gx2; gx++ {
			if !m.InBounds(gx, gy, rect.Layer) {
				continue
			}
			px, py := m.PhysOf(gx, gy)
			if px >= rect.X1 && px <= rect.X2 && py >= rect.Y1 && py <= rect.Y2 {
				continue // inside the tap itself, handled by obstructInsideNodes
			}

			w := m.Obstruction(gx, gy, rect.Layer)
			if w.NoNet || w.Net != 0 {
				continue
			}

			offX := nearestOffset(px, rect.X1, rect.X2)
			offY := nearestOffset(py, rect.Y1, rect.Y2)
			ni := m.NodeInfoAt(gx, gy, rect.Layer)
			if ni == nil {
				continue
			}
			w.Offset = true
			if math.Abs(offX) < math.Abs(offY) {
				ni.Offset = offX
				ni.OffsetAxis = grid.AxisEW
			} else {
				ni.Offset = offY
				ni.OffsetAxis = grid.AxisNS
			}
		}
	}
}

// nearestOffset returns the signed distance from v to the nearer of
// [lo, hi]'s edges, zero if v already falls inside the span.
func nearestOffset(v, lo, hi float64) float64 {
	if v < lo {
		return v - lo
	}
	if v > hi {
		return v - hi
	}
	return 0
}

