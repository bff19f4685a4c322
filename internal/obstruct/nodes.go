package obstruct

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
)

// obstructInsideNodes rasterizes every connected pin's tap rectangles onto
// the grid, marking each covered position with that pin's net number and
// overriding any obstruction obstructFromGates left there. A position
// within half a route width of a tap rectangle's edge cannot carry a
// full-width wire crossing through it cleanly, so it is flagged as a stub
// candidate; adjustStubLengths fixes the final stub length once all
// tap/obstruction interactions are known. Grounded on node.c's
// create_obstructions_inside_nodes.
func obstructInsideNodes(m *grid.Model, d *design.Design) {
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
			net := node.Net
			for _, rect := range taps {
				rasterizeTap(m, net, node, rect)
			}
		}
	}
}

func rasterizeTap(m *grid.Model, net *design.Net, node *design.Node, rect design.Rect) {
	gx1, gy1 := m.GridOf(rect.X1, rect.Y1)
	gx2, gy2 := m.GridOf(rect.X2, rect.Y2)
	if gx1 < 0 {
		gx1 = 0
	}
	if gy1 < 0 {
		gy1 = 0
	}

	halfW := m.PitchX / 2

	for gy := gy1; gy <= gy2; gy++ {
		if gy >= m.NumChannelsY {
			break
		}
		for gx := gx1; gx <= gx2; gx++ {
			if gx >= m.NumChannelsX {
				break
			}
			if !m.InBounds(gx, gy, rect.Layer) {
				continue
			}
			px, py := m.PhysOf(gx, gy)
			if px < rect.X1 || px > rect.X2 || py < rect.Y1 || py > rect.Y2 {
				continue
			}

			w := m.Obstruction(gx, gy, rect.Layer)
			if w.NoNet && w.Net != -1 {
				continue
			}
			if w.Net > 0 && w.Net != int32(net.NetNum) {
				// Assigned to a different net's geometry already: too
				// close to both pins to route either one through here.
				w.NoNet = true
				continue
			}
			// A tap overrides an obstruction (Net -1) left by
			// obstructFromGates.
			w.NoNet = false
			w.Net = int32(net.NetNum)

			ni := m.NodeInfoAt(gx, gy, rect.Layer)
			if ni == nil {
				continue
			}
			ni.NodeLoc = node
			ni.NodeSav = node
			node.NumTaps++

			nearX := px-rect.X1 < halfW || rect.X2-px < halfW
			nearY := py-rect.Y1 < halfW || rect.Y2-py < halfW
			if nearX && !nearY {
				ni.StubAxis = grid.AxisEW
			} else if nearY && !nearX {
				ni.StubAxis = grid.AxisNS
			}
		}
	}
}
