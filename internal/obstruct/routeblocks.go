package obstruct

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// blockRouteEdges looks for tap geometry lying close enough to a route
// track's edge (as opposed to directly under a grid point, already handled
// by obstructFromGates) to cause a spacing violation if a wire ran along
// that track. Both ends of the offending track segment get BlockRoute
// called against them, so the maze search simply never offers that move.
// Grounded on node.c's find_route_blocks / block_route.
func blockRouteEdges(m *grid.Model, t *tech.Technology, d *design.Design) {
	for _, inst := range d.Instances {
		for i, taps := range inst.PinTaps {
			if inst.PinNetNum[i] != 0 {
				continue
			}
			for _, rect := range taps {
				blockEdgesNear(m, t, rect)
			}
		}
		for _, rect := range inst.Obstructions {
			blockEdgesNear(m, t, rect)
		}
	}
}

func blockEdgesNear(m *grid.Model, t *tech.Technology, rect design.Rect) {
	layer := t.LayerByNumber(rect.Layer)
	if layer == nil {
		return
	}
	s := layer.SpacingFor(layer.Width)

	gx1, gy1 := m.GridOf(rect.X1-s, rect.Y1-s)
	gx2, gy2 := m.GridOf(rect.X2+s, rect.Y2+s)
	gx1, gy1 = clampGrid(gx1, m.NumChannelsX), clampGrid(gy1, m.NumChannelsY)
	gx2, gy2 = clampGrid(gx2, m.NumChannelsX), clampGrid(gy2, m.NumChannelsY)

	for gy := gy1; gy <= gy2; gy++ {
		for gx := gx1; gx <= gx2; gx++ {
			if !m.InBounds(gx, gy, rect.Layer) {
				continue
			}
			px, py := m.PhysOf(gx, gy)

			if py >= rect.Y1 && py <= rect.Y2 {
				if px < rect.X1 && rect.X1-px < s {
					m.BlockRoute(gx, gy, rect.Layer, grid.DirE)
				}
				if px > rect.X2 && px-rect.X2 < s {
					m.BlockRoute(gx, gy, rect.Layer, grid.DirW)
				}
			}
			if px >= rect.X1 && px <= rect.X2 {
				if py < rect.Y1 && rect.Y1-py < s {
					m.BlockRoute(gx, gy, rect.Layer, grid.DirN)
				}
				if py > rect.Y2 && py-rect.Y2 < s {
					m.BlockRoute(gx, gy, rect.Layer, grid.DirS)
				}
			}
		}
	}
}
