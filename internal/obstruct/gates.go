package obstruct

import (
	"math"

	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// obstructFromGates marks every grid position inside, or too close to, a
// placed obstruction rectangle. A position wholly inside the rectangle
// becomes NO_NET; a position within the layer's spacing rule of the
// rectangle gets a partial block in the rectangle's direction plus the
// clearance distance in ObsInfo, so the maze search can still route past
// it by stepping away first. Grounded on node.c's
// create_obstructions_from_gates and check_obstruct.
func obstructFromGates(m *grid.Model, t *tech.Technology, d *design.Design) {
	for _, inst := range d.Instances {
		for _, rect := range inst.Obstructions {
			markObstruction(m, t, rect)
		}
		for i, taps := range inst.PinTaps {
			if inst.PinNetNum[i] != 0 {
				continue // connected pin, not a free-standing obstruction
			}
			for _, tap := range taps {
				markObstruction(m, t, tap)
			}
		}
	}
}

func markObstruction(m *grid.Model, t *tech.Technology, rect design.Rect) {
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
			dx, dy := m.PhysOf(gx, gy)
			checkObstruct(m, gx, gy, rect, dx, dy, s)
		}
	}
}

func clampGrid(g, n int) int {
	if g < 0 {
		return 0
	}
	if g >= n {
		return n - 1
	}
	return g
}

// checkObstruct is the per-cell decision: fully inside the rectangle means
// NO_NET; within s of the boundary means a directional partial block with
// the Euclidean clearance distance recorded for the search to consult.
func checkObstruct(m *grid.Model, gx, gy int, rect design.Rect, dx, dy, s float64) {
	w := m.Obstruction(gx, gy, rect.Layer)

	if dx >= rect.X1 && dx <= rect.X2 && dy >= rect.Y1 && dy <= rect.Y2 {
		w.NoNet = true
		w.Net = -1
		return
	}

	xp, yp := dx, dy
	if xp < rect.X1 {
		xp = rect.X1
	} else if xp > rect.X2 {
		xp = rect.X2
	}
	if yp < rect.Y1 {
		yp = rect.Y1
	} else if yp > rect.Y2 {
		yp = rect.Y2
	}
	edist := math.Hypot(dx-xp, dy-yp)
	if edist >= s {
		return
	}

	dir := nearestDir(dx, dy, rect)
	if w.ObstructDir != grid.DirNone && w.ObstructDir != dir {
		// Two conflicting obstruction directions: no escape route exists.
		w.NoNet = true
		w.Net = -1
		return
	}
	w.ObstructDir = dir
	w.SetBlocked(dir)
	if info := m.Info(gx, gy, rect.Layer); info != nil {
		*info = float32(edist)
	}
}

func nearestDir(dx, dy float64, rect design.Rect) grid.Direction {
	cx := (rect.X1 + rect.X2) / 2
	cy := (rect.Y1 + rect.Y2) / 2
	ddx := dx - cx
	ddy := dy - cy
	if math.Abs(ddx) > math.Abs(ddy) {
		if ddx < 0 {
			return grid.DirW
		}
		return grid.DirE
	}
	if ddy < 0 {
		return grid.DirS
	}
	return grid.DirN
}
