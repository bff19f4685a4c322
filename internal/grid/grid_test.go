package grid

import "testing"

func TestGridPhysRoundTrip(t *testing.T) {
	m := New(2, 10, 10, 1.0, 1.0, 0.0, 0.0)

	x, y := m.GridOf(5.4, 7.9)
	if x != 5 || y != 7 {
		t.Errorf("GridOf(5.4, 7.9) = (%d, %d), want (5, 7)", x, y)
	}

	xu, yu := m.PhysOf(5, 7)
	if xu != 5.0 || yu != 7.0 {
		t.Errorf("PhysOf(5, 7) = (%v, %v), want (5.0, 7.0)", xu, yu)
	}
}

func TestBlockRouteMirrorsBit(t *testing.T) {
	m := New(1, 10, 10, 1.0, 1.0, 0.0, 0.0)

	m.BlockRoute(3, 3, 0, DirN)

	if !m.Obstruction(3, 3, 0).IsBlocked(DirN) {
		t.Error("expected (3,3) blocked to the north")
	}
	if !m.Obstruction(3, 4, 0).IsBlocked(DirS) {
		t.Error("expected (3,4) blocked to the south (mirror)")
	}
}

func TestBlockRouteOutOfBoundsNoop(t *testing.T) {
	m := New(1, 10, 10, 1.0, 1.0, 0.0, 0.0)

	// Should not panic when the neighbor falls outside the grid.
	m.BlockRoute(0, 0, 0, DirW)
	m.BlockRoute(9, 9, 0, DirE)
}

func TestBlockRouteSkipsNoNetNeighbor(t *testing.T) {
	m := New(1, 10, 10, 1.0, 1.0, 0.0, 0.0)
	m.Obstruction(3, 4, 0).NoNet = true

	m.BlockRoute(3, 3, 0, DirN)

	if m.Obstruction(3, 3, 0).IsBlocked(DirN) {
		t.Error("BlockRoute should no-op when the neighbor is NO_NET")
	}
}

func TestAllocateNodeInfoAndRelease(t *testing.T) {
	m := New(4, 5, 5, 1.0, 1.0, 0.0, 0.0)
	m.AllocateNodeInfo(1)

	if got := len(m.NodeInfo); got != 2*5*5 {
		t.Errorf("NodeInfo len = %d, want %d", got, 2*5*5)
	}
	if ni := m.NodeInfoAt(0, 0, 3); ni != nil {
		t.Error("expected nil NodeInfo above Pinlayers")
	}
	if ni := m.NodeInfoAt(0, 0, 1); ni == nil {
		t.Error("expected non-nil NodeInfo at Pinlayers boundary")
	}

	m.ReleaseObsInfo()
	if m.Info(0, 0, 0) != nil {
		t.Error("expected nil ObsInfo after ReleaseObsInfo")
	}
}

func TestFillMask(t *testing.T) {
	m := New(1, 3, 3, 1.0, 1.0, 0.0, 0.0)
	m.FillMask(7)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if m.Mask(x, y) != 7 {
				t.Errorf("Mask(%d,%d) = %d, want 7", x, y, m.Mask(x, y))
			}
		}
	}
}
