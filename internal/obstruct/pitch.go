package obstruct

import (
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// blockVariablePitch handles layers whose native route pitch is larger than
// the shared grid pitch (rounded up to a whole number of grid steps): rather
// than support a second grid
// resolution, only every Nth track is kept routable on that layer and the
// rest are marked NO_NET, so a contact on the layer below never lands
// closer than the layer's real minimum pitch allows. Grounded on node.c's
// check_variable_pitch / create_obstructions_from_variable_pitch.
func blockVariablePitch(m *grid.Model, t *tech.Technology) {
	for i := range t.Layers {
		l := &t.Layers[i]
		if l.Number >= m.NumLayers {
			continue
		}
		switch l.Orientation {
		case tech.Horizontal:
			vnum := trackMultiple(l.PitchY, m.PitchY, l.Width, l.SpacingFor(l.Width))
			if vnum <= 1 {
				continue
			}
			for gy := 0; gy < m.NumChannelsY; gy++ {
				if gy%vnum == 0 {
					continue
				}
				for gx := 0; gx < m.NumChannelsX; gx++ {
					m.Obstruction(gx, gy, l.Number).NoNet = true
				}
			}
		case tech.Vertical:
			hnum := trackMultiple(l.PitchX, m.PitchX, l.Width, l.SpacingFor(l.Width))
			if hnum <= 1 {
				continue
			}
			for gx := 0; gx < m.NumChannelsX; gx++ {
				if gx%hnum == 0 {
					continue
				}
				for gy := 0; gy < m.NumChannelsY; gy++ {
					m.Obstruction(gx, gy, l.Number).NoNet = true
				}
			}
		}
	}
}

// trackMultiple returns how many grid steps of size gridPitch fit in one
// native pitch of the layer, rounding up so the kept tracks never violate
// the layer's own width-plus-spacing requirement.
func trackMultiple(nativePitch, gridPitch, width, spacing float64) int {
	required := width + spacing
	if required < nativePitch {
		required = nativePitch
	}
	n := 1
	for float64(n)*gridPitch+1e-9 < required {
		n++
	}
	return n
}
