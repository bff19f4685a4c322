package obstruct

import "github.com/lixenwraith/qrouter/internal/design"

// expandTaps grows each pin's tap rectangles to absorb any other tap
// rectangle of the same pin, on the same layer, that it overlaps or abuts.
// This avoids the router treating a terminal broken into several adjoining
// LEF rectangles as several disconnected, smaller targets. Runs to a
// fixpoint since one merge can expose a second. Grounded on
// node.c's expand_tap_geometry.
func expandTaps(d *design.Design) {
	for _, inst := range d.Instances {
		for i, taps := range inst.PinTaps {
			inst.PinTaps[i] = expandOne(taps)
		}
	}
}

func expandOne(taps []design.Rect) []design.Rect {
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(taps); i++ {
			for j := i + 1; j < len(taps); j++ {
				if taps[i].Layer != taps[j].Layer {
					continue
				}
				if !adjoins(taps[i], taps[j]) {
					continue
				}
				taps[i] = union(taps[i], taps[j])
				taps = append(taps[:j], taps[j+1:]...)
				changed = true
				break
			}
			if changed {
				break
			}
		}
	}
	return taps
}

// adjoins reports whether a and b overlap or share an edge — the geometry
// forms one connected terminal once merged.
func adjoins(a, b design.Rect) bool {
	if a.X1 > b.X2 || b.X1 > a.X2 {
		return false
	}
	if a.Y1 > b.Y2 || b.Y1 > a.Y2 {
		return false
	}
	return true
}

func union(a, b design.Rect) design.Rect {
	r := design.Rect{Layer: a.Layer}
	r.X1 = minf(a.X1, b.X1)
	r.Y1 = minf(a.Y1, b.Y1)
	r.X2 = maxf(a.X2, b.X2)
	r.Y2 = maxf(a.Y2, b.Y2)
	return r
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
