package antenna

import (
	"github.com/gobwas/glob"

	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/route"
	"github.com/lixenwraith/qrouter/internal/search"
)

// freeTap is one unconnected gate pin matching the antenna-cell pattern,
// held in reserve as a fix-route target. Mirrors antenna.c's
// find_free_antenna_taps bookkeeping.
type freeTap struct {
	inst  *design.GateInstance
	pin   int
	gx, gy, layer int
	used  bool
}

// Fix attempts to reroute every violation's subgraph to a free antenna tap
// restricted to layers at or below the violation, diverting the excess
// charge into spare unconnected diode/fill pins rather than the gate it
// would otherwise damage. Taps actually reached are permanently claimed for
// the violation's net; every other candidate tap claimed for the search but
// never used is released back to unconnected afterward. Violations that
// can't reach any free tap are returned unchanged for the caller to decide
// how to handle (usually: leave them for a human to review).
//
// cellPattern is a glob over macro names identifying which placed cells
// carry spare antenna taps (e.g. "ANTENNA*" or "DIODE*"); only their
// unconnected pins are considered. Grounded on antenna.c's
// set_antenna_to_net/antenna_setup/doantennaroute/revert_antenna_taps.
func Fix(r *route.Router, violations []Violation, cellPattern string) []Violation {
	taps := claimFreeTaps(r.Design, r.Model, cellPattern)
	defer revertUnusedTaps(taps)

	var unfixed []Violation
	for _, v := range violations {
		if !fixOne(r, v, taps) {
			unfixed = append(unfixed, v)
		}
	}
	return unfixed
}

func claimFreeTaps(d *design.Design, m *grid.Model, pattern string) []*freeTap {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil
	}
	var out []*freeTap
	for _, inst := range d.Instances {
		if !g.Match(inst.Macro.Name) {
			continue
		}
		for i, netNum := range inst.PinNetNum {
			if netNum != 0 || inst.PinNode[i] != nil {
				continue
			}
			taps := inst.PinTaps[i]
			if len(taps) == 0 {
				continue
			}
			rect := taps[0]
			cx, cy := (rect.X1+rect.X2)/2, (rect.Y1+rect.Y2)/2
			gx, gy := m.GridOf(cx, cy)
			inst.PinNetNum[i] = NetNum
			out = append(out, &freeTap{inst: inst, pin: i, gx: gx, gy: gy, layer: rect.Layer})
		}
	}
	return out
}

func revertUnusedTaps(taps []*freeTap) {
	for _, t := range taps {
		if !t.used {
			t.inst.PinNetNum[t.pin] = 0
		}
	}
}

func fixOne(r *route.Router, v Violation, taps []*freeTap) bool {
	s := search.NewSearcher(r.Model, r.Tech)
	s.NetNum = v.Net.NetNum
	s.MaxLayer = v.Layer + 1

	for _, node := range v.Nodes {
		for _, tap := range node.Taps {
			s.SeedSource(tap.GridX, tap.GridY, tap.Layer)
		}
	}

	var candidates []*freeTap
	for _, t := range taps {
		if t.used || t.layer > v.Layer {
			continue
		}
		s.SeedTarget(t.gx, t.gy, t.layer)
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		s.Reset()
		return false
	}

	res := s.Run()
	if !res.OK {
		s.Reset()
		return false
	}
	path, srcX, srcY, srcLayer := s.TraceBack(res.X, res.Y, res.Layer)
	s.Reset()

	route.CommitFix(r.Model, v.Net, srcX, srcY, srcLayer, path)

	for _, t := range candidates {
		if t.gx == res.X && t.gy == res.Y && t.layer == res.Layer {
			t.used = true
			t.inst.PinNetNum[t.pin] = v.Net.NetNum
			break
		}
	}
	return true
}
