package obstruct

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
)

// clipTaps drops any node tap whose grid coordinate falls outside the
// routing area, logging a diagnostic for each one removed. Grounded on
// node.c's clip_gate_taps.
func clipTaps(m *grid.Model, d *design.Design) {
	for _, net := range d.Nets {
		for _, node := range net.Nodes {
			kept := node.Taps[:0]
			for _, tap := range node.Taps {
				if !m.InBounds(tap.GridX, tap.GridY, tap.Layer) {
					warnf("tap of node %d of net %s is outside the route area", node.Index, net.Name)
					continue
				}
				kept = append(kept, tap)
			}
			node.Taps = kept
		}
	}
}
