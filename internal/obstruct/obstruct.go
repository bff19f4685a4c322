// Package obstruct implements the node and obstruction analysis that
// projects gate geometry onto the routing grid. It is the densest
// component of the router core: eight ordered phases, each depending on
// the output of the previous, grounded on original_source/node.c and
// original_source/mask.c's pin-adjacent helpers.
package obstruct

import (
	"log"

	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/tech"
)

// Analyze runs the eight obstruction-analysis phases in strict sequence
// over every instance and node of d, writing Obs/NodeInfo/BLOCKED bits
// into m. It must be called exactly once per design, after grid.New and
// before any mask or search call.
//
// force controls the recoverable-tap-error policy: a node left with zero
// reachable taps after the eight phases either has one tap point forcibly
// promoted to routable (force true) or is reported via the returned net
// list so the caller can mark that net failed for this routing run
// (force false) instead of letting it enter a search that can never reach
// the node.
func Analyze(m *grid.Model, t *tech.Technology, d *design.Design, force bool) ([]*design.Net, error) {
	pinlayers := highestPinLayer(d, m.NumLayers)
	m.AllocateNodeInfo(pinlayers)

	clipTaps(m, d)
	expandTaps(d)
	obstructFromGates(m, t, d)
	obstructInsideNodes(m, d)
	obstructOutsideNodes(m, t, d)
	blockVariablePitch(m, t)
	adjustStubLengths(m, t, d)
	blockRouteEdges(m, t, d)

	failed := reconcileReachability(m, d, force)

	m.ReleaseObsInfo()
	return failed, nil
}

// highestPinLayer returns the largest layer index bearing any node tap, so
// NodeInfo can be sized before any phase writes to it.
func highestPinLayer(d *design.Design, numLayers int) int {
	max := 0
	for _, net := range d.Nets {
		for _, n := range net.Nodes {
			for _, tap := range n.Taps {
				if tap.Layer > max {
					max = tap.Layer
				}
			}
		}
	}
	if max >= numLayers {
		max = numLayers - 1
	}
	return max
}

func warnf(format string, args ...any) {
	log.Printf("obstruct: "+format, args...)
}
