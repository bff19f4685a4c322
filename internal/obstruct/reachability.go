package obstruct

import (
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
)

// reconcileReachability checks every gate-pin node obstructInsideNodes
// processed for at least one reachable tap grid cell (NumTaps > 0). A node
// with none is a recoverable tap error: with force set, one of the node's
// own tap points is promoted to routable by writing its net number directly
// into Obs, bypassing the spacing/conflict checks obstructInsideNodes
// normally enforces; without force, the node's net is reported so the
// caller can mark it failed for this routing run instead of attempting a
// search that can never reach it. A node with no owning gate instance was
// never subject to obstructInsideNodes in the first place (a power/ground
// stub tap supplied directly rather than rasterized from a macro's pin
// geometry) and is exempt from the check. Grounded on node.c's handling of
// nodes left with nodesav == NULL after create_obstructions_inside_nodes.
func reconcileReachability(m *grid.Model, d *design.Design, force bool) []*design.Net {
	var failed []*design.Net
	for _, net := range d.Nets {
		netFailed := false
		for _, node := range net.Nodes {
			if node.Gate == nil || node.NumTaps > 0 {
				continue
			}
			if force && promoteNode(m, net, node) {
				continue
			}
			netFailed = true
		}
		if netFailed {
			failed = append(failed, net)
		}
	}
	return failed
}

// promoteNode forces the first tap point of node onto the grid as routable,
// regardless of any conflicting obstruction already there.
func promoteNode(m *grid.Model, net *design.Net, node *design.Node) bool {
	if len(node.Taps) == 0 {
		return false
	}
	tap := node.Taps[0]
	if !m.InBounds(tap.GridX, tap.GridY, tap.Layer) {
		return false
	}
	w := m.Obstruction(tap.GridX, tap.GridY, tap.Layer)
	w.NoNet = false
	w.Net = int32(net.NetNum)
	if ni := m.NodeInfoAt(tap.GridX, tap.GridY, tap.Layer); ni != nil {
		ni.NodeLoc = node
		ni.NodeSav = node
	}
	node.NumTaps++
	return true
}
