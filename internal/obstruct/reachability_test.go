package obstruct

import (
	"testing"

	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
)

func TestReconcileReachabilityReportsZeroTapNode(t *testing.T) {
	m := grid.New(1, 10, 10, 1.0, 1.0, 0.0, 0.0)
	m.AllocateNodeInfo(0)
	d := design.NewDesign("t")

	net := &design.Net{NetNum: 1, Name: "n1"}
	node := &design.Node{Net: net, Gate: &design.GateInstance{Name: "I0"}, Taps: []design.DPoint{{Layer: 0, GridX: 5, GridY: 5}}}
	net.Nodes = append(net.Nodes, node)
	d.AddNet(net)

	failed := reconcileReachability(m, d, false)
	if len(failed) != 1 || failed[0] != net {
		t.Fatalf("reconcileReachability() = %v, want [n1]", failed)
	}
}

func TestReconcileReachabilityPromotesWithForce(t *testing.T) {
	m := grid.New(1, 10, 10, 1.0, 1.0, 0.0, 0.0)
	m.AllocateNodeInfo(0)
	d := design.NewDesign("t")

	net := &design.Net{NetNum: 1, Name: "n1"}
	node := &design.Node{Net: net, Gate: &design.GateInstance{Name: "I0"}, Taps: []design.DPoint{{Layer: 0, GridX: 5, GridY: 5}}}
	net.Nodes = append(net.Nodes, node)
	d.AddNet(net)

	failed := reconcileReachability(m, d, true)
	if len(failed) != 0 {
		t.Fatalf("reconcileReachability(force) = %v, want none", failed)
	}
	if node.NumTaps == 0 {
		t.Error("expected promoteNode to increment NumTaps")
	}
	w := m.Obstruction(5, 5, 0)
	if w.Net != 1 || w.NoNet {
		t.Errorf("Obstruction(5,5,0) = {Net:%d NoNet:%v}, want {Net:1 NoNet:false}", w.Net, w.NoNet)
	}
}

func TestReconcileReachabilityExemptsGatelessNode(t *testing.T) {
	m := grid.New(1, 10, 10, 1.0, 1.0, 0.0, 0.0)
	d := design.NewDesign("t")

	net := &design.Net{NetNum: 1, Name: "n1"}
	node := &design.Node{Net: net, Taps: []design.DPoint{{Layer: 0, GridX: 5, GridY: 5}}}
	net.Nodes = append(net.Nodes, node)
	d.AddNet(net)

	failed := reconcileReachability(m, d, false)
	if len(failed) != 0 {
		t.Errorf("reconcileReachability() = %v, want none for a node with no owning gate instance", failed)
	}
}

func TestReconcileReachabilitySkipsNodesWithTaps(t *testing.T) {
	m := grid.New(1, 10, 10, 1.0, 1.0, 0.0, 0.0)
	d := design.NewDesign("t")

	net := &design.Net{NetNum: 1, Name: "n1"}
	node := &design.Node{Net: net, NumTaps: 2}
	net.Nodes = append(net.Nodes, node)
	d.AddNet(net)

	failed := reconcileReachability(m, d, false)
	if len(failed) != 0 {
		t.Errorf("reconcileReachability() = %v, want none for a node with reachable taps", failed)
	}
}
