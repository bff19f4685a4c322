package antenna

import (
	"testing"

	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/route"
	"github.com/lixenwraith/qrouter/internal/tech"
)

func flatTech(ratio float64) *tech.Technology {
	return &tech.Technology{Layers: []tech.Layer{
		{Number: 0, Orientation: tech.Horizontal, Width: 0.2, PitchX: 1, PitchY: 1,
			AntennaMethod: tech.AntennaArea, AntennaRatio: ratio},
	}}
}

func gateNode(x, y, layer int, gateArea float64) *design.Node {
	inst := &design.GateInstance{
		Name:  "u1",
		Macro: &design.GateMacro{Name: "INV", PinGateArea: []float64{gateArea}},
	}
	return &design.Node{
		Taps:     []design.DPoint{{Layer: layer, GridX: x, GridY: y}},
		Gate:     inst,
		PinIndex: 0,
	}
}

func TestCheckFlagsLongWireOverRatio(t *testing.T) {
	m := grid.New(1, 10, 1, 1.0, 1.0, 0.0, 0.0)
	d := design.NewDesign("t")
	net := &design.Net{NetNum: 1, Name: "n", Use: design.UseSignal, Nodes: []*design.Node{
		gateNode(0, 0, 0, 0.01),
		gateNode(9, 0, 0, 0.01),
	}}
	d.AddNet(net)

	r := route.NewRouter(m, flatTech(0.1), d)
	if err := r.RouteNet(net, false); err != nil {
		t.Fatalf("RouteNet() error = %v", err)
	}

	violations := Check(d, m, flatTech(0.1))
	if len(violations) != 1 {
		t.Fatalf("len(violations) = %d, want 1", len(violations))
	}
	v := violations[0]
	if v.Net != net || v.Layer != 0 {
		t.Errorf("violation = %+v, want net %v layer 0", v, net)
	}
	if v.Ratio <= 0.1 {
		t.Errorf("v.Ratio = %v, want > 0.1", v.Ratio)
	}
	if len(v.Nodes) != 2 {
		t.Errorf("len(v.Nodes) = %d, want 2", len(v.Nodes))
	}
}

func TestCheckSkipsWhenAnchorPresent(t *testing.T) {
	m := grid.New(1, 10, 1, 1.0, 1.0, 0.0, 0.0)
	d := design.NewDesign("t")
	net := &design.Net{NetNum: 1, Name: "n", Use: design.UseSignal, Nodes: []*design.Node{
		gateNode(0, 0, 0, 0.01),
		gateNode(9, 0, 0, 0), // zero gate area: a protection diode, caps the subgraph
	}}
	d.AddNet(net)

	tc := flatTech(0.1)
	r := route.NewRouter(m, tc, d)
	if err := r.RouteNet(net, false); err != nil {
		t.Fatalf("RouteNet() error = %v", err)
	}

	if got := Check(d, m, tc); len(got) != 0 {
		t.Errorf("Check() = %+v, want no violations with an anchor node present", got)
	}
}

func TestCheckIgnoresDisabledLayer(t *testing.T) {
	m := grid.New(1, 10, 1, 1.0, 1.0, 0.0, 0.0)
	d := design.NewDesign("t")
	net := &design.Net{NetNum: 1, Name: "n", Use: design.UseSignal, Nodes: []*design.Node{
		gateNode(0, 0, 0, 0.01),
		gateNode(9, 0, 0, 0.01),
	}}
	d.AddNet(net)

	tc := &tech.Technology{Layers: []tech.Layer{
		{Number: 0, Orientation: tech.Horizontal, Width: 0.2, PitchX: 1, PitchY: 1,
			AntennaMethod: tech.AntennaNone},
	}}
	r := route.NewRouter(m, tc, d)
	if err := r.RouteNet(net, false); err != nil {
		t.Fatalf("RouteNet() error = %v", err)
	}

	if got := Check(d, m, tc); len(got) != 0 {
		t.Errorf("Check() = %+v, want no violations when the layer has no antenna method", got)
	}
}

func diodeInstance(gx, gy, layer int, m *grid.Model) *design.GateInstance {
	px, py := m.PhysOf(gx, gy)
	return &design.GateInstance{
		Name:      "antenna0",
		Macro:     &design.GateMacro{Name: "ANTENNADIODE", PinNames: []string{"A"}},
		PinNetNum: []int{0},
		PinNode:   []*design.Node{nil},
		PinTaps:   [][]design.Rect{{{Layer: layer, X1: px, Y1: py, X2: px, Y2: py}}},
	}
}

func TestFixReroutesViolationToFreeTap(t *testing.T) {
	m := grid.New(1, 10, 1, 1.0, 1.0, 0.0, 0.0)
	d := design.NewDesign("t")
	net := &design.Net{NetNum: 1, Name: "n", Use: design.UseSignal, Nodes: []*design.Node{
		gateNode(0, 0, 0, 0.01),
		gateNode(9, 0, 0, 0.01),
	}}
	d.AddNet(net)
	diode := diodeInstance(5, 0, 0, m)
	d.AddInstance(diode)

	tc := flatTech(0.1)
	r := route.NewRouter(m, tc, d)
	if err := r.RouteNet(net, false); err != nil {
		t.Fatalf("RouteNet() error = %v", err)
	}

	violations := Check(d, m, tc)
	if len(violations) != 1 {
		t.Fatalf("len(violations) = %d, want 1", len(violations))
	}

	unfixed := Fix(r, violations, "ANTENNA*")
	if len(unfixed) != 0 {
		t.Fatalf("Fix() left %d unfixed, want 0", len(unfixed))
	}
	if len(net.Routes) != 2 {
		t.Fatalf("len(net.Routes) = %d after Fix, want 2 (original plus fix route)", len(net.Routes))
	}
	if diode.PinNetNum[0] != net.NetNum {
		t.Errorf("diode.PinNetNum[0] = %d, want %d after a successful fix route", diode.PinNetNum[0], net.NetNum)
	}
}

func TestFixRevertsUnusedTaps(t *testing.T) {
	m := grid.New(1, 10, 1, 1.0, 1.0, 0.0, 0.0)
	d := design.NewDesign("t")
	net := &design.Net{NetNum: 1, Name: "n", Use: design.UseSignal}
	d.AddNet(net)
	diode := diodeInstance(5, 0, 0, m)
	d.AddInstance(diode)

	r := route.NewRouter(m, flatTech(0.1), d)
	unfixed := Fix(r, nil, "ANTENNA*")
	if len(unfixed) != 0 {
		t.Fatalf("Fix(nil) = %+v, want no unfixed violations", unfixed)
	}
	if diode.PinNetNum[0] != 0 {
		t.Errorf("diode.PinNetNum[0] = %d after Fix with no violations, want 0 (reverted)", diode.PinNetNum[0])
	}
}
