package cleanup

import (
	"testing"

	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/grid"
	"github.com/lixenwraith/qrouter/internal/tech"
)

func twoLayerTech() *tech.Technology {
	via := &tech.ViaType{
		Name:        "V01",
		BottomLayer: 0,
		TopLayer:    1,
		WidthX:      [2]float64{0.9, 0.9},
		WidthY:      [2]float64{0.3, 0.3},
		Resistance:  1,
	}
	t := &tech.Technology{
		Layers: []tech.Layer{
			{Number: 0, Orientation: tech.Horizontal, Width: 0.2, PitchX: 1, PitchY: 1, Spacing: []tech.SpacingRule{{MinWidth: 0, Spacing: 0.2}}},
			{Number: 1, Orientation: tech.Vertical, Width: 0.2, PitchX: 1, PitchY: 1},
		},
		Vias: []tech.ViaType{*via},
	}
	idx := tech.ViaIndex(tech.Horizontal, tech.Vertical)
	t.Layers[0].ViaTypes[idx] = via
	return t
}

func TestNeedBlockFlagsCloseViaPitch(t *testing.T) {
	tc := twoLayerTech()
	blockX, blockY := needBlock(tc, 0)
	if !blockX {
		t.Error("blockX = false, want true (via width 0.9 + spacing 0.2 > pitch 1)")
	}
	if blockY {
		t.Error("blockY = true, want false (via height 0.3 well under pitch 1)")
	}
}

func TestFixAdjacentViasMergesSameLayerPair(t *testing.T) {
	tc := twoLayerTech()
	net := &design.Net{NetNum: 1, Name: "n"}
	rt1 := &design.Route{NetNum: 1, Segments: []design.Segment{
		{Layer: 0, X1: 2, Y1: 0, X2: 2, Y2: 0, Type: design.SegVia},
		{Layer: 1, X1: 2, Y1: 0, X2: 2, Y2: 5, Type: design.SegWire},
	}}
	rt2 := &design.Route{NetNum: 1, Segments: []design.Segment{
		{Layer: 0, X1: 3, Y1: 0, X2: 3, Y2: 0, Type: design.SegVia},
		{Layer: 1, X1: 3, Y1: 0, X2: 3, Y2: 5, Type: design.SegWire},
	}}
	net.Routes = []*design.Route{rt1, rt2}

	m := grid.New(2, 10, 10, 1.0, 1.0, 0.0, 0.0)
	changed := fixAdjacentVias(net, rt1, tc)
	if !changed {
		t.Fatal("expected fixAdjacentVias to report a change")
	}
	got := rt1.Segments[0]
	if got.Type != design.SegWire || got.Layer != 1 {
		t.Fatalf("rt1.Segments[0] = %+v, want a layer-1 wire replacing the via", got)
	}
	if got.X1 != 2 || got.Y1 != 0 || got.X2 != 3 || got.Y2 != 0 {
		t.Errorf("rt1.Segments[0] span = (%d,%d)-(%d,%d), want (2,0)-(3,0)", got.X1, got.Y1, got.X2, got.Y2)
	}
	_ = m
}

func TestFixRedundantViaDropsOuterVia(t *testing.T) {
	m := grid.New(2, 10, 10, 1.0, 1.0, 0.0, 0.0)
	m.Obstruction(5, 0, 0).Net = 7
	m.Obstruction(5, 0, 1).Net = 7

	rt := &design.Route{NetNum: 7, Segments: []design.Segment{
		{Layer: 0, X1: 5, Y1: 0, X2: 5, Y2: 0, Type: design.SegVia},
		{Layer: 0, X1: 5, Y1: 0, X2: 6, Y2: 0, Type: design.SegWire},
		{Layer: 0, X1: 6, Y1: 0, X2: 6, Y2: 0, Type: design.SegVia},
		{Layer: 1, X1: 6, Y1: 0, X2: 6, Y2: 5, Type: design.SegWire},
	}}
	if !fixRedundantVia(m, rt) {
		t.Fatal("expected fixRedundantVia to report a change")
	}
	if len(rt.Segments) != 3 {
		t.Fatalf("len(rt.Segments) = %d, want 3 after dropping the outer via", len(rt.Segments))
	}
	if rt.Segments[0].Type != design.SegWire {
		t.Errorf("rt.Segments[0] = %+v, want the surviving wire", rt.Segments[0])
	}
}

func TestFixRedundantViaSkipsWhenLayersDisagreeOnNet(t *testing.T) {
	m := grid.New(2, 10, 10, 1.0, 1.0, 0.0, 0.0)
	m.Obstruction(5, 0, 0).Net = 7
	m.Obstruction(5, 0, 1).Net = 9 // different net: not actually redundant

	rt := &design.Route{NetNum: 7, Segments: []design.Segment{
		{Layer: 0, X1: 5, Y1: 0, X2: 5, Y2: 0, Type: design.SegVia},
		{Layer: 0, X1: 5, Y1: 0, X2: 6, Y2: 0, Type: design.SegWire},
		{Layer: 0, X1: 6, Y1: 0, X2: 6, Y2: 0, Type: design.SegVia},
	}}
	if fixRedundantVia(m, rt) {
		t.Error("expected no change when the two candidate layers disagree on net ownership")
	}
}
