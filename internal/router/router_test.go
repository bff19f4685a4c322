package router

import (
	"os"
	"strings"
	"testing"

	"github.com/lixenwraith/qrouter/internal/config"
	"github.com/lixenwraith/qrouter/internal/design"
	"github.com/lixenwraith/qrouter/internal/tech"
)

func flatTech() *tech.Technology {
	return &tech.Technology{Layers: []tech.Layer{
		{Name: "m1", Number: 0, Orientation: tech.Horizontal, Width: 0.2, PitchX: 1, PitchY: 1,
			Spacing: []tech.SpacingRule{{MinWidth: 0, Spacing: 0.2}}},
		{Name: "m2", Number: 1, Orientation: tech.Vertical, Width: 0.2, PitchX: 1, PitchY: 1,
			Spacing: []tech.SpacingRule{{MinWidth: 0, Spacing: 0.2}}},
	}}
}

func tapNode(x, y, layer int) *design.Node {
	return &design.Node{Taps: []design.DPoint{{Layer: layer, GridX: x, GridY: y}}}
}

func twoNodeDesign() *design.Design {
	d := design.NewDesign("t")
	d.Xub, d.Yub = 20, 10
	net := &design.Net{NetNum: 1, Name: "A", Use: design.UseSignal, Nodes: []*design.Node{
		tapNode(1, 1, 0),
		tapNode(10, 1, 0),
	}}
	d.AddNet(net)
	return d
}

func TestNewAllocatesGridAndRuns(t *testing.T) {
	d := twoNodeDesign()
	c, err := New(d, flatTech(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Model.NumLayers != 2 {
		t.Errorf("NumLayers = %d, want 2", c.Model.NumLayers)
	}
}

func TestDispatchStage1RoutesNet(t *testing.T) {
	d := twoNodeDesign()
	c, err := New(d, flatTech(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Dispatch("stage1", nil); err != nil {
		t.Fatalf("Dispatch(stage1) error = %v", err)
	}
	if len(c.Stage.Failed()) != 0 {
		t.Errorf("Failed() = %v, want none", c.Stage.Failed())
	}
	if len(d.Nets[0].Routes) == 0 {
		t.Error("expected net A to have a committed route after stage1")
	}
}

func TestDispatchWriteFailedFormat(t *testing.T) {
	d := design.NewDesign("t")
	d.Xub, d.Yub = 20, 10
	// Two taps with no legal path between them (row 0, which holds both
	// taps, is NO_NET on both layers, so the search can never enter the
	// target tap cell) so stage1 leaves this net failed.
	failNet := &design.Net{NetNum: 1, Name: "B", Use: design.UseSignal, Nodes: []*design.Node{
		tapNode(0, 0, 0), tapNode(19, 0, 0),
	}}
	d.AddNet(failNet)

	c, err := New(d, flatTech(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for x := 0; x < c.Model.NumChannelsX; x++ {
		c.Model.Obstruction(x, 0, 0).NoNet = true
		c.Model.Obstruction(x, 0, 1).NoNet = true
	}
	if err := c.Dispatch("stage1", nil); err != nil {
		t.Fatalf("Dispatch(stage1) error = %v", err)
	}
	if len(c.Stage.Failed()) != 1 {
		t.Fatalf("Failed() = %v, want exactly net B", c.Stage.Failed())
	}

	tmp := t.TempDir() + "/failed.txt"
	if err := c.Dispatch("write_failed", []string{tmp}); err != nil {
		t.Fatalf("Dispatch(write_failed) error = %v", err)
	}
	data, err := os.ReadFile(tmp)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := "1 nets failed to route:\nB\n"
	if string(data) != want {
		t.Errorf("write_failed output = %q, want %q", string(data), want)
	}
}

func TestDispatchIgnorePriorityAndCost(t *testing.T) {
	d := twoNodeDesign()
	second := &design.Net{NetNum: 2, Name: "B", Use: design.UseSignal}
	d.AddNet(second)
	c, err := New(d, flatTech(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := c.Dispatch("ignore", []string{"A"}); err != nil {
		t.Fatalf("Dispatch(ignore) error = %v", err)
	}
	if !d.NetOf["A"].HasFlag(design.NetIgnored) {
		t.Error("expected net A to carry NetIgnored after ignore")
	}

	if err := c.Dispatch("priority", []string{"B"}); err != nil {
		t.Fatalf("Dispatch(priority) error = %v", err)
	}
	if d.Nets[0].Name != "B" {
		t.Errorf("Nets[0] = %q, want B after priority", d.Nets[0].Name)
	}

	if err := c.Dispatch("cost", []string{"via", "25"}); err != nil {
		t.Fatalf("Dispatch(cost) error = %v", err)
	}
	if c.Config.Cost.Via != 25 || c.Router.ViaCost != 25 {
		t.Errorf("Cost.Via/Router.ViaCost = %d/%d, want 25/25", c.Config.Cost.Via, c.Router.ViaCost)
	}

	if err := c.Dispatch("cost", []string{"offset", "4"}); err != nil {
		t.Fatalf("Dispatch(cost offset) error = %v", err)
	}
	if c.Config.Cost.Offset != 4 || c.Router.OffsetCost != 4 {
		t.Errorf("Cost.Offset/Router.OffsetCost = %d/%d, want 4/4", c.Config.Cost.Offset, c.Router.OffsetCost)
	}

	if err := c.Dispatch("cost", []string{"block", "6"}); err != nil {
		t.Fatalf("Dispatch(cost block) error = %v", err)
	}
	if c.Config.Cost.Block != 6 || c.Router.BlockCost != 6 {
		t.Errorf("Cost.Block/Router.BlockCost = %d/%d, want 6/6", c.Config.Cost.Block, c.Router.BlockCost)
	}

	if err := c.Dispatch("via", []string{"stack", "3"}); err != nil {
		t.Fatalf("Dispatch(via stack) error = %v", err)
	}
	if c.Config.ViaStack != 3 || c.Router.ViaStack != 3 {
		t.Errorf("Config.ViaStack/Router.ViaStack = %d/%d, want 3/3", c.Config.ViaStack, c.Router.ViaStack)
	}
}

func TestDispatchLayerInfoMaxlayer(t *testing.T) {
	d := twoNodeDesign()
	c, err := New(d, flatTech(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Dispatch("layer_info", []string{"maxlayer"}); err != nil {
		t.Fatalf("Dispatch(layer_info) error = %v", err)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := twoNodeDesign()
	c, _ := New(d, flatTech(), nil)
	err := c.Dispatch("frobnicate", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("Dispatch(frobnicate) error = %v, want an unknown-command error", err)
	}
}

func TestDispatchExternalCommandsAreRejected(t *testing.T) {
	d := twoNodeDesign()
	c, _ := New(d, flatTech(), nil)
	for _, cmd := range []string{"read_lef", "read_def", "write_def", "write_delays"} {
		if err := c.Dispatch(cmd, []string{"x"}); err == nil {
			t.Errorf("Dispatch(%s) = nil error, want an external-collaborator error", cmd)
		}
	}
}

func TestConfigDefaultWiredIntoNewContext(t *testing.T) {
	d := twoNodeDesign()
	cfg := config.Default()
	cfg.Cost.Via = 99
	c, err := New(d, flatTech(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Router.ViaCost != 99 {
		t.Errorf("Router.ViaCost = %d, want 99", c.Router.ViaCost)
	}
}
